package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// LoadScenes loads scenes from a JSON file holding either one scene object
// or an array of scenes.
func LoadScenes(path string) ([]Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	scenes, err := ParseScenes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return scenes, nil
}

// ParseScenes decodes one scene object or an array of scenes.
func ParseScenes(data []byte) ([]Scene, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, &DecodeError{Path: "document", Err: fmt.Errorf("empty input")}
	}

	if trimmed[0] == '[' {
		var scenes []Scene
		if err := json.Unmarshal(trimmed, &scenes); err != nil {
			return nil, err
		}
		return scenes, nil
	}

	var s Scene
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, err
	}
	return []Scene{s}, nil
}
