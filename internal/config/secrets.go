package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads a secret value using the *_FILE convention.
// If envName+"_FILE" is set, the secret is read from that file and
// surrounding whitespace is trimmed. Otherwise the value of envName is
// returned, which may be empty.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// MQTTCredentials are the broker login, both optional.
type MQTTCredentials struct {
	Username string
	Password string
}

// ResolveMQTTCredentials reads MQTT_USERNAME and MQTT_PASSWORD, each with
// *_FILE support.
func ResolveMQTTCredentials() (MQTTCredentials, error) {
	var creds MQTTCredentials
	var err error
	if creds.Username, err = ResolveSecret("MQTT_USERNAME"); err != nil {
		return MQTTCredentials{}, err
	}
	if creds.Password, err = ResolveSecret("MQTT_PASSWORD"); err != nil {
		return MQTTCredentials{}, err
	}
	return creds, nil
}
