package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// wireNode is the document form of a node. Editor-only keys such as
// selected, dragging, positionAbsolute, resizing, style and dragHandle are
// not listed and are dropped on decode.
type wireNode struct {
	ID       string          `json:"id"`
	Type     NodeKind        `json:"type"`
	Position Position        `json:"position"`
	Width    *float64        `json:"width,omitempty"`
	Height   *float64        `json:"height,omitempty"`
	Data     json.RawMessage `json:"data"`
}

type appData struct {
	Keyword string          `json:"keyword"`
	Config  map[string]any  `json:"config"`
	Cache   *CacheConfig    `json:"cache,omitempty"`
	Schema  *EmbeddedSchema `json:"schema,omitempty"`
}

type dispatchData struct {
	Keyword string         `json:"keyword"`
	Config  map[string]any `json:"config"`
}

type keywordData struct {
	Keyword string `json:"keyword"`
}

// Keys of a code node's data object.
const (
	codeKeyNim     = "code"
	codeKeyJS      = "codeJS"
	codeKeyPrefix  = "code_"
	codeKeyArgs    = "codeArgs"
	codeKeyOutputs = "codeOutputs"
	codeKeyCache   = "cache"
)

// MarshalJSON encodes the node in the document form.
func (n Node) MarshalJSON() ([]byte, error) {
	data, err := EncodePayload(n.Payload)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.ID, err)
	}
	w := wireNode{
		ID:       n.ID,
		Type:     n.Kind(),
		Position: n.Position,
		Data:     data,
	}
	if n.Size != nil {
		width, height := n.Size.W, n.Size.H
		w.Width = &width
		w.Height = &height
	}
	return marshal(w)
}

// UnmarshalJSON decodes a node from the document form.
func (n *Node) UnmarshalJSON(b []byte) error {
	var w wireNode
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Type == "" {
		return &DecodeError{Path: "node " + w.ID, Err: errors.New("missing type")}
	}
	p, err := DecodePayload(w.Type, w.Data)
	if err != nil {
		return &DecodeError{Path: "node " + w.ID, Err: err}
	}

	*n = Node{ID: w.ID, Position: w.Position, Payload: p}
	if w.Width != nil || w.Height != nil {
		n.Size = &Size{}
		if w.Width != nil {
			n.Size.W = *w.Width
		}
		if w.Height != nil {
			n.Size.H = *w.Height
		}
	}
	return nil
}

// EncodePayload returns the data object of a payload.
func EncodePayload(p Payload) (json.RawMessage, error) {
	var v any
	switch p := p.(type) {
	case AppPayload:
		v = appData{Keyword: p.AppKeyword, Config: nonNilConfig(p.Config), Cache: p.Cache, Schema: p.Schema}
	case DispatchPayload:
		v = dispatchData{Keyword: p.EventKeyword, Config: nonNilConfig(p.Config)}
	case EventPayload:
		v = keywordData{Keyword: p.TriggerKeyword}
	case StatePayload:
		v = keywordData{Keyword: p.FieldName}
	case SceneRefPayload:
		v = keywordData{Keyword: p.TargetSceneID}
	case CodePayload:
		v = encodeCode(p)
	case UnknownPayload:
		if len(p.Data) == 0 {
			return json.RawMessage("{}"), nil
		}
		return json.RawMessage(p.Data), nil
	case nil:
		return nil, errors.New("missing payload")
	default:
		return nil, fmt.Errorf("unsupported payload %T", p)
	}
	b, err := marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// DecodePayload builds the payload of a node of the given kind from its
// data object. Kinds this package does not model decode to UnknownPayload.
func DecodePayload(kind NodeKind, data json.RawMessage) (Payload, error) {
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}
	switch kind {
	case KindApp:
		var d appData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return AppPayload{AppKeyword: d.Keyword, Config: nilIfEmpty(d.Config), Cache: d.Cache, Schema: d.Schema}, nil
	case KindDispatch:
		var d dispatchData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return DispatchPayload{EventKeyword: d.Keyword, Config: nilIfEmpty(d.Config)}, nil
	case KindEvent, KindState, KindScene:
		var d keywordData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		switch kind {
		case KindEvent:
			return EventPayload{TriggerKeyword: d.Keyword}, nil
		case KindState:
			return StatePayload{FieldName: d.Keyword}, nil
		}
		return SceneRefPayload{TargetSceneID: d.Keyword}, nil
	case KindCode:
		return decodeCode(data)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	norm, err := marshal(v)
	if err != nil {
		return nil, err
	}
	return UnknownPayload{Type: string(kind), Data: norm}, nil
}

func encodeCode(p CodePayload) map[string]any {
	out := make(map[string]any, len(p.SourceByLanguage)+3)
	for lang, src := range p.SourceByLanguage {
		out[codeKey(lang)] = src
	}
	if len(p.Args) > 0 {
		out[codeKeyArgs] = p.Args
	}
	if len(p.Outputs) > 0 {
		out[codeKeyOutputs] = p.Outputs
	}
	if p.Cache != nil {
		out[codeKeyCache] = p.Cache
	}
	return out
}

func decodeCode(data json.RawMessage) (Payload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	var p CodePayload
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := raw[k]
		switch k {
		case codeKeyArgs:
			if err := json.Unmarshal(v, &p.Args); err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
		case codeKeyOutputs:
			if err := json.Unmarshal(v, &p.Outputs); err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
		case codeKeyCache:
			if err := json.Unmarshal(v, &p.Cache); err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
		default:
			lang, ok := codeLang(k)
			if !ok {
				continue
			}
			var src string
			if err := json.Unmarshal(v, &src); err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			if p.SourceByLanguage == nil {
				p.SourceByLanguage = make(map[string]string)
			}
			p.SourceByLanguage[lang] = src
		}
	}
	if len(p.Args) == 0 {
		p.Args = nil
	}
	if len(p.Outputs) == 0 {
		p.Outputs = nil
	}
	return p, nil
}

func codeKey(lang string) string {
	switch lang {
	case LangNim:
		return codeKeyNim
	case LangJS:
		return codeKeyJS
	}
	return codeKeyPrefix + lang
}

func codeLang(key string) (string, bool) {
	switch key {
	case codeKeyNim:
		return LangNim, true
	case codeKeyJS:
		return LangJS, true
	}
	if strings.HasPrefix(key, codeKeyPrefix) && len(key) > len(codeKeyPrefix) {
		return strings.TrimPrefix(key, codeKeyPrefix), true
	}
	return "", false
}

// marshal is json.Marshal without HTML escaping, so code and text values
// stay readable in the document.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func nonNilConfig(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nilIfEmpty(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}

// UnmarshalJSON decodes an edge and derives its kind from the handles.
func (e *Edge) UnmarshalJSON(b []byte) error {
	type alias Edge
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*e = Edge(a)
	e.Kind = KindForHandles(e.SourceHandle, e.TargetHandle)
	return nil
}

// MarshalJSON always writes fields, nodes and edges as arrays.
func (s Scene) MarshalJSON() ([]byte, error) {
	type alias Scene
	a := alias(s)
	if a.Fields == nil {
		a.Fields = []StateField{}
	}
	if a.Nodes == nil {
		a.Nodes = []Node{}
	}
	if a.Edges == nil {
		a.Edges = []Edge{}
	}
	return marshal(a)
}

// UnmarshalJSON decodes a scene document. Empty collections decode to nil.
func (s *Scene) UnmarshalJSON(b []byte) error {
	type alias Scene
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*s = Scene(a)
	if len(s.Fields) == 0 {
		s.Fields = nil
	}
	for i := range s.Fields {
		if len(s.Fields[i].Options) == 0 {
			s.Fields[i].Options = nil
		}
	}
	if len(s.Nodes) == 0 {
		s.Nodes = nil
	}
	if len(s.Edges) == 0 {
		s.Edges = nil
	}
	return nil
}
