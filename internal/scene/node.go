package scene

// NodeKind is the discriminator of a node's payload.
type NodeKind string

const (
	KindApp      NodeKind = "app"
	KindEvent    NodeKind = "event"
	KindState    NodeKind = "state"
	KindCode     NodeKind = "code"
	KindScene    NodeKind = "scene"
	KindDispatch NodeKind = "dispatch"
)

// Known reports whether k is one of the node kinds this package models.
func (k NodeKind) Known() bool {
	switch k {
	case KindApp, KindEvent, KindState, KindCode, KindScene, KindDispatch:
		return true
	}
	return false
}

// Node is a typed vertex of a scene graph. Its kind is carried by the
// concrete Payload type.
type Node struct {
	ID       string
	Position Position
	Size     *Size
	Payload  Payload
}

// Kind returns the node's kind, or "" when the payload is missing.
func (n Node) Kind() NodeKind {
	if n.Payload == nil {
		return ""
	}
	return n.Payload.Kind()
}

// Payload is the kind-specific part of a node. The set of implementations
// is closed; switch over them with a type switch.
type Payload interface {
	Kind() NodeKind
	isPayload()
}

// AppPayload runs a registry app.
type AppPayload struct {
	AppKeyword string
	Config     map[string]any
	Cache      *CacheConfig
	// Schema is set for apps whose source travels with the scene.
	Schema *EmbeddedSchema
}

// DispatchPayload fires a frame event from within the run chain.
type DispatchPayload struct {
	EventKeyword string
	Config       map[string]any
}

// EventPayload is a graph entry point triggered by a frame event.
type EventPayload struct {
	TriggerKeyword string
}

// StatePayload reads one of the scene's state fields.
type StatePayload struct {
	FieldName string
}

// CodePayload is inline logic, keyed by language.
type CodePayload struct {
	SourceByLanguage map[string]string
	Args             []CodeArg
	Outputs          []CodeArg
	Cache            *CacheConfig
}

// SceneRefPayload references another scene.
type SceneRefPayload struct {
	TargetSceneID string
}

// UnknownPayload keeps a node whose type this package does not model, so
// that documents written by newer editors survive a round trip.
type UnknownPayload struct {
	Type string
	Data []byte
}

// Languages understood by code nodes.
const (
	LangNim = "nim"
	LangJS  = "js"
)

// CodeArg is a named, typed input or output of a code node.
type CodeArg struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// CacheConfig is a node's optional result cache.
type CacheConfig struct {
	Enabled           bool   `json:"enabled" yaml:"enabled"`
	InputEnabled      bool   `json:"inputEnabled" yaml:"input_enabled"`
	DurationEnabled   bool   `json:"durationEnabled" yaml:"duration_enabled"`
	Duration          string `json:"duration,omitempty" yaml:"duration,omitempty"`
	ExpressionEnabled bool   `json:"expressionEnabled" yaml:"expression_enabled"`
	Expression        string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

func (AppPayload) Kind() NodeKind      { return KindApp }
func (DispatchPayload) Kind() NodeKind { return KindDispatch }
func (EventPayload) Kind() NodeKind    { return KindEvent }
func (StatePayload) Kind() NodeKind    { return KindState }
func (CodePayload) Kind() NodeKind     { return KindCode }
func (SceneRefPayload) Kind() NodeKind { return KindScene }
func (p UnknownPayload) Kind() NodeKind {
	return NodeKind(p.Type)
}

func (AppPayload) isPayload()      {}
func (DispatchPayload) isPayload() {}
func (EventPayload) isPayload()    {}
func (StatePayload) isPayload()    {}
func (CodePayload) isPayload()     {}
func (SceneRefPayload) isPayload() {}
func (UnknownPayload) isPayload()  {}

// CacheOf returns the cache configuration of a node, if its kind has one.
func CacheOf(n Node) *CacheConfig {
	switch p := n.Payload.(type) {
	case AppPayload:
		return p.Cache
	case CodePayload:
		return p.Cache
	}
	return nil
}
