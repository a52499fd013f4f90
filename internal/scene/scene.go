// Package scene holds the scene graph model: scenes, typed nodes, typed
// edges and state fields, together with their JSON document form and
// read-only queries.
//
// Values in this package are treated as immutable by every other package.
// Operations that change a scene return a new *Scene (see Scene.Clone).
package scene

// ExecutionMode selects how the device runs a scene.
type ExecutionMode string

const (
	ExecutionCompiled    ExecutionMode = "compiled"
	ExecutionInterpreted ExecutionMode = "interpreted"
)

// Scene is one dataflow program authored for a frame.
type Scene struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	IsDefault bool         `json:"default,omitempty"`
	Settings  Settings     `json:"settings"`
	Fields    []StateField `json:"fields"`
	Nodes     []Node       `json:"nodes"`
	Edges     []Edge       `json:"edges"`
}

// Settings are the per-scene render settings read by the device.
type Settings struct {
	RefreshIntervalSeconds float64       `json:"refreshInterval,omitempty"`
	BackgroundColor        string        `json:"backgroundColor,omitempty"`
	ExecutionMode          ExecutionMode `json:"execution,omitempty"`
}

// Persistence controls where a state field value survives restarts.
type Persistence string

const (
	PersistMemory Persistence = "memory"
	PersistDisk   Persistence = "disk"
)

// Access controls whether a state field is externally controllable.
type Access string

const (
	AccessPrivate Access = "private"
	AccessPublic  Access = "public"
)

// FieldType is the value type of a state field or schema field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldFloat   FieldType = "float"
	FieldInteger FieldType = "integer"
	FieldBoolean FieldType = "boolean"
	FieldColor   FieldType = "color"
	FieldJSON    FieldType = "json"
	FieldNode    FieldType = "node"
	FieldScene   FieldType = "scene"
	FieldImage   FieldType = "image"
	FieldText    FieldType = "text"
	FieldSelect  FieldType = "select"
	FieldFont    FieldType = "font"
)

// StateField is a named, typed value exposed by a scene. Name is unique
// within the scene; Label is cosmetic.
type StateField struct {
	Name    string      `json:"name"`
	Label   string      `json:"label,omitempty"`
	Type    FieldType   `json:"type"`
	Options []string    `json:"options,omitempty"`
	Value   string      `json:"value,omitempty"`
	Persist Persistence `json:"persist,omitempty"`
	Access  Access      `json:"access,omitempty"`
}

// FieldSchema describes one input field of an app or event. It is shared
// by the registry catalog and by schemas embedded in app nodes.
type FieldSchema struct {
	Name     string    `json:"name" yaml:"name" validate:"required"`
	Label    string    `json:"label,omitempty" yaml:"label,omitempty"`
	Type     FieldType `json:"type" yaml:"type" validate:"required"`
	Options  []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Required bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Value    any       `json:"value,omitempty" yaml:"value,omitempty"`
}

// EmbeddedSchema is a self-describing field list carried by an app node
// whose source ships with the scene.
type EmbeddedSchema struct {
	Fields []FieldSchema `json:"fields"`
}

// Field returns the schema field with the given name.
func (es *EmbeddedSchema) Field(name string) (FieldSchema, bool) {
	if es == nil {
		return FieldSchema{}, false
	}
	for _, f := range es.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// Position is a node's top-left corner in diagram units.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a node's measured size in diagram units.
type Size struct {
	W float64
	H float64
}
