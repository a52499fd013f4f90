// Package registry is a read-only snapshot of the app and event catalog
// that scenes are validated against.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/FrameScene/internal/scene"
)

// Category partitions apps by what they do on the run chain.
type Category string

const (
	CategoryData   Category = "data"
	CategoryLogic  Category = "logic"
	CategoryRender Category = "render"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryData, CategoryLogic, CategoryRender}

// App describes one reusable node behavior.
type App struct {
	Keyword  string              `yaml:"keyword" validate:"required"`
	Name     string              `yaml:"name" validate:"required"`
	Category Category            `yaml:"category" validate:"required,oneof=data logic render"`
	Fields   []scene.FieldSchema `yaml:"fields" validate:"dive"`
	// Interpreted is set for apps compiled into the device's interpreter.
	Interpreted bool               `yaml:"interpreted"`
	Cache       *scene.CacheConfig `yaml:"cache,omitempty"`
}

// Event describes a frame event. Listenable events can start a graph
// through an event node; dispatchable events can be fired by a dispatch node.
type Event struct {
	Keyword     string              `yaml:"keyword" validate:"required"`
	Description string              `yaml:"description"`
	CanListen   bool                `yaml:"listen"`
	CanDispatch bool                `yaml:"dispatch"`
	Fields      []scene.FieldSchema `yaml:"fields" validate:"dive"`
}

// Catalog is the document form of a registry.
type Catalog struct {
	Version int     `yaml:"version"`
	Apps    []App   `yaml:"apps" validate:"dive"`
	Events  []Event `yaml:"events" validate:"dive"`
}

// Registry is an immutable snapshot of a catalog. It is safe for
// concurrent use.
type Registry struct {
	apps       map[string]App
	appOrder   []string
	events     map[string]Event
	eventOrder []string
}

var catalogValidate = validator.New()

// New validates a catalog and builds a registry from it.
func New(c Catalog) (*Registry, error) {
	if c.Version != 1 {
		return nil, fmt.Errorf("unsupported catalog version: %d", c.Version)
	}
	if err := catalogValidate.Struct(c); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	r := &Registry{
		apps:   make(map[string]App, len(c.Apps)),
		events: make(map[string]Event, len(c.Events)),
	}
	for _, a := range c.Apps {
		if _, dup := r.apps[a.Keyword]; dup {
			return nil, fmt.Errorf("duplicate app keyword: %s", a.Keyword)
		}
		r.apps[a.Keyword] = a
		r.appOrder = append(r.appOrder, a.Keyword)
	}
	for _, e := range c.Events {
		if _, dup := r.events[e.Keyword]; dup {
			return nil, fmt.Errorf("duplicate event keyword: %s", e.Keyword)
		}
		r.events[e.Keyword] = e
		r.eventOrder = append(r.eventOrder, e.Keyword)
	}
	return r, nil
}

// Parse builds a registry from a YAML catalog.
func Parse(data []byte) (*Registry, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(c)
}

// Load reads a YAML catalog file.
func Load(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

//go:embed default.yaml
var defaultCatalog []byte

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the built-in catalog.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := Parse(defaultCatalog)
		if err != nil {
			panic(fmt.Sprintf("registry: built-in catalog: %v", err))
		}
		defaultReg = r
	})
	return defaultReg
}

// App returns the app with the given keyword.
func (r *Registry) App(keyword string) (App, bool) {
	a, ok := r.apps[keyword]
	return a, ok
}

// Event returns the event with the given keyword.
func (r *Registry) Event(keyword string) (Event, bool) {
	e, ok := r.events[keyword]
	return e, ok
}

// Apps returns every app in catalog order.
func (r *Registry) Apps() []App {
	out := make([]App, 0, len(r.appOrder))
	for _, k := range r.appOrder {
		out = append(out, r.apps[k])
	}
	return out
}

// Events returns every event in catalog order.
func (r *Registry) Events() []Event {
	out := make([]Event, 0, len(r.eventOrder))
	for _, k := range r.eventOrder {
		out = append(out, r.events[k])
	}
	return out
}

// AppFields implements scene.SchemaSource.
func (r *Registry) AppFields(keyword string) ([]scene.FieldSchema, bool) {
	a, ok := r.apps[keyword]
	if !ok {
		return nil, false
	}
	return a.Fields, true
}

// EventFields implements scene.SchemaSource.
func (r *Registry) EventFields(keyword string) ([]scene.FieldSchema, bool) {
	e, ok := r.events[keyword]
	if !ok {
		return nil, false
	}
	return e.Fields, true
}

// InterpretedByCategory returns the keywords of interpreter-enabled apps,
// grouped by category.
func (r *Registry) InterpretedByCategory() map[Category][]string {
	out := make(map[Category][]string, len(Categories))
	for _, k := range r.appOrder {
		a := r.apps[k]
		if a.Interpreted {
			out[a.Category] = append(out[a.Category], k)
		}
	}
	return out
}

// HasField reports whether fields declares name.
func HasField(fields []scene.FieldSchema, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
