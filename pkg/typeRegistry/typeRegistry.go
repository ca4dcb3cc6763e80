package typeRegistry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

//go:embed plasm_definitions.json
var plasmDefinitionsJSON []byte

// TypeRegistry maps chain-specific type names to their encoding definitions.
// It is immutable once constructed; every accessor hands out copies.
type TypeRegistry struct {
	definitions map[string]json.RawMessage
}

// NewTypeRegistry copies defs into a new registry
func NewTypeRegistry(defs map[string]json.RawMessage) *TypeRegistry {
	copied := make(map[string]json.RawMessage, len(defs))
	for name, def := range defs {
		copied[name] = cloneRaw(def)
	}
	return &TypeRegistry{definitions: copied}
}

// ParseTypeRegistry builds a registry from a JSON object of type definitions
func ParseTypeRegistry(data []byte) (*TypeRegistry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("type definitions are empty")
	}

	var defs map[string]json.RawMessage
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse type definitions: %w", err)
	}
	if defs == nil {
		return nil, fmt.Errorf("type definitions must be a JSON object")
	}
	return NewTypeRegistry(defs), nil
}

// PlasmDefinitions returns the built-in Plasm/Astar type definitions
func PlasmDefinitions() *TypeRegistry {
	reg, err := ParseTypeRegistry(plasmDefinitionsJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded plasm definitions are invalid: %v", err))
	}
	return reg
}

// LoadFromFile reads a JSON type definitions file
func LoadFromFile(path string) (*TypeRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read type definitions file: %w", err)
	}
	reg, err := ParseTypeRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return reg, nil
}

// Merge builds a new registry from base and overrides, later definitions win.
// None of the inputs are modified.
func Merge(base *TypeRegistry, overrides ...*TypeRegistry) *TypeRegistry {
	merged := make(map[string]json.RawMessage)
	for _, reg := range append([]*TypeRegistry{base}, overrides...) {
		if reg == nil {
			continue
		}
		for name, def := range reg.definitions {
			merged[name] = def
		}
	}
	return NewTypeRegistry(merged)
}

// Get returns a copy of the definition for name
func (r *TypeRegistry) Get(name string) (json.RawMessage, bool) {
	if r == nil {
		return nil, false
	}
	def, ok := r.definitions[name]
	if !ok {
		return nil, false
	}
	return cloneRaw(def), true
}

// Names returns the registered type names sorted
func (r *TypeRegistry) Names() []string {
	if r == nil {
		return []string{}
	}
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *TypeRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.definitions)
}

// MarshalJSON emits the definitions verbatim
func (r *TypeRegistry) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.definitions)
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage{}, raw...)
}
