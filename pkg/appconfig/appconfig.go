// Package appconfig parses application configuration YAML into an
// insertion-ordered parameter mapping and implements the overlay merge and
// one-level flatten used to build the render parameter set.
package appconfig

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigSection is the required section holding template metadata.
	ConfigSection = "jobbergate_config"

	// ConfigFileName is the conventional configuration filename inside an
	// application directory.
	ConfigFileName = "jobbergate.yaml"
)

// Value is either a scalar or a one-level nested namespace. Exactly one of
// the two fields is set. Values nested deeper than one level stay opaque
// inside Scalar.
type Value struct {
	Namespace *Mapping
	Scalar    any
}

// IsNamespace reports whether the value is a nested namespace mapping.
func (v Value) IsNamespace() bool {
	return v.Namespace != nil
}

// Entry is a single key/value pair of a Mapping.
type Entry struct {
	Key   string
	Value Value
}

// Mapping is a string-keyed mapping that preserves insertion order. Order
// matters: Flatten resolves key collisions by iteration order.
type Mapping struct {
	entries []Entry
	index   map[string]int
}

// NewMapping returns an empty ordered mapping.
func NewMapping() *Mapping {
	return &Mapping{index: make(map[string]int)}
}

// Parse decodes configuration YAML into an ordered mapping. Top-level keys
// whose values are mappings become namespaces, everything else is a scalar.
func Parse(data []byte) (*Mapping, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("appconfig: unable to parse configuration: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return NewMapping(), nil
	}
	return mappingFromNode(doc.Content[0], true)
}

// UnmarshalYAML lets a Mapping be decoded directly from a larger YAML
// document, e.g. a parameter overlay inside a manifest.
func (m *Mapping) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := mappingFromNode(node, true)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

func mappingFromNode(node *yaml.Node, nested bool) (*Mapping, error) {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("appconfig: expected a mapping, got a %s node", nodeKind(node))
	}

	m := NewMapping()
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return nil, fmt.Errorf("appconfig: unable to decode mapping key: %v", err)
		}

		valNode := node.Content[i+1]
		if valNode.Kind == yaml.AliasNode {
			valNode = valNode.Alias
		}

		if valNode.Kind == yaml.MappingNode && nested {
			inner, err := mappingFromNode(valNode, false)
			if err != nil {
				return nil, err
			}
			m.Set(key, Value{Namespace: inner})
			continue
		}

		var scalar any
		if err := valNode.Decode(&scalar); err != nil {
			return nil, fmt.Errorf("appconfig: unable to decode value for %q: %v", key, err)
		}
		m.Set(key, Value{Scalar: scalar})
	}
	return m, nil
}

func nodeKind(node *yaml.Node) string {
	switch node.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	default:
		return "unknown"
	}
}

// Set stores a value under key. An existing key keeps its position, a new
// key appends at the end.
func (m *Mapping) Set(key string, value Value) {
	if i, ok := m.index[key]; ok {
		m.entries[i].Value = value
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Value, bool) {
	i, ok := m.index[key]
	if !ok {
		return Value{}, false
	}
	return m.entries[i].Value, true
}

// Entries returns the key/value pairs in insertion order.
func (m *Mapping) Entries() []Entry {
	return m.entries
}

// Len returns the number of top-level keys.
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Merge applies overlay on top of the mapping. Overlay values replace
// existing keys wholesale (a namespace overlay replaces the whole
// namespace), keeping the original key position; new keys append.
func (m *Mapping) Merge(overlay *Mapping) {
	if overlay == nil {
		return
	}
	for _, e := range overlay.entries {
		m.Set(e.Key, e.Value)
	}
}

// Flatten collapses the mapping into a single level. Namespaces hoist their
// inner keys to the top level and the namespace key itself is discarded;
// scalars pass through unchanged. When two namespaces (or a namespace and a
// scalar) define the same key, the one iterated later wins. Nesting below
// one level is not descended into.
func (m *Mapping) Flatten() map[string]any {
	flat := make(map[string]any)
	for _, e := range m.entries {
		if e.Value.IsNamespace() {
			for _, inner := range e.Value.Namespace.entries {
				flat[inner.Key] = inner.Value.Scalar
			}
			continue
		}
		flat[e.Key] = e.Value.Scalar
	}
	return flat
}
