// MachineConfig represents the top-level definition document of a statechart: the root
// state (whose key is the machine ID), the initial extended state and an optional version.
// The root may be compound or parallel.
package primitives

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MachineConfig defines the complete statechart configuration.
type MachineConfig struct {
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Context any    `json:"context,omitempty" yaml:"context,omitempty"`
	// Delimiter separates keys in dotted state values. Defaults to ".".
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`

	StateConfig `yaml:",inline"`
}

// NewMachineConfig creates a compound root with the given ID and initial child.
func NewMachineConfig(id, initial string) *MachineConfig {
	return &MachineConfig{StateConfig: StateConfig{Key: id, Initial: initial}}
}

// Root returns the root state.
func (m *MachineConfig) Root() *StateConfig {
	return &m.StateConfig
}

// MachineID returns the explicit root ID, or the root key.
func (m *MachineConfig) MachineID() string {
	if m.ID != "" {
		return m.ID
	}
	return m.Key
}

// Validate validates the entire machine configuration:
// - Non-empty machine ID
// - Root is compound or parallel with children
// - All states validate (recursive)
// - Explicit state IDs are unique
func (m *MachineConfig) Validate() error {
	if m.MachineID() == "" {
		return errors.New("machine ID is required")
	}
	if len(m.Children) == 0 {
		return errors.New("machine requires at least one state")
	}
	switch m.ResolvedType() {
	case Compound, Parallel:
	default:
		return fmt.Errorf("root state must be compound or parallel, got %s", m.ResolvedType())
	}
	if m.Key == "" {
		m.Key = m.MachineID()
	}
	if err := m.StateConfig.Validate(); err != nil {
		return err
	}

	ids := map[string]string{}
	for path, s := range m.Flatten() {
		if s.ID == "" {
			continue
		}
		if other, dup := ids[s.ID]; dup {
			return fmt.Errorf("duplicate state id %q (%s and %s)", s.ID, other, path)
		}
		ids[s.ID] = path
	}
	return nil
}

// FindState resolves a state by hierarchical path (e.g. "parent.child.grandchild").
func (m *MachineConfig) FindState(path string) (*StateConfig, error) {
	if path == "" {
		return nil, errors.New("path cannot be empty")
	}
	current := &m.StateConfig
	segments := strings.Split(path, m.PathDelimiter())
	for i, seg := range segments {
		next := current.Child(seg)
		if next == nil {
			if i == 0 {
				return nil, fmt.Errorf("state %q not found", seg)
			}
			prefix := strings.Join(segments[:i], m.PathDelimiter())
			return nil, fmt.Errorf("child %q not found in %q", seg, prefix)
		}
		current = next
	}
	return current, nil
}

// PathDelimiter returns the separator used in dotted state paths.
func (m *MachineConfig) PathDelimiter() string {
	if m.Delimiter == "" {
		return "."
	}
	return m.Delimiter
}

// LoadYAML decodes a definition document. Mapping order of states and handlers is kept.
func LoadYAML(data []byte) (*MachineConfig, error) {
	var cfg MachineConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode machine: %w", err)
	}
	if cfg.Key == "" {
		cfg.Key = cfg.ID
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine %q: %w", cfg.MachineID(), err)
	}
	return &cfg, nil
}

// LoadJSON decodes a JSON definition document. JSON is read through the YAML decoder so
// object key order is kept as document order.
func LoadJSON(data []byte) (*MachineConfig, error) {
	return LoadYAML(data)
}

// LoadFile reads a .yaml, .yml or .json definition from disk.
func LoadFile(path string) (*MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadYAML(data)
}
