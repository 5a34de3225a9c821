package production

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/comalice/xchart/internal/core"
)

// Codec encodes snapshots for transport or storage by the caller. Bound
// implementations are not encoded; a decoded state is rebound when it is next
// passed to a machine.
type Codec interface {
	Encode(state *core.State) ([]byte, error)
	Decode(data []byte) (*core.State, error)
}

// JSONCodec encodes snapshots as indented JSON.
type JSONCodec struct {
	Indent string
}

func (c JSONCodec) Encode(state *core.State) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("json marshal: state is nil")
	}
	var data []byte
	var err error
	if c.Indent != "" {
		data, err = json.MarshalIndent(state, "", c.Indent)
	} else {
		data, err = json.Marshal(state)
	}
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return data, nil
}

func (c JSONCodec) Decode(data []byte) (*core.State, error) {
	return core.RestoreState(data)
}

// YAMLCodec encodes snapshots as YAML documents with the same field names as the
// JSON form.
type YAMLCodec struct{}

func (YAMLCodec) Encode(state *core.State) ([]byte, error) {
	data, err := JSONCodec{}.Encode(state)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("yaml marshal: %w", err)
	}
	return out, nil
}

func (YAMLCodec) Decode(data []byte) (*core.State, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return core.RestoreState(js)
}
