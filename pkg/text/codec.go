package text

import (
	"fmt"

	"github.com/aretw0/otec/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

const (
	kindInsert = "insert"
	kindDelete = "delete"

	// KeyKind is the map key holding the mutation kind.
	KeyKind = "kind"
)

// Codec converts text mutations to and from plain maps (JSON/YAML friendly).
type Codec struct{}

// NewCodec creates a codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Encode turns a mutation into a map with a "kind" discriminator.
func (c *Codec) Encode(m domain.Mutation) (map[string]any, error) {
	switch m := m.(type) {
	case Insert:
		return map[string]any{KeyKind: kindInsert, "pos": m.Pos, "text": m.Text}, nil
	case Delete:
		return map[string]any{KeyKind: kindDelete, "pos": m.Pos, "len": m.Len}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedMutation, m)
	}
}

// Decode rebuilds a mutation. Numbers may arrive as float64 or strings (JSON, YAML).
func (c *Codec) Decode(raw map[string]any) (domain.Mutation, error) {
	kind, _ := raw[KeyKind].(string)
	switch kind {
	case kindInsert:
		var ins Insert
		if err := decode(raw, &ins); err != nil {
			return nil, err
		}
		return ins, nil
	case kindDelete:
		var del Delete
		if err := decode(raw, &del); err != nil {
			return nil, err
		}
		return del, nil
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnsupportedMutation, kind)
	}
}

// EncodeAll encodes a sequence.
func (c *Codec) EncodeAll(ms []domain.Mutation) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(ms))
	for _, m := range ms {
		raw, err := c.Encode(m)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// DecodeAll decodes a sequence.
func (c *Codec) DecodeAll(raws []map[string]any) ([]domain.Mutation, error) {
	out := make([]domain.Mutation, 0, len(raws))
	for i, raw := range raws {
		m, err := c.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("mutation %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode mutation: %w", err)
	}
	return nil
}
