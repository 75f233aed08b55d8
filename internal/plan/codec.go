package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Schema is bumped whenever Program's encoded shape changes.
const Schema uint16 = 1

var ErrSchema = errors.New("plan: schema version mismatch")

type envelope struct {
	Schema  uint16
	Program *Program
}

// Encode writes p as msgpack.
func Encode(w io.Writer, p *Program) error {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&envelope{Schema: Schema, Program: p}); err != nil {
		return fmt.Errorf("plan: encode: %w", err)
	}
	return nil
}

// Decode reads a program written by Encode.
func Decode(r io.Reader) (*Program, error) {
	var env envelope
	if err := msgpack.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("plan: decode: %w", err)
	}
	if env.Schema != Schema {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchema, env.Schema, Schema)
	}
	if env.Program == nil {
		return nil, errors.New("plan: decode: empty program")
	}
	if env.Program.Units == nil {
		env.Program.Units = make(map[UnitID]*Unit)
	}
	return env.Program, nil
}

// Marshal is Encode into a byte slice.
func Marshal(p *Program) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal is Decode from a byte slice.
func Unmarshal(data []byte) (*Program, error) {
	return Decode(bytes.NewReader(data))
}
