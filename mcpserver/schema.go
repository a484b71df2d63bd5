package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	invopop "github.com/invopop/jsonschema"
)

// ReflectSchema derives the input schema for the argument struct A. The
// struct is reflected with invopop's reflector (inline definitions, struct at
// the root) and the result is decoded into the SDK's schema type so it can be
// resolved and validated without further conversion.
//
// Fields are required unless tagged omitempty; use jsonschema struct tags for
// descriptions and constraints.
func ReflectSchema[A any]() (*jsonschema.Schema, error) {
	r := &invopop.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var zero A
	reflected := r.Reflect(&zero)
	raw, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("marshal reflected schema: %w", err)
	}
	var out jsonschema.Schema
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode reflected schema: %w", err)
	}
	return &out, nil
}

// MustReflectSchema is ReflectSchema for package-level tool tables, where a
// reflection failure is a programming error.
func MustReflectSchema[A any]() *jsonschema.Schema {
	s, err := ReflectSchema[A]()
	if err != nil {
		panic(err)
	}
	return s
}
