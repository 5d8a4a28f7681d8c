package game

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"marketsim-server/internal/shared/errors"
)

//go:embed schemas/*.schema.json
var schemaFiles embed.FS

const (
	SchemaCreateGame  = "create_game"
	SchemaBuyFactory  = "buy_factory"
	SchemaSetLines    = "set_lines"
	SchemaSetDecision = "set_decision"
)

// Validator checks request bodies against the embedded JSON schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	names := []string{SchemaCreateGame, SchemaBuyFactory, SchemaSetLines, SchemaSetDecision}

	for _, name := range names {
		raw, err := schemaFiles.ReadFile("schemas/" + name + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		if err := compiler.AddResource(schemaURL(name), bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}

	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		s, err := compiler.Compile(schemaURL(name))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

func schemaURL(name string) string {
	return "marketsim://schemas/" + name + ".schema.json"
}

// Decode validates raw against the named schema, then unmarshals it into dst.
func (v *Validator) Decode(name string, raw []byte, dst any) error {
	schema, ok := v.schemas[name]
	if !ok {
		return errors.WrapInternal("unknown request schema", fmt.Errorf("%q", name))
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return errors.WrapValidation("invalid JSON in request body", err)
	}
	if err := schema.Validate(doc); err != nil {
		return errors.WrapValidation("request does not match schema", err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.WrapValidation("invalid request body", err)
	}
	return nil
}
