package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator checks JSON documents against one compiled schema.
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// CompileSchema compiles schemaMap under the given resource name.
func CompileSchema(name string, schemaMap map[string]any) (*Validator, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Validator{name: name, schema: schema}, nil
}

// Validate reports whether data decodes to a document the schema accepts.
func (v *Validator) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match %s: %w", v.name, err)
	}
	return nil
}

// ValidateValue encodes value and validates the encoding.
func (v *Validator) ValidateValue(value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", v.name, err)
	}
	return v.Validate(b)
}

// Both schemas are static, so each is compiled once per process.
var (
	alignmentValidator = sync.OnceValues(func() (*Validator, error) {
		return CompileSchema("alignment.json", AlignmentSchema())
	})
	syllabusValidator = sync.OnceValues(func() (*Validator, error) {
		return CompileSchema("syllabus.json", SyllabusSchema())
	})
)

// AlignmentValidator returns the shared validator for alignment verdicts.
func AlignmentValidator() (*Validator, error) { return alignmentValidator() }

// SyllabusValidator returns the shared validator for syllabus records.
func SyllabusValidator() (*Validator, error) { return syllabusValidator() }
