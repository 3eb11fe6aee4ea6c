package centerapi

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Response schemas, versioned with the backend contract.
const (
	schemaMachine      = "machine-v1.json"
	schemaMachineList  = "machine-list-v1.json"
	schemaReturnOrders = "return-orders-v1.json"
	schemaTechnicians  = "technicians-v1.json"
)

// ErrSchemaViolation wraps every response that does not match its schema.
var ErrSchemaViolation = errors.New("backend response does not match schema")

//go:embed schema/*.json
var schemaFS embed.FS

type validator struct {
	schemas map[string]*jsonschema.Schema
}

func newValidator() (*validator, error) {
	compiler := jsonschema.NewCompiler()

	names := []string{schemaMachine, schemaMachineList, schemaReturnOrders, schemaTechnicians}
	for _, name := range names {
		f, err := schemaFS.Open("schema/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to open schema %s: %w", name, err)
		}
		err = compiler.AddResource(name, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to add schema resource %s: %w", name, err)
		}
	}

	v := &validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

// validate checks raw JSON against the named schema.
func (v *validator) validate(name string, data []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrSchemaViolation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}
