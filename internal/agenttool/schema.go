package agenttool

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator compiles and caches JSON Schemas per tool name and
// validates tool call arguments against them before dispatch.
type SchemaValidator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// NewSchemaValidator constructs an empty, cache-backed validator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{compiled: make(map[string]*jsonschema.Schema)}
}

// Validate compiles (on first use, then from cache) the tool's parameter
// schema and validates args against it. A compile failure or a validation
// failure both return a non-nil error carrying the underlying validator's
// message, to be wrapped by the caller into a ToolError.
func (v *SchemaValidator) Validate(toolName string, schema json.RawMessage, args json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}

	compiled, err := v.compile(toolName, schema)
	if err != nil {
		return fmt.Errorf("compiling schema for %s: %w", toolName, err)
	}

	var decoded any
	if len(args) == 0 {
		decoded = map[string]any{}
	} else if err := json.Unmarshal(args, &decoded); err != nil {
		return fmt.Errorf("arguments for %s are not valid JSON: %w", toolName, err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return err
	}
	return nil
}

func (v *SchemaValidator) compile(toolName string, schema json.RawMessage) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if c, ok := v.compiled[toolName]; ok {
		return c, nil
	}

	compiler := jsonschema.NewCompiler()
	resourceName := toolName + ".json"
	if err := compiler.AddResource(resourceName, strings.NewReader(string(schema))); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, err
	}
	v.compiled[toolName] = compiled
	return compiled, nil
}
