package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolDefinition describes a function the model may call.
// Function receives the raw JSON arguments and returns the textual result.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Function    func(input json.RawMessage) (string, error)
}

// GenerateSchema reflects T into an inline JSON Schema object suitable for the
// "parameters" of a function tool.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	b, err := json.Marshal(schema)
	if err != nil {
		panic("tools: marshal schema: " + err.Error())
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		panic("tools: unmarshal schema: " + err.Error())
	}
	// Providers reject meta keys inside tool parameters.
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

// Lookup indexes defs by tool name. Later duplicates win.
func Lookup(defs []ToolDefinition) map[string]ToolDefinition {
	m := make(map[string]ToolDefinition, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return m
}
