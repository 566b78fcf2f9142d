// Package tools defines tool contracts and implementations.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Arithmetic tools: multiply, add (arbitrary-precision integers).
//   - ToolError: machine-readable failure body returned to the model.
package tools
