package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// BinaryIntInput is the argument object shared by the arithmetic tools.
type BinaryIntInput struct {
	A json.Number `json:"a" jsonschema:"type=integer" jsonschema_description:"First integer operand."`
	B json.Number `json:"b" jsonschema:"type=integer" jsonschema_description:"Second integer operand."`
}

var BinaryIntInputSchema = GenerateSchema[BinaryIntInput]()

var MultiplyDefinition = ToolDefinition{
	Name:        "multiply",
	Description: "Multiplies two integers and returns the result integer",
	InputSchema: BinaryIntInputSchema,
	Function:    Multiply,
}

var AddDefinition = ToolDefinition{
	Name:        "add",
	Description: "Adds two integers and returns the result integer",
	InputSchema: BinaryIntInputSchema,
	Function:    Add,
}

// Multiply returns the decimal string of a*b.
func Multiply(input json.RawMessage) (string, error) {
	a, b, err := parseOperands(input)
	if err != nil {
		return "", err
	}
	return new(big.Int).Mul(a, b).String(), nil
}

// Add returns the decimal string of a+b.
func Add(input json.RawMessage) (string, error) {
	a, b, err := parseOperands(input)
	if err != nil {
		return "", err
	}
	return new(big.Int).Add(a, b).String(), nil
}

// parseOperands decodes {"a":..,"b":..} without going through float64, so
// operands of any size survive intact. Quoted numerals are rejected.
func parseOperands(input json.RawMessage) (*big.Int, *big.Int, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil || args == nil {
		return nil, nil, ToolError{Code: CodeInvalidArgs, Message: "arguments must be a JSON object with integer fields a and b"}
	}
	a, err := toInt("a", args["a"])
	if err != nil {
		return nil, nil, err
	}
	b, err := toInt("b", args["b"])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// toInt accepts plain integers and integral values written as 242.0 or 2.42e2.
func toInt(field string, v any) (*big.Int, error) {
	var s string
	switch n := v.(type) {
	case nil:
		return nil, ToolError{Code: CodeInvalidArgs, Message: "missing integer argument " + field}
	case json.Number:
		s = string(n)
	default:
		return nil, ToolError{Code: CodeInvalidArgs, Message: fmt.Sprintf("argument %s must be a JSON number, got %s", field, jsonKind(v))}
	}
	if i, ok := new(big.Int).SetString(s, 10); ok {
		return i, nil
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		// s is valid JSON number syntax, so only the exponent can be at fault.
		return nil, ToolError{Code: CodeInvalidArgs, Message: "argument " + field + " is out of range: " + s}
	}
	if !r.IsInt() {
		return nil, ToolError{Code: CodeInvalidArgs, Message: "argument " + field + " is not an integer: " + s}
	}
	return new(big.Int).Set(r.Num()), nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
