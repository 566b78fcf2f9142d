// Package runner coordinates one request/response exchange with a chat model
// and dispatches the tool calls it asks for.
//
// Invariant:
//   - an assistant message with tool calls and the tool messages answering it
//     are kept adjacent, one result per call, in call order.
//
// Flow:
//
//	user(text) -> assistant(tool_calls) -> tool(result)... -> assistant(text)
package runner
