// Package chat defines the provider-neutral chat turn types shared by the
// agent, the runner and the model adapters.
//
// A conversation is an ordered []Message. An assistant message that carries
// ToolCalls must be followed by one tool message per call, in call order.
package chat
