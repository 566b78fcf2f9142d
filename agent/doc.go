// Package agent implements a tool-calling chat agent.
//
// An Agent owns an ordered chat history and a set of tools. Chat performs one
// round of tool use and a follow-up completion; StreamChat keeps calling tools
// until the model answers in text, streaming that answer as it arrives.
package agent
