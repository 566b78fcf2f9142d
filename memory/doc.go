// Package memory persists a chat history as indented JSON.
//
// Persistence model:
//   - Every turn is stored, tool calls and tool results included, so a resumed
//     history is still a valid request for the chat APIs.
package memory
