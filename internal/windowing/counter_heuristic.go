package windowing

import (
	"unicode/utf8"

	"github.com/petasbytes/toolchat/chat"
)

// TokenCounter estimates input-token cost for messages or groups.
type TokenCounter interface {
	CountMessage(m chat.Message) int
	CountGroup(g Group, all []chat.Message) int
}

// HeuristicCounter is the default deterministic estimator.
// Rules:
//   - content: rune count
//   - each tool call: runes of name + arguments
//   - a fixed per-message overhead for role and framing
type HeuristicCounter struct{}

// Fixed per-message overhead for deterministic counts; changing this requires updating the guard test.
const messageOverhead = 4

func (HeuristicCounter) CountMessage(m chat.Message) int {
	total := utf8.RuneCountInString(m.Content) + messageOverhead
	for _, c := range m.ToolCalls {
		total += utf8.RuneCountInString(c.Name) + utf8.RuneCountInString(c.Arguments)
	}
	return total
}

func (h HeuristicCounter) CountGroup(g Group, all []chat.Message) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += h.CountMessage(all[i])
	}
	return total
}
