package windowing

import (
	"fmt"
	"os"

	"github.com/petasbytes/toolchat/chat"
)

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
)

// Group describes a contiguous span of messages [Start, End) in the original slice.
// Kind indicates whether it is a singleton or a validated tool-call pair.
type Group struct {
	Kind  GroupKind
	Start int // inclusive index into msgs
	End   int // exclusive index into msgs
}

// GroupBlocks groups messages into atomic units that preserve tool-call pairs.
// Invariants:
// - A pair is an assistant message with tool calls followed directly by tool messages.
// - The tool messages answer every call id of the assistant message and nothing else.
// - Tool messages flagged IsError are treated the same for grouping.
func GroupBlocks(msgs []chat.Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		m := msgs[i]
		if m.HasToolCalls() {
			end := i + 1
			for end < len(msgs) && msgs[end].Role == chat.RoleTool {
				end++
			}
			if end > i+1 {
				callIDs := collectCallIDs(m)
				resultIDs := collectResultIDs(msgs[i+1 : end])
				if sameIDs(callIDs, resultIDs) {
					groups = append(groups, Group{Kind: GroupPair, Start: i, End: end})
					i = end
					continue
				}
				vlogf("exclude pair: reason=ids_mismatch idx=%d calls=%d results=%d", i, len(callIDs), len(resultIDs))
			} else {
				vlogf("exclude pair: reason=not_followed_by_tool idx=%d", i)
			}
		}
		// Fallback: singleton
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

func collectCallIDs(m chat.Message) map[string]struct{} {
	ids := make(map[string]struct{}, len(m.ToolCalls))
	for _, c := range m.ToolCalls {
		if c.ID != "" {
			ids[c.ID] = struct{}{}
		}
	}
	return ids
}

func collectResultIDs(results []chat.Message) map[string]struct{} {
	ids := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r.ToolCallID != "" {
			ids[r.ToolCallID] = struct{}{}
		}
	}
	return ids
}

// sameIDs reports whether every call has a result and no result is unmatched.
func sameIDs(calls, results map[string]struct{}) bool {
	if len(calls) != len(results) {
		return false
	}
	for id := range calls {
		if _, ok := results[id]; !ok {
			return false
		}
	}
	return true
}

// minimal verbose logging when AGT_VERBOSE_WINDOW_LOGS=1
var verbose = os.Getenv("AGT_VERBOSE_WINDOW_LOGS") == "1"

func vlogf(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[windowing] "+format+"\n", args...)
	}
}
