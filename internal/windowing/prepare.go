package windowing

import "github.com/petasbytes/toolchat/chat"

// Stats summarizes the result of window preparation.
//
// Fields:
// - Total: estimated tokens for the pinned system message plus included groups.
// - Budget: the input token budget used.
// - IncludedGroups: number of groups included.
// - SkippedGroups: total groups minus IncludedGroups.
// - OverBudgetNewest: true when the newest group, or the newest span opening on a user turn, exceeds Budget.
type Stats struct {
	Total            int
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// PrepareSendWindow returns the messages (oldest→newest) that fit within budget
// using the TokenCounter, without splitting groups.
//
// Rules:
// - A leading system message is pinned: always sent and charged first.
// - Include whole groups scanning newest→oldest while total ≤ budget.
// - If the newest group alone exceeds the remaining budget, return an empty window and set OverBudgetNewest.
// - A window that drops older groups must open on a user turn; leading non-user groups are dropped too.
// - If budget ≤ 0, windowing is disabled and msgs are returned unchanged.
func PrepareSendWindow(msgs []chat.Message, budget int, c TokenCounter) ([]chat.Message, Stats) {
	if len(msgs) == 0 {
		return nil, Stats{Budget: budget}
	}

	var pinned []chat.Message
	rest := msgs
	if msgs[0].Role == chat.RoleSystem {
		pinned, rest = msgs[:1], msgs[1:]
	}
	groups := GroupBlocks(rest)

	if budget <= 0 {
		total := 0
		for _, m := range msgs {
			total += c.CountMessage(m)
		}
		return msgs, Stats{Total: total, Budget: budget, IncludedGroups: len(groups)}
	}

	total := 0
	for _, m := range pinned {
		total += c.CountMessage(m)
	}

	included := 0
	costs := make([]int, len(groups))
	startIdx := len(groups) // exclusive sentinel; lowered when a group is included
	for gi := len(groups) - 1; gi >= 0; gi-- {
		cost := c.CountGroup(groups[gi], rest)
		costs[gi] = cost
		if included == 0 && total+cost > budget {
			vlogf("reason=over_budget_newest_group budget=%d cost=%d pinned=%d", budget, cost, total)
			return nil, Stats{
				Budget:           budget,
				SkippedGroups:    len(groups),
				OverBudgetNewest: true,
			}
		}
		if total+cost > budget {
			break
		}
		total += cost
		included++
		startIdx = gi
	}

	if included == 0 {
		// Only a pinned system message and nothing else to send.
		return append([]chat.Message(nil), pinned...), Stats{Total: total, Budget: budget}
	}

	if startIdx > 0 {
		for startIdx < len(groups) && rest[groups[startIdx].Start].Role != chat.RoleUser {
			total -= costs[startIdx]
			included--
			startIdx++
		}
		if included == 0 {
			vlogf("reason=no_user_turn_in_window budget=%d", budget)
			return nil, Stats{
				Budget:           budget,
				SkippedGroups:    len(groups),
				OverBudgetNewest: true,
			}
		}
	}

	window := make([]chat.Message, 0, len(pinned)+len(rest)-groups[startIdx].Start)
	window = append(window, pinned...)
	window = append(window, rest[groups[startIdx].Start:]...)

	return window, Stats{
		Total:          total,
		Budget:         budget,
		IncludedGroups: included,
		SkippedGroups:  len(groups) - included,
	}
}
