package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/petasbytes/toolchat/chat"
	"github.com/petasbytes/toolchat/internal/runner"
)

// ScriptedModel replays canned assistant replies in order and records every request.
type ScriptedModel struct {
	mu       sync.Mutex
	replies  []chat.Message
	errs     map[int]error
	requests []runner.Request
}

// NewScriptedModel returns a model that answers call i with replies[i].
func NewScriptedModel(replies ...chat.Message) *ScriptedModel {
	return &ScriptedModel{replies: replies, errs: map[int]error{}}
}

// FailOn makes call number i (0-based) return err.
func (m *ScriptedModel) FailOn(i int, err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[i] = err
	return m
}

func (m *ScriptedModel) Name() string { return "scripted" }

func (m *ScriptedModel) Complete(ctx context.Context, req runner.Request) (chat.Message, error) {
	return m.next(ctx, req)
}

// Stream splits the reply content into words and forwards them one by one.
func (m *ScriptedModel) Stream(ctx context.Context, req runner.Request, onDelta func(string)) (chat.Message, error) {
	msg, err := m.next(ctx, req)
	if err != nil {
		return chat.Message{}, err
	}
	for _, w := range strings.SplitAfter(msg.Content, " ") {
		if w != "" {
			onDelta(w)
		}
	}
	return msg, nil
}

func (m *ScriptedModel) next(ctx context.Context, req runner.Request) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.requests)
	req.Messages = chat.Clone(req.Messages)
	m.requests = append(m.requests, req)
	if err, ok := m.errs[i]; ok {
		return chat.Message{}, err
	}
	if i >= len(m.replies) {
		return chat.Message{}, fmt.Errorf("scripted model: no reply for call %d", i)
	}
	return m.replies[i], nil
}

// Requests returns the recorded requests.
func (m *ScriptedModel) Requests() []runner.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]runner.Request(nil), m.requests...)
}
