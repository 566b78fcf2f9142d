package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/petasbytes/toolchat/chat"
	"github.com/petasbytes/toolchat/internal/logging"
	"github.com/petasbytes/toolchat/internal/runner"
	"github.com/petasbytes/toolchat/internal/telemetry"
	"github.com/petasbytes/toolchat/tools"
)

const DefaultMaxSteps = 8

var (
	ErrEmptyMessage = errors.New("agent: empty message")
	ErrMaxSteps     = errors.New("agent: tool loop did not finish within max steps")
)

// Agent is a stateful conversation with a model and its tools.
// It is safe for concurrent use, but turns are serialized.
type Agent struct {
	mu       sync.Mutex
	runner   *runner.Runner
	system   string
	history  []chat.Message
	maxSteps int
	log      logrus.FieldLogger
}

// Option configures an Agent.
type Option func(*Agent)

// WithSystemPrompt pins prompt as the first turn of every conversation.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.system = prompt }
}

// WithHistory seeds the conversation, e.g. from a persisted session.
// A leading system turn in msgs replaces the configured system prompt.
func WithHistory(msgs []chat.Message) Option {
	return func(a *Agent) { a.history = chat.Clone(msgs) }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Agent) { a.log = l }
}

// WithVerbose logs each tool call and its output.
func WithVerbose(v bool) Option {
	return func(a *Agent) { a.runner.Verbose = v }
}

func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

// WithTokenBudget bounds the estimated size of each request; <= 0 sends the full history.
func WithTokenBudget(n int) Option {
	return func(a *Agent) { a.runner.Budget = n }
}

// New builds an agent over model exposing defs as callable tools.
func New(model runner.Model, defs []tools.ToolDefinition, opts ...Option) *Agent {
	a := &Agent{
		runner:   runner.New(model, defs),
		maxSteps: DefaultMaxSteps,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.runner.Log = a.log
	if len(a.history) > 0 && a.history[0].Role == chat.RoleSystem {
		a.system = a.history[0].Content
	} else if a.system != "" {
		a.history = append([]chat.Message{chat.System(a.system)}, a.history...)
	}
	return a
}

// Reset clears the conversation, keeping only the system prompt.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
	if a.system != "" {
		a.history = []chat.Message{chat.System(a.system)}
	}
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []chat.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return chat.Clone(a.history)
}

// Chat sends message, runs one round of requested tool calls and returns the
// model's final reply. The follow-up request after tool results may not call tools.
func (a *Agent) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, turnID := telemetry.EnsureTurnID(ctx)
	log := a.log.WithField("turn_id", turnID)
	a.history = append(a.history, chat.User(message))

	reply, results, err := a.runner.RunOneStep(ctx, a.history, true)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	a.history = append(a.history, reply)

	if len(results) > 0 {
		a.history = append(a.history, results...)
		log.WithField("tool_calls", len(results)).Debug("requesting follow-up")
		reply, _, err = a.runner.RunOneStep(ctx, a.history, false)
		if err != nil {
			return "", fmt.Errorf("chat follow-up: %w", err)
		}
		a.history = append(a.history, reply)
	}
	return reply.Content, nil
}

// StreamChat sends message and loops while the model asks for tools, passing
// every streamed text delta to onToken. It returns the final reply text.
// On error the history keeps the turns completed so far.
func (a *Agent) StreamChat(ctx context.Context, message string, onToken func(string)) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, turnID := telemetry.EnsureTurnID(ctx)
	log := a.log.WithField("turn_id", turnID)
	a.history = append(a.history, chat.User(message))

	for step := 0; step < a.maxSteps; step++ {
		reply, results, err := a.runner.StreamOneStep(ctx, a.history, true, onToken)
		if err != nil {
			return "", fmt.Errorf("stream chat step %d: %w", step, err)
		}
		a.history = append(a.history, reply)
		if len(results) == 0 {
			return reply.Content, nil
		}
		a.history = append(a.history, results...)
		log.WithFields(logrus.Fields{"step": step, "tool_calls": len(results)}).Debug("tool round complete")
	}
	return "", ErrMaxSteps
}
