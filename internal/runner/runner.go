package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/petasbytes/toolchat/chat"
	"github.com/petasbytes/toolchat/internal/logging"
	"github.com/petasbytes/toolchat/internal/telemetry"
	"github.com/petasbytes/toolchat/internal/windowing"
	"github.com/petasbytes/toolchat/tools"
)

// Request is the provider-neutral input for one completion.
type Request struct {
	Messages []chat.Message
	Tools    []tools.ToolDefinition
	// ToolChoiceNone keeps Tools declared but forbids the model from calling them.
	// Providers that require tool definitions alongside tool turns rely on it.
	ToolChoiceNone bool
}

// Model is a hosted chat-completion backend.
type Model interface {
	Name() string
	// Complete returns the full assistant message.
	Complete(ctx context.Context, req Request) (chat.Message, error)
	// Stream forwards text deltas to onDelta as they arrive and returns the
	// assembled assistant message, tool calls included.
	Stream(ctx context.Context, req Request, onDelta func(string)) (chat.Message, error)
}

// ErrOverBudget is returned when the newest turn alone does not fit the token budget.
var ErrOverBudget = errors.New("windowing: newest group exceeds token budget; increase AGT_TOKEN_BUDGET")

type Runner struct {
	Model   Model
	Tools   []tools.ToolDefinition
	Budget  int
	Counter windowing.TokenCounter
	Log     logrus.FieldLogger
	// Verbose logs every tool call and its output at info level.
	Verbose bool

	byName map[string]tools.ToolDefinition
}

func New(model Model, toolDefs []tools.ToolDefinition) *Runner {
	return &Runner{
		Model:   model,
		Tools:   toolDefs,
		Counter: windowing.HeuristicCounter{},
		Log:     logging.Discard(),
		byName:  tools.Lookup(toolDefs),
	}
}

// RunOneStep sends the conversation and executes any tool calls in the reply.
// It returns the assistant message and the tool messages to append after it.
func (r *Runner) RunOneStep(ctx context.Context, conv []chat.Message, withTools bool) (chat.Message, []chat.Message, error) {
	return r.step(ctx, conv, withTools, nil)
}

// StreamOneStep is RunOneStep with text deltas forwarded to onDelta.
func (r *Runner) StreamOneStep(ctx context.Context, conv []chat.Message, withTools bool, onDelta func(string)) (chat.Message, []chat.Message, error) {
	if onDelta == nil {
		onDelta = func(string) {}
	}
	return r.step(ctx, conv, withTools, onDelta)
}

func (r *Runner) step(ctx context.Context, conv []chat.Message, withTools bool, onDelta func(string)) (chat.Message, []chat.Message, error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)

	window, stats := windowing.PrepareSendWindow(conv, r.Budget, r.counter())
	telemetry.Emit("window_prepared", map[string]any{
		"turn_id":            turnID,
		"model":              r.Model.Name(),
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"included_groups":    stats.IncludedGroups,
		"skipped_groups":     stats.SkippedGroups,
		"over_budget_newest": stats.OverBudgetNewest,
	})
	if stats.OverBudgetNewest {
		return chat.Message{}, nil, ErrOverBudget
	}

	req := Request{Messages: window, Tools: r.Tools, ToolChoiceNone: !withTools}

	start := time.Now()
	var (
		msg chat.Message
		err error
	)
	if onDelta != nil {
		msg, err = r.Model.Stream(ctx, req, onDelta)
	} else {
		msg, err = r.Model.Complete(ctx, req)
	}
	r.emitModelCall(turnID, req, msg, time.Since(start), err)
	if err != nil {
		return chat.Message{}, nil, err
	}
	msg.Role = chat.RoleAssistant

	var results []chat.Message
	for _, call := range msg.ToolCalls {
		results = append(results, r.ExecTool(ctx, call))
	}
	return msg, results, nil
}

func (r *Runner) emitModelCall(turnID string, req Request, msg chat.Message, d time.Duration, err error) {
	fields := map[string]any{
		"turn_id":     turnID,
		"model":       r.Model.Name(),
		"duration_ms": d.Milliseconds(),
		"messages":    len(req.Messages),
		"tools":       len(req.Tools),
		"tool_choice": toolChoice(req),
		"tool_calls":  len(msg.ToolCalls),
		"error":       nil,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if telemetry.PersistPayloadsEnabled() {
		fields["request"] = req.Messages
		if err == nil {
			fields["response"] = msg
		}
	}
	telemetry.Emit("model_call", fields)
}

// ExecTool runs one tool call and returns the tool message answering it.
// Failures are reported to the model in the message content, never as Go errors.
func (r *Runner) ExecTool(ctx context.Context, call chat.ToolCall) chat.Message {
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	log := r.logger().WithFields(logrus.Fields{"tool": call.Name, "call_id": call.ID, "turn_id": turnID})

	// Helper to emit a tool_exec event
	emit := func(d time.Duration, inputSize, outputSize int, errStr string) {
		fields := map[string]any{
			"tool_name":   call.Name,
			"call_id":     call.ID,
			"duration_ms": d.Milliseconds(),
			"input_size":  inputSize,
			"output_size": outputSize,
			"turn_id":     turnID,
			"error":       nil,
		}
		if errStr != "" {
			fields["error"] = errStr
		}
		telemetry.Emit("tool_exec", fields)
	}

	r.logCall(log, call)
	start := time.Now()
	input := json.RawMessage(call.Arguments)
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}

	def, ok := r.lookup(call.Name)
	if !ok {
		emit(time.Since(start), len(input), 0, "tool not found")
		out := tools.ToolError{Code: tools.CodeToolNotFound, Message: fmt.Sprintf("tool not found: %s", call.Name)}.Error()
		log.Warn("tool not found")
		return chat.ToolResult(call.ID, call.Name, out, true)
	}

	out, err := def.Function(input)
	if err != nil {
		// Generic string in telemetry to avoid leaking raw payloads; details go to the model.
		emit(time.Since(start), len(input), 0, "tool error")
		log.WithError(err).Warn("tool failed")
		return chat.ToolResult(call.ID, call.Name, err.Error(), true)
	}
	emit(time.Since(start), len(input), len(out), "")
	r.logOutput(log, out)
	return chat.ToolResult(call.ID, call.Name, out, false)
}

func (r *Runner) logCall(log logrus.FieldLogger, call chat.ToolCall) {
	if !r.Verbose {
		log.Debug("calling tool")
		return
	}
	log.Info("=== Calling Function ===")
	log.Infof("Calling function: %s with args: %s", call.Name, call.Arguments)
}

func (r *Runner) logOutput(log logrus.FieldLogger, out string) {
	if !r.Verbose {
		log.WithField("output_size", len(out)).Debug("tool done")
		return
	}
	log.Infof("Got output: %s", out)
	log.Info("========================")
}

func (r *Runner) lookup(name string) (tools.ToolDefinition, bool) {
	if r.byName == nil {
		r.byName = tools.Lookup(r.Tools)
	}
	def, ok := r.byName[name]
	return def, ok
}

func toolChoice(req Request) string {
	if req.ToolChoiceNone || len(req.Tools) == 0 {
		return "none"
	}
	return "auto"
}

func (r *Runner) counter() windowing.TokenCounter {
	if r.Counter == nil {
		return windowing.HeuristicCounter{}
	}
	return r.Counter
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logging.Discard()
	}
	return r.Log
}
