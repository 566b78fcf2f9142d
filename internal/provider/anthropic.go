package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/toolchat/chat"
	"github.com/petasbytes/toolchat/internal/runner"
)

const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

// Anthropic adapts the Messages API to runner.Model.
type Anthropic struct {
	client      *anthropic.Client
	model       anthropic.Model
	temperature float64
	maxTokens   int64
}

// NewAnthropic returns an adapter using ANTHROPIC_API_KEY from the env unless opts override it.
func NewAnthropic(model string, temperature float64, maxTokens int64, opts ...option.RequestOption) *Anthropic {
	c := anthropic.NewClient(opts...)
	m := anthropic.Model(model)
	if model == "" {
		m = DefaultAnthropicModel
	}
	return &Anthropic{client: &c, model: m, temperature: temperature, maxTokens: maxTokens}
}

func (a *Anthropic) Name() string { return string(a.model) }

func (a *Anthropic) Complete(ctx context.Context, req runner.Request) (chat.Message, error) {
	msg, err := a.client.Messages.New(ctx, a.params(req))
	if err != nil {
		return chat.Message{}, fmt.Errorf("anthropic: messages: %w", err)
	}
	return fromAnthropicContent(msg.Content), nil
}

func (a *Anthropic) Stream(ctx context.Context, req runner.Request, onDelta func(string)) (chat.Message, error) {
	stream := a.client.Messages.NewStreaming(ctx, a.params(req))
	defer stream.Close()

	acc := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			return chat.Message{}, fmt.Errorf("anthropic: accumulate: %w", err)
		}
		if ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" {
				onDelta(d.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return chat.Message{}, fmt.Errorf("anthropic: stream: %w", err)
	}
	return fromAnthropicContent(acc.Content), nil
}

func fromAnthropicContent(blocks []anthropic.ContentBlockUnion) chat.Message {
	var text []string
	out := chat.Assistant("")
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if b.Text != "" {
				text = append(text, b.Text)
			}
		case "tool_use":
			args := string(b.Input)
			if args == "" {
				args = "{}"
			}
			out.ToolCalls = append(out.ToolCalls, chat.ToolCall{ID: b.ID, Name: b.Name, Arguments: args})
		}
	}
	out.Content = strings.Join(text, "\n")
	return out
}

func (a *Anthropic) params(req runner.Request) anthropic.MessageNewParams {
	system, msgs := toAnthropicMessages(req.Messages)
	p := anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Messages:    msgs,
		Temperature: anthropic.Float(a.temperature),
	}
	if system != "" {
		p.System = []anthropic.TextBlockParam{{Text: system}}
	}
	// The Messages API rejects tool_use/tool_result blocks unless tools are
	// declared, so a no-tools follow-up still sends them with tool_choice none.
	for _, t := range req.Tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: t.InputSchema["properties"],
			Required:   requiredFields(t.InputSchema["required"]),
		}
		p.Tools = append(p.Tools, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: schema,
		}})
	}
	if req.ToolChoiceNone && len(p.Tools) > 0 {
		p.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	}
	return p
}

// requiredFields reads a JSON-Schema "required" list, decoded ([]any) or literal ([]string).
func requiredFields(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, f := range req {
			if s, ok := f.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// toAnthropicMessages lifts system turns into the system prompt and folds each
// run of tool messages into a single user message of tool_result blocks.
func toAnthropicMessages(msgs []chat.Message) (string, []anthropic.MessageParam) {
	var (
		system  []string
		out     []anthropic.MessageParam
		pending []anthropic.ContentBlockParamUnion
	)
	flush := func() {
		if len(pending) > 0 {
			out = append(out, anthropic.NewUserMessage(pending...))
			pending = nil
		}
	}
	for _, m := range msgs {
		switch m.Role {
		case chat.RoleSystem:
			system = append(system, m.Content)
		case chat.RoleTool:
			pending = append(pending, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		case chat.RoleUser:
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case chat.RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, c := range m.ToolCalls {
				args := json.RawMessage(c.Arguments)
				if len(args) == 0 {
					args = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    c.ID,
					Name:  c.Name,
					Input: args,
				}})
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	flush()
	return strings.Join(system, "\n\n"), out
}
