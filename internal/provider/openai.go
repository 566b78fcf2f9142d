package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/petasbytes/toolchat/chat"
	"github.com/petasbytes/toolchat/internal/runner"
)

const DefaultOpenAIModel = openai.ChatModelGPT4oMini

// OpenAI adapts the Chat Completions API (tool calling included) to runner.Model.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewOpenAI returns an adapter using OPENAI_API_KEY from the env unless opts override it.
func NewOpenAI(model string, temperature float64, maxTokens int64, opts ...option.RequestOption) *OpenAI {
	c := openai.NewClient(opts...)
	if model == "" {
		model = string(DefaultOpenAIModel)
	}
	return &OpenAI{client: &c, model: model, temperature: temperature, maxTokens: maxTokens}
}

func (m *OpenAI) Name() string { return m.model }

func (m *OpenAI) Complete(ctx context.Context, req runner.Request) (chat.Message, error) {
	resp, err := m.client.Chat.Completions.New(ctx, m.params(req))
	if err != nil {
		return chat.Message{}, fmt.Errorf("openai: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return chat.Message{}, fmt.Errorf("openai: no choices returned")
	}
	msg := resp.Choices[0].Message
	out := chat.Assistant(msg.Content)
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, chat.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// aggCall aggregates streamed tool call fragments sharing one index.
type aggCall struct{ id, name, args string }

func (m *OpenAI) Stream(ctx context.Context, req runner.Request, onDelta func(string)) (chat.Message, error) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, m.params(req))
	defer stream.Close()

	var text strings.Builder
	agg := map[int64]*aggCall{}
	for stream.Next() {
		for _, ch := range stream.Current().Choices {
			if d := ch.Delta.Content; d != "" {
				text.WriteString(d)
				onDelta(d)
			}
			for _, tc := range ch.Delta.ToolCalls {
				ac, ok := agg[tc.Index]
				if !ok {
					ac = &aggCall{}
					agg[tc.Index] = ac
				}
				if tc.ID != "" {
					ac.id = tc.ID
				}
				if tc.Function.Name != "" {
					ac.name = tc.Function.Name
				}
				ac.args += tc.Function.Arguments
			}
		}
	}
	if err := stream.Err(); err != nil {
		return chat.Message{}, fmt.Errorf("openai: stream: %w", err)
	}

	idx := make([]int64, 0, len(agg))
	for i := range agg {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool { return idx[a] < idx[b] })

	out := chat.Assistant(text.String())
	for _, i := range idx {
		ac := agg[i]
		out.ToolCalls = append(out.ToolCalls, chat.ToolCall{ID: ac.id, Name: ac.name, Arguments: ac.args})
	}
	return out, nil
}

func (m *OpenAI) params(req runner.Request) openai.ChatCompletionNewParams {
	p := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(m.model),
		Messages:            toOpenAIMessages(req.Messages),
		Temperature:         openai.Float(m.temperature),
		MaxCompletionTokens: openai.Int(m.maxTokens),
	}
	// Tool messages are valid without definitions, so "none" simply omits them.
	if len(req.Tools) == 0 || req.ToolChoiceNone {
		return p
	}
	p.Tools = make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, t := range req.Tools {
		p.Tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.InputSchema,
			},
		}
	}
	return p
}

func toOpenAIMessages(msgs []chat.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case chat.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case chat.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case chat.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case chat.RoleAssistant:
			if !m.HasToolCalls() {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			asst := &openai.ChatCompletionAssistantMessageParam{Role: "assistant"}
			if m.Content != "" {
				asst.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Content)}
			}
			for _, c := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID:   c.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      c.Name,
						Arguments: c.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: asst})
		}
	}
	return out
}
