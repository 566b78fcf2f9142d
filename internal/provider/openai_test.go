package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/toolchat/chat"
	"github.com/petasbytes/toolchat/internal/provider"
	"github.com/petasbytes/toolchat/internal/runner"
	"github.com/petasbytes/toolchat/tools"
)

func newOpenAI(rt http.RoundTripper) *provider.OpenAI {
	return provider.NewOpenAI("gpt-test", 0, 256,
		option.WithHTTPClient(&http.Client{Transport: rt}),
		option.WithAPIKey("test-key"),
		option.WithBaseURL("http://fake.local/v1/"),
		option.WithMaxRetries(0),
	)
}

const completionWithToolCall = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 0,
  "model": "gpt-test",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": null,
      "tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "multiply", "arguments": "{\"a\":121,\"b\":2}"}}]
    }
  }]
}`

type openAIRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role       string          `json:"role"`
		Content    json.RawMessage `json:"content"`
		ToolCallID string          `json:"tool_call_id"`
		ToolCalls  []struct {
			ID       string `json:"id"`
			Type     string `json:"type"`
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"messages"`
	Tools []struct {
		Type     string `json:"type"`
		Function struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"function"`
	} `json:"tools"`
	Stream bool `json:"stream"`
}

func TestOpenAI_Complete_ParsesToolCalls(t *testing.T) {
	capReq := &capture{}
	m := newOpenAI(&fakeTransport{respStatus: 200, respBody: []byte(completionWithToolCall), captured: capReq})

	msg, err := m.Complete(context.Background(), runner.Request{
		Messages: []chat.Message{chat.System("sys"), chat.User("What is 121 * 2?")},
		Tools:    tools.Registry(),
	})
	require.NoError(t, err)
	assert.Equal(t, chat.RoleAssistant, msg.Role)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, chat.ToolCall{ID: "call_1", Name: "multiply", Arguments: `{"a":121,"b":2}`}, msg.ToolCalls[0])

	var rb openAIRequest
	require.NoError(t, json.Unmarshal(capReq.Body(), &rb))
	assert.Equal(t, "gpt-test", rb.Model)
	require.Len(t, rb.Messages, 2)
	assert.Equal(t, "system", rb.Messages[0].Role)
	assert.Equal(t, "user", rb.Messages[1].Role)
	require.Len(t, rb.Tools, 2)
	assert.Equal(t, "function", rb.Tools[0].Type)
	assert.Equal(t, "multiply", rb.Tools[0].Function.Name)
	assert.Equal(t, "object", rb.Tools[0].Function.Parameters["type"])
}

func TestOpenAI_Complete_SendsToolTurns(t *testing.T) {
	capReq := &capture{}
	resp := `{"id":"c2","object":"chat.completion","created":0,"model":"gpt-test","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"242"}}]}`
	m := newOpenAI(&fakeTransport{respStatus: 200, respBody: []byte(resp), captured: capReq})

	conv := []chat.Message{
		chat.User("What is 121 * 2?"),
		chat.Assistant("", chat.ToolCall{ID: "call_1", Name: "multiply", Arguments: `{"a":121,"b":2}`}),
		chat.ToolResult("call_1", "multiply", "242", false),
	}
	msg, err := m.Complete(context.Background(), runner.Request{Messages: conv})
	require.NoError(t, err)
	assert.Equal(t, "242", msg.Content)
	assert.Empty(t, msg.ToolCalls)

	var rb openAIRequest
	require.NoError(t, json.Unmarshal(capReq.Body(), &rb))
	require.Len(t, rb.Messages, 3)
	assert.Equal(t, "assistant", rb.Messages[1].Role)
	require.Len(t, rb.Messages[1].ToolCalls, 1)
	assert.Equal(t, "call_1", rb.Messages[1].ToolCalls[0].ID)
	assert.Equal(t, "multiply", rb.Messages[1].ToolCalls[0].Function.Name)
	assert.Equal(t, "tool", rb.Messages[2].Role)
	assert.Equal(t, "call_1", rb.Messages[2].ToolCallID)
	assert.Empty(t, rb.Tools)
}

func TestOpenAI_ToolChoiceNone_OmitsDefinitions(t *testing.T) {
	capReq := &capture{}
	resp := `{"id":"c3","object":"chat.completion","created":0,"model":"gpt-test","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"242"}}]}`
	m := newOpenAI(&fakeTransport{respStatus: 200, respBody: []byte(resp), captured: capReq})

	_, err := m.Complete(context.Background(), runner.Request{
		Messages:       []chat.Message{chat.User("q")},
		Tools:          tools.Registry(),
		ToolChoiceNone: true,
	})
	require.NoError(t, err)

	var rb openAIRequest
	require.NoError(t, json.Unmarshal(capReq.Body(), &rb))
	assert.Empty(t, rb.Tools)
}

func sseChunks(chunks ...string) []byte {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString("data: ")
		b.WriteString(c)
		b.WriteString("\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return []byte(b.String())
}

func TestOpenAI_Stream_TextDeltas(t *testing.T) {
	body := sseChunks(
		`{"id":"s1","object":"chat.completion.chunk","created":0,"model":"gpt-test","choices":[{"index":0,"delta":{"role":"assistant","content":"Once "},"finish_reason":null}]}`,
		`{"id":"s1","object":"chat.completion.chunk","created":0,"model":"gpt-test","choices":[{"index":0,"delta":{"content":"upon a time"},"finish_reason":null}]}`,
		`{"id":"s1","object":"chat.completion.chunk","created":0,"model":"gpt-test","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
	)
	capReq := &capture{}
	m := newOpenAI(&fakeTransport{respStatus: 200, respBody: body, contentType: "text/event-stream", captured: capReq})

	var deltas []string
	msg, err := m.Stream(context.Background(), runner.Request{Messages: []chat.Message{chat.User("story")}}, func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Once ", "upon a time"}, deltas)
	assert.Equal(t, "Once upon a time", msg.Content)

	var rb openAIRequest
	require.NoError(t, json.Unmarshal(capReq.Body(), &rb))
	assert.True(t, rb.Stream)
}

func TestOpenAI_Stream_AggregatesToolCallFragments(t *testing.T) {
	body := sseChunks(
		`{"id":"s2","object":"chat.completion.chunk","created":0,"model":"gpt-test","choices":[{"index":0,"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_9","type":"function","function":{"name":"multiply","arguments":""}}]},"finish_reason":null}]}`,
		`{"id":"s2","object":"chat.completion.chunk","created":0,"model":"gpt-test","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"a\":121,"}}]},"finish_reason":null}]}`,
		`{"id":"s2","object":"chat.completion.chunk","created":0,"model":"gpt-test","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"b\":2}"}}]},"finish_reason":null}]}`,
		`{"id":"s2","object":"chat.completion.chunk","created":0,"model":"gpt-test","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	)
	m := newOpenAI(&fakeTransport{respStatus: 200, respBody: body, contentType: "text/event-stream"})

	msg, err := m.Stream(context.Background(), runner.Request{Messages: []chat.Message{chat.User("q")}}, func(string) {})
	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, chat.ToolCall{ID: "call_9", Name: "multiply", Arguments: `{"a":121,"b":2}`}, msg.ToolCalls[0])
	assert.Empty(t, msg.Content)
}

func TestOpenAI_Complete_HTTPError(t *testing.T) {
	m := newOpenAI(&fakeTransport{respStatus: 401, respBody: []byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`)})
	_, err := m.Complete(context.Background(), runner.Request{Messages: []chat.Message{chat.User("q")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai: completion")
}
