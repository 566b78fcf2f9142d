package windowing_test

import "github.com/petasbytes/toolchat/chat"

// Tool call with a one-rune name and no arguments: costs 1 on top of message overhead.
func TC(id string) chat.ToolCall { return chat.ToolCall{ID: id, Name: "f"} }

func Asst(text string, calls ...chat.ToolCall) chat.Message { return chat.Assistant(text, calls...) }

func Tool(id, content string) chat.Message { return chat.ToolResult(id, "f", content, false) }

func User(text string) chat.Message { return chat.User(text) }
