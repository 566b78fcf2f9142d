package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/petasbytes/toolchat/chat"
)

// LoadConversation reads a saved history. A missing file yields nil, nil.
func LoadConversation(path string) ([]chat.Message, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var msgs []chat.Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return msgs, nil
}

// SaveConversation writes msgs to path, creating parent directories as needed.
// The file is replaced atomically.
func SaveConversation(path string, msgs []chat.Message) error {
	b, err := json.MarshalIndent(msgs, "", " ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// TrimIncomplete drops a trailing assistant turn whose tool calls were never
// answered, e.g. after an interrupted session.
func TrimIncomplete(msgs []chat.Message) []chat.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == chat.RoleTool {
			continue
		}
		if !msgs[i].HasToolCalls() {
			return msgs
		}
		answered := 0
		for _, m := range msgs[i+1:] {
			if m.Role == chat.RoleTool {
				answered++
			}
		}
		if answered < len(msgs[i].ToolCalls) {
			return msgs[:i]
		}
		return msgs
	}
	return msgs
}
