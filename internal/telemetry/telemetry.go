// Package telemetry emits structured JSONL events about agent turns, model
// calls and tool executions.
//
// Events go to .agent/events.jsonl (size-rotated) when AGT_OBSERVE_JSON=1.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	eventsDir  = ".agent"
	eventsFile = "events.jsonl"
)

var (
	sinkMu sync.Mutex
	sink   *lumberjack.Logger
)

// Emit writes a single JSON line to .agent/events.jsonl when observation is enabled.
// It augments fields with RFC3339Nano time and the event name.
func Emit(name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}

	// Make a shallow copy so callers' maps aren't mutated.
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := json.Marshal(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: marshal: %v\n", err)
		return
	}

	sinkMu.Lock()
	defer sinkMu.Unlock()
	w, err := sinkFor(filepath.Join(eventsDir, eventsFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: %v\n", err)
		return
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: write %s: %v\n", w.Filename, err)
	}
}

// sinkFor returns the rotating writer for path, reopening it when the
// resolved location changes (e.g. after a chdir). Caller holds sinkMu.
func sinkFor(path string) (*lumberjack.Logger, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if sink != nil && sink.Filename == abs {
		return sink, nil
	}
	if sink != nil {
		_ = sink.Close()
	}
	sink = &lumberjack.Logger{
		Filename:   abs,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}
	return sink, nil
}

// Close flushes and releases the events file.
func Close() error {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if sink == nil {
		return nil
	}
	err := sink.Close()
	sink = nil
	return err
}
