// Package logging provides leveled logging and run journaling for growthsim.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A RunJournal for structured JSONL run events (.growthsim/journal.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level every
// curve's drawn parameters are journaled.
const LevelTrace = slog.LevelDebug - 4

// JournalFile is the journal's file name inside its directory.
const JournalFile = "journal.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// RunJournal appends structured run events to a JSONL file.
// It is safe for concurrent use. A nil RunJournal is safe to use;
// all methods are no-ops on nil receiver.
type RunJournal struct {
	mu    sync.Mutex
	file  *os.File
	path  string
	level slog.Level
}

// NewRunJournal creates a journal writing to dir/journal.jsonl.
// At "info" level (the default) it returns nil and no file is created.
// At "debug" or "trace" level the file is opened for append.
// Returns nil if the file cannot be opened.
func NewRunJournal(dir string, level string) *RunJournal {
	lvl := ParseLevel(level)
	if lvl >= slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, JournalFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &RunJournal{file: f, path: path, level: lvl}
}

// Path returns the journal file path, or "" on a nil journal.
func (j *RunJournal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Tracing reports whether per-curve events should be journaled.
func (j *RunJournal) Tracing() bool {
	return j != nil && j.level <= LevelTrace
}

// Log writes an event as a single JSONL line.
// A "time" field is added automatically. The caller's map is not mutated.
func (j *RunJournal) Log(event map[string]any) {
	if j == nil {
		return
	}

	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return
	}
	_, _ = j.file.Write(data)
}

// Close closes the underlying file.
func (j *RunJournal) Close() {
	if j == nil {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file != nil {
		j.file.Close()
		j.file = nil
	}
}
