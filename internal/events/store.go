// Package events persists tunnel lifecycle records to a local jsonl journal.
package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xenitz/cloudsocks/internal/model"
	"github.com/xenitz/cloudsocks/internal/settings"
)

// Well-known event types written by the CLI and TUI.
const (
	TypeStartRequested = "start_requested"
	TypeConnected      = "connected"
	TypeFailed         = "failed"
	TypeStopped        = "stopped"
	TypeProxyEnabled   = "proxy_enabled"
	TypeProxyDisabled  = "proxy_disabled"
)

// Event is one tunnel lifecycle record persisted to events.jsonl.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Provider  model.Provider `json:"provider,omitempty"`
	Target    string         `json:"target,omitempty"`
	EventType string         `json:"event_type"`
	Message   string         `json:"message,omitempty"`
	PID       int            `json:"pid,omitempty"`
}

// Query controls event filtering and bounded reads.
type Query struct {
	Provider  string
	Target    string
	EventType string
	Since     time.Time
	Limit     int
}

// Store provides append/read access to the local event journal.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// Append writes a single event as one JSON line.
func (s *Store) Append(evt Event) error {
	path, err := settings.JournalFilePath()
	if err != nil {
		return err
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}

// Read returns events in append order, filtered by query, with optional limit.
func (s *Store) Read(q Query) ([]Event, error) {
	path, err := settings.JournalFilePath()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var evt Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			continue
		}
		if !matches(evt, q) {
			continue
		}
		out = append(out, evt)
		if q.Limit > 0 && len(out) > q.Limit {
			out = out[len(out)-q.Limit:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return out, nil
}

func matches(evt Event, q Query) bool {
	if strings.TrimSpace(q.Provider) != "" && string(evt.Provider) != q.Provider {
		return false
	}
	if strings.TrimSpace(q.Target) != "" && evt.Target != q.Target {
		return false
	}
	if strings.TrimSpace(q.EventType) != "" && evt.EventType != q.EventType {
		return false
	}
	if !q.Since.IsZero() && evt.Timestamp.Before(q.Since) {
		return false
	}
	return true
}
