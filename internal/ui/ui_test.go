package ui

import (
	"strings"
	"testing"

	"github.com/xenitz/cloudsocks/internal/history"
	"github.com/xenitz/cloudsocks/internal/model"
	"github.com/xenitz/cloudsocks/internal/supervisor"
)

func testRequest() model.TunnelRequest {
	return model.TunnelRequest{
		Provider:  model.ProviderGCP,
		Project:   "acme-prod",
		Zone:      "europe-west1-b",
		Instance:  "bastion",
		SocksPort: 8080,
	}
}

func TestHandleTunnelEventConnected(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	m := initialModel()
	m.req = testRequest()
	m.state = model.StateStarting
	m.evts = make(chan supervisor.Event)

	next, _ := m.Update(tunnelEventMsg(supervisor.Event{
		Kind: supervisor.EventStatus, Connected: true,
	}))
	got := next.(modelUI)
	if got.state != model.StateConnected {
		t.Fatalf("state = %s, want connected", got.state)
	}
	if !got.logged {
		t.Fatal("first connected event was not journaled")
	}

	lastUsed, err := history.LastUsed()
	if err != nil {
		t.Fatal(err)
	}
	if lastUsed[m.req.Target()] <= 0 {
		t.Fatalf("expected history entry for target, got %+v", lastUsed)
	}
	if len(got.recent) == 0 || got.recent[0] != m.req.Target() {
		t.Fatalf("recent targets not refreshed, got %v", got.recent)
	}
}

func TestViewListsRecentTargets(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	if err := history.Touch("gcp:acme-prod/europe-west1-b/bastion"); err != nil {
		t.Fatal(err)
	}
	if err := history.Touch("aws:i-0abc123"); err != nil {
		t.Fatal(err)
	}

	m := initialModel()
	view := m.View()
	if !strings.Contains(view, "Recent Targets") {
		t.Fatal("expected recent targets panel in form view")
	}
	for _, target := range []string{"gcp:acme-prod/europe-west1-b/bastion", "aws:i-0abc123"} {
		if !strings.Contains(view, target) {
			t.Fatalf("expected %q in view", target)
		}
	}

	m.state = model.StateConnected
	m.req = testRequest()
	if strings.Contains(m.View(), "Recent Targets") {
		t.Fatal("recent targets panel should not render during a session")
	}
}

func TestSessionActive(t *testing.T) {
	cases := []struct {
		state model.TunnelState
		want  bool
	}{
		{model.StateIdle, false},
		{model.StateStarting, true},
		{model.StateConnected, true},
		{model.StateFailed, false},
		{model.StateStopped, false},
	}
	for _, tc := range cases {
		m := modelUI{state: tc.state}
		if got := m.sessionActive(); got != tc.want {
			t.Fatalf("sessionActive(%s) = %v, want %v", tc.state, got, tc.want)
		}
	}
}

func TestHandleTunnelEventLogTrimming(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	m := initialModel()
	m.evts = make(chan supervisor.Event)
	var next modelUI = m
	for i := 0; i < maxLogLines+10; i++ {
		res, _ := next.Update(tunnelEventMsg(supervisor.Event{
			Kind: supervisor.EventLog, Line: "ssh: line",
		}))
		next = res.(modelUI)
	}
	if len(next.logs) != maxLogLines {
		t.Fatalf("log length = %d, want %d", len(next.logs), maxLogLines)
	}
}

func TestTunnelClosedAfterFailure(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	m := initialModel()
	m.state = model.StateFailed

	next, _ := m.Update(tunnelClosedMsg{})
	got := next.(modelUI)
	if got.sup != nil || got.evts != nil {
		t.Fatal("expected session references cleared after close")
	}
	if got.state != model.StateFailed {
		t.Fatalf("state = %s, want failed", got.state)
	}
}
