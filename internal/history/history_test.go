package history

import (
	"testing"
)

func TestTouchAndLastUsed(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := Touch("acme-prod/bastion"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, err := LastUsed()
	if err != nil {
		t.Fatalf("last used: %v", err)
	}
	if got["acme-prod/bastion"] <= 0 {
		t.Fatalf("expected timestamp for target, got %+v", got)
	}
}

func TestRecentTargets(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, target := range []string{"i-0abc123", "acme-prod/bastion", "i-0def456"} {
		if err := Touch(target); err != nil {
			t.Fatalf("touch %s: %v", target, err)
		}
	}
	// Make the middle target clearly most recent.
	if err := Touch("acme-prod/bastion"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, err := RecentTargets(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 targets, got %v", got)
	}
	if got[0] != "acme-prod/bastion" {
		t.Fatalf("expected most recent target first, got %v", got)
	}
}

func TestRecentTargetsEmpty(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	got, err := RecentTargets(0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no targets, got %v", got)
	}
}
