package events

import (
	"testing"
	"time"

	"github.com/xenitz/cloudsocks/internal/model"
)

func TestStoreAppendReadAndFilters(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	s := NewStore()

	base := time.Now().Add(-2 * time.Hour).UTC()
	seed := []Event{
		{Timestamp: base, Provider: model.ProviderGCP, Target: "acme-prod/bastion", EventType: TypeStartRequested},
		{Timestamp: base.Add(10 * time.Minute), Provider: model.ProviderGCP, Target: "acme-prod/bastion", EventType: TypeConnected},
		{Timestamp: base.Add(20 * time.Minute), Provider: model.ProviderAWS, Target: "i-0abc123", EventType: TypeFailed},
	}
	for _, evt := range seed {
		if err := s.Append(evt); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := s.Read(Query{})
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}

	gcpOnly, err := s.Read(Query{Provider: "gcp"})
	if err != nil {
		t.Fatalf("read provider: %v", err)
	}
	if len(gcpOnly) != 2 {
		t.Fatalf("expected 2 gcp events, got %d", len(gcpOnly))
	}

	limited, err := s.Read(Query{Limit: 1})
	if err != nil {
		t.Fatalf("read limit: %v", err)
	}
	if len(limited) != 1 || limited[0].Target != "i-0abc123" {
		t.Fatalf("unexpected limited result: %+v", limited)
	}

	since, err := s.Read(Query{Since: base.Add(15 * time.Minute)})
	if err != nil {
		t.Fatalf("read since: %v", err)
	}
	if len(since) != 1 || since[0].EventType != TypeFailed {
		t.Fatalf("unexpected since result: %+v", since)
	}
}

func TestReadMissingJournal(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	s := NewStore()
	evts, err := s.Read(Query{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if evts != nil {
		t.Fatalf("expected nil for missing journal, got %+v", evts)
	}
}
