package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestChecker(handler http.HandlerFunc) (*Checker, func()) {
	srv := httptest.NewServer(handler)
	c := NewChecker()
	c.BaseURL = srv.URL
	c.Client = srv.Client()
	return c, srv.Close
}

func TestCheckUpdateAvailable(t *testing.T) {
	c, done := newTestChecker(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/"+Repo+"/releases/latest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"tag_name": "v2.1.0"}`))
	})
	defer done()

	res, err := c.Check(context.Background(), "2.0.3")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Status != StatusUpdateAvailable {
		t.Fatalf("status = %s, want %s", res.Status, StatusUpdateAvailable)
	}
	if res.Latest != "2.1.0" {
		t.Fatalf("latest = %s, want 2.1.0", res.Latest)
	}
}

func TestCheckUpToDate(t *testing.T) {
	c, done := newTestChecker(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name": "1.4.0"}`))
	})
	defer done()

	res, err := c.Check(context.Background(), "1.4.0")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Status != StatusUpToDate {
		t.Fatalf("status = %s, want %s", res.Status, StatusUpToDate)
	}
}

func TestCheckNoReleases(t *testing.T) {
	c, done := newTestChecker(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	defer done()

	res, err := c.Check(context.Background(), "1.0.0")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Status != StatusNoReleases {
		t.Fatalf("status = %s, want %s", res.Status, StatusNoReleases)
	}
}

func TestCheckServerError(t *testing.T) {
	c, done := newTestChecker(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer done()

	if _, err := c.Check(context.Background(), "1.0.0"); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestIsNewer(t *testing.T) {
	cases := []struct {
		candidate, current string
		want               bool
	}{
		{"2.0.0", "1.9.9", true},
		{"1.4.0", "1.4.0", false},
		{"1.4.0", "1.4.1", false},
		{"1.10.0", "1.9.0", true},
	}
	for _, tc := range cases {
		got, err := IsNewer(tc.candidate, tc.current)
		if err != nil {
			t.Fatalf("IsNewer(%s, %s): %v", tc.candidate, tc.current, err)
		}
		if got != tc.want {
			t.Errorf("IsNewer(%s, %s) = %v, want %v", tc.candidate, tc.current, got, tc.want)
		}
	}
}
