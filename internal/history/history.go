// Package history tracks when each tunnel target was last used, so the UI
// can surface recent targets first.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xenitz/cloudsocks/internal/settings"
)

type store struct {
	LastUsed map[string]int64 `json:"last_used"`
}

// Touch records successful activity for a tunnel target. Targets are the
// provider-qualified labels from model.TunnelRequest.Target.
func Touch(target string) error {
	st, err := load()
	if err != nil {
		return err
	}
	if st.LastUsed == nil {
		st.LastUsed = map[string]int64{}
	}
	st.LastUsed[target] = time.Now().Unix()
	return save(st)
}

// LastUsed returns last successful activity timestamps by target.
func LastUsed() (map[string]int64, error) {
	st, err := load()
	if err != nil {
		return nil, err
	}
	return st.LastUsed, nil
}

// RecentTargets returns targets sorted by recent activity (desc), then name.
// A limit of 0 means all.
func RecentTargets(limit int) ([]string, error) {
	lastUsed, err := LastUsed()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(lastUsed))
	for target := range lastUsed {
		out = append(out, target)
	}
	sort.Slice(out, func(i, j int) bool {
		ti := lastUsed[out[i]]
		tj := lastUsed[out[j]]
		if ti != tj {
			return ti > tj
		}
		return out[i] < out[j]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func load() (store, error) {
	path, err := settings.HistoryFilePath()
	if err != nil {
		return store{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store{LastUsed: map[string]int64{}}, nil
		}
		return store{}, err
	}
	var st store
	if err := json.Unmarshal(b, &st); err != nil {
		return store{LastUsed: map[string]int64{}}, nil
	}
	if st.LastUsed == nil {
		st.LastUsed = map[string]int64{}
	}
	return st, nil
}

func save(st store) error {
	path, err := settings.HistoryFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
