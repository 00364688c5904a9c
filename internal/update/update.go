// Package update checks GitHub for a newer released version.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
)

// Repo is the GitHub repository releases are published under.
const Repo = "xenitz/cloudsocks"

const defaultTimeout = 8 * time.Second

// Status classifies the result of a completed check.
type Status string

const (
	StatusUpToDate        Status = "up_to_date"
	StatusUpdateAvailable Status = "update_available"
	StatusNoReleases      Status = "no_releases"
)

// Result is the outcome of a successful check against the releases API.
type Result struct {
	Status Status
	// Latest is the newest published version, without a leading "v". Empty
	// when no release exists.
	Latest string
}

// ReleaseURL is where users download the latest release.
func ReleaseURL() string {
	return "https://github.com/" + Repo + "/releases/latest"
}

// Checker queries the GitHub releases API.
type Checker struct {
	// BaseURL overrides the GitHub API root, for tests.
	BaseURL string
	Client  *http.Client
}

func NewChecker() *Checker {
	return &Checker{
		BaseURL: "https://api.github.com",
		Client:  &http.Client{Timeout: defaultTimeout},
	}
}

type latestRelease struct {
	TagName string `json:"tag_name"`
}

// Check fetches the latest release and compares it against current.
// A 404 from the API means the repository has no releases yet, which is a
// distinct non-error outcome; every other non-200 response is an error.
func (c *Checker) Check(ctx context.Context, current string) (Result, error) {
	url := c.BaseURL + "/repos/" + Repo + "/releases/latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("query releases: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Result{Status: StatusNoReleases}, nil
	default:
		return Result{}, fmt.Errorf("query releases: HTTP %d", resp.StatusCode)
	}

	var rel latestRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Result{}, fmt.Errorf("decode release: %w", err)
	}
	latest := strings.TrimPrefix(strings.TrimSpace(rel.TagName), "v")
	if latest == "" {
		return Result{}, fmt.Errorf("release has no tag name")
	}

	newer, err := IsNewer(latest, current)
	if err != nil {
		return Result{}, err
	}
	if newer {
		return Result{Status: StatusUpdateAvailable, Latest: latest}, nil
	}
	return Result{Status: StatusUpToDate, Latest: latest}, nil
}

// IsNewer reports whether candidate is a strictly newer version than current.
func IsNewer(candidate, current string) (bool, error) {
	cv, err := goversion.NewVersion(candidate)
	if err != nil {
		return false, fmt.Errorf("parse version %q: %w", candidate, err)
	}
	cur, err := goversion.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("parse version %q: %w", current, err)
	}
	return cv.GreaterThan(cur), nil
}
