// Package doctor runs local diagnostics for tunnel operations.
package doctor

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/xenitz/cloudsocks/internal/events"
	"github.com/xenitz/cloudsocks/internal/launcher"
	"github.com/xenitz/cloudsocks/internal/model"
	"github.com/xenitz/cloudsocks/internal/settings"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Issue struct {
	Severity       Severity `json:"severity"`
	Check          string   `json:"check"`
	Target         string   `json:"target"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

// Run executes local diagnostics: required binaries, credentials, settings
// and journal health, and whether the configured SOCKS port is free.
func Run() (Report, error) {
	var issues []Issue

	if err := launcher.EnsureBinary(model.ProviderAWS); err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "ssh-binary",
			Target:         "PATH",
			Message:        err.Error(),
			Recommendation: "install OpenSSH client and ensure `ssh` is on PATH",
		})
	}
	if err := launcher.EnsureBinary(model.ProviderGCP); err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityMedium,
			Check:          "gcloud-binary",
			Target:         "PATH",
			Message:        err.Error(),
			Recommendation: "install the Google Cloud SDK to use GCP targets",
		})
	}

	cfg, err := settings.Load()
	if err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "settings",
			Target:         "config.yaml",
			Message:        err.Error(),
			Recommendation: "fix or delete the malformed config file; defaults are recreated on next run",
		})
		cfg = settings.Default()
	}

	issues = append(issues, socksPortIssues(cfg)...)
	issues = append(issues, awsCredentialIssues()...)

	if _, err := events.NewStore().Read(events.Query{Limit: 1}); err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityLow,
			Check:          "event-journal",
			Target:         "events.jsonl",
			Message:        err.Error(),
			Recommendation: "delete the corrupt journal file; history is advisory only",
		})
	}

	sort.Slice(issues, func(i, j int) bool {
		ri := severityRank(issues[i].Severity)
		rj := severityRank(issues[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if issues[i].Check != issues[j].Check {
			return issues[i].Check < issues[j].Check
		}
		return issues[i].Target < issues[j].Target
	})
	return Report{Issues: issues}, nil
}

// socksPortIssues probes the configured listener address. A bind failure
// usually means another tunnel (or a previous orphaned ssh) already holds
// the port.
func socksPortIssues(cfg settings.Config) []Issue {
	addr := net.JoinHostPort(cfg.Proxy.Host, strconv.Itoa(cfg.Proxy.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return []Issue{{
			Severity:       SeverityMedium,
			Check:          "socks-port",
			Target:         addr,
			Message:        fmt.Sprintf("local SOCKS port is not bindable: %v", err),
			Recommendation: "stop the process holding the port or choose another port in settings",
		}}
	}
	ln.Close()
	return nil
}

func awsCredentialIssues() []Issue {
	if os.Getenv("AWS_ACCESS_KEY_ID") != "" || os.Getenv("AWS_PROFILE") != "" {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	credFile := filepath.Join(home, ".aws", "credentials")
	if _, err := os.Stat(credFile); err == nil {
		return nil
	}
	return []Issue{{
		Severity:       SeverityMedium,
		Check:          "aws-credentials",
		Target:         credFile,
		Message:        "no AWS credentials found in the environment or credentials file",
		Recommendation: "run `aws configure` or export AWS_ACCESS_KEY_ID to use AWS targets",
	}}
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}
