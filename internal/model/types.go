package model

import (
	"fmt"
	"strings"
)

// Provider selects how the tunnel target is reached.
type Provider string

const (
	// ProviderGCP wraps the connection in the gcloud CLI, which resolves the
	// instance address and key material itself.
	ProviderGCP Provider = "gcp"
	// ProviderAWS resolves the instance's public address through the EC2 API
	// and then invokes the plain ssh client against it.
	ProviderAWS Provider = "aws"
)

// TunnelRequest is the immutable set of parameters for one tunnel start
// attempt. Fields are grouped by provider; Validate enforces the required
// combination before anything is launched.
type TunnelRequest struct {
	Provider Provider `json:"provider"`

	// GCP parameters (ProviderGCP).
	Project  string `json:"project,omitempty"`
	Zone     string `json:"zone,omitempty"`
	Instance string `json:"instance,omitempty"`

	// AWS parameters (ProviderAWS). Host may be set directly, in which case
	// no resolution happens; otherwise InstanceID is resolved to a public
	// address through the target resolver.
	Region     string `json:"region,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`
	Host       string `json:"host,omitempty"`
	KeyFile    string `json:"key_file,omitempty"`
	User       string `json:"user,omitempty"`

	// SocksPort is the local SOCKS listener port (ssh -D).
	SocksPort int `json:"socks_port"`
}

// Target returns a short human-readable identifier for the request's
// destination, used in event records and history keys.
func (r TunnelRequest) Target() string {
	switch r.Provider {
	case ProviderGCP:
		return fmt.Sprintf("gcp:%s/%s/%s", r.Project, r.Zone, r.Instance)
	case ProviderAWS:
		if r.Host != "" {
			return "aws:" + r.Host
		}
		return "aws:" + r.InstanceID
	}
	return "unknown"
}

// NeedsResolution reports whether the request requires a resolver lookup
// before a process can be launched.
func (r TunnelRequest) NeedsResolution() bool {
	return r.Provider == ProviderAWS && strings.TrimSpace(r.Host) == ""
}

// Validate checks that all fields required for the request's provider are
// present and the port is sane.
func (r TunnelRequest) Validate() error {
	if r.SocksPort < 1 || r.SocksPort > 65535 {
		return fmt.Errorf("socks port %d out of range (must be 1-65535)", r.SocksPort)
	}
	switch r.Provider {
	case ProviderGCP:
		for _, f := range []struct{ name, val string }{
			{"project", r.Project},
			{"zone", r.Zone},
			{"instance", r.Instance},
		} {
			if strings.TrimSpace(f.val) == "" {
				return fmt.Errorf("%s is required for the gcp provider", f.name)
			}
		}
	case ProviderAWS:
		if strings.TrimSpace(r.User) == "" {
			return fmt.Errorf("user is required for the aws provider")
		}
		if strings.TrimSpace(r.Host) == "" {
			if strings.TrimSpace(r.InstanceID) == "" {
				return fmt.Errorf("host or instance-id is required for the aws provider")
			}
			if strings.TrimSpace(r.Region) == "" {
				return fmt.Errorf("region is required to resolve an instance-id")
			}
		}
	default:
		return fmt.Errorf("unknown provider: %q", r.Provider)
	}
	return nil
}

// TunnelState is the supervisor's externally visible state.
type TunnelState string

const (
	StateIdle      TunnelState = "idle"
	StateStarting  TunnelState = "starting"
	StateConnected TunnelState = "connected"
	StateFailed    TunnelState = "failed"
	StateStopped   TunnelState = "stopped"
)

// Terminal reports whether no further transitions can happen from s without
// a new start request.
func (s TunnelState) Terminal() bool {
	return s == StateFailed || s == StateStopped
}
