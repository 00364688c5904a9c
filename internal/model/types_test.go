package model

import "testing"

// TestValidate covers the per-provider required-field combinations a start
// request must satisfy before anything is launched.
func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     TunnelRequest
		wantErr bool
	}{
		{
			name: "gcp complete",
			req:  TunnelRequest{Provider: ProviderGCP, Project: "p", Zone: "us-central1-a", Instance: "vm", SocksPort: 8080},
		},
		{
			name:    "gcp missing zone",
			req:     TunnelRequest{Provider: ProviderGCP, Project: "p", Instance: "vm", SocksPort: 8080},
			wantErr: true,
		},
		{
			name: "aws direct host",
			req:  TunnelRequest{Provider: ProviderAWS, Host: "198.51.100.7", User: "ec2-user", KeyFile: "valid.pem", SocksPort: 8080},
		},
		{
			name: "aws instance id with region",
			req:  TunnelRequest{Provider: ProviderAWS, Region: "eu-west-1", InstanceID: "i-0abc", User: "ec2-user", SocksPort: 8080},
		},
		{
			name:    "aws instance id without region",
			req:     TunnelRequest{Provider: ProviderAWS, InstanceID: "i-0abc", User: "ec2-user", SocksPort: 8080},
			wantErr: true,
		},
		{
			name:    "aws missing user",
			req:     TunnelRequest{Provider: ProviderAWS, Host: "198.51.100.7", SocksPort: 8080},
			wantErr: true,
		},
		{
			name:    "port out of range",
			req:     TunnelRequest{Provider: ProviderGCP, Project: "p", Zone: "z", Instance: "vm", SocksPort: 70000},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			req:     TunnelRequest{Provider: "azure", SocksPort: 8080},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNeedsResolution(t *testing.T) {
	direct := TunnelRequest{Provider: ProviderAWS, Host: "198.51.100.7"}
	if direct.NeedsResolution() {
		t.Fatal("explicit host should not need resolution")
	}
	byID := TunnelRequest{Provider: ProviderAWS, InstanceID: "i-0abc"}
	if !byID.NeedsResolution() {
		t.Fatal("instance id should need resolution")
	}
	gcp := TunnelRequest{Provider: ProviderGCP, Project: "p", Zone: "z", Instance: "vm"}
	if gcp.NeedsResolution() {
		t.Fatal("gcloud resolves its own targets")
	}
}

func TestTarget(t *testing.T) {
	gcp := TunnelRequest{Provider: ProviderGCP, Project: "p", Zone: "z", Instance: "vm"}
	if got := gcp.Target(); got != "gcp:p/z/vm" {
		t.Fatalf("unexpected gcp target: %s", got)
	}
	aws := TunnelRequest{Provider: ProviderAWS, InstanceID: "i-0abc"}
	if got := aws.Target(); got != "aws:i-0abc" {
		t.Fatalf("unexpected aws target: %s", got)
	}
}
