package launcher

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xenitz/cloudsocks/internal/model"
)

func TestBuildCommandGCP(t *testing.T) {
	l := New()
	req := model.TunnelRequest{
		Provider:  model.ProviderGCP,
		Project:   "my-project",
		Zone:      "us-central1-a",
		Instance:  "proxy-vm",
		SocksPort: 8080,
	}
	bin, args := l.BuildCommand(req, "")
	if bin != "gcloud" {
		t.Fatalf("expected gcloud, got %s", bin)
	}
	want := []string{
		"compute", "ssh",
		"--project=my-project",
		"--zone=us-central1-a",
		"proxy-vm",
		"--",
		"-D", "8080",
		"-N",
	}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", args, want)
	}
}

func TestBuildCommandAWSWithKey(t *testing.T) {
	l := New()
	req := model.TunnelRequest{
		Provider:  model.ProviderAWS,
		User:      "ec2-user",
		KeyFile:   "valid.pem",
		SocksPort: 8080,
	}
	// Host comes from the resolver, not the request.
	bin, args := l.BuildCommand(req, "198.51.100.7")
	if bin != "ssh" {
		t.Fatalf("expected ssh, got %s", bin)
	}
	want := []string{"-i", "valid.pem", "-D", "8080", "-N", "ec2-user@198.51.100.7"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", args, want)
	}
}

func TestBuildCommandAWSDirectHostNoKey(t *testing.T) {
	l := New()
	req := model.TunnelRequest{
		Provider:  model.ProviderAWS,
		User:      "admin",
		Host:      "203.0.113.5",
		SocksPort: 1080,
	}
	_, args := l.BuildCommand(req, "")
	want := []string{"-D", "1080", "-N", "admin@203.0.113.5"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", args, want)
	}
}

// TestLaunchMissingBinary verifies the missing-executable case is surfaced as
// ErrLaunchNotFound. The PATH is emptied so neither ssh nor gcloud resolves.
func TestLaunchMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	l := New()
	req := model.TunnelRequest{
		Provider:  model.ProviderAWS,
		User:      "ec2-user",
		Host:      "198.51.100.7",
		SocksPort: 8080,
	}
	_, err := l.Launch(req, "")
	if err == nil {
		t.Fatal("expected launch error")
	}
	if !errors.Is(err, ErrLaunchNotFound) {
		t.Fatalf("expected ErrLaunchNotFound, got %v", err)
	}
}

func TestEnsureBinary(t *testing.T) {
	// ssh may or may not exist in the test environment; only exercise the
	// negative path deterministically.
	t.Setenv("PATH", t.TempDir())
	if err := EnsureBinary(model.ProviderGCP); !errors.Is(err, ErrLaunchNotFound) {
		t.Fatalf("expected ErrLaunchNotFound, got %v", err)
	}
	if err := EnsureBinary(model.ProviderAWS); !errors.Is(err, ErrLaunchNotFound) {
		t.Fatalf("expected ErrLaunchNotFound, got %v", err)
	}
}

// Sanity check: a launched process is a real child with a live stderr pipe.
// Uses /bin/sh as a stand-in target by pointing PATH at a directory where a
// fake "ssh" exists.
func TestLaunchStartsProcess(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	writeFakeSSH(t, dir)
	t.Setenv("PATH", dir)

	l := New()
	req := model.TunnelRequest{
		Provider:  model.ProviderAWS,
		User:      "ec2-user",
		Host:      "198.51.100.7",
		SocksPort: 8080,
	}
	proc, err := l.Launch(req, "")
	if err != nil {
		t.Fatal(err)
	}
	if proc.Cmd.Process == nil || proc.Cmd.Process.Pid <= 0 {
		t.Fatal("expected running child process")
	}
	_ = proc.Cmd.Process.Kill()
	_ = proc.Cmd.Wait()
}

// writeFakeSSH installs an executable named "ssh" in dir that sleeps long
// enough for the test to observe it running.
func writeFakeSSH(t *testing.T, dir string) {
	t.Helper()
	script := "#!/bin/sh\nsleep 30\n"
	if err := os.WriteFile(filepath.Join(dir, "ssh"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}
