// Package sshexec runs interactive SSH shell sessions to a tunnel target.
//
// The tunnel itself never allocates a terminal; this package covers the
// "open a shell on the box" escape hatch next to it. It shells out to the
// same binaries the tunnel uses (gcloud for GCP targets, the system ssh for
// AWS targets), so the user's SSH configuration and agent apply unchanged.
package sshexec

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"

	"github.com/xenitz/cloudsocks/internal/launcher"
	"github.com/xenitz/cloudsocks/internal/model"
)

// BuildShellCommand returns the binary and argv for an interactive session
// to req's target: the tunnel command without the forwarding flags.
//
// GCP:  gcloud compute ssh --project=<p> --zone=<z> <instance>
// AWS:  ssh [-i <key>] <user>@<host>
func BuildShellCommand(req model.TunnelRequest, addr string) (bin string, args []string) {
	switch req.Provider {
	case model.ProviderGCP:
		return "gcloud", []string{
			"compute", "ssh",
			"--project=" + req.Project,
			"--zone=" + req.Zone,
			req.Instance,
		}
	default:
		host := req.Host
		if host == "" {
			host = addr
		}
		args := []string{}
		if req.KeyFile != "" {
			args = append(args, "-i", req.KeyFile)
		}
		args = append(args, req.User+"@"+host)
		return "ssh", args
	}
}

// RunInteractive opens a shell on the target inside a pseudo-terminal,
// wiring the user's terminal to it, and blocks until the session ends.
// Cancelling ctx kills the remote session instead of leaving it orphaned.
func RunInteractive(ctx context.Context, req model.TunnelRequest, addr string) error {
	if err := launcher.EnsureBinary(req.Provider); err != nil {
		return err
	}
	bin, args := BuildShellCommand(req, addr)
	cmd := exec.Command(bin, args...)

	f, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer f.Close()

	// Keystrokes in, session output out. The input copy unblocks when the
	// PTY closes after process exit.
	go func() {
		_, _ = io.Copy(f, os.Stdin)
	}()
	_, _ = io.Copy(os.Stdout, f)

	if ctx.Err() != nil {
		_ = cmd.Process.Kill()
	}
	return cmd.Wait()
}
