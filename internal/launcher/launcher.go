// Package launcher builds and starts the external SSH process that carries
// the SOCKS tunnel.
//
// Like the rest of the application, it does NOT implement the SSH protocol;
// it shells out to either the system "ssh" binary or the "gcloud" CLI
// (which wraps ssh and resolves the instance address itself). Dynamic port
// forwarding (-D) with no remote command (-N) turns the child process into a
// local SOCKS proxy for the lifetime of the session.
//
// All arguments are passed via exec.Command's argv, never through a shell,
// so instance names and key paths containing metacharacters are safe.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/xenitz/cloudsocks/internal/model"
)

// ErrLaunchNotFound indicates the ssh or provider CLI binary is absent from
// PATH. Callers surface this distinctly so the user gets an actionable
// "install the SDK" message instead of a raw exec error.
var ErrLaunchNotFound = errors.New("launcher: executable not found in PATH")

// Process is a started tunnel child. The supervisor owns it exclusively:
// only the supervisor may signal the process or read the stderr pipe, and it
// must drain Stderr to keep the child from blocking on a full pipe buffer.
type Process struct {
	Cmd    *exec.Cmd
	Stderr io.ReadCloser
}

// Starter abstracts process creation so the supervisor can be tested without
// spawning real ssh clients.
type Starter interface {
	// Launch starts the tunnel process for req. addr is the resolved network
	// address for requests that needed resolution; empty otherwise.
	Launch(req model.TunnelRequest, addr string) (*Process, error)
}

// Launcher starts tunnel processes via the system ssh/gcloud binaries. It is
// stateless and safe for concurrent use.
type Launcher struct{}

// New creates a Launcher.
func New() *Launcher { return &Launcher{} }

// BuildCommand returns the binary name and argument vector for req without
// starting anything. Exposed separately so argument composition can be shown
// in dry-run output and unit tested on its own.
//
// GCP:  gcloud compute ssh --project=<p> --zone=<z> <instance> -- -D <port> -N
// AWS:  ssh [-i <key>] -D <port> -N <user>@<host>
func (l *Launcher) BuildCommand(req model.TunnelRequest, addr string) (bin string, args []string) {
	port := strconv.Itoa(req.SocksPort)
	switch req.Provider {
	case model.ProviderGCP:
		return "gcloud", []string{
			"compute", "ssh",
			"--project=" + req.Project,
			"--zone=" + req.Zone,
			req.Instance,
			"--",
			"-D", port,
			"-N",
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
		args = append(args, "-D", port, "-N", req.User+"@"+host)
		return "ssh", args
	}
}

// Launch implements Starter. The child is created with stderr piped (the
// ssh client writes all progress and error text there), stdout discarded
// (-N produces none), and no stdin.
func (l *Launcher) Launch(req model.TunnelRequest, addr string) (*Process, error) {
	bin, args := l.BuildCommand(req, addr)

	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLaunchNotFound, bin)
	}

	cmd := exec.Command(path, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe stderr: %w", err)
	}
	cmd.Stdout = io.Discard
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}
	return &Process{Cmd: cmd, Stderr: stderr}, nil
}

// EnsureBinary checks that the executable req would launch is on PATH.
// Called by doctor and before interactive flows to report a clear error up
// front instead of failing mid-start.
func EnsureBinary(provider model.Provider) error {
	bin := "ssh"
	if provider == model.ProviderGCP {
		bin = "gcloud"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("%w: %s", ErrLaunchNotFound, bin)
	}
	return nil
}
