// Package supervisor owns the lifecycle of one SSH SOCKS tunnel process.
//
// A supervisor runs at most one session at a time. Start spawns a worker
// goroutine that resolves the target (when needed), launches the external
// ssh/gcloud process, and performs the blocking line read of the child's
// stderr, the only blocking operation in the system. Everything the caller
// needs to know crosses from the worker on a single ordered event channel:
// raw diagnostic lines for display, and connection status booleans. The
// channel is closed when the worker exits, which is the terminal signal.
//
// Callers must drain the event channel until it is closed. Status events are
// level-triggered: a matching diagnostic line may re-emit connected=true, and
// duplicates are not deduplicated here.
package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/xenitz/cloudsocks/internal/classify"
	"github.com/xenitz/cloudsocks/internal/launcher"
	"github.com/xenitz/cloudsocks/internal/model"
	"github.com/xenitz/cloudsocks/internal/resolver"
	"github.com/xenitz/cloudsocks/internal/util"
)

// ErrSessionActive is returned by Start while a session is still running.
// The supervisor manages a single tunnel; stop it before starting another.
var ErrSessionActive = errors.New("supervisor: a tunnel session is already active")

// EventKind distinguishes the two notification kinds.
type EventKind int

const (
	// EventLog carries one diagnostic line for display. Lines are delivered
	// in the exact order the child produced them.
	EventLog EventKind = iota
	// EventStatus carries the latest known connection state.
	EventStatus
)

// Event is one notification from the worker to the controlling context.
type Event struct {
	Kind      EventKind
	Line      string
	Connected bool
}

// Options tunes supervisor behavior. The zero value gives the default
// classifier, no resolver, the quiet-EOF fallback enabled, and production
// timing.
type Options struct {
	// Classifier maps diagnostic lines to connection signals. Defaults to
	// classify.New().
	Classifier *classify.Classifier

	// Resolver is consulted for requests that need an address lookup. May be
	// nil when only provider-CLI targets are used.
	Resolver resolver.Resolver

	// StrictEOF disables the fallback that treats "stderr closed but process
	// still running" as a successful connection. With the fallback disabled
	// the worker waits for the process to actually exit and reports failure
	// per its exit status. The fallback is on by default because a working
	// tunnel is not guaranteed to print any recognizable line; it is a
	// deliberate heuristic that can also mask a hung remote.
	StrictEOF bool

	// StopGrace bounds how long Stop waits for the worker to exit. Defaults
	// to util.StopGrace.
	StopGrace time.Duration

	// ExitProbe is how long after stderr EOF the worker waits for process
	// exit before concluding the process is still running. Defaults to
	// 200ms; tests shorten it.
	ExitProbe time.Duration
}

const defaultExitProbe = 200 * time.Millisecond

// eventBuffer sizes the notification channel. Sends block (preserving order)
// once the caller falls this far behind.
const eventBuffer = 64

// Supervisor manages one tunnel session at a time.
type Supervisor struct {
	starter    launcher.Starter
	classifier *classify.Classifier
	resolver   resolver.Resolver
	strictEOF  bool
	stopGrace  time.Duration
	exitProbe  time.Duration

	mu    sync.Mutex
	sess  *session
	state model.TunnelState
}

// session is the mutable per-tunnel state. The stop flag is monotonic: once
// set it is never cleared for the session's lifetime.
type session struct {
	events  chan Event
	done    chan struct{}
	stop    chan struct{}
	stopReq atomic.Bool

	mu   sync.Mutex
	proc *launcher.Process
}

// New creates a supervisor around the given process starter.
func New(starter launcher.Starter, opts Options) *Supervisor {
	if opts.Classifier == nil {
		opts.Classifier = classify.New()
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = util.StopGrace
	}
	if opts.ExitProbe <= 0 {
		opts.ExitProbe = defaultExitProbe
	}
	return &Supervisor{
		starter:    starter,
		classifier: opts.Classifier,
		resolver:   opts.Resolver,
		strictEOF:  opts.StrictEOF,
		stopGrace:  opts.StopGrace,
		exitProbe:  opts.ExitProbe,
		state:      model.StateIdle,
	}
}

// State returns the supervisor's current state.
func (s *Supervisor) State() model.TunnelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins a tunnel session for req and returns the event channel the
// session will report on. It fails fast with ErrSessionActive while a
// session is running, and with a validation error for incomplete requests;
// every later failure (resolution, launch, remote exit) is reported through
// the channel instead, always as at least one log line followed by a
// connected=false status. ctx bounds target resolution only; the tunnel
// itself lives until Stop or process exit.
func (s *Supervisor) Start(ctx context.Context, req model.TunnelRequest) (<-chan Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.sess != nil {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}
	sess := &session{
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
	s.sess = sess
	s.state = model.StateStarting
	s.mu.Unlock()

	go s.run(ctx, sess, req)
	return sess.events, nil
}

// Stop requests termination of the active session. It is idempotent and safe
// to call with no session active. The child process is signalled best-effort
// (signal failures are swallowed) and Stop waits up to the grace period for
// the worker to exit, then proceeds regardless; the worker may still be
// finishing when Stop returns.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()
	if sess == nil {
		return
	}

	if sess.stopReq.CompareAndSwap(false, true) {
		close(sess.stop)
	}
	sess.terminate()

	select {
	case <-sess.done:
	case <-time.After(s.stopGrace):
		slog.Warn("tunnel worker did not exit within grace period; proceeding",
			"grace", s.stopGrace)
		s.mu.Lock()
		if s.sess == sess {
			s.sess = nil
			s.state = model.StateStopped
		}
		s.mu.Unlock()
	}
}

// run is the worker goroutine. It owns the child process exclusively and is
// the only writer to the event channel.
func (s *Supervisor) run(ctx context.Context, sess *session, req model.TunnelRequest) {
	final := s.runSession(ctx, sess, req)

	s.mu.Lock()
	if s.sess == sess {
		s.sess = nil
		s.state = final
	}
	s.mu.Unlock()

	close(sess.events)
	close(sess.done)
}

func (s *Supervisor) runSession(ctx context.Context, sess *session, req model.TunnelRequest) (final model.TunnelState) {
	defer func() {
		if r := recover(); r != nil {
			sess.emit(Event{Kind: EventLog, Line: fmt.Sprintf("unexpected error in tunnel worker: %v", r)})
			sess.emit(Event{Kind: EventStatus, Connected: false})
			final = model.StateFailed
		}
	}()

	sess.emit(Event{Kind: EventLog, Line: "starting SSH tunnel process..."})

	addr := ""
	if req.NeedsResolution() {
		if s.resolver == nil {
			sess.emit(Event{Kind: EventLog, Line: "no resolver configured for instance " + req.InstanceID})
			sess.emit(Event{Kind: EventStatus, Connected: false})
			return model.StateFailed
		}
		sess.emit(Event{Kind: EventLog, Line: "resolving address for instance " + req.InstanceID + "..."})
		resolved, err := s.resolver.Resolve(ctx, req.InstanceID)
		if err != nil {
			// Resolution failure is indistinguishable from a launch failure
			// to the caller: nothing was spawned.
			sess.emit(Event{Kind: EventLog, Line: "could not resolve instance: " + err.Error()})
			sess.emit(Event{Kind: EventStatus, Connected: false})
			return model.StateFailed
		}
		addr = resolved
		sess.emit(Event{Kind: EventLog, Line: "instance " + req.InstanceID + " resolved to " + addr})
	}

	if sess.stopRequested() {
		sess.emit(Event{Kind: EventLog, Line: "tunnel stopped"})
		sess.emit(Event{Kind: EventStatus, Connected: false})
		return model.StateStopped
	}

	proc, err := s.starter.Launch(req, addr)
	if err != nil {
		if errors.Is(err, launcher.ErrLaunchNotFound) {
			sess.emit(Event{Kind: EventLog, Line: err.Error() + " (install the OpenSSH client or the gcloud CLI)"})
		} else {
			sess.emit(Event{Kind: EventLog, Line: "could not start tunnel process: " + err.Error()})
		}
		sess.emit(Event{Kind: EventStatus, Connected: false})
		return model.StateFailed
	}

	// Publish the handle; if a stop raced in before the process existed,
	// signal it ourselves since Stop could not.
	if sess.setProc(proc) {
		sess.terminate()
	}

	// Reap in the background exactly once. Every exit decision below selects
	// on this channel, and the goroutine guarantees the child never becomes
	// a zombie even on paths that stop caring about it.
	waitErr := make(chan error, 1)
	go func() { waitErr <- proc.Cmd.Wait() }()

	lastLine := ""
	sc := bufio.NewScanner(proc.Stderr)
	for sc.Scan() {
		if sess.stopRequested() {
			break
		}
		line := sc.Text()
		lastLine = line
		sess.emit(Event{Kind: EventLog, Line: "ssh: " + line})
		if s.classifier.Classify(line) == classify.LikelyConnected {
			s.markConnected(sess)
			sess.emit(Event{Kind: EventStatus, Connected: true})
		}
	}

	if err := sc.Err(); err != nil && !sess.stopRequested() {
		sess.emit(Event{Kind: EventLog, Line: "error reading ssh output: " + err.Error()})
		sess.emit(Event{Kind: EventStatus, Connected: false})
		sess.terminate()
		return model.StateFailed
	}

	if sess.stopRequested() {
		sess.terminate()
		sess.emit(Event{Kind: EventLog, Line: "tunnel stopped"})
		sess.emit(Event{Kind: EventStatus, Connected: false})
		return model.StateStopped
	}

	// stderr reached EOF with no stop pending. Decide by whether the process
	// has actually exited.
	select {
	case werr := <-waitErr:
		return s.finishExited(sess, werr, lastLine)
	case <-time.After(s.exitProbe):
	}

	if s.strictEOF {
		// Fallback disabled: wait for the real exit status (or a stop).
		select {
		case werr := <-waitErr:
			return s.finishExited(sess, werr, lastLine)
		case <-sess.stop:
			return s.awaitStopped(sess, waitErr)
		}
	}

	// The ssh client went quiet after setup without exiting. Not every
	// successful tunnel prints a recognizable line, so this is treated as
	// connected; see Options.StrictEOF for the trade-off.
	sess.emit(Event{Kind: EventLog, Line: "ssh output ended; process still running, assuming tunnel is up"})
	s.markConnected(sess)
	sess.emit(Event{Kind: EventStatus, Connected: true})

	select {
	case werr := <-waitErr:
		return s.finishExited(sess, werr, lastLine)
	case <-sess.stop:
		return s.awaitStopped(sess, waitErr)
	}
}

// finishExited reports a child that exited on its own. A clean exit without
// a stop request still means the tunnel is gone, so anything here that is
// not a stop is a failure.
func (s *Supervisor) finishExited(sess *session, werr error, lastLine string) model.TunnelState {
	if sess.stopRequested() {
		sess.emit(Event{Kind: EventLog, Line: "tunnel stopped"})
		sess.emit(Event{Kind: EventStatus, Connected: false})
		return model.StateStopped
	}
	msg := "ssh exited"
	if werr != nil {
		msg = "ssh exited: " + werr.Error()
	}
	if lastLine != "" {
		msg += " (last output: " + lastLine + ")"
	}
	sess.emit(Event{Kind: EventLog, Line: msg})
	sess.emit(Event{Kind: EventStatus, Connected: false})
	return model.StateFailed
}

// awaitStopped runs after a stop request while the child is being torn down.
// The terminate signal normally unblocks the reaper promptly; if it does not
// (signal delivery failed), give up after the grace period rather than hang
// the worker forever.
func (s *Supervisor) awaitStopped(sess *session, waitErr <-chan error) model.TunnelState {
	select {
	case <-waitErr:
	case <-time.After(s.stopGrace):
		slog.Warn("tunnel process did not exit after stop signal")
	}
	sess.emit(Event{Kind: EventLog, Line: "tunnel stopped"})
	sess.emit(Event{Kind: EventStatus, Connected: false})
	return model.StateStopped
}

func (s *Supervisor) markConnected(sess *session) {
	s.mu.Lock()
	if s.sess == sess {
		s.state = model.StateConnected
	}
	s.mu.Unlock()
}

func (x *session) stopRequested() bool { return x.stopReq.Load() }

// emit delivers one event in order. Sends block once the buffer fills;
// callers are required to drain the channel until it closes.
func (x *session) emit(e Event) { x.events <- e }

// setProc publishes the child handle and reports whether a stop request
// arrived before the handle existed. Both this and terminate run under the
// session lock, so a stop flag set before this returns either sees the
// handle or is seen by the caller; a signal is never lost between them.
func (x *session) setProc(p *launcher.Process) (stopAlready bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.proc = p
	return x.stopReq.Load()
}

// terminate signals the child best-effort: SIGTERM first, Kill as fallback.
// Failures are swallowed: by the time signalling fails, the process is
// either already gone or beyond help.
func (x *session) terminate() {
	x.mu.Lock()
	p := x.proc
	x.mu.Unlock()
	if p == nil || p.Cmd.Process == nil {
		return
	}
	if err := p.Cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = p.Cmd.Process.Kill()
	}
}
