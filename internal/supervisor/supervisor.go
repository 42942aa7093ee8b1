package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/localforge/localforge/internal/catalog"
	"github.com/localforge/localforge/internal/history"
	"github.com/localforge/localforge/internal/logger"
	"github.com/localforge/localforge/internal/metrics"
)

// DefaultStopGrace is how long Stop waits after SIGTERM before escalating
// to SIGKILL.
const DefaultStopGrace = 5 * time.Second

// InstalledLookup resolves an installed service executable by exact name.
// The production implementation is catalog.Scanner.
type InstalledLookup interface {
	Find(name string) (catalog.Installed, bool)
}

// Override adjusts the catalog defaults for one service on the automatic
// start path.
type Override struct {
	Port      int
	ExtraArgs []string
}

// Supervisor starts, stops and tracks local service daemons through its
// Registry. It is the single owner of every registry mutation.
type Supervisor struct {
	reg       *Registry
	installed InstalledLookup
	logCfg    logger.FileConfig
	hist      history.Sink
	log       *slog.Logger
	stopGrace time.Duration
	overrides map[string]Override
}

type Option func(*Supervisor)

// WithStopGrace overrides the graceful-terminate window.
func WithStopGrace(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.stopGrace = d
		}
	}
}

// WithHistorySink routes lifecycle events to an external sink.
func WithHistorySink(h history.Sink) Option {
	return func(s *Supervisor) {
		if h != nil {
			s.hist = h
		}
	}
}

// WithProcessLogs configures rotating stdout/stderr files for children.
func WithProcessLogs(cfg logger.FileConfig) Option {
	return func(s *Supervisor) { s.logCfg = cfg }
}

// WithOverrides applies per-service port/argument overrides on StartAuto.
func WithOverrides(m map[string]Override) Option {
	return func(s *Supervisor) { s.overrides = m }
}

func New(installed InstalledLookup, log *slog.Logger, opts ...Option) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	s := &Supervisor{
		reg:       NewRegistry(),
		installed: installed,
		hist:      history.NopSink{},
		log:       log,
		stopGrace: DefaultStopGrace,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Registry exposes the supervisor's process table for read-only snapshots.
func (s *Supervisor) Registry() *Registry { return s.reg }

// Start spawns the service executable and tracks it. It fails with
// ErrAlreadyRunning when a handle for name is already live; it never
// returns the pid of an existing process.
func (s *Supervisor) Start(ctx context.Context, name, execPath string, args []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e, err := s.reg.reserve(name)
	if err != nil {
		return 0, fmt.Errorf("start %s: %w", name, err)
	}

	cmd := exec.Command(execPath, args...) // #nosec G204 -- executable resolved from the install tree
	setProcGroup(cmd)
	outW, errW := s.childWriters(name)
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		closeWriters(outW, errW)
		s.reg.remove(name)
		return 0, fmt.Errorf("spawn %s (%s): %w", name, execPath, err)
	}
	s.reg.markRunning(name, cmd)
	pid := cmd.Process.Pid

	metrics.IncStart(name)
	metrics.SetRunning(s.reg.runningCount())
	s.sendEvent(history.Event{Type: history.EventStart, Service: name, PID: pid, OccurredAt: time.Now().UTC()})
	s.log.Info("service started", "service", name, "pid", pid)

	go s.monitor(name, e, cmd, outW, errW)
	return pid, nil
}

// monitor reaps the child and transitions the handle once it exits.
func (s *Supervisor) monitor(name string, e *entry, cmd *exec.Cmd, outW, errW io.WriteCloser) {
	err := cmd.Wait()
	closeWriters(outW, errW)
	s.reg.markExited(name, err)
	close(e.waitDone)

	metrics.IncStop(name)
	metrics.SetRunning(s.reg.runningCount())
	evt := history.Event{Type: history.EventStop, Service: name, PID: cmd.Process.Pid, OccurredAt: time.Now().UTC()}
	if err != nil {
		evt.ExitErr = err.Error()
	}
	s.sendEvent(evt)

	if st := s.reg.State(name); st == StateFailed {
		metrics.IncFailure(name)
		s.log.Warn("service exited unexpectedly", "service", name, "error", err)
	} else {
		s.log.Info("service stopped", "service", name)
	}
}

// Stop terminates the named service: SIGTERM to the process group, a
// bounded grace wait, then SIGKILL. Stopping an untracked name is a no-op
// success so the operation is idempotent.
func (s *Supervisor) Stop(ctx context.Context, name string) error {
	e, ok := s.reg.markStopping(name)
	if !ok {
		return nil
	}
	if e.cmd == nil || e.cmd.Process == nil {
		s.reg.remove(name)
		return nil
	}
	pid := e.cmd.Process.Pid
	_ = terminate(pid)

	select {
	case <-e.waitDone:
	case <-time.After(s.stopGrace):
		s.log.Warn("service ignored SIGTERM, killing", "service", name, "pid", pid)
		_ = kill(pid)
		select {
		case <-e.waitDone:
		case <-time.After(s.stopGrace):
			s.reg.remove(name)
			return fmt.Errorf("stop %s: process %d did not exit after SIGKILL", name, pid)
		}
	case <-ctx.Done():
		// caller gave up; escalate immediately so nothing leaks
		_ = kill(pid)
		<-e.waitDone
	}
	s.reg.remove(name)
	return nil
}

// Restart is Stop followed by Start with the given launch parameters.
func (s *Supervisor) Restart(ctx context.Context, name, execPath string, args []string) (int, error) {
	if err := s.Stop(ctx, name); err != nil {
		return 0, err
	}
	return s.Start(ctx, name, execPath, args)
}

// StartAuto resolves the executable for name via the installed-service
// lookup and starts it with the catalog's default arguments. Unknown or
// uninstalled names fail with ErrNotInstalled.
func (s *Supervisor) StartAuto(ctx context.Context, name string) (int, error) {
	if s.installed == nil {
		return 0, fmt.Errorf("start %s: %w", name, ErrNotInstalled)
	}
	inst, ok := s.installed.Find(name)
	if !ok {
		return 0, fmt.Errorf("start %s: %w", name, ErrNotInstalled)
	}
	ov := s.overrides[name]
	desc, err := catalog.Describe(name, inst.ExecPath, ov.Port)
	if err != nil {
		return 0, fmt.Errorf("start %s: %w", name, err)
	}
	args := append(desc.Args, ov.ExtraArgs...)
	return s.Start(ctx, desc.Name, desc.ExecPath, args)
}

// AutoStartBatch starts every named service sequentially; parallel startup
// would race on port binding during bulk bring-up. Each name yields one
// human-readable result line and no single failure aborts the batch.
func (s *Supervisor) AutoStartBatch(ctx context.Context, names []string) []string {
	results := make([]string, 0, len(names))
	for _, name := range names {
		pid, err := s.StartAuto(ctx, name)
		switch {
		case err == nil:
			results = append(results, fmt.Sprintf("%s: started (pid %d)", name, pid))
		case errors.Is(err, ErrNotInstalled):
			results = append(results, fmt.Sprintf("%s: not found in installed services", name))
		default:
			results = append(results, fmt.Sprintf("%s: %v", name, err))
		}
	}
	return results
}

// Status reports the state for name; unknown names are Stopped.
func (s *Supervisor) Status(name string) State { return s.reg.State(name) }

// Statuses returns a snapshot of every tracked handle.
func (s *Supervisor) Statuses() []Handle { return s.reg.Snapshot() }

// StopAll stops every tracked service sequentially and returns the first
// error encountered, if any.
func (s *Supervisor) StopAll(ctx context.Context) error {
	var firstErr error
	for _, h := range s.reg.Snapshot() {
		if err := s.Stop(ctx, h.Name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Supervisor) childWriters(name string) (io.WriteCloser, io.WriteCloser) {
	if s.logCfg.Dir == "" && s.logCfg.StdoutPath == "" && s.logCfg.StderrPath == "" {
		return nil, nil
	}
	if s.logCfg.Dir != "" {
		_ = os.MkdirAll(s.logCfg.Dir, 0o750)
	}
	outW, errW, _ := s.logCfg.Writers(name)
	return outW, errW
}

func (s *Supervisor) sendEvent(e history.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.hist.Send(ctx, e); err != nil {
		s.log.Debug("history sink send failed", "service", e.Service, "error", err)
	}
}

func closeWriters(ws ...io.WriteCloser) {
	for _, w := range ws {
		if w != nil {
			_ = w.Close()
		}
	}
}
