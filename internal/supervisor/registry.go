package supervisor

import (
	"errors"
	"os/exec"
	"sync"
	"time"
)

// State is the lifecycle state of one tracked service process.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateFailed   State = "failed"
)

var (
	ErrAlreadyRunning = errors.New("service already running")
	ErrNotInstalled   = errors.New("service not installed")
)

// Handle is the externally visible snapshot of one registry entry.
type Handle struct {
	Name       string    `json:"name"`
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"started_at"`
	State      State     `json:"state"`
	FailReason string    `json:"fail_reason,omitempty"`
}

// entry is the registry-owned record behind a Handle. cmd and waitDone are
// only touched by the supervisor that created the entry.
type entry struct {
	handle   Handle
	cmd      *exec.Cmd
	waitDone chan struct{}
	stopping bool
}

// Registry is the in-memory table of tracked service processes. All access
// goes through its mutex; there is no package-level instance. At most one
// entry per name can be in Starting/Running at a time.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// reserve claims the slot for name in Starting state. It fails with
// ErrAlreadyRunning when a live entry exists; a leftover Failed/Stopped
// entry is replaced.
func (r *Registry) reserve(name string) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		switch e.handle.State {
		case StateStarting, StateRunning, StateStopping:
			return nil, ErrAlreadyRunning
		}
	}
	e := &entry{
		handle:   Handle{Name: name, State: StateStarting},
		waitDone: make(chan struct{}),
	}
	r.entries[name] = e
	return e, nil
}

// markRunning records the spawned process on a reserved entry.
func (r *Registry) markRunning(name string, cmd *exec.Cmd) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return
	}
	e.cmd = cmd
	e.handle.PID = cmd.Process.Pid
	e.handle.StartedAt = time.Now()
	e.handle.State = StateRunning
}

// markStopping flags an entry for graceful shutdown and returns it.
func (r *Registry) markStopping(name string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	e.stopping = true
	e.handle.State = StateStopping
	return e, true
}

// markExited transitions an entry after its process has been reaped. A
// requested stop ends in Stopped; an unexpected exit with an error ends in
// Failed with the reason attached.
func (r *Registry) markExited(name string, exitErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return
	}
	if !e.stopping && exitErr != nil {
		e.handle.State = StateFailed
		e.handle.FailReason = exitErr.Error()
	} else {
		e.handle.State = StateStopped
	}
	e.handle.PID = 0
}

// remove destroys the entry for name.
func (r *Registry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// get returns the live entry for name.
func (r *Registry) get(name string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	return e, ok
}

// State reports the current state for name; unknown names are Stopped.
func (r *Registry) State(name string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		return e.handle.State
	}
	return StateStopped
}

// Snapshot returns a copy of every handle, sorted by name upstream if needed.
func (r *Registry) Snapshot() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Handle, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.handle)
	}
	return out
}

// runningCount counts entries in Starting/Running.
func (r *Registry) runningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.handle.State == StateStarting || e.handle.State == StateRunning {
			n++
		}
	}
	return n
}
