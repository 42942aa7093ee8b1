package tunnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/localforge/localforge/internal/metrics"
)

// ServiceName is the supervisor entry the relay client runs under.
const ServiceName = "ngrok"

// DefaultStatusURL is the relay client's local status API.
const DefaultStatusURL = "http://127.0.0.1:4040/api/tunnels"

// DefaultProbeTimeout bounds one public-URL probe.
const DefaultProbeTimeout = 5 * time.Second

// ErrNoActiveTunnels is returned by PublicURL while the relay client has
// not provisioned an endpoint yet. Callers poll until it clears.
var ErrNoActiveTunnels = errors.New("no active tunnels")

// State is the controller's lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// ProcessManager is the slice of the supervisor the controller needs.
type ProcessManager interface {
	Start(ctx context.Context, name, execPath string, args []string) (int, error)
	Stop(ctx context.Context, name string) error
}

// Controller manages one long-lived relay-tunnel process and discovers its
// public endpoint asynchronously through the local status API.
type Controller struct {
	mu        sync.Mutex
	sup       ProcessManager
	client    *http.Client
	log       *slog.Logger
	execPath  string
	statusURL string
	state     State
}

func New(sup ProcessManager, execPath, statusURL string, log *slog.Logger) *Controller {
	if statusURL == "" {
		statusURL = DefaultStatusURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		sup:       sup,
		client:    &http.Client{Timeout: DefaultProbeTimeout},
		log:       log,
		execPath:  execPath,
		statusURL: statusURL,
		state:     StateIdle,
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start launches the relay client forwarding the local port. It returns as
// soon as the process is up; endpoint provisioning happens asynchronously
// inside the client, so the public URL is not available yet. Callers poll
// PublicURL afterwards.
func (c *Controller) Start(ctx context.Context, domain string, port int, authToken string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("tunnel is %s, stop it first", st)
	}
	c.state = StateStarting
	c.mu.Unlock()

	args := []string{"http", strconv.Itoa(port), "--log", "stdout"}
	if domain != "" {
		args = append(args, "--domain", domain)
	}
	if authToken != "" {
		args = append(args, "--authtoken", authToken)
	}

	pid, err := c.sup.Start(ctx, ServiceName, c.execPath, args)
	if err != nil {
		c.setState(StateIdle)
		return fmt.Errorf("start tunnel client: %w", err)
	}
	c.setState(StateRunning)
	c.log.Info("tunnel client launched", "pid", pid, "port", port)
	return nil
}

// Stop terminates the relay client and returns the controller to Idle.
// Stopping an idle controller is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStopping
	c.mu.Unlock()

	err := c.sup.Stop(ctx, ServiceName)
	c.setState(StateIdle)
	if err != nil {
		return fmt.Errorf("stop tunnel client: %w", err)
	}
	return nil
}

type tunnelDescriptor struct {
	PublicURL string `json:"public_url"`
	Proto     string `json:"proto"`
}

type statusResponse struct {
	Tunnels []tunnelDescriptor `json:"tunnels"`
}

// PublicURL probes the relay client's local status endpoint for the public
// URL. It prefers the https tunnel, falls back to the first entry and fails
// with ErrNoActiveTunnels when nothing is provisioned yet. Independently
// retriable; each probe carries its own timeout.
func (c *Controller) PublicURL(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL, nil)
	if err != nil {
		return "", fmt.Errorf("build tunnel status request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.IncTunnelProbe(false)
		return "", fmt.Errorf("probe tunnel status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		metrics.IncTunnelProbe(false)
		return "", fmt.Errorf("probe tunnel status: unexpected status %s", resp.Status)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		metrics.IncTunnelProbe(false)
		return "", fmt.Errorf("decode tunnel status: %w", err)
	}
	if len(status.Tunnels) == 0 {
		metrics.IncTunnelProbe(false)
		return "", ErrNoActiveTunnels
	}
	for _, t := range status.Tunnels {
		if t.Proto == "https" {
			metrics.IncTunnelProbe(true)
			return t.PublicURL, nil
		}
	}
	metrics.IncTunnelProbe(true)
	return status.Tunnels[0].PublicURL, nil
}

func (c *Controller) setState(st State) {
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}
