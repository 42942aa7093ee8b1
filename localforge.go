// Package localforge is the backend of a local developer-environment
// manager: it supervises a fleet of local service daemons, resolves and
// caches their available release versions, and drives a relay-tunnel client
// for public preview URLs.
package localforge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/localforge/localforge/internal/catalog"
	"github.com/localforge/localforge/internal/config"
	"github.com/localforge/localforge/internal/history"
	chsink "github.com/localforge/localforge/internal/history/clickhouse"
	"github.com/localforge/localforge/internal/logger"
	"github.com/localforge/localforge/internal/metrics"
	"github.com/localforge/localforge/internal/server"
	"github.com/localforge/localforge/internal/store/factory"
	"github.com/localforge/localforge/internal/supervisor"
	"github.com/localforge/localforge/internal/tunnel"
	"github.com/localforge/localforge/internal/version"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = config.Config

type State = supervisor.State

type Handle = supervisor.Handle

type Version = version.Version

type Installed = catalog.Installed

var (
	ErrAlreadyRunning  = supervisor.ErrAlreadyRunning
	ErrNotInstalled    = supervisor.ErrNotInstalled
	ErrNoActiveTunnels = tunnel.ErrNoActiveTunnels
)

// LoadConfig reads the TOML config at path, or returns defaults when path
// is empty.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// Forge is the composition root wiring supervisor, version resolver and
// tunnel controller over one configuration.
type Forge struct {
	cfg     config.Config
	log     *slog.Logger
	sup     *supervisor.Supervisor
	res     *version.Resolver
	tun     *tunnel.Controller
	scanner *catalog.Scanner
	closers []func() error
}

// New builds a fully wired Forge from cfg.
func New(cfg config.Config) (*Forge, error) {
	log := logger.New(cfg.Log.Level, cfg.Log.Color)
	_ = metrics.Register(nil)

	st, err := factory.NewFromDSN(cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open version store: %w", err)
	}
	if err := st.EnsureSchema(context.Background()); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("ensure version store schema: %w", err)
	}

	var sink history.Sink = history.NopSink{}
	var closers []func() error
	closers = append(closers, st.Close)
	if cfg.History.Addr != "" {
		ch, err := chsink.New(cfg.History.Addr, cfg.History.Database, cfg.History.Username, cfg.History.Password, cfg.History.Table)
		if err != nil {
			log.Warn("history sink unavailable, continuing without it", "error", err)
		} else if err := ch.EnsureSchema(context.Background()); err != nil {
			log.Warn("history sink schema failed, continuing without it", "error", err)
			_ = ch.Close()
		} else {
			sink = ch
			closers = append(closers, ch.Close)
		}
	}

	scanner := catalog.NewScanner(cfg.InstallDir)
	overrides := make(map[string]supervisor.Override, len(cfg.Services))
	for name, sc := range cfg.Services {
		overrides[name] = supervisor.Override{Port: sc.Port, ExtraArgs: sc.ExtraArgs}
	}
	sup := supervisor.New(scanner, log,
		supervisor.WithProcessLogs(cfg.ProcessLog),
		supervisor.WithHistorySink(sink),
		supervisor.WithOverrides(overrides),
	)

	cache := version.NewCache(st, cfg.CacheTTL)
	res := version.NewResolver(version.DefaultRegistry(nil), cache, log)

	tunnelExec := filepath.Join(cfg.InstallDir, tunnel.ServiceName, "ngrok")
	if in, ok := scanner.Find(tunnel.ServiceName); ok {
		tunnelExec = in.ExecPath
	}
	tun := tunnel.New(sup, tunnelExec, cfg.Tunnel.StatusURL, log)

	return &Forge{
		cfg:     cfg,
		log:     log,
		sup:     sup,
		res:     res,
		tun:     tun,
		scanner: scanner,
		closers: closers,
	}, nil
}

// Close releases the store and any history sink. Running services are not
// touched; they outlive the manager.
func (f *Forge) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Logger returns the configured slog logger.
func (f *Forge) Logger() *slog.Logger { return f.log }

// Supervisor facade.

func (f *Forge) Start(ctx context.Context, name, execPath string, args []string) (int, error) {
	return f.sup.Start(ctx, name, execPath, args)
}

func (f *Forge) Stop(ctx context.Context, name string) error { return f.sup.Stop(ctx, name) }

func (f *Forge) Restart(ctx context.Context, name, execPath string, args []string) (int, error) {
	return f.sup.Restart(ctx, name, execPath, args)
}

func (f *Forge) StartAuto(ctx context.Context, name string) (int, error) {
	return f.sup.StartAuto(ctx, name)
}

func (f *Forge) AutoStartBatch(ctx context.Context, names []string) []string {
	return f.sup.AutoStartBatch(ctx, names)
}

func (f *Forge) Status(name string) State { return f.sup.Status(name) }

func (f *Forge) Statuses() []Handle { return f.sup.Statuses() }

func (f *Forge) StopAll(ctx context.Context) error { return f.sup.StopAll(ctx) }

// Version facade.

func (f *Forge) GetAvailableVersions(ctx context.Context, service string, force bool) ([]Version, error) {
	return f.res.GetAvailableVersions(ctx, service, force)
}

func (f *Forge) RefreshAllVersions(ctx context.Context) map[string]error {
	return f.res.RefreshAll(ctx)
}

func (f *Forge) ClearVersionCache(ctx context.Context) error { return f.res.ClearCache(ctx) }

func (f *Forge) KnownServices() []string { return f.res.Services() }

// InstalledServices lists services discovered under the install directory.
func (f *Forge) InstalledServices() ([]Installed, error) { return f.scanner.Scan() }

// Tunnel facade.

func (f *Forge) StartTunnel(ctx context.Context, domain string, port int, authToken string) error {
	return f.tun.Start(ctx, domain, port, authToken)
}

func (f *Forge) StopTunnel(ctx context.Context) error { return f.tun.Stop(ctx) }

func (f *Forge) TunnelURL(ctx context.Context) (string, error) { return f.tun.PublicURL(ctx) }

func (f *Forge) TunnelState() tunnel.State { return f.tun.State() }

// HTTPHandler returns the UI-facing HTTP API handler.
func (f *Forge) HTTPHandler(basePath string) http.Handler {
	return server.NewRouter(f.sup, f.res, f.tun, basePath).Handler()
}

// HTTPServer builds a standalone HTTP server on the configured listen address.
func (f *Forge) HTTPServer(basePath string) *http.Server {
	return server.NewServer(f.cfg.ListenAddr, basePath, f.sup, f.res, f.tun)
}
