package localforge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func requireUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.InstallDir = filepath.Join(dir, "services")
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.StoreDSN = filepath.Join(dir, "data", "localforge.db")
	cfg.ProcessLog.Dir = filepath.Join(dir, "logs")
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestForgeFacadeStartStatusStop(t *testing.T) {
	requireUnix(t)
	f, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	ctx := context.Background()

	pid, err := f.Start(ctx, "demo", "/bin/sh", []string{"-c", "sleep 2"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("unexpected pid %d", pid)
	}
	if st := f.Status("demo"); st != "running" {
		t.Fatalf("unexpected state: %s", st)
	}
	if _, err := f.Start(ctx, "demo", "/bin/sh", []string{"-c", "sleep 2"}); err == nil {
		t.Fatal("second start must fail while running")
	}
	if err := f.Stop(ctx, "demo"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := len(f.Statuses()); got != 0 {
		t.Fatalf("expected empty registry, got %d handles", got)
	}
}

func TestForgeKnownAndInstalledServices(t *testing.T) {
	f, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	known := f.KnownServices()
	if len(known) == 0 {
		t.Fatal("expected known services")
	}
	installed, err := f.InstalledServices()
	if err != nil {
		t.Fatalf("installed: %v", err)
	}
	if len(installed) != 0 {
		t.Fatalf("fresh install dir must be empty, got %v", installed)
	}
}

func TestForgeVersionCacheLifecycle(t *testing.T) {
	f, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	if err := f.ClearVersionCache(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
}

func TestForgeHTTPHandler(t *testing.T) {
	f, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	req := httptest.NewRequest(http.MethodGet, "/api/services/status", nil)
	rr := httptest.NewRecorder()
	f.HTTPHandler("/api").ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status endpoint: %d", rr.Code)
	}

	srv := f.HTTPServer("")
	if srv.Addr == "" || srv.Handler == nil {
		t.Fatalf("unexpected server: %+v", srv)
	}
	_ = srv.Shutdown(context.Background())
}

func TestForgeTunnelIdleByDefault(t *testing.T) {
	f, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	if st := f.TunnelState(); st != "idle" {
		t.Fatalf("expected idle tunnel, got %s", st)
	}
	if err := f.StopTunnel(context.Background()); err != nil {
		t.Fatalf("idle stop: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := f.TunnelURL(ctx); err == nil {
		t.Fatal("expected probe failure without a relay client")
	}
}
