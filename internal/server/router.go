package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/localforge/localforge/internal/metrics"
	"github.com/localforge/localforge/internal/supervisor"
	"github.com/localforge/localforge/internal/tunnel"
	"github.com/localforge/localforge/internal/version"
)

// Router exposes the supervisor, version resolver and tunnel controller to
// the desktop UI over HTTP.
// Endpoints under {basePath}:
//
//	POST /services/start      body: {name, exec_path, args}
//	POST /services/stop       query: name=...
//	POST /services/autostart  body: {names: [...]}
//	GET  /services/status     query: name=... (single) or none (all)
//	GET  /versions            query: service=...&force=true|false
//	POST /versions/refresh
//	POST /versions/clear
//	POST /tunnel/start        body: {domain, port, auth_token}
//	POST /tunnel/stop
//	GET  /tunnel/url
//	GET  /metrics
type Router struct {
	sup      *supervisor.Supervisor
	res      *version.Resolver
	tun      *tunnel.Controller
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
func NewRouter(sup *supervisor.Supervisor, res *version.Resolver, tun *tunnel.Controller, basePath string) *Router {
	return &Router{sup: sup, res: res, tun: tun, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/services/start", r.handleStart)
	group.POST("/services/stop", r.handleStop)
	group.POST("/services/autostart", r.handleAutoStart)
	group.GET("/services/status", r.handleStatus)
	group.GET("/versions", r.handleVersions)
	group.POST("/versions/refresh", r.handleRefresh)
	group.POST("/versions/clear", r.handleClearCache)
	group.POST("/tunnel/start", r.handleTunnelStart)
	group.POST("/tunnel/stop", r.handleTunnelStop)
	group.GET("/tunnel/url", r.handleTunnelURL)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, sup *supervisor.Supervisor, res *version.Resolver, tun *tunnel.Controller) *http.Server {
	r := NewRouter(sup, res, tun, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return server
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type startReq struct {
	Name     string   `json:"name"`
	ExecPath string   `json:"exec_path"`
	Args     []string `json:"args"`
}

func (r *Router) handleStart(c *gin.Context) {
	var req startReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !isSafeName(req.Name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return
	}
	if !isSafeAbsPath(req.ExecPath) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid exec_path: must be absolute path without traversal"})
		return
	}
	pid, err := r.sup.Start(c.Request.Context(), req.Name, req.ExecPath, req.Args)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, supervisor.ErrAlreadyRunning) {
			status = http.StatusConflict
		}
		writeJSON(c, status, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ok": true, "pid": pid})
}

func (r *Router) handleStop(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	if err := r.sup.Stop(c.Request.Context(), name); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

type autoStartReq struct {
	Names []string `json:"names"`
}

func (r *Router) handleAutoStart(c *gin.Context) {
	var req autoStartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if len(req.Names) == 0 {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "names required"})
		return
	}
	results := r.sup.AutoStartBatch(c.Request.Context(), req.Names)
	writeJSON(c, http.StatusOK, gin.H{"results": results})
}

func (r *Router) handleStatus(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusOK, r.sup.Statuses())
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"name": name, "state": r.sup.Status(name)})
}

func (r *Router) handleVersions(c *gin.Context) {
	service := c.Query("service")
	if service == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "service query param required"})
		return
	}
	force := c.Query("force") == "true"
	vs, err := r.res.GetAvailableVersions(c.Request.Context(), service, force)
	if err != nil {
		writeJSON(c, http.StatusBadGateway, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, vs)
}

func (r *Router) handleRefresh(c *gin.Context) {
	results := r.res.RefreshAll(c.Request.Context())
	out := make(map[string]string, len(results))
	for svc, err := range results {
		if err != nil {
			out[svc] = err.Error()
		} else {
			out[svc] = "ok"
		}
	}
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleClearCache(c *gin.Context) {
	if err := r.res.ClearCache(c.Request.Context()); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

type tunnelStartReq struct {
	Domain    string `json:"domain"`
	Port      int    `json:"port"`
	AuthToken string `json:"auth_token"`
}

func (r *Router) handleTunnelStart(c *gin.Context) {
	var req tunnelStartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.Port <= 0 || req.Port > 65535 {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "port must be in 1..65535"})
		return
	}
	if err := r.tun.Start(c.Request.Context(), req.Domain, req.Port, req.AuthToken); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleTunnelStop(c *gin.Context) {
	if err := r.tun.Stop(c.Request.Context()); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleTunnelURL(c *gin.Context) {
	url, err := r.tun.PublicURL(c.Request.Context())
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, tunnel.ErrNoActiveTunnels) {
			status = http.StatusNotFound
		}
		writeJSON(c, status, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"url": url, "state": r.tun.State()})
}

// Shutdown gracefully stops a server previously built with NewServer.
func Shutdown(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
