package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openautomata/windrive/internal/domain/activation"
	"github.com/openautomata/windrive/internal/domain/catalog"
	"github.com/openautomata/windrive/internal/domain/element"
	"github.com/openautomata/windrive/internal/domain/session"
	"github.com/openautomata/windrive/internal/driver"
	"github.com/openautomata/windrive/internal/infrastructure/monitoring"
	"github.com/openautomata/windrive/internal/shared/types"
	"github.com/openautomata/windrive/internal/tree"
	"github.com/openautomata/windrive/internal/xpath"
)

// SessionDefaults fills in values a create request omits.
type SessionDefaults struct {
	Timeout     time.Duration
	AutoRecover bool
}

// Handlers bundles every HTTP handler and its collaborators.
type Handlers struct {
	registry    *session.Registry
	coordinator *session.Coordinator
	resolver    *element.Resolver
	engine      *activation.Engine
	catalog     *catalog.Catalog
	drv         driver.Driver
	metrics     *monitoring.Metrics
	defaults    SessionDefaults
	logger      *zap.Logger
}

// NewHandlers creates the handler set. metrics may be nil.
func NewHandlers(
	registry *session.Registry,
	coordinator *session.Coordinator,
	resolver *element.Resolver,
	engine *activation.Engine,
	cat *catalog.Catalog,
	drv driver.Driver,
	metrics *monitoring.Metrics,
	defaults SessionDefaults,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		registry:    registry,
		coordinator: coordinator,
		resolver:    resolver,
		engine:      engine,
		catalog:     cat,
		drv:         drv,
		metrics:     metrics,
		defaults:    defaults,
		logger:      logger,
	}
}

// HandleJSON is the wire form of an element handle, echoed between client
// and server. The xpath is the durable identity; the runtime id is a hint.
type HandleJSON struct {
	SessionID string         `json:"session_id"`
	XPath     string         `json:"xpath"`
	RuntimeID tree.RuntimeID `json:"runtime_id"`
}

// validXPath rejects a malformed xpath with 400 before it reaches the
// engine, where a parse failure would otherwise surface as a server error.
func validXPath(c *gin.Context, expr string) bool {
	if _, err := xpath.Parse(expr); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// respondError maps engine errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, types.ErrUnknownSession):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrElementNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, types.ErrCollectionFailed):
		status = http.StatusBadGateway
	case errors.Is(err, types.ErrLaunchFailure):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Root handles GET /
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "windrive",
		"status":  "running",
	})
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": h.registry.Len(),
	})
}

// CreateSession handles POST /sessions
func (h *Handlers) CreateSession(c *gin.Context) {
	var req struct {
		TimeoutMS   int64 `json:"timeout_ms"`
		AutoRecover *bool `json:"auto_recover"`
	}
	// An empty body means all defaults.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session request"})
		return
	}

	timeout := h.defaults.Timeout
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}
	autoRecover := h.defaults.AutoRecover
	if req.AutoRecover != nil {
		autoRecover = *req.AutoRecover
	}

	id := h.registry.Create(timeout, autoRecover)
	if h.metrics != nil {
		h.metrics.IncSessionsCreated()
		h.metrics.SetSessionsActive(h.registry.Len())
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id":   id,
		"timeout_ms":   timeout.Milliseconds(),
		"auto_recover": autoRecover,
	})
}

// ListSessions handles GET /sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.registry.List()})
}

// GetSession handles GET /sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	var info types.SessionInfo
	err := h.registry.WithSession(c.Param("id"), func(s *session.State) error {
		info = s.Info()
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// DestroySession handles DELETE /sessions/:id
func (h *Handlers) DestroySession(c *gin.Context) {
	if err := h.registry.Destroy(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IncSessionsDestroyed()
		h.metrics.SetSessionsActive(h.registry.Len())
	}
	c.JSON(http.StatusOK, gin.H{"destroyed": true})
}

// SetRecovery handles PUT /sessions/:id/recovery
func (h *Handlers) SetRecovery(c *gin.Context) {
	var req struct {
		AutoRecover *bool `json:"auto_recover" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "auto_recover is required"})
		return
	}

	err := h.registry.WithSession(c.Param("id"), func(s *session.State) error {
		s.SetAutoRecover(*req.AutoRecover)
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auto_recover": *req.AutoRecover})
}

// RefreshSession handles POST /sessions/:id/refresh
func (h *Handlers) RefreshSession(c *gin.Context) {
	snap, err := h.coordinator.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"captured_at": snap.CapturedAt(),
		"nodes":       snap.Len(),
	})
}

// ElementAt handles POST /sessions/:id/elements/at
func (h *Handlers) ElementAt(c *gin.Context) {
	sessionID := c.Param("id")
	var req struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
		return
	}

	// The handle is bound to the session, so the session must exist.
	if err := h.registry.WithSession(sessionID, func(*session.State) error { return nil }); err != nil {
		respondError(c, err)
		return
	}

	raw, err := h.drv.LocateByCoordinates(c.Request.Context(), req.X, req.Y)
	if err != nil {
		respondError(c, err)
		return
	}

	expr := xpath.Build(raw.Node, raw.Ancestors)
	c.JSON(http.StatusOK, gin.H{
		"handle": HandleJSON{
			SessionID: sessionID,
			XPath:     expr,
			RuntimeID: raw.Node.RuntimeID,
		},
		"name":         raw.Node.Name,
		"control_type": raw.Node.Type,
	})
}

// ElementByXPath handles POST /sessions/:id/elements/xpath
func (h *Handlers) ElementByXPath(c *gin.Context) {
	sessionID := c.Param("id")
	var req struct {
		XPath string `json:"xpath" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "xpath is required"})
		return
	}

	if !validXPath(c, req.XPath) {
		return
	}

	resolved, err := h.resolver.LocateXPath(c.Request.Context(), sessionID, req.XPath, true)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"handle": HandleJSON{
			SessionID: sessionID,
			XPath:     req.XPath,
			RuntimeID: resolved.RuntimeID,
		},
		"name":         resolved.Name,
		"control_type": resolved.Type,
	})
}

// ResolveHandle handles POST /sessions/:id/resolve
func (h *Handlers) ResolveHandle(c *gin.Context) {
	sessionID := c.Param("id")
	var req struct {
		XPath     string         `json:"xpath" binding:"required"`
		RuntimeID tree.RuntimeID `json:"runtime_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "xpath is required"})
		return
	}

	if !validXPath(c, req.XPath) {
		return
	}

	handle := element.NewHandle(sessionID, req.XPath, req.RuntimeID)
	resolved, err := h.resolver.Resolve(c.Request.Context(), handle)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"element": resolved,
		"handle": HandleJSON{
			SessionID: sessionID,
			XPath:     handle.XPath(),
			RuntimeID: resolved.RuntimeID,
		},
	})
}

// ActOnHandle handles POST /sessions/:id/act
func (h *Handlers) ActOnHandle(c *gin.Context) {
	sessionID := c.Param("id")
	var req struct {
		XPath     string            `json:"xpath" binding:"required"`
		RuntimeID tree.RuntimeID    `json:"runtime_id"`
		Action    types.Action      `json:"action" binding:"required"`
		Args      map[string]string `json:"args"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "xpath and action are required"})
		return
	}
	if !req.Action.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + string(req.Action)})
		return
	}
	if !validXPath(c, req.XPath) {
		return
	}

	handle := element.NewHandle(sessionID, req.XPath, req.RuntimeID)
	resolved, err := h.resolver.Act(c.Request.Context(), handle, req.Action, req.Args)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"performed": req.Action,
		"element":   resolved,
		"handle": HandleJSON{
			SessionID: sessionID,
			XPath:     handle.XPath(),
			RuntimeID: resolved.RuntimeID,
		},
	})
}

// Activate handles POST /sessions/:id/activate
func (h *Handlers) Activate(c *gin.Context) {
	sessionID := c.Param("id")
	var req struct {
		App   string `json:"app"`
		Path  string `json:"path"`
		XPath string `json:"xpath"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activation request"})
		return
	}

	path, expr := req.Path, req.XPath
	if req.App != "" {
		app, ok := h.catalog.Lookup(req.App)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown app: " + req.App})
			return
		}
		path, expr = app.Path, app.WindowXPath
	}
	if path == "" || expr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path and xpath (or app) are required"})
		return
	}
	if !validXPath(c, expr) {
		return
	}

	res, err := h.engine.ActivateOrLaunch(c.Request.Context(), sessionID, path, expr)
	if h.metrics != nil && res != nil {
		h.metrics.RecordActivation(res.State.String())
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activated":  res.OK(),
		"state":      res.State.String(),
		"launched":   res.Launched,
		"pid":        res.PID,
		"runtime_id": res.RuntimeID,
		"elapsed_ms": res.Elapsed.Milliseconds(),
	})
}

// Query handles POST /sessions/:id/query
func (h *Handlers) Query(c *gin.Context) {
	sessionID := c.Param("id")
	var req struct {
		Expr string `json:"expr" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expr is required"})
		return
	}

	snap, err := h.coordinator.Snapshot(sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if snap == nil {
		snap, err = h.coordinator.Refresh(c.Request.Context(), sessionID)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	nodes, err := xpath.Query(snap, req.Expr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := make([]gin.H, 0, len(nodes))
	for _, n := range nodes {
		results = append(results, gin.H{
			"name":         n.Name,
			"control_type": n.Type,
			"runtime_id":   n.RuntimeID,
			"xpath":        xpath.BuildFromSnapshot(snap, n),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(results),
		"matches": results,
	})
}

// Screen handles GET /screen
func (h *Handlers) Screen(c *gin.Context) {
	ctx, err := h.drv.ScreenContext(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctx)
}

// Apps handles GET /apps
func (h *Handlers) Apps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"apps": h.catalog.List()})
}
