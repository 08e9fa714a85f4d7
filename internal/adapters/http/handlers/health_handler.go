package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether one dependency is reachable.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	version  string
	checkers []HealthChecker
}

func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{version: version, checkers: checkers}
}

// Live handles GET /healthz: the process is up.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready handles GET /readyz: every dependency answers within the budget.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.checkers))
	ready := true
	for _, checker := range h.checkers {
		if err := checker.Check(ctx); err != nil {
			deps[checker.Name()] = err.Error()
			ready = false
		} else {
			deps[checker.Name()] = "ok"
		}
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":       state,
		"dependencies": deps,
	})
}

// CheckerFunc adapts a function into a HealthChecker.
type CheckerFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

func (f CheckerFunc) Name() string                    { return f.CheckName }
func (f CheckerFunc) Check(ctx context.Context) error { return f.Fn(ctx) }
