package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/keggminer/internal/application/mining"
	"github.com/turtacn/keggminer/pkg/errors"
)

// ProgressSource reports the state of the running pipeline.
type ProgressSource interface {
	Snapshot() mining.ProgressSnapshot
}

// ProgressHandler serves GET /progress.
type ProgressHandler struct {
	source ProgressSource
}

func NewProgressHandler(source ProgressSource) *ProgressHandler {
	return &ProgressHandler{source: source}
}

// Get returns the latest snapshot, or 404 before any pipeline has started.
func (h *ProgressHandler) Get(c *gin.Context) {
	snap := h.source.Snapshot()
	if snap.Pipeline == "" {
		writeAppError(c, errors.NotFound("no pipeline has started"))
		return
	}
	c.JSON(http.StatusOK, snap)
}
