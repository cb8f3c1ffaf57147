package http

import (
	"net/http"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CleanupHandler receives the browser-unload beacon. The sender is a page
// being torn down, fired via a non-blocking delivery mechanism: there is no
// client left to interpret a structured error, so the response is always
// success-shaped even when a sub-step fails internally.
type CleanupHandler struct {
	manager *services.RecordingLifecycleManager
	logger  *zap.SugaredLogger
}

func NewCleanupHandler(manager *services.RecordingLifecycleManager, logger *zap.SugaredLogger) *CleanupHandler {
	return &CleanupHandler{manager: manager, logger: logger}
}

// Register mounts the handler's routes.
func (h *CleanupHandler) Register(r gin.IRouter) {
	r.POST("/rooms/:room/cleanup", h.handleCleanup)
}

type cleanupRequest struct {
	IsRecording bool                   `json:"is_recording"`
	Recording   domain.RecordingHandle `json:"recording_details"`
	ReplayKey   string                 `json:"replay_key"`
}

func (h *CleanupHandler) handleCleanup(c *gin.Context) {
	room := domain.RoomID(c.Param("room"))

	var req cleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("malformed cleanup beacon", "room", room, "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	err := h.manager.CleanupAbrupt(c.Request.Context(), services.CleanupRequest{
		Room:        room,
		IsRecording: req.IsRecording,
		Recording:   req.Recording,
		ReplayKey:   req.ReplayKey,
	})
	if err != nil {
		// Partial failures are already logged with enough detail to
		// follow up; the beacon sender cannot act on them.
		h.logger.Errorw("cleanup completed with errors", "room", room, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
