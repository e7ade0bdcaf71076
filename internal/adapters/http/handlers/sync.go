package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/app"
)

// SyncHandler triggers and reports feed synchronisation.
type SyncHandler struct {
	engine *app.SyncEngine
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(engine *app.SyncEngine) *SyncHandler {
	return &SyncHandler{engine: engine}
}

// Trigger handles POST /api/v1/sync. A failed cycle is a 503 naming the
// stage; the collection is unchanged in that case.
func (h *SyncHandler) Trigger(c *gin.Context) {
	result, err := h.engine.SyncNow(c.Request.Context())
	if err == nil {
		c.JSON(http.StatusOK, result)
		return
	}

	stage, ok := app.CycleStageOf(err)
	if !ok {
		dto.HandleError(c, err)
		return
	}

	resp := dto.NewErrorResponseWithDetails(dto.ErrorCodeUnavailable, err.Error(), map[string]string{
		"stage": string(stage),
	})
	c.JSON(http.StatusServiceUnavailable, resp.WithTraceID(dto.GetTraceID(c)))
}

// Status handles GET /api/v1/sync/status.
func (h *SyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Status())
}

// RegisterRoutes registers sync routes.
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup, writer ...gin.HandlerFunc) {
	rg.GET("/sync/status", h.Status)
	rg.POST("/sync", guarded(writer, h.Trigger)...)
}
