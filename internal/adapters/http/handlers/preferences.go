package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/app"
)

// PreferenceHandler exposes the last selected category.
type PreferenceHandler struct {
	service *app.QuoteService
}

// NewPreferenceHandler creates a new preference handler.
func NewPreferenceHandler(service *app.QuoteService) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

// Get handles GET /api/v1/preferences/category.
func (h *PreferenceHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, dto.CategoryPreference{Category: h.service.LastSelectedCategory()})
}

// Put handles PUT /api/v1/preferences/category. A blank category selects
// "all". The selection holds for the process even if it cannot be persisted.
func (h *PreferenceHandler) Put(c *gin.Context) {
	var req dto.CategoryPreference
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	selected := h.service.SelectCategory(c.Request.Context(), req.Category)

	c.JSON(http.StatusOK, dto.CategoryPreference{Category: selected})
}

// RegisterRoutes registers preference routes.
func (h *PreferenceHandler) RegisterRoutes(rg *gin.RouterGroup, writer ...gin.HandlerFunc) {
	rg.GET("/preferences/category", h.Get)
	rg.PUT("/preferences/category", guarded(writer, h.Put)...)
}
