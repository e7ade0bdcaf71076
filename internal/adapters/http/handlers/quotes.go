package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/exchange"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/app"
)

// QuoteHandler serves the collection: listing, random pick, add,
// categories, import and export.
type QuoteHandler struct {
	service *app.QuoteService
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service *app.QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// List handles GET /api/v1/quotes.
// Without a category the last selected one is used. Pages are cut with an
// opaque cursor that remembers the category it was taken from.
func (h *QuoteHandler) List(c *gin.Context) {
	var req dto.ListQuotesRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	cursor, err := dto.DecodeCursor(req.Cursor)
	if err != nil {
		dto.AbortWithCode(c, dto.ErrorCodeBadRequest, "invalid cursor")
		return
	}

	if req.Category != "" {
		cursor.Category = req.Category
	}

	quotes := dto.NewQuoteResponses(h.service.QuotesFor(cursor.Category))

	c.JSON(http.StatusOK, dto.Paginate(quotes, cursor, req.GetLimit()))
}

// Random handles GET /api/v1/quotes/random.
func (h *QuoteHandler) Random(c *gin.Context) {
	var req dto.RandomQuoteRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	quote, err := h.service.RandomQuote(req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// Create handles POST /api/v1/quotes.
func (h *QuoteHandler) Create(c *gin.Context) {
	var req dto.CreateQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	quote, err := h.service.AddQuote(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuoteResponse(quote))
}

// Categories handles GET /api/v1/categories.
func (h *QuoteHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, dto.CategoriesResponse{
		Categories: h.service.Categories(),
		Selected:   h.service.LastSelectedCategory(),
	})
}

// Export handles GET /api/v1/quotes/export as a file download.
func (h *QuoteHandler) Export(c *gin.Context) {
	data, err := h.service.Export(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exchange.FileName+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

// Import handles POST /api/v1/quotes/import. The body is an exported
// document; every record is appended or, if any is invalid, none is.
func (h *QuoteHandler) Import(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	result, err := h.service.Import(c.Request.Context(), bytes.NewReader(body))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers quote routes. writer guards the routes that
// change the collection.
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup, writer ...gin.HandlerFunc) {
	rg.GET("/categories", h.Categories)

	quotes := rg.Group("/quotes")
	quotes.GET("", h.List)
	quotes.GET("/random", h.Random)
	quotes.GET("/export", h.Export)
	quotes.POST("", guarded(writer, h.Create)...)
	quotes.POST("/import", guarded(writer, h.Import)...)
}

// guarded appends h to a copy of the writer chain.
func guarded(writer []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	return append(slices.Clone(writer), h)
}

// respondBindError answers a failed bind: field errors become a 400 with
// details, anything else a plain 400.
func respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		dto.HandleError(c, tooLarge)
		return
	}

	if dto.IsValidationError(err) {
		dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
		return
	}

	dto.AbortWithCode(c, dto.ErrorCodeBadRequest, "malformed request")
}
