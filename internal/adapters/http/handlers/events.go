package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// Server-sent event names.
const (
	EventCollectionChanged = "collection-changed"
	EventHeartbeat         = "heartbeat"
)

// DefaultHeartbeat is the interval between heartbeat events.
const DefaultHeartbeat = 15 * time.Second

// CollectionEvent is the data of a collection-changed event.
type CollectionEvent struct {
	Total  int                 `json:"total"`
	Quotes []dto.QuoteResponse `json:"quotes"`
}

// EventsHandler streams collection changes to browser clients.
type EventsHandler struct {
	service   *app.QuoteService
	heartbeat time.Duration
}

// NewEventsHandler creates a new events handler. A non-positive heartbeat
// uses DefaultHeartbeat.
func NewEventsHandler(service *app.QuoteService, heartbeat time.Duration) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	return &EventsHandler{service: service, heartbeat: heartbeat}
}

// Stream handles GET /api/v1/events. The current collection is sent first,
// then one event per change. A slow client only sees the latest change.
func (h *EventsHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()

	latest := make(chan []domain.Quote, 1)
	unsubscribe := h.service.Subscribe(func(_ context.Context, quotes []domain.Quote) {
		select {
		case <-latest:
		default:
		}

		select {
		case latest <- quotes:
		default:
		}
	})
	defer unsubscribe()

	// The stream outlives the server write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "event stream opened")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.SSEvent(EventCollectionChanged, newCollectionEvent(h.service.QuotesFor(domain.CategoryAll)))
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			logger.DebugContext(ctx, "event stream closed")
			return false
		case quotes := <-latest:
			c.SSEvent(EventCollectionChanged, newCollectionEvent(quotes))
		case at := <-heartbeat.C:
			c.SSEvent(EventHeartbeat, at.UTC().Format(time.RFC3339))
		}

		return true
	})
}

// RegisterRoutes registers the event stream route.
func (h *EventsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/events", h.Stream)
}

func newCollectionEvent(quotes []domain.Quote) CollectionEvent {
	return CollectionEvent{Total: len(quotes), Quotes: dto.NewQuoteResponses(quotes)}
}
