package dto

import "github.com/jsamuelsen/quotesync/internal/domain"

// QuoteResponse is the wire shape of a quote.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category}
}

// NewQuoteResponses converts a slice of domain quotes, never returning nil.
func NewQuoteResponses(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, NewQuoteResponse(q))
	}

	return out
}

// CreateQuoteRequest is the body of POST /api/v1/quotes.
type CreateQuoteRequest struct {
	Text     string `json:"text"     validate:"notblank,max=2000"`
	Category string `json:"category" validate:"notblank,max=100"`
}

// ListQuotesRequest holds the query of GET /api/v1/quotes.
type ListQuotesRequest struct {
	PaginationRequest

	// Category filters the list; empty means the last selected category.
	Category string `form:"category"`
}

// RandomQuoteRequest holds the query of GET /api/v1/quotes/random.
type RandomQuoteRequest struct {
	Category string `form:"category"`
}

// CategoriesResponse lists distinct categories in first-seen order.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Selected   string   `json:"selected"`
}

// CategoryPreference is the body and response of /api/v1/preferences/category.
type CategoryPreference struct {
	Category string `json:"category" validate:"max=100"`
}
