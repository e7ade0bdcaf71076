package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// DefaultLimit is the default number of quotes per page.
const DefaultLimit = 50

// MaxLimit is the maximum allowed quotes per page.
const MaxLimit = 500

// ErrInvalidCursor is returned when cursor decoding fails.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest represents pagination parameters from the request.
type PaginationRequest struct {
	// Cursor is an opaque string from a previous response's NextCursor.
	Cursor string `form:"cursor"`

	// Limit is the maximum number of items to return.
	Limit int `form:"limit" validate:"omitempty,gte=1,lte=500"`
}

// GetLimit returns the limit with defaults applied.
func (p *PaginationRequest) GetLimit() int {
	if p.Limit <= 0 {
		return DefaultLimit
	}

	return min(p.Limit, MaxLimit)
}

// CursorData is the decoded cursor. The collection is ordered, so a page is
// identified by its offset and the filter it was taken from.
type CursorData struct {
	Offset   int    `json:"o"`
	Category string `json:"c"`
}

// EncodeCursor encodes cursor data to a base64 string.
func EncodeCursor(data CursorData) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor decodes a cursor. An empty string is the first page.
func DecodeCursor(encoded string) (CursorData, error) {
	if encoded == "" {
		return CursorData{}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return CursorData{}, ErrInvalidCursor
	}

	var data CursorData
	if err := json.Unmarshal(raw, &data); err != nil || data.Offset < 0 {
		return CursorData{}, ErrInvalidCursor
	}

	return data, nil
}

// PaginatedResponse is a generic paginated response structure.
type PaginatedResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
	Total      int    `json:"total"`
}

// Paginate cuts one page out of items starting at cursor.Offset.
// An offset past the end yields an empty page.
func Paginate[T any](items []T, cursor CursorData, limit int) *PaginatedResponse[T] {
	start := min(cursor.Offset, len(items))
	end := min(start+limit, len(items))

	page := make([]T, 0, end-start)
	page = append(page, items[start:end]...)

	resp := &PaginatedResponse[T]{
		Items:   page,
		HasMore: end < len(items),
		Total:   len(items),
	}

	if resp.HasMore {
		resp.NextCursor = EncodeCursor(CursorData{Offset: end, Category: cursor.Category})
	}

	return resp
}
