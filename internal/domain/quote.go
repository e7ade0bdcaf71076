// Package domain contains core business entities and rules.
package domain

import "strings"

// CategoryAll is the filter sentinel meaning "no category filter".
const CategoryAll = "all"

// Quote is a piece of text tagged with a category.
// Quotes are immutable values with no identity beyond their content.
type Quote struct {
	// Text is the quotation itself. Never empty.
	Text string

	// Category groups quotes for filtering. Never empty.
	Category string
}

// NewQuote trims text and category and returns a validated Quote.
// Returns a *ValidationError naming the first empty field.
func NewQuote(text, category string) (Quote, error) {
	q := Quote{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}

	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	return q, nil
}

// Validate checks that both fields are non-empty after trimming whitespace.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return NewValidationError("text", "must not be empty")
	}

	if strings.TrimSpace(q.Category) == "" {
		return NewValidationError("category", "must not be empty")
	}

	return nil
}

// SeedQuotes returns the built-in collection used when nothing has been persisted yet.
// A fresh slice is returned on every call.
func SeedQuotes() []Quote {
	return []Quote{
		{Text: "The best way to get started is to quit talking and begin doing.", Category: "Motivation"},
		{Text: "Don’t let yesterday take up too much of today.", Category: "Inspiration"},
		{Text: "It’s not whether you get knocked down, it’s whether you get up.", Category: "Resilience"},
	}
}

// Categories returns the distinct categories of quotes in first-seen order.
func Categories(quotes []Quote) []string {
	seen := make(map[string]struct{}, len(quotes))
	categories := make([]string, 0, len(quotes))

	for _, q := range quotes {
		if _, ok := seen[q.Category]; ok {
			continue
		}

		seen[q.Category] = struct{}{}
		categories = append(categories, q.Category)
	}

	return categories
}

// FilterByCategory returns the quotes whose category equals filter exactly.
// CategoryAll returns a copy of the whole collection in order.
func FilterByCategory(quotes []Quote, filter string) []Quote {
	if filter == CategoryAll {
		return append([]Quote(nil), quotes...)
	}

	matched := make([]Quote, 0)

	for _, q := range quotes {
		if q.Category == filter {
			matched = append(matched, q)
		}
	}

	return matched
}
