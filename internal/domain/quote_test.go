package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuote(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		category  string
		want      Quote
		wantField string
	}{
		{
			name:     "valid quote",
			text:     "Stay hungry.",
			category: "Motivation",
			want:     Quote{Text: "Stay hungry.", Category: "Motivation"},
		},
		{
			name:     "trims whitespace",
			text:     "  Stay hungry.\n",
			category: "\tMotivation ",
			want:     Quote{Text: "Stay hungry.", Category: "Motivation"},
		},
		{
			name:      "empty text",
			text:      "",
			category:  "Motivation",
			wantField: "text",
		},
		{
			name:      "whitespace-only text",
			text:      "   ",
			category:  "Motivation",
			wantField: "text",
		},
		{
			name:      "whitespace-only category",
			text:      "Stay hungry.",
			category:  " \t ",
			wantField: "category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewQuote(tt.text, tt.category)

			if tt.wantField != "" {
				var validationErr *ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, tt.wantField, validationErr.Field)
				assert.Equal(t, Quote{}, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeedQuotes_ReturnsFreshCopy(t *testing.T) {
	first := SeedQuotes()
	require.Len(t, first, 3)

	first[0].Text = "mutated"

	second := SeedQuotes()
	assert.NotEqual(t, "mutated", second[0].Text)

	for _, q := range second {
		assert.NoError(t, q.Validate())
	}
}

func TestCategories_FirstSeenOrder(t *testing.T) {
	quotes := []Quote{
		{Text: "a", Category: "Life"},
		{Text: "b", Category: "Work"},
		{Text: "c", Category: "Life"},
		{Text: "d", Category: "Server"},
	}

	assert.Equal(t, []string{"Life", "Work", "Server"}, Categories(quotes))
	assert.Empty(t, Categories(nil))
}

func TestFilterByCategory(t *testing.T) {
	quotes := []Quote{
		{Text: "a", Category: "Life"},
		{Text: "b", Category: "Work"},
		{Text: "c", Category: "Life"},
	}

	t.Run("all returns full collection in order", func(t *testing.T) {
		got := FilterByCategory(quotes, CategoryAll)
		assert.Equal(t, quotes, got)

		got[0].Text = "changed"
		assert.Equal(t, "a", quotes[0].Text, "result must not alias the input")
	})

	t.Run("exact match", func(t *testing.T) {
		got := FilterByCategory(quotes, "Life")
		assert.Equal(t, []Quote{{Text: "a", Category: "Life"}, {Text: "c", Category: "Life"}}, got)
	})

	t.Run("case sensitive", func(t *testing.T) {
		assert.Empty(t, FilterByCategory(quotes, "life"))
	})

	t.Run("nonexistent category", func(t *testing.T) {
		got := FilterByCategory(quotes, "Nonexistent")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
