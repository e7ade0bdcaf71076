// Package exchange encodes and decodes the portable quotes.json format used
// for import and export. The format is a JSON array of {"text","category"} objects.
package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// FileName is the suggested name for an exported collection.
const FileName = "quotes.json"

const jsonTagParts = 2

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// record is one quote on the wire.
type record struct {
	Text     string `json:"text"     validate:"required"`
	Category string `json:"category" validate:"required"`
}

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", jsonTagParts)[0]
			if name == "-" {
				return ""
			}

			return name
		})
	})

	return validate
}

// Export renders quotes as an indented JSON array. A nil or empty
// collection renders as "[]".
func Export(quotes []domain.Quote) ([]byte, error) {
	records := make([]record, 0, len(quotes))
	for _, q := range quotes {
		records = append(records, record{Text: q.Text, Category: q.Category})
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding quotes: %w", err)
	}

	return out, nil
}

// Parse reads a quotes.json document. Text and category are trimmed.
// The whole document is rejected with a *domain.ValidationError if it is not
// an array of objects or if any record is missing a field.
func Parse(r io.Reader) ([]domain.Quote, error) {
	var records []record

	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, domain.NewValidationError("quotes", "must be a JSON array of {text, category} objects: "+decodeReason(err))
	}

	if records == nil {
		return nil, domain.NewValidationError("quotes", "must be a JSON array of {text, category} objects")
	}

	if dec.More() {
		return nil, domain.NewValidationError("quotes", "unexpected content after the array")
	}

	quotes := make([]domain.Quote, 0, len(records))

	for i := range records {
		rec := record{
			Text:     strings.TrimSpace(records[i].Text),
			Category: strings.TrimSpace(records[i].Category),
		}

		if err := validatorInstance().Struct(rec); err != nil {
			return nil, recordError(i, err)
		}

		quotes = append(quotes, domain.Quote{Text: rec.Text, Category: rec.Category})
	}

	return quotes, nil
}

func recordError(index int, err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return domain.NewValidationError(fmt.Sprintf("quotes[%d].%s", index, fieldErrs[0].Field()), "is required")
	}

	return domain.NewValidationError(fmt.Sprintf("quotes[%d]", index), err.Error())
}

func decodeReason(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return "found " + typeErr.Value
	}

	if errors.Is(err, io.EOF) {
		return "empty document"
	}

	return err.Error()
}

// JSONCodec implements ports.QuoteCodec with Export and Parse.
type JSONCodec struct{}

// Encode implements ports.QuoteCodec.
func (JSONCodec) Encode(quotes []domain.Quote) ([]byte, error) {
	return Export(quotes)
}

// Decode implements ports.QuoteCodec.
func (JSONCodec) Decode(r io.Reader) ([]domain.Quote, error) {
	return Parse(r)
}
