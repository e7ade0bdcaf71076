package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// Attribute keys whose values never reach a log sink.
var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"apiKey", "apikey", "api_key",
	"accessToken", "access_token",
	"refreshToken", "refresh_token",
	"credential", "credentials",
	"authorization", "auth", "bearer",
	"cookie", "session",
	"privateKey", "private_key",
	"feed_token",
	"store_dsn",
}

var sensitivePrefixes = []string{"secret", "private"}

var sensitiveValues = []*regexp.Regexp{
	// JWT
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Authorization header values
	regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`),
	// Feed or store URLs with userinfo
	regexp.MustCompile(`^[a-z][a-z0-9+.-]*://[^/@\s]+:[^/@\s]+@`),
}

// RedactOptions returns the masq options used by the json and text handlers.
func RedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(sensitiveKeys)+len(sensitivePrefixes)+len(sensitiveValues))

	for _, key := range sensitiveKeys {
		opts = append(opts, masq.WithFieldName(key))
	}

	for _, prefix := range sensitivePrefixes {
		opts = append(opts, masq.WithFieldPrefix(prefix))
	}

	for _, re := range sensitiveValues {
		opts = append(opts, masq.WithRegex(re))
	}

	return opts
}

// NewReplaceAttr returns a slog ReplaceAttr that redacts sensitive
// attributes. extra is applied after RedactOptions.
func NewReplaceAttr(extra ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(RedactOptions(), extra...)...)
}
