package document

import (
	"errors"
	"fmt"
)

// Sentinel errors for the document-fatal failure classes. Stage errors wrap
// these so callers can branch with errors.Is.
var (
	// ErrTableNotFound means no table region matched the configured header
	// signature on any page.
	ErrTableNotFound = errors.New("line-item table not found")

	// ErrUnknownVariant means no classifier rule matched and no hint was
	// supplied. No downstream processing is attempted.
	ErrUnknownVariant = errors.New("unknown document variant")

	// ErrUnmappedEntity means an entity name had no row in the code table and
	// the profile is configured to fail on misses.
	ErrUnmappedEntity = errors.New("entity not present in code table")
)

// RowError is a row-scoped parse failure. It excludes the affected row from
// output but never fails the document.
type RowError struct {
	Row     int
	Column  string
	Raw     string
	Message string
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column %q: %s (raw %q)", e.Row, e.Column, e.Message, e.Raw)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ConfigurationError reports an internally inconsistent profile. It is
// raised at registration time, before any document is processed.
type ConfigurationError struct {
	Component string
	Detail    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Detail)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
