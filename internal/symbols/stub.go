//go:build !cgo

package symbols

import (
	"context"

	"stackresolve/internal/stacktrace"
)

// Locator finds enclosing declarations.
// This stub is used when CGO is not available and never finds anything.
type Locator struct{}

// NewLocator creates a locator.
func NewLocator() *Locator {
	return &Locator{}
}

// Enclosing returns nil when CGO is not available.
func (l *Locator) Enclosing(ctx context.Context, path, source string, line int) (*stacktrace.Symbol, error) {
	return nil, nil
}

// IsAvailable returns whether symbol lookup is available.
func IsAvailable() bool {
	return false
}
