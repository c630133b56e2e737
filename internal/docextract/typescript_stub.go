//go:build !cgo

package docextract

import (
	"context"
	"log/slog"
)

// TypeScript is unavailable without cgo.
type TypeScript struct{}

// NewTypeScript returns nil when cgo is not available.
func NewTypeScript(*slog.Logger) *TypeScript {
	return nil
}

// Extract returns nothing when cgo is not available.
func (e *TypeScript) Extract(context.Context, string) []ExtractedDoc {
	return nil
}

// ExtractSource returns nothing when cgo is not available.
func (e *TypeScript) ExtractSource(context.Context, string, []byte) ([]ExtractedDoc, error) {
	return nil, nil
}
