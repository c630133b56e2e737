// Package apperr holds sentinel errors shared by the service, API and MCP layers.
package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidUUID = errors.New("invalid uuid")
	ErrUnsupported = errors.New("unsupported file type")
)
