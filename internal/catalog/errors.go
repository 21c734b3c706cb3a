package catalog

import (
	"errors"
	"fmt"

	"pokesprite/internal/failure"
)

var ErrNotFound = errors.New("catalog: not found")

type CatalogErrorCause string

const (
	ErrCauseUpstream CatalogErrorCause = "upstream failure"
	ErrCauseDecode   CatalogErrorCause = "invalid response"
	ErrCauseNoSprite CatalogErrorCause = "no sprite"
)

type CatalogError struct {
	Op    string
	Cause CatalogErrorCause
	Err   error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog error: %s: %s: %v", e.Op, e.Cause, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Severity is always recoverable: a catalog miss never stops the service.
func (e *CatalogError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
