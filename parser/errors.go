package parser

import (
	"errors"
	"fmt"
)

// ErrTableNotFound indicates the page has no element matching the table selector.
var ErrTableNotFound = errors.New("grades table not found")

// ErrNoGrades indicates the table is present but holds no grade rows.
var ErrNoGrades = errors.New("grades table has no grade rows")

// ParseError reports markup that does not have the expected table structure.
type ParseError struct {
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Errorf("parse %q: %w", e.Selector, e.Err).Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
