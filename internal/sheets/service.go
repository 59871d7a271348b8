package sheets

import (
	"context"
	"errors"
	"fmt"
)

// Typed failures surfaced to callers. Transient errors are not retried at
// this layer; retry policy belongs to the caller (e.g. the message sender).
var (
	ErrNotConnected  = errors.New("sheets: not connected")
	ErrSheetNotFound = errors.New("sheets: sheet not found")
)

// Service is the raw spreadsheet access layer. Store layers caching, rate
// limiting and structure detection on top of it. Tests supply an in-memory
// implementation.
type Service interface {
	// ListSheets returns the titles of all sheets in the spreadsheet.
	ListSheets(ctx context.Context) ([]string, error)

	// GetValues returns the full cell grid of a sheet. Rows may be ragged.
	GetValues(ctx context.Context, sheet string) ([][]string, error)

	// UpdateCell writes a single cell. Row and column are 1-based.
	UpdateCell(ctx context.Context, sheet string, row, col int, value string) error

	// InsertRow inserts values as a new row at the 1-based position,
	// shifting existing rows down.
	InsertRow(ctx context.Context, sheet string, row int, values []string) error

	// AppendRow appends values after the last non-empty row.
	AppendRow(ctx context.Context, sheet string, values []string) error

	// DeleteRow removes the 1-based row, shifting rows up.
	DeleteRow(ctx context.Context, sheet string, row int) error

	// AddSheet creates a new empty sheet with the given title.
	AddSheet(ctx context.Context, title string) error
}

// ConnectionError wraps connectivity and auth failures so callers can tell
// them apart from not-found conditions.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("sheets: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
