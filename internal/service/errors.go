package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrOrderNotEditable is returned when a mutation targets a non-draft order.
	ErrOrderNotEditable = errors.New("only draft orders can be edited")

	// ErrProtectedReference is returned when a delete is blocked by dependents.
	ErrProtectedReference = errors.New("record is referenced by existing data")
)

// ValidationError reports a malformed or unresolvable input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidTransitionError reports a lifecycle transition attempted from the
// wrong state.
type InvalidTransitionError struct {
	Message string
}

func (e *InvalidTransitionError) Error() string {
	return e.Message
}

// StockShortage describes one order line that cannot be covered by current
// stock.
type StockShortage struct {
	Product   string `json:"product"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// InsufficientStockError carries the shortage detail for every failing line,
// not just the first one encountered.
type InsufficientStockError struct {
	Details []StockShortage
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d product(s)", len(e.Details))
}
