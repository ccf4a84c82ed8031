package inventory

import (
	"fmt"

	"silvess-backend/internal/apperr"
)

var (
	ErrRecordNotFound      = apperr.NotFound("inventory record not found")
	ErrDateNotFound        = apperr.NotFound("no inventory found for this date")
	ErrNoActiveIngredients = apperr.NotFound("no active ingredients found")
	ErrNotEditable         = apperr.Rule("inventory record is no longer editable")
	ErrPendingCounts       = apperr.Rule("inventory has items without a physical count")
	ErrInvalidDate         = apperr.Validation("date must be YYYY-MM-DD")
	ErrNegativeCount       = apperr.Validation("physical_quantity cannot be negative")
)

// PendingCountsError blocks closing a date while items are still uncounted.
type PendingCountsError struct {
	Date    string
	Pending int64
}

func (e *PendingCountsError) Error() string {
	return fmt.Sprintf("%d items without a physical count", e.Pending)
}

func (e *PendingCountsError) Unwrap() error { return ErrPendingCounts }

func (e *PendingCountsError) Details() map[string]any {
	return map[string]any{"pending": e.Pending}
}
