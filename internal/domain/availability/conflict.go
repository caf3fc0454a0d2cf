package availability

import (
	"errors"
	"fmt"
	"strings"

	"stagerent/internal/domain/catalog"
	"stagerent/internal/domain/shared/daterange"
)

var ErrAvailabilityConflict = errors.New("availability: requested quantity exceeds availability")

// ConflictItem describes one line that could not be satisfied.
type ConflictItem struct {
	ItemID    string
	ProductID catalog.ProductID
	Range     daterange.DateRange
	Requested int
	Available int
}

// ConflictError lists every offending line of a rejected checkout.
type ConflictError struct {
	Items []ConflictItem
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, fmt.Sprintf("%s %s requested=%d available=%d", item.ProductID, item.Range, item.Requested, item.Available))
	}
	return ErrAvailabilityConflict.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrAvailabilityConflict
}
