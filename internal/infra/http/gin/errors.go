package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stagerent/internal/app/dto"
	"stagerent/internal/app/handlers/checkout"
	ordersapp "stagerent/internal/app/handlers/orders"
	"stagerent/internal/app/locks"
	"stagerent/internal/app/middleware"
	"stagerent/internal/app/uow"
	"stagerent/internal/domain/availability"
	"stagerent/internal/domain/cart"
	"stagerent/internal/domain/catalog"
	"stagerent/internal/domain/issue"
	"stagerent/internal/domain/order"
	"stagerent/internal/domain/pricing"
	"stagerent/internal/domain/shared/daterange"
	"stagerent/internal/domain/shared/money"
)

type errorStatus struct {
	err    error
	status int
}

// statusTable is checked in order; the first match wins.
var statusTable = []errorStatus{
	{middleware.ErrUnauthenticated, http.StatusUnauthorized},
	{middleware.ErrForbidden, http.StatusForbidden},
	{order.ErrNotOwner, http.StatusForbidden},
	{availability.ErrHoldManaged, http.StatusForbidden},

	{order.ErrOrderNotFound, http.StatusNotFound},
	{cart.ErrCartNotFound, http.StatusNotFound},
	{cart.ErrItemNotFound, http.StatusNotFound},
	{catalog.ErrProductNotFound, http.StatusNotFound},
	{catalog.ErrAssetNotFound, http.StatusNotFound},
	{availability.ErrPeriodNotFound, http.StatusNotFound},
	{issue.ErrIssueNotFound, http.StatusNotFound},
	{issue.ErrRentalNotFound, http.StatusNotFound},

	{availability.ErrAvailabilityConflict, http.StatusConflict},
	{order.ErrIllegalTransition, http.StatusConflict},
	{order.ErrAlreadyInState, http.StatusConflict},
	{availability.ErrReasonImmutable, http.StatusConflict},
	{catalog.ErrAssetCodeTaken, http.StatusConflict},
	{catalog.ErrAssetRetired, http.StatusConflict},
	{locks.ErrScopeChanged, http.StatusConflict},
	{locks.ErrLockTimeout, http.StatusConflict},
	{uow.ErrConcurrentUpdate, http.StatusConflict},
	{issue.ErrClosed, http.StatusConflict},

	{daterange.ErrInvalidRange, http.StatusBadRequest},
	{daterange.ErrInvalidDay, http.StatusBadRequest},
	{cart.ErrQuantity, http.StatusBadRequest},
	{cart.ErrEmpty, http.StatusBadRequest},
	{cart.ErrProductNeeded, http.StatusBadRequest},
	{cart.ErrUserRequired, http.StatusBadRequest},
	{order.ErrReasonRequired, http.StatusBadRequest},
	{order.ErrUnknownAction, http.StatusBadRequest},
	{order.ErrNoRentals, http.StatusBadRequest},
	{pricing.ErrDeliveryMethod, http.StatusBadRequest},
	{pricing.ErrQuantity, http.StatusBadRequest},
	{checkout.ErrCartRequired, http.StatusBadRequest},
	{ordersapp.ErrUnknownStatus, http.StatusBadRequest},
	{availability.ErrSubjectRequired, http.StatusBadRequest},
	{availability.ErrInvalidReason, http.StatusBadRequest},
	{availability.ErrOrderRequired, http.StatusBadRequest},
	{catalog.ErrTitleRequired, http.StatusBadRequest},
	{catalog.ErrDailyRate, http.StatusBadRequest},
	{catalog.ErrBufferDays, http.StatusBadRequest},
	{catalog.ErrProductIDMissing, http.StatusBadRequest},
	{catalog.ErrAssetCodeRequired, http.StatusBadRequest},
	{catalog.ErrInvalidStatus, http.StatusBadRequest},
	{catalog.ErrInvalidCondition, http.StatusBadRequest},
	{issue.ErrInvalidType, http.StatusBadRequest},
	{issue.ErrInvalidSeverity, http.StatusBadRequest},
	{issue.ErrInvalidStatus, http.StatusBadRequest},
	{issue.ErrRentalRequired, http.StatusBadRequest},
	{issue.ErrResolutionRequired, http.StatusBadRequest},
	{issue.ErrNegativeAmount, http.StatusBadRequest},
	{money.ErrInvalidCurrency, http.StatusBadRequest},
	{money.ErrNegativeAmount, http.StatusBadRequest},
}

func statusFor(err error) int {
	for _, entry := range statusTable {
		if errors.Is(err, entry.err) {
			return entry.status
		}
	}
	return http.StatusInternalServerError
}

type conflictLine struct {
	ItemID    string       `json:"item_id,omitempty"`
	ProductID string       `json:"product_id"`
	Range     dto.RangeDTO `json:"range"`
	Requested int          `json:"requested"`
	Available int          `json:"available"`
}

// writeError renders err with its mapped status. Availability conflicts also
// list every unsatisfiable line so the client can fix the whole cart at once.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	var conflict *availability.ConflictError
	if errors.As(err, &conflict) {
		lines := make([]conflictLine, 0, len(conflict.Items))
		for _, item := range conflict.Items {
			lines = append(lines, conflictLine{
				ItemID:    item.ItemID,
				ProductID: string(item.ProductID),
				Range:     dto.MapRange(item.Range),
				Requested: item.Requested,
				Available: item.Available,
			})
		}
		body["conflicts"] = lines
	}
	if status >= http.StatusInternalServerError {
		body["error"] = "internal error"
		_ = c.Error(err)
	}
	c.JSON(status, body)
}
