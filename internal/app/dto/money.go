package dto

import (
	"time"

	"stagerent/internal/domain/shared/daterange"
	"stagerent/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

type RangeDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

func MapRange(r daterange.DateRange) RangeDTO {
	return RangeDTO{
		Start: r.Start.Format(daterange.DayLayout),
		End:   r.End.Format(daterange.DayLayout),
		Days:  r.Days(),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
