package dto

import (
	"time"

	"stagerent/internal/domain/availability"
)

type BlockedPeriod struct {
	ID        string    `json:"id"`
	AssetID   string    `json:"asset_id,omitempty"`
	ProductID string    `json:"product_id,omitempty"`
	Range     RangeDTO  `json:"range"`
	Reason    string    `json:"reason"`
	OrderID   string    `json:"order_id,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Calendar struct {
	Subject string          `json:"subject"`
	Window  RangeDTO        `json:"window"`
	Blocked []BlockedPeriod `json:"blocked"`
}

// ProductAvailability answers "how many units of a product are free".
type ProductAvailability struct {
	ProductID string   `json:"product_id"`
	Range     RangeDTO `json:"range"`
	Available bool     `json:"available"`
	Count     int      `json:"count"`
	AssetIDs  []string `json:"asset_ids"`
}

type AssetAvailability struct {
	AssetID   string   `json:"asset_id"`
	Range     RangeDTO `json:"range"`
	Available bool     `json:"available"`
}

func MapBlockedPeriod(p availability.BlockedPeriod) BlockedPeriod {
	return BlockedPeriod{
		ID:        string(p.ID),
		AssetID:   string(p.AssetID),
		ProductID: string(p.ProductID),
		Range:     MapRange(p.Range),
		Reason:    string(p.Reason),
		OrderID:   p.OrderID,
		Notes:     p.Notes,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
	}
}

func MapBlockedPeriods(periods []availability.BlockedPeriod) []BlockedPeriod {
	out := make([]BlockedPeriod, 0, len(periods))
	for _, p := range periods {
		out = append(out, MapBlockedPeriod(p))
	}
	return out
}
