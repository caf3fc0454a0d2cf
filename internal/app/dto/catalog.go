package dto

import (
	"time"

	"stagerent/internal/domain/catalog"
)

type Product struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category,omitempty"`
	DailyRate  MoneyDTO  `json:"daily_rate"`
	BufferDays int       `json:"buffer_days"`
	CreatedAt  time.Time `json:"created_at"`
	Assets     []Asset   `json:"assets,omitempty"`
}

type Asset struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Code      string    `json:"code"`
	Status    string    `json:"status"`
	Condition string    `json:"condition"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ProductCollection struct {
	Items []Product `json:"items"`
}

func MapProduct(p *catalog.Product, assets []*catalog.Asset) Product {
	out := Product{
		ID:         string(p.ID),
		Title:      p.Title,
		Category:   p.Category,
		DailyRate:  MapMoney(p.DailyRate),
		BufferDays: p.BufferDays,
		CreatedAt:  p.CreatedAt,
	}
	for _, a := range assets {
		out.Assets = append(out.Assets, MapAsset(a))
	}
	return out
}

func MapAsset(a *catalog.Asset) Asset {
	return Asset{
		ID:        string(a.ID),
		ProductID: string(a.ProductID),
		Code:      a.Code,
		Status:    string(a.Status),
		Condition: string(a.Condition),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
	}
}
