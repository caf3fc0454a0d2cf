package dto

import (
	"time"

	"stagerent/internal/domain/issue"
)

type RentalIssue struct {
	ID                string    `json:"id"`
	OrderID           string    `json:"order_id"`
	RentalID          string    `json:"rental_id"`
	AssetID           string    `json:"asset_id"`
	ProductID         string    `json:"product_id"`
	Type              string    `json:"type"`
	Severity          string    `json:"severity,omitempty"`
	Status            string    `json:"status"`
	ImpactNextBooking bool      `json:"impact_next_booking"`
	ImpactNotes       string    `json:"impact_notes,omitempty"`
	ImpactCost        MoneyDTO  `json:"impact_cost"`
	ImpactRange       *RangeDTO `json:"impact_range,omitempty"`
	BlockID           string    `json:"block_id,omitempty"`
	AdditionalCharge  MoneyDTO  `json:"additional_charge"`
	ResolutionNotes   string    `json:"resolution_notes,omitempty"`
	ReportedBy        string    `json:"reported_by"`
	ReportedAt        time.Time `json:"reported_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IssueReport is the result of reporting an issue. AffectedOrders lists
// orders already holding the asset inside the maintenance window.
type IssueReport struct {
	Issue          RentalIssue `json:"issue"`
	AffectedOrders []string    `json:"affected_orders"`
}

type IssueCollection struct {
	Items []RentalIssue `json:"items"`
}

type IssueStats struct {
	Total             int            `json:"total"`
	ByType            map[string]int `json:"by_type"`
	BySeverity        map[string]int `json:"by_severity"`
	ByStatus          map[string]int `json:"by_status"`
	AdditionalCharges MoneyDTO       `json:"additional_charges"`
}

func MapIssue(is *issue.RentalIssue) RentalIssue {
	out := RentalIssue{
		ID:                string(is.ID),
		OrderID:           is.OrderID,
		RentalID:          is.RentalID,
		AssetID:           string(is.AssetID),
		ProductID:         string(is.ProductID),
		Type:              string(is.Type),
		Severity:          string(is.Severity),
		Status:            string(is.Status),
		ImpactNextBooking: is.ImpactNextBooking,
		ImpactNotes:       is.ImpactNotes,
		ImpactCost:        MapMoney(is.ImpactCost),
		BlockID:           string(is.BlockID),
		AdditionalCharge:  MapMoney(is.AdditionalCharge),
		ResolutionNotes:   is.ResolutionNotes,
		ReportedBy:        is.ReportedBy,
		ReportedAt:        is.ReportedAt,
		UpdatedAt:         is.UpdatedAt,
	}
	if !is.ImpactRange.Start.IsZero() {
		r := MapRange(is.ImpactRange)
		out.ImpactRange = &r
	}
	return out
}

func MapIssues(issues []*issue.RentalIssue) IssueCollection {
	out := IssueCollection{Items: make([]RentalIssue, 0, len(issues))}
	for _, is := range issues {
		out.Items = append(out.Items, MapIssue(is))
	}
	return out
}

func MapIssueStats(st issue.Stats) IssueStats {
	out := IssueStats{
		Total:             st.Total,
		ByType:            make(map[string]int, len(st.ByType)),
		BySeverity:        make(map[string]int, len(st.BySeverity)),
		ByStatus:          make(map[string]int, len(st.ByStatus)),
		AdditionalCharges: MapMoney(st.AdditionalCharges),
	}
	for k, v := range st.ByType {
		out.ByType[string(k)] = v
	}
	for k, v := range st.BySeverity {
		out.BySeverity[string(k)] = v
	}
	for k, v := range st.ByStatus {
		out.ByStatus[string(k)] = v
	}
	return out
}
