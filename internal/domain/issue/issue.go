// Package issue records damage, loss and late returns found on a rental.
// An issue that affects the next booking takes the asset out of circulation
// for a few days after the rental ends.
package issue

import (
	"context"
	"errors"
	"strings"
	"time"

	"stagerent/internal/domain/availability"
	"stagerent/internal/domain/catalog"
	"stagerent/internal/domain/shared/daterange"
	"stagerent/internal/domain/shared/events"
	"stagerent/internal/domain/shared/money"
)

var (
	ErrIssueNotFound      = errors.New("issue: not found")
	ErrInvalidType        = errors.New("issue: invalid type")
	ErrInvalidSeverity    = errors.New("issue: invalid severity")
	ErrInvalidStatus      = errors.New("issue: invalid status")
	ErrRentalRequired     = errors.New("issue: rental is required")
	ErrRentalNotFound     = errors.New("issue: rental not found on order")
	ErrResolutionRequired = errors.New("issue: resolution notes are required")
	ErrNegativeAmount     = errors.New("issue: amount must not be negative")
	ErrClosed             = errors.New("issue: already paid")
)

type IssueID string

type Type string

const (
	TypeDamage Type = "damage"
	TypeDelay  Type = "delay"
	TypeLoss   Type = "loss"
)

func (t Type) Valid() bool {
	return t == TypeDamage || t == TypeDelay || t == TypeLoss
}

type Severity string

const (
	SeverityMinor     Severity = "minor"
	SeverityMajor     Severity = "major"
	SeverityTotalLoss Severity = "total_loss"
)

// Valid accepts the empty severity; delays are often reported without one.
func (s Severity) Valid() bool {
	switch s {
	case "", SeverityMinor, SeverityMajor, SeverityTotalLoss:
		return true
	}
	return false
}

type Status string

const (
	StatusDetected    Status = "detected"
	StatusNotified    Status = "notified"
	StatusNegotiating Status = "negotiating"
	StatusResolved    Status = "resolved"
	StatusBilled      Status = "billed"
	StatusPaid        Status = "paid"
)

func Statuses() []Status {
	return []Status{StatusDetected, StatusNotified, StatusNegotiating, StatusResolved, StatusBilled, StatusPaid}
}

func (s Status) Valid() bool {
	for _, known := range Statuses() {
		if s == known {
			return true
		}
	}
	return false
}

// DefaultImpactDays is used when an issue affects the next booking but no
// duration was given.
const DefaultImpactDays = 1

type RentalIssue struct {
	ID        IssueID
	OrderID   string
	RentalID  string
	AssetID   catalog.AssetID
	ProductID catalog.ProductID
	Type      Type
	Severity  Severity
	Status    Status

	ImpactNextBooking bool
	ImpactNotes       string
	ImpactCost        money.Money
	// ImpactRange is the maintenance window after the rental; zero when the
	// issue does not affect the next booking.
	ImpactRange daterange.DateRange
	BlockID     availability.PeriodID

	AdditionalCharge money.Money
	ResolutionNotes  string
	ReportedBy       string
	ReportedAt       time.Time
	UpdatedAt        time.Time
	Version          int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id IssueID) (*RentalIssue, error)
	Save(ctx context.Context, issue *RentalIssue) error
	// List returns every issue when status is empty, newest first.
	List(ctx context.Context, status Status) ([]*RentalIssue, error)
	ListByRental(ctx context.Context, rentalID string) ([]*RentalIssue, error)
}

type ReportParams struct {
	ID                IssueID
	OrderID           string
	RentalID          string
	AssetID           catalog.AssetID
	ProductID         catalog.ProductID
	RentalRange       daterange.DateRange
	Type              Type
	Severity          Severity
	ImpactNextBooking bool
	ImpactDays        int
	ImpactNotes       string
	ImpactCost        money.Money
	AdditionalCharge  money.Money
	ReportedBy        string
	Now               time.Time
}

// Report opens an issue in the detected state.
func Report(p ReportParams) (*RentalIssue, error) {
	if strings.TrimSpace(string(p.ID)) == "" {
		return nil, errors.New("issue: id is required")
	}
	if strings.TrimSpace(p.RentalID) == "" || p.AssetID == "" {
		return nil, ErrRentalRequired
	}
	if !p.Type.Valid() {
		return nil, ErrInvalidType
	}
	if !p.Severity.Valid() {
		return nil, ErrInvalidSeverity
	}
	if p.ImpactCost.IsNegative() || p.AdditionalCharge.IsNegative() {
		return nil, ErrNegativeAmount
	}
	now := p.Now.UTC()
	is := &RentalIssue{
		ID:                p.ID,
		OrderID:           p.OrderID,
		RentalID:          p.RentalID,
		AssetID:           p.AssetID,
		ProductID:         p.ProductID,
		Type:              p.Type,
		Severity:          p.Severity,
		Status:            StatusDetected,
		ImpactNextBooking: p.ImpactNextBooking,
		ImpactNotes:       strings.TrimSpace(p.ImpactNotes),
		ImpactCost:        p.ImpactCost,
		AdditionalCharge:  p.AdditionalCharge,
		ReportedBy:        p.ReportedBy,
		ReportedAt:        now,
		UpdatedAt:         now,
	}
	if p.ImpactNextBooking {
		window, err := ImpactWindow(p.RentalRange, p.ImpactDays)
		if err != nil {
			return nil, err
		}
		is.ImpactRange = window
	}
	is.Record(Reported{
		IssueID:           is.ID,
		OrderID:           is.OrderID,
		AssetID:           string(is.AssetID),
		Type:              is.Type,
		Severity:          is.Severity,
		ImpactNextBooking: is.ImpactNextBooking,
		At:                now,
	})
	return is, nil
}

// ImpactWindow starts the day after the rental ends and lasts days days.
func ImpactWindow(rental daterange.DateRange, days int) (daterange.DateRange, error) {
	if err := rental.Validate(); err != nil {
		return daterange.DateRange{}, err
	}
	if days < 1 {
		days = DefaultImpactDays
	}
	start := rental.End.AddDate(0, 0, 1)
	return daterange.New(start, start.AddDate(0, 0, days-1))
}

// Maintenance builds the block that keeps the asset out of the next booking.
func (is *RentalIssue) Maintenance(id availability.PeriodID, now time.Time) (availability.BlockedPeriod, error) {
	return availability.NewBlockedPeriod(availability.NewPeriodParams{
		ID:        id,
		AssetID:   is.AssetID,
		ProductID: is.ProductID,
		Range:     is.ImpactRange,
		Reason:    availability.ReasonMaintenance,
		Notes:     "issue " + string(is.ID) + ": " + string(is.Type),
		CreatedBy: is.ReportedBy,
		Now:       now,
	})
}

func (is *RentalIssue) UpdateStatus(status Status, notes string, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if is.Status == StatusPaid && status != StatusPaid {
		return ErrClosed
	}
	if status == StatusResolved && strings.TrimSpace(notes) == "" && is.ResolutionNotes == "" {
		return ErrResolutionRequired
	}
	if strings.TrimSpace(notes) != "" {
		is.ResolutionNotes = strings.TrimSpace(notes)
	}
	is.Status = status
	is.UpdatedAt = now.UTC()
	return nil
}

// Bill sets the amount owed by the customer and moves the issue to billed.
func (is *RentalIssue) Bill(amount money.Money, now time.Time) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if is.Status == StatusPaid {
		return ErrClosed
	}
	is.AdditionalCharge = amount
	is.Status = StatusBilled
	is.UpdatedAt = now.UTC()
	return nil
}

func (is *RentalIssue) Resolve(notes string, now time.Time) error {
	if strings.TrimSpace(notes) == "" {
		return ErrResolutionRequired
	}
	return is.UpdateStatus(StatusResolved, notes, now)
}

type Reported struct {
	IssueID           IssueID
	OrderID           string
	AssetID           string
	Type              Type
	Severity          Severity
	ImpactNextBooking bool
	At                time.Time
}

func (e Reported) EventName() string     { return "rental_issue.reported" }
func (e Reported) AggregateID() string   { return string(e.IssueID) }
func (e Reported) OccurredAt() time.Time { return e.At }

// Stats summarises issues for the admin dashboard.
type Stats struct {
	Total             int
	ByType            map[Type]int
	BySeverity        map[Severity]int
	ByStatus          map[Status]int
	AdditionalCharges money.Money
}

func Summarize(currency string, issues []*RentalIssue) (Stats, error) {
	st := Stats{
		Total:             len(issues),
		ByType:            map[Type]int{TypeDamage: 0, TypeDelay: 0, TypeLoss: 0},
		BySeverity:        map[Severity]int{SeverityMinor: 0, SeverityMajor: 0, SeverityTotalLoss: 0},
		ByStatus:          make(map[Status]int, len(Statuses())),
		AdditionalCharges: money.Zero(currency),
	}
	for _, s := range Statuses() {
		st.ByStatus[s] = 0
	}
	for _, is := range issues {
		st.ByType[is.Type]++
		if is.Severity != "" {
			st.BySeverity[is.Severity]++
		}
		st.ByStatus[is.Status]++
		if is.AdditionalCharge.IsZero() {
			continue
		}
		sum, err := st.AdditionalCharges.Add(is.AdditionalCharge)
		if err != nil {
			return Stats{}, err
		}
		st.AdditionalCharges = sum
	}
	return st, nil
}
