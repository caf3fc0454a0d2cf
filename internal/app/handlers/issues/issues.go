// Package issues lets the back office record what went wrong on a rental.
package issues

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	"stagerent/internal/app/handlers/support"
	"stagerent/internal/app/locks"
	"stagerent/internal/app/middleware"
	"stagerent/internal/app/outbox"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/queries"
	"stagerent/internal/app/uow"
	domainavailability "stagerent/internal/domain/availability"
	domainissue "stagerent/internal/domain/issue"
	domainorder "stagerent/internal/domain/order"
	"stagerent/internal/domain/shared/events"
	"stagerent/internal/domain/shared/money"
)

const (
	reportIssueKey  = "issues.report"
	updateStatusKey = "issues.update_status"
	billIssueKey    = "issues.bill"
	resolveIssueKey = "issues.resolve"

	getIssueKey     = "issues.get"
	listIssuesKey   = "issues.list"
	rentalIssuesKey = "issues.by_rental"
	issueStatsKey   = "issues.stats"
)

// ReportIssueCommand records damage, loss or a late return on one rental of
// an order. Amounts are in the rental's currency.
type ReportIssueCommand struct {
	OrderID           string
	RentalID          string
	Type              string
	Severity          string
	ImpactNextBooking bool
	ImpactDays        int
	ImpactNotes       string
	ImpactCost        int64
	AdditionalCharge  int64
}

func (c ReportIssueCommand) Key() string          { return reportIssueKey }
func (c ReportIssueCommand) RequiredRole() string { return principal.RoleAdmin }

func (c ReportIssueCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" || strings.TrimSpace(c.RentalID) == "" {
		return domainissue.ErrRentalRequired
	}
	if !domainissue.Type(c.Type).Valid() {
		return fmt.Errorf("%w: %q", domainissue.ErrInvalidType, c.Type)
	}
	if !domainissue.Severity(c.Severity).Valid() {
		return fmt.Errorf("%w: %q", domainissue.ErrInvalidSeverity, c.Severity)
	}
	if c.ImpactCost < 0 || c.AdditionalCharge < 0 {
		return domainissue.ErrNegativeAmount
	}
	return nil
}

// LockScope covers the rental's product because the maintenance block takes
// the asset away from checkouts.
func (c ReportIssueCommand) LockScope(ctx context.Context, unit uow.UnitOfWork) ([]string, error) {
	o, err := unit.Orders().ByID(ctx, domainorder.OrderID(c.OrderID))
	if err != nil {
		return nil, err
	}
	return locks.ProductKeys(o.ProductIDs()...), nil
}

type UpdateIssueStatusCommand struct {
	IssueID string
	Status  string
	Notes   string
}

func (c UpdateIssueStatusCommand) Key() string          { return updateStatusKey }
func (c UpdateIssueStatusCommand) RequiredRole() string { return principal.RoleAdmin }

type BillIssueCommand struct {
	IssueID string
	Amount  int64
}

func (c BillIssueCommand) Key() string          { return billIssueKey }
func (c BillIssueCommand) RequiredRole() string { return principal.RoleAdmin }

type ResolveIssueCommand struct {
	IssueID string
	Notes   string
}

func (c ResolveIssueCommand) Key() string          { return resolveIssueKey }
func (c ResolveIssueCommand) RequiredRole() string { return principal.RoleAdmin }

func (c ResolveIssueCommand) Validate() error {
	if strings.TrimSpace(c.Notes) == "" {
		return domainissue.ErrResolutionRequired
	}
	return nil
}

type Handlers struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	IDs     support.IDs
	Logger  *slog.Logger
}

func (h *Handlers) Report(ctx context.Context, cmd ReportIssueCommand) (dto.IssueReport, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.IssueReport{}, err
	}
	o, err := unit.Orders().ByID(ctx, domainorder.OrderID(cmd.OrderID))
	if err != nil {
		return dto.IssueReport{}, err
	}
	if err := locks.Covered(ctx, o.ProductIDs()...); err != nil {
		return dto.IssueReport{}, err
	}
	rental, ok := findRental(o, cmd.RentalID)
	if !ok {
		return dto.IssueReport{}, domainissue.ErrRentalNotFound
	}
	currency := rental.DailyRate.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	caller, _ := principal.FromContext(ctx)
	now := h.Clock.Now()
	is, err := domainissue.Report(domainissue.ReportParams{
		ID:                domainissue.IssueID(h.IDs.New()),
		OrderID:           string(o.ID),
		RentalID:          rental.ID,
		AssetID:           rental.AssetID,
		ProductID:         rental.ProductID,
		RentalRange:       rental.Range,
		Type:              domainissue.Type(cmd.Type),
		Severity:          domainissue.Severity(cmd.Severity),
		ImpactNextBooking: cmd.ImpactNextBooking,
		ImpactDays:        cmd.ImpactDays,
		ImpactNotes:       cmd.ImpactNotes,
		ImpactCost:        money.Money{Amount: cmd.ImpactCost, Currency: currency},
		AdditionalCharge:  money.Money{Amount: cmd.AdditionalCharge, Currency: currency},
		ReportedBy:        caller.Actor(),
		Now:               now,
	})
	if err != nil {
		return dto.IssueReport{}, err
	}

	affected := []string{}
	var blockEvents []events.DomainEvent
	if is.ImpactNextBooking {
		block, err := is.Maintenance(domainavailability.PeriodID(h.IDs.New()), now)
		if err != nil {
			return dto.IssueReport{}, err
		}
		overlapping, err := unit.Availability().ListFor(ctx, string(rental.AssetID), is.ImpactRange)
		if err != nil {
			return dto.IssueReport{}, err
		}
		affected = affectedOrders(overlapping, string(o.ID))
		stored, err := unit.Availability().Add(ctx, block)
		if err != nil {
			return dto.IssueReport{}, err
		}
		is.BlockID = stored.ID
		blockEvents = append(blockEvents, domainavailability.BlockedEvent(stored, now))
	}
	if err := unit.Issues().Save(ctx, is); err != nil {
		return dto.IssueReport{}, err
	}
	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, is); err != nil {
		return dto.IssueReport{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, blockEvents); err != nil {
		return dto.IssueReport{}, err
	}
	h.logger().Info("rental issue reported", "issue_id", is.ID, "order_id", o.ID, "asset_id", is.AssetID, "type", is.Type, "impact_next_booking", is.ImpactNextBooking, "affected_orders", len(affected))
	return dto.IssueReport{Issue: dto.MapIssue(is), AffectedOrders: affected}, nil
}

func (h *Handlers) UpdateStatus(ctx context.Context, cmd UpdateIssueStatusCommand) (dto.RentalIssue, error) {
	return h.modify(ctx, cmd.IssueID, func(is *domainissue.RentalIssue) error {
		return is.UpdateStatus(domainissue.Status(strings.TrimSpace(cmd.Status)), cmd.Notes, h.Clock.Now())
	})
}

func (h *Handlers) Bill(ctx context.Context, cmd BillIssueCommand) (dto.RentalIssue, error) {
	return h.modify(ctx, cmd.IssueID, func(is *domainissue.RentalIssue) error {
		currency := is.AdditionalCharge.Currency
		if currency == "" {
			currency = money.DefaultCurrency
		}
		return is.Bill(money.Money{Amount: cmd.Amount, Currency: currency}, h.Clock.Now())
	})
}

func (h *Handlers) Resolve(ctx context.Context, cmd ResolveIssueCommand) (dto.RentalIssue, error) {
	return h.modify(ctx, cmd.IssueID, func(is *domainissue.RentalIssue) error {
		return is.Resolve(cmd.Notes, h.Clock.Now())
	})
}

func (h *Handlers) modify(ctx context.Context, id string, change func(*domainissue.RentalIssue) error) (dto.RentalIssue, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.RentalIssue{}, err
	}
	is, err := unit.Issues().ByID(ctx, domainissue.IssueID(id))
	if err != nil {
		return dto.RentalIssue{}, err
	}
	if err := change(is); err != nil {
		return dto.RentalIssue{}, err
	}
	if err := unit.Issues().Save(ctx, is); err != nil {
		return dto.RentalIssue{}, err
	}
	h.logger().Info("rental issue updated", "issue_id", is.ID, "status", is.Status)
	return dto.MapIssue(is), nil
}

func (h *Handlers) Register(bus *commands.InMemoryBus) {
	commands.RegisterHandler(bus, reportIssueKey, commands.HandlerFunc[ReportIssueCommand, dto.IssueReport](h.Report))
	commands.RegisterHandler(bus, updateStatusKey, commands.HandlerFunc[UpdateIssueStatusCommand, dto.RentalIssue](h.UpdateStatus))
	commands.RegisterHandler(bus, billIssueKey, commands.HandlerFunc[BillIssueCommand, dto.RentalIssue](h.Bill))
	commands.RegisterHandler(bus, resolveIssueKey, commands.HandlerFunc[ResolveIssueCommand, dto.RentalIssue](h.Resolve))
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func findRental(o *domainorder.Order, rentalID string) (domainorder.Rental, bool) {
	for _, r := range o.Rentals {
		if r.ID == rentalID {
			return r, true
		}
	}
	return domainorder.Rental{}, false
}

// affectedOrders lists, once each, other orders holding the asset in the
// maintenance window.
func affectedOrders(periods []domainavailability.BlockedPeriod, self string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range periods {
		if !p.IsHold() || p.OrderID == self || seen[p.OrderID] {
			continue
		}
		seen[p.OrderID] = true
		out = append(out, p.OrderID)
	}
	return out
}

type GetIssueQuery struct {
	IssueID string
}

func (q GetIssueQuery) Key() string          { return getIssueKey }
func (q GetIssueQuery) RequiredRole() string { return principal.RoleAdmin }

// ListIssuesQuery lists every issue when Status is empty.
type ListIssuesQuery struct {
	Status string
}

func (q ListIssuesQuery) Key() string          { return listIssuesKey }
func (q ListIssuesQuery) RequiredRole() string { return principal.RoleAdmin }

func (q ListIssuesQuery) Validate() error {
	if s := strings.TrimSpace(q.Status); s != "" && !domainissue.Status(s).Valid() {
		return fmt.Errorf("%w: %q", domainissue.ErrInvalidStatus, s)
	}
	return nil
}

type RentalIssuesQuery struct {
	RentalID string
}

func (q RentalIssuesQuery) Key() string          { return rentalIssuesKey }
func (q RentalIssuesQuery) RequiredRole() string { return principal.RoleAdmin }

type IssueStatsQuery struct{}

func (q IssueStatsQuery) Key() string          { return issueStatsKey }
func (q IssueStatsQuery) RequiredRole() string { return principal.RoleAdmin }

type QueryHandlers struct {
	UoWFactory uow.UoWFactory
}

func (h *QueryHandlers) Get(ctx context.Context, q GetIssueQuery) (dto.RentalIssue, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.RentalIssue{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	is, err := unit.Issues().ByID(execCtx, domainissue.IssueID(q.IssueID))
	if err != nil {
		return dto.RentalIssue{}, err
	}
	return dto.MapIssue(is), nil
}

func (h *QueryHandlers) List(ctx context.Context, q ListIssuesQuery) (dto.IssueCollection, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.IssueCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	list, err := unit.Issues().List(execCtx, domainissue.Status(strings.TrimSpace(q.Status)))
	if err != nil {
		return dto.IssueCollection{}, err
	}
	return dto.MapIssues(list), nil
}

func (h *QueryHandlers) ByRental(ctx context.Context, q RentalIssuesQuery) (dto.IssueCollection, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.IssueCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	list, err := unit.Issues().ListByRental(execCtx, q.RentalID)
	if err != nil {
		return dto.IssueCollection{}, err
	}
	return dto.MapIssues(list), nil
}

func (h *QueryHandlers) Stats(ctx context.Context, _ IssueStatsQuery) (dto.IssueStats, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.IssueStats{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	list, err := unit.Issues().List(execCtx, "")
	if err != nil {
		return dto.IssueStats{}, err
	}
	st, err := domainissue.Summarize(money.DefaultCurrency, list)
	if err != nil {
		return dto.IssueStats{}, err
	}
	return dto.MapIssueStats(st), nil
}

func (h *QueryHandlers) Register(bus *queries.InMemoryBus) {
	queries.RegisterHandler(bus, getIssueKey, queries.HandlerFunc[GetIssueQuery, dto.RentalIssue](h.Get))
	queries.RegisterHandler(bus, listIssuesKey, queries.HandlerFunc[ListIssuesQuery, dto.IssueCollection](h.List))
	queries.RegisterHandler(bus, rentalIssuesKey, queries.HandlerFunc[RentalIssuesQuery, dto.IssueCollection](h.ByRental))
	queries.RegisterHandler(bus, issueStatsKey, queries.HandlerFunc[IssueStatsQuery, dto.IssueStats](h.Stats))
}

var (
	_ middleware.LockScoped     = ReportIssueCommand{}
	_ middleware.SelfValidating = ReportIssueCommand{}
	_ middleware.SelfValidating = ResolveIssueCommand{}
	_ middleware.SelfValidating = ListIssuesQuery{}
)
