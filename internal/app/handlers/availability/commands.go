package availability

import (
	"context"
	"log/slog"
	"strings"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	"stagerent/internal/app/handlers/support"
	"stagerent/internal/app/outbox"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/uow"
	domainavailability "stagerent/internal/domain/availability"
	domaincatalog "stagerent/internal/domain/catalog"
	"stagerent/internal/domain/shared/daterange"
	"stagerent/internal/domain/shared/events"
)

const (
	blockPeriodKey   = "availability.block"
	unblockPeriodKey = "availability.unblock"
	updatePeriodKey  = "availability.update_metadata"
)

// BlockPeriodCommand takes an asset, or a whole product when AssetID is
// empty, out of circulation for a range.
type BlockPeriodCommand struct {
	AssetID   string
	ProductID string
	Range     daterange.DateRange
	Reason    string
	Notes     string
}

func (c BlockPeriodCommand) Key() string          { return blockPeriodKey }
func (c BlockPeriodCommand) RequiredRole() string { return principal.RoleAdmin }

func (c BlockPeriodCommand) Validate() error {
	if strings.TrimSpace(c.AssetID) == "" && strings.TrimSpace(c.ProductID) == "" {
		return domainavailability.ErrSubjectRequired
	}
	if domainavailability.Reason(c.Reason) == domainavailability.ReasonOrder {
		return domainavailability.ErrHoldManaged
	}
	return c.Range.Validate()
}

type UnblockPeriodCommand struct {
	PeriodID string
}

func (c UnblockPeriodCommand) Key() string          { return unblockPeriodKey }
func (c UnblockPeriodCommand) RequiredRole() string { return principal.RoleAdmin }

type UpdatePeriodCommand struct {
	PeriodID string
	Notes    string
	Reason   string
}

func (c UpdatePeriodCommand) Key() string          { return updatePeriodKey }
func (c UpdatePeriodCommand) RequiredRole() string { return principal.RoleAdmin }

type Handlers struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	IDs     support.IDs
	Logger  *slog.Logger
}

func (h *Handlers) Block(ctx context.Context, cmd BlockPeriodCommand) (dto.BlockedPeriod, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.BlockedPeriod{}, err
	}
	productID := domaincatalog.ProductID(strings.TrimSpace(cmd.ProductID))
	assetID := domaincatalog.AssetID(strings.TrimSpace(cmd.AssetID))
	if assetID != "" {
		asset, err := unit.Assets().ByID(ctx, assetID)
		if err != nil {
			return dto.BlockedPeriod{}, err
		}
		productID = asset.ProductID
	} else if _, err := unit.Products().ByID(ctx, productID); err != nil {
		return dto.BlockedPeriod{}, err
	}
	now := h.Clock.Now()
	actor, _ := principal.FromContext(ctx)
	period, err := domainavailability.NewBlockedPeriod(domainavailability.NewPeriodParams{
		ID:        domainavailability.PeriodID(h.IDs.New()),
		AssetID:   assetID,
		ProductID: productID,
		Range:     cmd.Range,
		Reason:    domainavailability.Reason(strings.ToLower(strings.TrimSpace(cmd.Reason))),
		Notes:     cmd.Notes,
		CreatedBy: actor.Actor(),
		Now:       now,
	})
	if err != nil {
		return dto.BlockedPeriod{}, err
	}
	stored, err := unit.Availability().Add(ctx, period)
	if err != nil {
		return dto.BlockedPeriod{}, err
	}
	evs := []events.DomainEvent{domainavailability.BlockedEvent(stored, now)}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, evs); err != nil {
		return dto.BlockedPeriod{}, err
	}
	h.logger().Info("period blocked", "period_id", stored.ID, "asset_id", stored.AssetID, "product_id", stored.ProductID, "range", stored.Range.String(), "reason", stored.Reason)
	return dto.MapBlockedPeriod(stored), nil
}

func (h *Handlers) Unblock(ctx context.Context, cmd UnblockPeriodCommand) (dto.BlockedPeriod, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.BlockedPeriod{}, err
	}
	id := domainavailability.PeriodID(cmd.PeriodID)
	period, err := unit.Availability().ByID(ctx, id)
	if err != nil {
		return dto.BlockedPeriod{}, err
	}
	if period.IsHold() {
		return dto.BlockedPeriod{}, domainavailability.ErrHoldManaged
	}
	if err := unit.Availability().Remove(ctx, id); err != nil {
		return dto.BlockedPeriod{}, err
	}
	evs := []events.DomainEvent{domainavailability.ReleasedEvent(period, h.Clock.Now())}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, evs); err != nil {
		return dto.BlockedPeriod{}, err
	}
	h.logger().Info("period unblocked", "period_id", period.ID)
	return dto.MapBlockedPeriod(period), nil
}

func (h *Handlers) UpdateMetadata(ctx context.Context, cmd UpdatePeriodCommand) (dto.BlockedPeriod, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.BlockedPeriod{}, err
	}
	reason := domainavailability.Reason(strings.ToLower(strings.TrimSpace(cmd.Reason)))
	updated, err := unit.Availability().UpdateMetadata(ctx, domainavailability.PeriodID(cmd.PeriodID), strings.TrimSpace(cmd.Notes), reason)
	if err != nil {
		return dto.BlockedPeriod{}, err
	}
	return dto.MapBlockedPeriod(updated), nil
}

func (h *Handlers) Register(bus *commands.InMemoryBus) {
	commands.RegisterHandler(bus, blockPeriodKey, commands.HandlerFunc[BlockPeriodCommand, dto.BlockedPeriod](h.Block))
	commands.RegisterHandler(bus, unblockPeriodKey, commands.HandlerFunc[UnblockPeriodCommand, dto.BlockedPeriod](h.Unblock))
	commands.RegisterHandler(bus, updatePeriodKey, commands.HandlerFunc[UpdatePeriodCommand, dto.BlockedPeriod](h.UpdateMetadata))
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
