package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	"stagerent/internal/app/handlers/support"
	"stagerent/internal/app/middleware"
	"stagerent/internal/app/outbox"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/uow"
	domaincatalog "stagerent/internal/domain/catalog"
	"stagerent/internal/domain/shared/money"
)

const (
	registerProductKey = "catalog.product.register"
	registerAssetKey   = "catalog.asset.register"
	setAssetStatusKey  = "catalog.asset.set_status"
)

type RegisterProductCommand struct {
	ProductID  string
	Title      string
	Category   string
	DailyRate  int64
	Currency   string
	BufferDays *int
}

func (c RegisterProductCommand) Key() string          { return registerProductKey }
func (c RegisterProductCommand) RequiredRole() string { return principal.RoleAdmin }

func (c RegisterProductCommand) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return domaincatalog.ErrTitleRequired
	}
	if c.DailyRate < 0 {
		return domaincatalog.ErrDailyRate
	}
	return nil
}

type RegisterAssetCommand struct {
	AssetID   string
	ProductID string
	Code      string
	Condition string
	Notes     string
}

func (c RegisterAssetCommand) Key() string          { return registerAssetKey }
func (c RegisterAssetCommand) RequiredRole() string { return principal.RoleAdmin }

func (c RegisterAssetCommand) Validate() error {
	if strings.TrimSpace(c.ProductID) == "" {
		return domaincatalog.ErrProductIDMissing
	}
	if strings.TrimSpace(c.Code) == "" {
		return domaincatalog.ErrAssetCodeRequired
	}
	return nil
}

type SetAssetStatusCommand struct {
	AssetID string
	Status  string
}

func (c SetAssetStatusCommand) Key() string          { return setAssetStatusKey }
func (c SetAssetStatusCommand) RequiredRole() string { return principal.RoleAdmin }

// Handlers groups the catalog write side; each method is registered on the
// bus under its command key.
type Handlers struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	IDs     support.IDs
	Logger  *slog.Logger
}

func (h *Handlers) RegisterProduct(ctx context.Context, cmd RegisterProductCommand) (dto.Product, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.Product{}, err
	}
	currency := cmd.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	rate, err := money.New(cmd.DailyRate, currency)
	if err != nil {
		return dto.Product{}, err
	}
	id := strings.TrimSpace(cmd.ProductID)
	if id == "" {
		id = h.IDs.New()
	}
	product, err := domaincatalog.NewProduct(domaincatalog.CreateProductParams{
		ID:         domaincatalog.ProductID(id),
		Title:      cmd.Title,
		Category:   cmd.Category,
		DailyRate:  rate,
		BufferDays: cmd.BufferDays,
		Now:        h.Clock.Now(),
	})
	if err != nil {
		return dto.Product{}, err
	}
	if err := unit.Products().Save(ctx, product); err != nil {
		return dto.Product{}, err
	}
	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, product); err != nil {
		return dto.Product{}, err
	}
	h.logger().Info("product registered", "product_id", product.ID, "daily_rate", product.DailyRate.Amount)
	return dto.MapProduct(product, nil), nil
}

func (h *Handlers) RegisterAsset(ctx context.Context, cmd RegisterAssetCommand) (dto.Asset, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.Asset{}, err
	}
	productID := domaincatalog.ProductID(strings.TrimSpace(cmd.ProductID))
	if _, err := unit.Products().ByID(ctx, productID); err != nil {
		return dto.Asset{}, err
	}
	siblings, err := unit.Assets().ListByProduct(ctx, productID)
	if err != nil {
		return dto.Asset{}, err
	}
	code := strings.TrimSpace(cmd.Code)
	for _, s := range siblings {
		if strings.EqualFold(s.Code, code) {
			return dto.Asset{}, domaincatalog.ErrAssetCodeTaken
		}
	}
	id := strings.TrimSpace(cmd.AssetID)
	if id == "" {
		id = h.IDs.New()
	}
	asset, err := domaincatalog.NewAsset(domaincatalog.CreateAssetParams{
		ID:        domaincatalog.AssetID(id),
		ProductID: productID,
		Code:      code,
		Condition: domaincatalog.ConditionGrade(strings.ToUpper(strings.TrimSpace(cmd.Condition))),
		Notes:     cmd.Notes,
		Now:       h.Clock.Now(),
	})
	if err != nil {
		return dto.Asset{}, err
	}
	if err := unit.Assets().Save(ctx, asset); err != nil {
		return dto.Asset{}, err
	}
	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, asset); err != nil {
		return dto.Asset{}, err
	}
	h.logger().Info("asset registered", "asset_id", asset.ID, "product_id", asset.ProductID, "code", asset.Code)
	return dto.MapAsset(asset), nil
}

func (h *Handlers) SetAssetStatus(ctx context.Context, cmd SetAssetStatusCommand) (dto.Asset, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.Asset{}, err
	}
	asset, err := unit.Assets().ByID(ctx, domaincatalog.AssetID(cmd.AssetID))
	if err != nil {
		return dto.Asset{}, err
	}
	status := domaincatalog.AssetStatus(strings.ToLower(strings.TrimSpace(cmd.Status)))
	if err := asset.SetStatus(status, h.Clock.Now()); err != nil {
		if errors.Is(err, domaincatalog.ErrAssetRetired) && status == domaincatalog.AssetRetired {
			return dto.MapAsset(asset), nil
		}
		return dto.Asset{}, err
	}
	if err := unit.Assets().Save(ctx, asset); err != nil {
		return dto.Asset{}, err
	}
	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, asset); err != nil {
		return dto.Asset{}, err
	}
	h.logger().Info("asset status changed", "asset_id", asset.ID, "status", asset.Status)
	return dto.MapAsset(asset), nil
}

// Register wires every catalog command onto bus.
func (h *Handlers) Register(bus *commands.InMemoryBus) {
	commands.RegisterHandler(bus, registerProductKey, commands.HandlerFunc[RegisterProductCommand, dto.Product](h.RegisterProduct))
	commands.RegisterHandler(bus, registerAssetKey, commands.HandlerFunc[RegisterAssetCommand, dto.Asset](h.RegisterAsset))
	commands.RegisterHandler(bus, setAssetStatusKey, commands.HandlerFunc[SetAssetStatusCommand, dto.Asset](h.SetAssetStatus))
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var (
	_ middleware.SelfValidating = RegisterProductCommand{}
	_ middleware.RoleRestricted = SetAssetStatusCommand{}
)
