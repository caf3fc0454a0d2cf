package ginserver

import (
	"errors"
	"io"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	availabilityapp "stagerent/internal/app/handlers/availability"
	catalogapp "stagerent/internal/app/handlers/catalog"
	ordersapp "stagerent/internal/app/handlers/orders"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/queries"
	"stagerent/internal/domain/shared/daterange"
)

type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type registerProductRequest struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	DailyRate  int64  `json:"daily_rate"`
	Currency   string `json:"currency"`
	BufferDays *int   `json:"buffer_days"`
}

type registerAssetRequest struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Condition string `json:"condition"`
	Notes     string `json:"notes"`
}

type assetStatusRequest struct {
	Status string `json:"status"`
}

type blockPeriodRequest struct {
	AssetID   string `json:"asset_id"`
	ProductID string `json:"product_id"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes"`
}

type updatePeriodRequest struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

func (h AdminHandler) RegisterProduct(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	var req registerProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := catalogapp.RegisterProductCommand{
		ProductID:  req.ID,
		Title:      req.Title,
		Category:   req.Category,
		DailyRate:  req.DailyRate,
		Currency:   req.Currency,
		BufferDays: req.BufferDays,
	}
	result, err := commands.Dispatch[catalogapp.RegisterProductCommand, dto.Product](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AdminHandler) RegisterAsset(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	var req registerAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := catalogapp.RegisterAssetCommand{
		AssetID:   req.ID,
		ProductID: c.Param("id"),
		Code:      req.Code,
		Condition: req.Condition,
		Notes:     req.Notes,
	}
	result, err := commands.Dispatch[catalogapp.RegisterAssetCommand, dto.Asset](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AdminHandler) SetAssetStatus(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	var req assetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := catalogapp.SetAssetStatusCommand{AssetID: c.Param("id"), Status: req.Status}
	result, err := commands.Dispatch[catalogapp.SetAssetStatusCommand, dto.Asset](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) BlockPeriod(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	var req blockPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rng, err := daterange.Parse(req.Start, req.End)
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := availabilityapp.BlockPeriodCommand{
		AssetID:   req.AssetID,
		ProductID: req.ProductID,
		Range:     rng,
		Reason:    req.Reason,
		Notes:     req.Notes,
	}
	result, err := commands.Dispatch[availabilityapp.BlockPeriodCommand, dto.BlockedPeriod](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AdminHandler) UpdatePeriod(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	var req updatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := availabilityapp.UpdatePeriodCommand{PeriodID: c.Param("id"), Notes: req.Notes, Reason: req.Reason}
	result, err := commands.Dispatch[availabilityapp.UpdatePeriodCommand, dto.BlockedPeriod](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) UnblockPeriod(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	cmd := availabilityapp.UnblockPeriodCommand{PeriodID: c.Param("id")}
	result, err := commands.Dispatch[availabilityapp.UnblockPeriodCommand, dto.BlockedPeriod](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) ListOrders(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	query := ordersapp.ListOrdersQuery{Status: c.Query("status")}
	result, err := queries.Ask[ordersapp.ListOrdersQuery, dto.OrderCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ApplyAction runs one admin action (confirm, dispatch, reject...). The body
// is optional and only carries a reason.
func (h AdminHandler) ApplyAction(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := ordersapp.ApplyActionCommand{OrderID: c.Param("id"), Action: c.Param("action"), Reason: req.Reason}
	result, err := commands.Dispatch[ordersapp.ApplyActionCommand, dto.TransitionResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExpireUnpaid triggers the deposit-deadline sweep out of schedule.
func (h AdminHandler) ExpireUnpaid(c *gin.Context) {
	admin, ok := requireRole(c, principal.RoleAdmin)
	if !ok {
		return
	}
	ctx := principal.System(c.Request.Context(), "manual:"+admin.ID)
	result, err := commands.Dispatch[ordersapp.ExpireUnpaidCommand, ordersapp.ExpireUnpaidResult](ctx, h.Commands, ordersapp.ExpireUnpaidCommand{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AdminHTTP = AdminHandler{}
