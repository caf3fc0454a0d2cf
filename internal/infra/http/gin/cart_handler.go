package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	cartapp "stagerent/internal/app/handlers/cart"
	"stagerent/internal/app/handlers/checkout"
	"stagerent/internal/app/queries"
	domaincart "stagerent/internal/domain/cart"
	"stagerent/internal/domain/shared/daterange"
)

type CartHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h CartHandler) Get(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[cartapp.GetCartQuery, dto.Cart](c.Request.Context(), h.Queries, cartapp.GetCartQuery{UserID: user.ID})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CartHandler) AddItem(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rng, err := daterange.Parse(req.Start, req.End)
	if err != nil {
		writeError(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	cmd := cartapp.AddItemCommand{UserID: user.ID, ProductID: req.ProductID, Range: rng, Quantity: req.Quantity}
	result, err := commands.Dispatch[cartapp.AddItemCommand, dto.Cart](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h CartHandler) UpdateItem(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := cartapp.UpdateItemCommand{UserID: user.ID, ItemID: c.Param("id"), Quantity: req.Quantity}
	result, err := commands.Dispatch[cartapp.UpdateItemCommand, dto.Cart](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CartHandler) RemoveItem(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := cartapp.RemoveItemCommand{UserID: user.ID, ItemID: c.Param("id")}
	result, err := commands.Dispatch[cartapp.RemoveItemCommand, dto.Cart](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CartHandler) Clear(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := commands.Dispatch[cartapp.ClearCommand, dto.Cart](c.Request.Context(), h.Commands, cartapp.ClearCommand{UserID: user.ID})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type CheckoutHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type placeOrderRequest struct {
	CartID          string `json:"cart_id"`
	DeliveryMethod  string `json:"delivery_method"`
	ShippingAddress string `json:"shipping_address"`
	DeliveryNotes   string `json:"delivery_notes"`
}

// PlaceOrder checks out the caller's cart. cart_id may be omitted, in which
// case the caller's current cart is used.
func (h CheckoutHandler) PlaceOrder(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.CartID == "" {
		current, err := queries.Ask[cartapp.GetCartQuery, dto.Cart](c.Request.Context(), h.Queries, cartapp.GetCartQuery{UserID: user.ID})
		if err != nil {
			writeError(c, err)
			return
		}
		if current.ID == "" {
			writeError(c, domaincart.ErrEmpty)
			return
		}
		req.CartID = current.ID
	}
	cmd := checkout.PlaceOrderCommand{
		CartID:          req.CartID,
		DeliveryMethod:  req.DeliveryMethod,
		ShippingAddress: req.ShippingAddress,
		DeliveryNotes:   req.DeliveryNotes,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[checkout.PlaceOrderCommand, *dto.Order](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var (
	_ CartHTTP     = CartHandler{}
	_ CheckoutHTTP = CheckoutHandler{}
)
