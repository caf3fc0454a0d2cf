package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	ordersapp "stagerent/internal/app/handlers/orders"
	"stagerent/internal/app/queries"
)

type OrderHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h OrderHandler) ListMine(c *gin.Context) {
	if _, ok := requireRole(c, ""); !ok {
		return
	}
	result, err := queries.Ask[ordersapp.ListMyOrdersQuery, dto.OrderCollection](c.Request.Context(), h.Queries, ordersapp.ListMyOrdersQuery{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OrderHandler) Get(c *gin.Context) {
	if _, ok := requireRole(c, ""); !ok {
		return
	}
	result, err := queries.Ask[ordersapp.GetOrderQuery, dto.Order](c.Request.Context(), h.Queries, ordersapp.GetOrderQuery{OrderID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OrderHandler) Cancel(c *gin.Context) {
	if _, ok := requireRole(c, ""); !ok {
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := ordersapp.CancelOrderCommand{OrderID: c.Param("id"), Reason: req.Reason}
	result, err := commands.Dispatch[ordersapp.CancelOrderCommand, dto.TransitionResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ OrderHTTP = OrderHandler{}
