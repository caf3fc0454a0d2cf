package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	issuesapp "stagerent/internal/app/handlers/issues"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/queries"
)

type IssueHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type reportIssueRequest struct {
	OrderID           string `json:"order_id"`
	RentalID          string `json:"rental_id"`
	Type              string `json:"type"`
	Severity          string `json:"severity"`
	ImpactNextBooking bool   `json:"impact_next_booking"`
	ImpactDays        int    `json:"impact_days"`
	ImpactNotes       string `json:"impact_notes"`
	ImpactCost        int64  `json:"impact_cost"`
	AdditionalCharge  int64  `json:"additional_charge"`
}

type issueStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type issueChargeRequest struct {
	Amount int64 `json:"amount"`
}

type issueResolveRequest struct {
	Notes string `json:"notes"`
}

// Report records an issue. The response lists orders already booked on the
// asset inside the maintenance window so staff can contact them.
func (h IssueHandler) Report(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	var req reportIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := issuesapp.ReportIssueCommand{
		OrderID:           req.OrderID,
		RentalID:          req.RentalID,
		Type:              req.Type,
		Severity:          req.Severity,
		ImpactNextBooking: req.ImpactNextBooking,
		ImpactDays:        req.ImpactDays,
		ImpactNotes:       req.ImpactNotes,
		ImpactCost:        req.ImpactCost,
		AdditionalCharge:  req.AdditionalCharge,
	}
	result, err := commands.Dispatch[issuesapp.ReportIssueCommand, dto.IssueReport](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h IssueHandler) List(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	result, err := queries.Ask[issuesapp.ListIssuesQuery, dto.IssueCollection](c.Request.Context(), h.Queries, issuesapp.ListIssuesQuery{Status: c.Query("status")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h IssueHandler) Get(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	result, err := queries.Ask[issuesapp.GetIssueQuery, dto.RentalIssue](c.Request.Context(), h.Queries, issuesapp.GetIssueQuery{IssueID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h IssueHandler) ByRental(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	result, err := queries.Ask[issuesapp.RentalIssuesQuery, dto.IssueCollection](c.Request.Context(), h.Queries, issuesapp.RentalIssuesQuery{RentalID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h IssueHandler) Stats(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	result, err := queries.Ask[issuesapp.IssueStatsQuery, dto.IssueStats](c.Request.Context(), h.Queries, issuesapp.IssueStatsQuery{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h IssueHandler) UpdateStatus(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	var req issueStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := issuesapp.UpdateIssueStatusCommand{IssueID: c.Param("id"), Status: req.Status, Notes: req.Notes}
	result, err := commands.Dispatch[issuesapp.UpdateIssueStatusCommand, dto.RentalIssue](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h IssueHandler) Charge(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	var req issueChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := issuesapp.BillIssueCommand{IssueID: c.Param("id"), Amount: req.Amount}
	result, err := commands.Dispatch[issuesapp.BillIssueCommand, dto.RentalIssue](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h IssueHandler) Resolve(c *gin.Context) {
	if _, ok := requireRole(c, principal.RoleAdmin); !ok {
		return
	}
	var req issueResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := issuesapp.ResolveIssueCommand{IssueID: c.Param("id"), Notes: req.Notes}
	result, err := commands.Dispatch[issuesapp.ResolveIssueCommand, dto.RentalIssue](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ IssueHTTP = IssueHandler{}
