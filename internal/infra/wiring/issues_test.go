package wiring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	issuesapp "stagerent/internal/app/handlers/issues"
	"stagerent/internal/app/middleware"
	"stagerent/internal/app/queries"
	domainissue "stagerent/internal/domain/issue"
)

func (h *harness) reportIssue(cmd issuesapp.ReportIssueCommand) (dto.IssueReport, error) {
	return commands.Dispatch[issuesapp.ReportIssueCommand, dto.IssueReport](admin(), h.app.Commands, cmd)
}

func TestDamageReportBlocksAssetForNextBooking(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 1)
	c := h.addToCart("alice", "hanbok", rng(t, "2026-03-10", "2026-03-12"), 1)
	damaged, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)
	c = h.addToCart("bob", "hanbok", rng(t, "2026-03-13", "2026-03-14"), 1)
	next, err := h.checkout("bob", c.ID, "")
	require.NoError(t, err)

	after := rng(t, "2026-03-15", "2026-03-15")
	require.Equal(t, 1, h.available("hanbok", after))

	rep, err := h.reportIssue(issuesapp.ReportIssueCommand{
		OrderID:           damaged.ID,
		RentalID:          damaged.Rentals[0].ID,
		Type:              "damage",
		Severity:          "major",
		ImpactNextBooking: true,
		ImpactDays:        3,
		ImpactNotes:       "torn sleeve",
		AdditionalCharge:  30000,
	})
	require.NoError(t, err)
	assert.Equal(t, "detected", rep.Issue.Status)
	assert.NotEmpty(t, rep.Issue.BlockID)
	require.NotNil(t, rep.Issue.ImpactRange)
	assert.Equal(t, []string{next.ID}, rep.AffectedOrders)
	assert.Equal(t, 0, h.available("hanbok", after))

	listed, err := queries.Ask[issuesapp.RentalIssuesQuery, dto.IssueCollection](admin(), h.app.Queries, issuesapp.RentalIssuesQuery{
		RentalID: damaged.Rentals[0].ID,
	})
	require.NoError(t, err)
	require.Len(t, listed.Items, 1)
	assert.Equal(t, rep.Issue.ID, listed.Items[0].ID)
}

func TestIssueWithoutImpactLeavesCalendarAlone(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 1)
	c := h.addToCart("alice", "hanbok", rng(t, "2026-03-10", "2026-03-12"), 1)
	o, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)

	rep, err := h.reportIssue(issuesapp.ReportIssueCommand{OrderID: o.ID, RentalID: o.Rentals[0].ID, Type: "delay"})
	require.NoError(t, err)
	assert.Empty(t, rep.Issue.BlockID)
	assert.Empty(t, rep.AffectedOrders)
	assert.Equal(t, 1, h.available("hanbok", rng(t, "2026-03-13", "2026-03-13")))

	_, err = h.reportIssue(issuesapp.ReportIssueCommand{OrderID: o.ID, RentalID: "nope", Type: "delay"})
	assert.ErrorIs(t, err, domainissue.ErrRentalNotFound)
	_, err = h.reportIssue(issuesapp.ReportIssueCommand{OrderID: o.ID, RentalID: o.Rentals[0].ID, Type: "theft"})
	assert.ErrorIs(t, err, domainissue.ErrInvalidType)
}

func TestIssueLifecycleAndStats(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 1)
	c := h.addToCart("alice", "hanbok", rng(t, "2026-03-10", "2026-03-12"), 1)
	o, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)
	rep, err := h.reportIssue(issuesapp.ReportIssueCommand{OrderID: o.ID, RentalID: o.Rentals[0].ID, Type: "loss", Severity: "total_loss"})
	require.NoError(t, err)

	billed, err := commands.Dispatch[issuesapp.BillIssueCommand, dto.RentalIssue](admin(), h.app.Commands, issuesapp.BillIssueCommand{
		IssueID: rep.Issue.ID, Amount: 120000,
	})
	require.NoError(t, err)
	assert.Equal(t, "billed", billed.Status)

	_, err = commands.Dispatch[issuesapp.ResolveIssueCommand, dto.RentalIssue](admin(), h.app.Commands, issuesapp.ResolveIssueCommand{IssueID: rep.Issue.ID})
	assert.ErrorIs(t, err, domainissue.ErrResolutionRequired)

	paid, err := commands.Dispatch[issuesapp.UpdateIssueStatusCommand, dto.RentalIssue](admin(), h.app.Commands, issuesapp.UpdateIssueStatusCommand{
		IssueID: rep.Issue.ID, Status: "paid",
	})
	require.NoError(t, err)
	assert.Equal(t, "paid", paid.Status)

	st, err := queries.Ask[issuesapp.IssueStatsQuery, dto.IssueStats](admin(), h.app.Queries, issuesapp.IssueStatsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.ByType["loss"])
	assert.Equal(t, 1, st.ByStatus["paid"])
	assert.Equal(t, int64(120000), st.AdditionalCharges.Amount)

	_, err = queries.Ask[issuesapp.ListIssuesQuery, dto.IssueCollection](admin(), h.app.Queries, issuesapp.ListIssuesQuery{Status: "lost"})
	assert.ErrorIs(t, err, domainissue.ErrInvalidStatus)
}

func TestCustomersCannotReportIssues(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 1)
	c := h.addToCart("alice", "hanbok", rng(t, "2026-03-10", "2026-03-12"), 1)
	o, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)

	_, err = commands.Dispatch[issuesapp.ReportIssueCommand, dto.IssueReport](customer("alice"), h.app.Commands, issuesapp.ReportIssueCommand{
		OrderID: o.ID, RentalID: o.Rentals[0].ID, Type: "damage",
	})
	assert.ErrorIs(t, err, middleware.ErrForbidden)

	_, err = queries.Ask[issuesapp.IssueStatsQuery, dto.IssueStats](customer("alice"), h.app.Queries, issuesapp.IssueStatsQuery{})
	assert.ErrorIs(t, err, middleware.ErrForbidden)
}
