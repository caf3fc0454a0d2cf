package ginserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagerent/internal/app/dto"
	"stagerent/internal/infra/config"
	ginserver "stagerent/internal/infra/http/gin"
	"stagerent/internal/infra/obs"
	"stagerent/internal/infra/wiring"
)

type client struct {
	t      *testing.T
	router *gin.Engine
}

func newClient(t *testing.T) *client {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	app, err := wiring.NewMemory(wiring.Deps{Clock: func() time.Time { return now }})
	require.NoError(t, err)
	router := ginserver.NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, app.HTTPHandlers(nil))
	return &client{t: t, router: router}
}

func (c *client) do(method, path, user, roles string, body any, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
		req.Header.Set("X-User-Roles", roles)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func (c *client) seed() {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/v1/admin/products", "ops", "admin", gin.H{
		"id": "hanbok", "title": "Red hanbok", "daily_rate": 30000, "currency": "KRW", "buffer_days": 1,
	})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	for _, code := range []string{"HR-1", "HR-2", "HR-3"} {
		rec := c.do(http.MethodPost, "/api/v1/admin/products/hanbok/assets", "ops", "admin", gin.H{"id": "hanbok-" + code, "code": code})
		require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthEndpoints(t *testing.T) {
	c := newClient(t)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/livez", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/readyz", "", "", nil).Code)
}

func TestCatalogIsPublic(t *testing.T) {
	c := newClient(t)
	c.seed()

	rec := c.do(http.MethodGet, "/api/v1/products/hanbok", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	product := decode[dto.Product](t, rec)
	assert.Len(t, product.Assets, 3)

	rec = c.do(http.MethodGet, "/api/v1/products/hanbok/availability?from=2026-03-10&to=2026-03-12", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[dto.ProductAvailability](t, rec).Count)

	rec = c.do(http.MethodGet, "/api/v1/products/hanbok/availability?from=2026-03-12&to=2026-03-10", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, "/api/v1/products/missing", "", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	c := newClient(t)
	rec := c.do(http.MethodPost, "/api/v1/admin/products", "", "", gin.H{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = c.do(http.MethodPost, "/api/v1/admin/products", "alice", "customer", gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = c.do(http.MethodGet, "/api/v1/cart", "mallory", "system", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	c := newClient(t)
	c.seed()

	item := gin.H{"product_id": "hanbok", "start": "2026-03-10", "end": "2026-03-12", "quantity": 2}
	rec := c.do(http.MethodPost, "/api/v1/cart/items", "alice", "customer", item)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = c.do(http.MethodPost, "/api/v1/cart/items", "bob", "customer", item)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/api/v1/checkout", "alice", "customer", gin.H{"delivery_method": "parcel"}, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[dto.Order](t, rec)
	assert.Len(t, order.Rentals, 2)
	assert.Equal(t, "2026-03-13", order.Rentals[0].HoldRange.End)
	assert.NotNil(t, order.DepositDeadline)

	rec = c.do(http.MethodPost, "/api/v1/checkout", "bob", "customer", gin.H{"delivery_method": "parcel"})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	body := decode[struct {
		Conflicts []struct {
			ProductID string `json:"product_id"`
			Requested int    `json:"requested"`
			Available int    `json:"available"`
		} `json:"conflicts"`
	}](t, rec)
	require.Len(t, body.Conflicts, 1)
	assert.Equal(t, 1, body.Conflicts[0].Available)

	rec = c.do(http.MethodGet, "/api/v1/orders/"+order.ID, "bob", "customer", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/admin/orders/"+order.ID+"/actions/approve", "ops", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[dto.TransitionResult](t, rec).Changed)

	rec = c.do(http.MethodPost, "/api/v1/admin/orders/"+order.ID+"/actions/teleport", "ops", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/admin/orders/"+order.ID+"/actions/expire", "ops", "admin", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/orders/"+order.ID+"/cancel", "alice", "customer", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = c.do(http.MethodPost, "/api/v1/orders/"+order.ID+"/cancel", "alice", "customer", gin.H{"reason": "rain"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, "/api/v1/admin/orders?status=cancelled", "ops", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.OrderCollection](t, rec).Items, 1)

	rec = c.do(http.MethodGet, "/api/v1/admin/orders?status=lost", "ops", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutWithEmptyCart(t *testing.T) {
	c := newClient(t)
	rec := c.do(http.MethodPost, "/api/v1/checkout", "alice", "customer", gin.H{"delivery_method": "quick"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssueRoutes(t *testing.T) {
	c := newClient(t)
	c.seed()

	item := gin.H{"product_id": "hanbok", "start": "2026-03-10", "end": "2026-03-12", "quantity": 1}
	rec := c.do(http.MethodPost, "/api/v1/cart/items", "alice", "customer", item)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = c.do(http.MethodPost, "/api/v1/checkout", "alice", "customer", gin.H{"delivery_method": "parcel"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[dto.Order](t, rec)

	report := gin.H{
		"order_id": order.ID, "rental_id": order.Rentals[0].ID, "type": "damage", "severity": "minor",
		"impact_next_booking": true, "impact_days": 2,
	}
	rec = c.do(http.MethodPost, "/api/v1/admin/issues", "alice", "customer", report)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = c.do(http.MethodPost, "/api/v1/admin/issues", "ops", "admin", report)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[dto.IssueReport](t, rec)
	require.NotNil(t, created.Issue.ImpactRange)
	assert.Equal(t, "2026-03-13", created.Issue.ImpactRange.Start)

	rec = c.do(http.MethodGet, "/api/v1/admin/issues/"+created.Issue.ID, "ops", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.do(http.MethodGet, "/api/v1/admin/issues/missing", "ops", "admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = c.do(http.MethodGet, "/api/v1/admin/rentals/"+order.Rentals[0].ID+"/issues", "ops", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.IssueCollection](t, rec).Items, 1)

	rec = c.do(http.MethodPatch, "/api/v1/admin/issues/"+created.Issue.ID+"/charge", "ops", "admin", gin.H{"amount": 15000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = c.do(http.MethodPatch, "/api/v1/admin/issues/"+created.Issue.ID+"/status", "ops", "admin", gin.H{"status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = c.do(http.MethodPatch, "/api/v1/admin/issues/"+created.Issue.ID+"/resolve", "ops", "admin", gin.H{"notes": "mended"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodGet, "/api/v1/admin/issues/stats", "ops", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(15000), decode[dto.IssueStats](t, rec).AdditionalCharges.Amount)
	rec = c.do(http.MethodGet, "/api/v1/admin/issues?status=bogus", "ops", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
