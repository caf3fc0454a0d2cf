package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"stagerent/internal/infra/config"
	"stagerent/internal/infra/obs"
)

type CatalogHTTP interface {
	List(c *gin.Context)
	Get(c *gin.Context)
}

type AvailabilityHTTP interface {
	Product(c *gin.Context)
	Asset(c *gin.Context)
	Calendar(c *gin.Context)
}

type CartHTTP interface {
	Get(c *gin.Context)
	AddItem(c *gin.Context)
	UpdateItem(c *gin.Context)
	RemoveItem(c *gin.Context)
	Clear(c *gin.Context)
}

type CheckoutHTTP interface {
	PlaceOrder(c *gin.Context)
}

type OrderHTTP interface {
	ListMine(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
}

type AdminHTTP interface {
	RegisterProduct(c *gin.Context)
	RegisterAsset(c *gin.Context)
	SetAssetStatus(c *gin.Context)
	BlockPeriod(c *gin.Context)
	UpdatePeriod(c *gin.Context)
	UnblockPeriod(c *gin.Context)
	ListOrders(c *gin.Context)
	ApplyAction(c *gin.Context)
	ExpireUnpaid(c *gin.Context)
}

type IssueHTTP interface {
	Report(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	ByRental(c *gin.Context)
	Stats(c *gin.Context)
	UpdateStatus(c *gin.Context)
	Charge(c *gin.Context)
	Resolve(c *gin.Context)
}

type Handlers struct {
	Catalog        CatalogHTTP
	Availability   AvailabilityHTTP
	Cart           CartHTTP
	Checkout       CheckoutHTTP
	Orders         OrderHTTP
	Admin          AdminHTTP
	Issues         IssueHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{Addr: cfg.HTTPAddr, Handler: NewRouter(cfg, obsMW, health, h)}
}

// NewRouter builds the gin engine alone so tests can drive it with httptest.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", headerUserID, headerUserRoles},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Catalog != nil {
		api.GET("/products", h.Catalog.List)
		api.GET("/products/:id", h.Catalog.Get)
	}
	if h.Availability != nil {
		api.GET("/products/:id/availability", h.Availability.Product)
		api.GET("/assets/:id/availability", h.Availability.Asset)
		api.GET("/calendar/:subject", h.Availability.Calendar)
	}
	if h.Cart != nil {
		api.GET("/cart", h.Cart.Get)
		api.DELETE("/cart", h.Cart.Clear)
		api.POST("/cart/items", h.Cart.AddItem)
		api.PATCH("/cart/items/:id", h.Cart.UpdateItem)
		api.DELETE("/cart/items/:id", h.Cart.RemoveItem)
	}
	if h.Checkout != nil {
		api.POST("/checkout", h.Checkout.PlaceOrder)
	}
	if h.Orders != nil {
		api.GET("/me/orders", h.Orders.ListMine)
		api.GET("/orders/:id", h.Orders.Get)
		api.POST("/orders/:id/cancel", h.Orders.Cancel)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		admin.POST("/products", h.Admin.RegisterProduct)
		admin.POST("/products/:id/assets", h.Admin.RegisterAsset)
		admin.PUT("/assets/:id/status", h.Admin.SetAssetStatus)
		admin.POST("/blocked-periods", h.Admin.BlockPeriod)
		admin.PATCH("/blocked-periods/:id", h.Admin.UpdatePeriod)
		admin.DELETE("/blocked-periods/:id", h.Admin.UnblockPeriod)
		admin.GET("/orders", h.Admin.ListOrders)
		admin.POST("/orders/:id/actions/:action", h.Admin.ApplyAction)
		admin.POST("/jobs/expire-unpaid", h.Admin.ExpireUnpaid)
	}
	if h.Issues != nil {
		admin := api.Group("/admin")
		admin.POST("/issues", h.Issues.Report)
		admin.GET("/issues", h.Issues.List)
		admin.GET("/issues/stats", h.Issues.Stats)
		admin.GET("/issues/:id", h.Issues.Get)
		admin.PATCH("/issues/:id/status", h.Issues.UpdateStatus)
		admin.PATCH("/issues/:id/charge", h.Issues.Charge)
		admin.PATCH("/issues/:id/resolve", h.Issues.Resolve)
		admin.GET("/rentals/:id/issues", h.Issues.ByRental)
	}

	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
