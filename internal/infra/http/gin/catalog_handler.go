package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stagerent/internal/app/dto"
	availabilityapp "stagerent/internal/app/handlers/availability"
	catalogapp "stagerent/internal/app/handlers/catalog"
	"stagerent/internal/app/queries"
	"stagerent/internal/domain/shared/daterange"
)

type CatalogHandler struct {
	Queries queries.Bus
}

func (h CatalogHandler) List(c *gin.Context) {
	result, err := queries.Ask[catalogapp.ListProductsQuery, dto.ProductCollection](c.Request.Context(), h.Queries, catalogapp.ListProductsQuery{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CatalogHandler) Get(c *gin.Context) {
	query := catalogapp.GetProductQuery{ProductID: c.Param("id")}
	result, err := queries.Ask[catalogapp.GetProductQuery, dto.Product](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type AvailabilityHandler struct {
	Queries queries.Bus
}

// Product answers ?from=YYYY-MM-DD&to=YYYY-MM-DD with the free unit count.
func (h AvailabilityHandler) Product(c *gin.Context) {
	rng, ok := rangeFromQuery(c, "from", "to")
	if !ok {
		return
	}
	query := availabilityapp.ProductAvailabilityQuery{ProductID: c.Param("id"), Range: rng}
	result, err := queries.Ask[availabilityapp.ProductAvailabilityQuery, dto.ProductAvailability](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Asset(c *gin.Context) {
	rng, ok := rangeFromQuery(c, "from", "to")
	if !ok {
		return
	}
	query := availabilityapp.AssetAvailabilityQuery{AssetID: c.Param("id"), Range: rng}
	result, err := queries.Ask[availabilityapp.AssetAvailabilityQuery, dto.AssetAvailability](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	window, ok := rangeFromQuery(c, "from", "to")
	if !ok {
		return
	}
	query := availabilityapp.CalendarQuery{Subject: c.Param("subject"), Window: window}
	result, err := queries.Ask[availabilityapp.CalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func rangeFromQuery(c *gin.Context, fromKey, toKey string) (daterange.DateRange, bool) {
	rng, err := daterange.Parse(c.Query(fromKey), c.Query(toKey))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return daterange.DateRange{}, false
	}
	return rng, true
}

var (
	_ CatalogHTTP      = CatalogHandler{}
	_ AvailabilityHTTP = AvailabilityHandler{}
)
