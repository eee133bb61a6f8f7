package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/michraz/internal/errors"
	"github.com/stwalsh4118/michraz/internal/middleware"
	"github.com/stwalsh4118/michraz/internal/models"
	"github.com/stwalsh4118/michraz/internal/services"
	"github.com/stwalsh4118/michraz/internal/tenders"
)

// TenderHandler handles tender, city and location HTTP requests.
type TenderHandler struct {
	service services.TenderService
}

// NewTenderHandler creates a new TenderHandler instance.
func NewTenderHandler(service services.TenderService) *TenderHandler {
	return &TenderHandler{
		service: service,
	}
}

// TenderQuery represents the optional filters of the list endpoints.
type TenderQuery struct {
	CityCode *int     `form:"city_code" binding:"omitempty,gt=0"`
	PriceMin *float64 `form:"price_min" binding:"omitempty,gte=0"`
	PriceMax *float64 `form:"price_max" binding:"omitempty,gte=0"`
	SizeMin  *float64 `form:"size_min" binding:"omitempty,gte=0"`
	SizeMax  *float64 `form:"size_max" binding:"omitempty,gte=0"`
}

// Criteria converts the query into filter criteria.
func (q TenderQuery) Criteria() tenders.Criteria {
	return tenders.Criteria{
		CityCode: q.CityCode,
		PriceMin: q.PriceMin,
		PriceMax: q.PriceMax,
		SizeMin:  q.SizeMin,
		SizeMax:  q.SizeMax,
	}
}

// invertedBounds returns the name of the first min/max pair with min > max.
func (q TenderQuery) invertedBounds() string {
	if q.PriceMin != nil && q.PriceMax != nil && *q.PriceMin > *q.PriceMax {
		return "price_min"
	}
	if q.SizeMin != nil && q.SizeMax != nil && *q.SizeMin > *q.SizeMax {
		return "size_min"
	}
	return ""
}

// IDParam represents a numeric path parameter.
type IDParam struct {
	ID string `uri:"id" binding:"required,digits,max=10"`
}

// CodeParam represents a settlement code path parameter.
type CodeParam struct {
	Code string `uri:"code" binding:"required,digits,max=10"`
}

// TenderListResponse represents the response for the tender list endpoint.
type TenderListResponse struct {
	Tenders []models.ProcessedTender `json:"tenders"`
	Count   int                      `json:"count"`
}

// CityListResponse represents the response for the city list endpoint.
type CityListResponse struct {
	Cities []models.CityAggregate `json:"cities"`
	Count  int                    `json:"count"`
}

// ListTenders handles GET /api/v1/tenders.
// Tenders with all range bounds come first; tenders without lots always
// pass the price and size filters.
func (h *TenderHandler) ListTenders(c *gin.Context) {
	query, ok := bindTenderQuery(c)
	if !ok {
		return
	}

	result, err := h.service.ListTenders(c.Request.Context(), query.Criteria())
	if err != nil {
		respondDatasetError(c, "Failed to load tenders", err)
		return
	}

	c.JSON(http.StatusOK, TenderListResponse{
		Tenders: result,
		Count:   len(result),
	})
}

// GetTender handles GET /api/v1/tenders/:id.
func (h *TenderHandler) GetTender(c *gin.Context) {
	var param IDParam
	if err := c.ShouldBindUri(&param); err != nil {
		respondBindError(c, err, "Invalid tender id")
		return
	}
	id, err := strconv.Atoi(param.ID)
	if err != nil {
		apierrors.BadRequest(c, "Invalid tender id", nil)
		return
	}

	detail, err := h.service.GetTender(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrTenderNotFound) {
			apierrors.NotFound(c, "Tender not found")
			return
		}
		respondDatasetError(c, "Failed to load tender", err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ListCities handles GET /api/v1/cities.
// Accepts the same filters as the tender list.
func (h *TenderHandler) ListCities(c *gin.Context) {
	query, ok := bindTenderQuery(c)
	if !ok {
		return
	}

	cities, err := h.service.ListCities(c.Request.Context(), query.Criteria())
	if err != nil {
		respondDatasetError(c, "Failed to load cities", err)
		return
	}

	c.JSON(http.StatusOK, CityListResponse{
		Cities: cities,
		Count:  len(cities),
	})
}

// CityGeoJSON handles GET /api/v1/cities/geojson.
func (h *TenderHandler) CityGeoJSON(c *gin.Context) {
	query, ok := bindTenderQuery(c)
	if !ok {
		return
	}

	fc, err := h.service.CityFeatures(c.Request.Context(), query.Criteria())
	if err != nil {
		respondDatasetError(c, "Failed to load cities", err)
		return
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

// GetLocation handles GET /api/v1/locations/:code.
func (h *TenderHandler) GetLocation(c *gin.Context) {
	var param CodeParam
	if err := c.ShouldBindUri(&param); err != nil {
		respondBindError(c, err, "Invalid settlement code")
		return
	}
	code, err := strconv.Atoi(param.Code)
	if err != nil {
		apierrors.BadRequest(c, "Invalid settlement code", nil)
		return
	}

	loc, err := h.service.Location(code)
	if err != nil {
		apierrors.NotFound(c, "Location not found")
		return
	}

	c.JSON(http.StatusOK, loc)
}

func bindTenderQuery(c *gin.Context) (TenderQuery, bool) {
	var query TenderQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return query, false
	}
	if field := query.invertedBounds(); field != "" {
		apierrors.BadRequest(c, "Minimum exceeds maximum", map[string]interface{}{
			field: "Must not exceed the matching maximum",
		})
		return query, false
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Debug("Tender query", map[string]interface{}{
			"query": c.Request.URL.RawQuery,
		})
	}
	return query, true
}

// respondBindError writes field errors for validation failures and a plain
// bad request for anything else.
func respondBindError(c *gin.Context, err error, message string) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apierrors.ValidationError(c, validationErrors)
		return
	}
	apierrors.BadRequest(c, message, nil)
}

func respondDatasetError(c *gin.Context, message string, err error) {
	if errors.Is(err, services.ErrDatasetUnavailable) {
		apierrors.ServiceUnavailable(c, "Tender data is temporarily unavailable", err)
		return
	}
	apierrors.InternalServerError(c, message, err)
}
