package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/michraz/internal/errors"
	"github.com/stwalsh4118/michraz/internal/models"
	"github.com/stwalsh4118/michraz/internal/services"
	"github.com/stwalsh4118/michraz/internal/tenders"
)

// SheetHandler serves the tender sheets. Routes must sit behind
// middleware.AuthGuard.
type SheetHandler struct {
	service services.SheetService
	now     func() time.Time
}

// NewSheetHandler creates a new SheetHandler instance.
func NewSheetHandler(service services.SheetService) *SheetHandler {
	return &SheetHandler{
		service: service,
		now:     time.Now,
	}
}

// SheetListResponse represents the response for the sheet list endpoint.
type SheetListResponse struct {
	Sheets []models.SheetSummary `json:"sheets"`
	Count  int                   `json:"count"`
}

// ListSheets handles GET /api/v1/sheets.
func (h *SheetHandler) ListSheets(c *gin.Context) {
	sheets, err := h.service.ListSheets(c.Request.Context(), h.now().In(tenders.Jerusalem()))
	if err != nil {
		if errors.Is(err, services.ErrSheetsUnavailable) {
			apierrors.ServiceUnavailable(c, "Tender sheets are temporarily unavailable", err)
			return
		}
		apierrors.InternalServerError(c, "Failed to load tender sheets", err)
		return
	}

	c.JSON(http.StatusOK, SheetListResponse{
		Sheets: sheets,
		Count:  len(sheets),
	})
}
