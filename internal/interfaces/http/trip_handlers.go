package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/application/service"
)

// ListTripsRequest represents query parameters for the review listing
type ListTripsRequest struct {
	Status string `form:"status"`
	Search string `form:"q"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

func (r ListTripsRequest) filter() port.TripFilter {
	return port.TripFilter{
		Status: r.Status,
		Search: r.Search,
		Limit:  r.Limit,
		Offset: r.Offset,
	}
}

// SubmitTrip handles POST /api/v1/trips
func (h *Handlers) SubmitTrip(c *gin.Context) {
	var req service.SubmitTripInput
	if !h.bindJSON(c, &req) {
		return
	}

	trip, err := h.trips.Submit(c.Request.Context(), identity(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: trip})
}

// ListMyTrips handles GET /api/v1/trips/mine
func (h *Handlers) ListMyTrips(c *gin.Context) {
	trips, err := h.trips.ListMine(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: trips})
}

// TripHistory handles GET /api/v1/trips/:id/history
func (h *Handlers) TripHistory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	history, err := h.trips.History(c.Request.Context(), identity(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// ReviewTrip handles PATCH /api/v1/trips/:id/review
func (h *Handlers) ReviewTrip(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	trip, err := h.trips.Review(c.Request.Context(), identity(c), id, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: trip})
}

// ListTripsForReview handles GET /api/v1/review/trips
func (h *Handlers) ListTripsForReview(c *gin.Context) {
	var req ListTripsRequest
	if !h.bindQuery(c, &req) {
		return
	}

	trips, err := h.trips.ListForReview(c.Request.Context(), identity(c), req.filter())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: trips})
}

// ExportTrips handles GET /api/v1/review/trips/export
func (h *Handlers) ExportTrips(c *gin.Context) {
	contentType, ext, ok := h.trips.ReportFormat()
	if !ok {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "export is not enabled"})
		return
	}

	var req ListTripsRequest
	if !h.bindQuery(c, &req) {
		return
	}

	var buf bytes.Buffer
	if err := h.trips.Export(c.Request.Context(), identity(c), req.filter(), &buf); err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("perjalanan-dinas-%s.%s", time.Now().Format("20060102-150405"), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *Handlers) bindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return false
	}
	return true
}
