package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/perdin/internal/application/service"
)

// ListCities handles GET /api/v1/cities
func (h *Handlers) ListCities(c *gin.Context) {
	cities, err := h.cities.List(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: cities})
}

// GetCity handles GET /api/v1/cities/:id
func (h *Handlers) GetCity(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	city, err := h.cities.Get(c.Request.Context(), identity(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: city})
}

// CreateCity handles POST /api/v1/cities
func (h *Handlers) CreateCity(c *gin.Context) {
	var req service.CityInput
	if !h.bindJSON(c, &req) {
		return
	}

	city, err := h.cities.Create(c.Request.Context(), identity(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: city})
}

// UpdateCity handles PUT /api/v1/cities/:id
func (h *Handlers) UpdateCity(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req service.CityInput
	if !h.bindJSON(c, &req) {
		return
	}

	city, err := h.cities.Update(c.Request.Context(), identity(c), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: city})
}

// DeleteCity handles DELETE /api/v1/cities/:id
func (h *Handlers) DeleteCity(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.cities.Delete(c.Request.Context(), identity(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}
