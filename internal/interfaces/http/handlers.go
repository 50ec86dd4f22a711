package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/perdin/internal/application/service"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	auth    service.AuthService
	trips   service.TripService
	cities  service.CityService
	users   service.UserService
	health  HealthFunc
	version string
	logger  Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, version string, logger Logger) *Handlers {
	return &Handlers{
		auth:    services.Auth,
		trips:   services.Trips,
		cities:  services.Cities,
		users:   services.Users,
		health:  health,
		version: version,
		logger:  logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// ReviewRequest is the body of PATCH /trips/:id/review
type ReviewRequest struct {
	Status string `json:"status"`
}

// RoleRequest is the body of PATCH /admin/users/:id/role
type RoleRequest struct {
	Role string `json:"role"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}

	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.logger.Error("Health check failed", "error", err)
			response.Status = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, Response{
				Success: false,
				Data:    response,
				Error:   "dependency unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// Register handles POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req service.RegisterInput
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: user})
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// Me handles GET /api/v1/me
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// ListUsers handles GET /api/v1/admin/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: users})
}

// UpdateUserRole handles PATCH /api/v1/admin/users/:id/role
func (h *Handlers) UpdateUserRole(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req RoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateRole(c.Request.Context(), identity(c), id, req.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// bindJSON decodes the request body and answers 400 on malformed JSON
func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Error("Invalid request body", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return false
	}
	return true
}

// pathID parses the :id parameter and answers 400 when it is not a positive integer
func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Error("Invalid ID", "id", idStr, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid ID",
		})
		return 0, false
	}
	return id, true
}

// respondError maps service errors onto HTTP status codes
func respondError(c *gin.Context, logger Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   service.ErrValidation.Error(),
			Fields:  verr.Fields,
		})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: service.ErrUnauthorized.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: service.ErrForbidden.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: service.ErrNotFound.Error()})
	case errors.Is(err, service.ErrInvalidStateTransition),
		errors.Is(err, service.ErrCityInUse),
		errors.Is(err, service.ErrDuplicate):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	default:
		if logger != nil {
			logger.Error("Request failed", "path", c.FullPath(), "error", err)
		}
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal server error"})
	}
}
