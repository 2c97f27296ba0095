package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rohanai/guardian/internal/logging"
	"github.com/rohanai/guardian/internal/metrics"
	"github.com/rohanai/guardian/internal/users"
	"github.com/rohanai/guardian/internal/validation"
)

// Handler provides HTTP endpoints for registration and login
type Handler struct {
	service *Service
}

// NewHandler creates a new auth handler
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// RegisterRoutes sets up the public auth routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
}

// RegisterRequest is the JSON body for POST /auth/register
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "username, email and password are required",
		})
		return
	}

	err := h.service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
		c.JSON(http.StatusOK, gin.H{"msg": "User created successfully"})

	case errors.Is(err, users.ErrDuplicateUser):
		metrics.AuthAttemptsTotal.WithLabelValues("register", "duplicate").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "registration_failed",
			"message": "Email already exists",
		})

	case validation.IsUserError(err):
		metrics.AuthAttemptsTotal.WithLabelValues("register", "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "registration_failed",
			"message": err.Error(),
		})

	default:
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		logging.L(c.Request.Context()).Error("registration failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Registration failed",
		})
	}
}

// LoginRequest is the form-encoded body for POST /auth/login
type LoginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// Login handles POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "username and password are required",
		})
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
		c.JSON(http.StatusOK, gin.H{
			"access_token": token,
			"token_type":   "bearer",
		})

	case errors.Is(err, ErrInvalidCredentials):
		metrics.AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Incorrect username or password",
		})

	default:
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		logging.L(c.Request.Context()).Error("login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Login failed",
		})
	}
}
