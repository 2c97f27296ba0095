package predictions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rohanai/guardian/internal/auth"
)

// Handler provides HTTP endpoints for predictions
type Handler struct {
	service *Service
}

// NewHandler creates a new predictions handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes sets up prediction routes. Both require a bearer
// token; registration of the auth middleware is the server's job.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/predict", h.Predict)
	r.GET("/history", h.History)
}

// PredictRequest is the JSON body for POST /predict. Pointer fields
// distinguish "absent" from legitimate zero values; all seven are required.
type PredictRequest struct {
	DistanceFromHome            *float64 `json:"distance_from_home" binding:"required"`
	DistanceFromLastTransaction *float64 `json:"distance_from_last_transaction" binding:"required"`
	RatioToMedianPurchasePrice  *float64 `json:"ratio_to_median_purchase_price" binding:"required"`
	RepeatRetailer              *bool    `json:"repeat_retailer" binding:"required"`
	UsedChip                    *bool    `json:"used_chip" binding:"required"`
	UsedPinNumber               *bool    `json:"used_pin_number" binding:"required"`
	OnlineOrder                 *bool    `json:"online_order" binding:"required"`
}

func (r PredictRequest) features() Features {
	return Features{
		DistanceFromHome:            *r.DistanceFromHome,
		DistanceFromLastTransaction: *r.DistanceFromLastTransaction,
		RatioToMedianPurchasePrice:  *r.RatioToMedianPurchasePrice,
		RepeatRetailer:              *r.RepeatRetailer,
		UsedChip:                    *r.UsedChip,
		UsedPinNumber:               *r.UsedPinNumber,
		OnlineOrder:                 *r.OnlineOrder,
	}
}

// Predict handles POST /predict
func (h *Handler) Predict(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Authentication required",
		})
		return
	}

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "All seven transaction fields are required",
		})
		return
	}

	rec, err := h.service.Predict(c.Request.Context(), user, req.features())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, rec)

	case errors.Is(err, ErrModelUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "model_unavailable",
			"message": "Model not loaded",
		})

	case errors.Is(err, ErrInferenceFailed):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "inference_failed",
			"message": "ML processing failed",
		})

	case errors.Is(err, ErrPersistFailed):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "persistence_failed",
			"message": "Database save failed",
		})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Prediction failed",
		})
	}
}

// History handles GET /history
func (h *Handler) History(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Authentication required",
		})
		return
	}

	records, err := h.service.History(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load history",
		})
		return
	}

	c.JSON(http.StatusOK, records)
}
