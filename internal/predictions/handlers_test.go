package predictions

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanai/guardian/internal/auth"
	"github.com/rohanai/guardian/internal/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupRouter wires the prediction routes behind a stub identity middleware
// so handler behavior is tested without real tokens.
func setupRouter(svc *Service, user *users.User) *gin.Engine {
	r := gin.New()
	group := r.Group("/api/v1")
	if user != nil {
		group.Use(func(c *gin.Context) { c.Set(auth.ContextKeyUser, user) })
	}
	NewHandler(svc).RegisterProtectedRoutes(group)
	return r
}

const validBody = `{
	"distance_from_home": 0,
	"distance_from_last_transaction": 0,
	"ratio_to_median_purchase_price": 15.0,
	"repeat_retailer": false,
	"used_chip": false,
	"used_pin_number": false,
	"online_order": true
}`

func postPredict(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestPredictEndpoint(t *testing.T) {
	model := &fakeClassifier{isFraud: false, probs: [2]float64{0.7, 0.3}}
	svc := NewService(NewMemoryStore(), model, slog.Default())
	r := setupRouter(svc, alice)

	w := postPredict(r, validBody)
	require.Equal(t, http.StatusOK, w.Code)

	var rec TransactionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.True(t, rec.IsFraud)
	assert.GreaterOrEqual(t, rec.ConfidenceScore, 0.98)
	assert.NotEmpty(t, rec.Reasons)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, 15.0, rec.RatioToMedianPurchasePrice)
}

func TestPredictEndpoint_MissingField(t *testing.T) {
	svc := NewService(NewMemoryStore(), &fakeClassifier{probs: [2]float64{1, 0}}, slog.Default())
	r := setupRouter(svc, alice)

	// online_order omitted entirely
	w := postPredict(r, `{
		"distance_from_home": 1,
		"distance_from_last_transaction": 1,
		"ratio_to_median_purchase_price": 1,
		"repeat_retailer": true,
		"used_chip": true,
		"used_pin_number": true
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictEndpoint_ZeroValuesAccepted(t *testing.T) {
	svc := NewService(NewMemoryStore(), &fakeClassifier{probs: [2]float64{1, 0}}, slog.Default())
	r := setupRouter(svc, alice)

	// Explicit zeros and falses are present, not missing
	w := postPredict(r, `{
		"distance_from_home": 0,
		"distance_from_last_transaction": 0,
		"ratio_to_median_purchase_price": 0,
		"repeat_retailer": false,
		"used_chip": false,
		"used_pin_number": false,
		"online_order": false
	}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPredictEndpoint_ModelUnavailable(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, slog.Default())
	r := setupRouter(svc, alice)

	w := postPredict(r, validBody)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Model not loaded")

	records, err := store.ListByOwner(t.Context(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPredictEndpoint_PersistFailure(t *testing.T) {
	svc := NewService(failingStore{}, &fakeClassifier{probs: [2]float64{1, 0}}, slog.Default())
	r := setupRouter(svc, alice)

	w := postPredict(r, validBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Database save failed")
}

func TestPredictEndpoint_NoIdentity(t *testing.T) {
	svc := NewService(NewMemoryStore(), &fakeClassifier{probs: [2]float64{1, 0}}, slog.Default())
	r := setupRouter(svc, nil)

	w := postPredict(r, validBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	store := NewMemoryStore()
	model := &fakeClassifier{isFraud: false, probs: [2]float64{0.9, 0.1}}
	svc := NewService(store, model, slog.Default())

	_, err := svc.Predict(t.Context(), alice, Features{DistanceFromHome: 1})
	require.NoError(t, err)
	_, err = svc.Predict(t.Context(), bob, Features{DistanceFromHome: 2})
	require.NoError(t, err)

	r := setupRouter(svc, alice)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var records []TransactionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, 1.0, records[0].DistanceFromHome)
}

func TestHistoryEndpoint_EmptyList(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, slog.Default())
	r := setupRouter(svc, alice)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
