// Package predictions runs the fraud scoring pipeline and stores the results.
//
// The pipeline is two explicit stages on top of the classifier: the raw model
// verdict, then a deterministic rule-based adjustment for a known high-risk
// pattern (card-not-present, extreme price ratio, no PIN) the base model may
// under-weight. Keeping the stages separate makes the override testable
// without a model.
//
// Every stored record belongs to exactly one user, set at creation from the
// authenticated caller and never reassigned. Records are immutable.
package predictions

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rohanai/guardian/internal/metrics"
	"github.com/rohanai/guardian/internal/traces"
	"github.com/rohanai/guardian/internal/users"
)

// Errors
var (
	ErrModelUnavailable = errors.New("model not loaded")
	ErrInferenceFailed  = errors.New("inference failed")
	ErrPersistFailed    = errors.New("failed to persist prediction")
)

// Classifier is the read-only handle to the loaded fraud model.
// classifier.Model implements it; tests substitute fakes.
type Classifier interface {
	Predict(vector []float64) (bool, [2]float64, error)
	Importances() []float64
}

// Features are the seven transaction inputs. All are required; there are no
// defaults.
type Features struct {
	DistanceFromHome            float64 `json:"distance_from_home"`
	DistanceFromLastTransaction float64 `json:"distance_from_last_transaction"`
	RatioToMedianPurchasePrice  float64 `json:"ratio_to_median_purchase_price"`
	RepeatRetailer              bool    `json:"repeat_retailer"`
	UsedChip                    bool    `json:"used_chip"`
	UsedPinNumber               bool    `json:"used_pin_number"`
	OnlineOrder                 bool    `json:"online_order"`
}

// Vector encodes the features in the model's fixed order, booleans as 1.0/0.0.
func (f Features) Vector() []float64 {
	return []float64{
		f.DistanceFromHome,
		f.DistanceFromLastTransaction,
		f.RatioToMedianPurchasePrice,
		boolToFloat(f.RepeatRetailer),
		boolToFloat(f.UsedChip),
		boolToFloat(f.UsedPinNumber),
		boolToFloat(f.OnlineOrder),
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// featureLabels maps vector indices to client-facing reason labels.
// None may contain the reasons delimiter.
var featureLabels = []string{
	"Home Distance",
	"Last Trans Distance",
	"Price Ratio",
	"Repeat Retailer",
	"Used Chip",
	"Used PIN",
	"Online Order",
}

const (
	onlineChannelLabel = "Online Transaction Channel"
	maxReasons         = 3
	reasonsDelimiter   = ","

	// Floor applied by the high-risk override; an already-higher model
	// confidence is never lowered.
	highRiskConfidence = 0.98
	highRiskRatio      = 10.0
)

// TransactionRecord is a persisted prediction with its explanation.
type TransactionRecord struct {
	ID int64 `json:"id"`
	Features
	IsFraud         bool      `json:"is_fraud"`
	ConfidenceScore float64   `json:"confidence_score"`
	Reasons         []string  `json:"reasons"`
	CreatedAt       time.Time `json:"created_at"`
	OwnerID         int64     `json:"-"`
}

// Store persists transaction records
type Store interface {
	// Create inserts the record atomically and fills in ID.
	Create(ctx context.Context, rec *TransactionRecord) error
	// ListByOwner returns every record owned by ownerID. No ordering promise.
	ListByOwner(ctx context.Context, ownerID int64) ([]*TransactionRecord, error)
}

// Service orchestrates vectorization, classification, refinement,
// explanation, and persistence.
type Service struct {
	store  Store
	model  Classifier // nil when the artifact was absent at startup
	logger *slog.Logger
}

// NewService creates a prediction service. A nil model degrades Predict to
// ErrModelUnavailable; there is no heuristic-only fallback.
func NewService(store Store, model Classifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, model: model, logger: logger}
}

// ModelLoaded reports whether a classifier is available.
func (s *Service) ModelLoaded() bool {
	return s.model != nil
}

// Predict scores one transaction for the calling user and persists the
// result. The returned record is complete, with reasons as a list.
func (s *Service) Predict(ctx context.Context, owner *users.User, f Features) (*TransactionRecord, error) {
	ctx, span := traces.StartSpan(ctx, "predictions.Predict")
	defer span.End()

	timer := prometheus.NewTimer(metrics.PredictionDuration)
	defer timer.ObserveDuration()

	if s.model == nil {
		metrics.PredictionFailuresTotal.WithLabelValues("model_unavailable").Inc()
		return nil, ErrModelUnavailable
	}

	vector := f.Vector()

	isFraud, probs, err := s.model.Predict(vector)
	if err != nil {
		metrics.PredictionFailuresTotal.WithLabelValues("inference").Inc()
		s.logger.Error("model inference failed", "error", err)
		return nil, ErrInferenceFailed
	}
	confidence := probs[0]
	if isFraud {
		confidence = probs[1]
	}

	isFraud, confidence = refine(f, isFraud, confidence)
	reasons := explain(vector, s.model.Importances(), f.OnlineOrder)

	rec := &TransactionRecord{
		Features:        f,
		IsFraud:         isFraud,
		ConfidenceScore: confidence,
		Reasons:         reasons,
		CreatedAt:       time.Now().UTC(),
		OwnerID:         owner.ID,
	}

	if err := s.store.Create(ctx, rec); err != nil {
		metrics.PredictionFailuresTotal.WithLabelValues("persist").Inc()
		s.logger.Error("failed to persist prediction", "error", err, "owner_id", owner.ID)
		return nil, ErrPersistFailed
	}

	metrics.PredictionsTotal.WithLabelValues(verdictLabel(isFraud)).Inc()
	return rec, nil
}

// History returns all records owned by the caller. Never returns nil.
func (s *Service) History(ctx context.Context, owner *users.User) ([]*TransactionRecord, error) {
	records, err := s.store.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*TransactionRecord{}
	}
	return records, nil
}

// refine applies the high-risk override on top of the raw model verdict:
// online order with a price ratio above 10 and no PIN is forced to fraud
// with confidence at least 0.98.
func refine(f Features, isFraud bool, confidence float64) (bool, float64) {
	if f.OnlineOrder && f.RatioToMedianPurchasePrice > highRiskRatio && !f.UsedPinNumber {
		isFraud = true
		if confidence < highRiskConfidence {
			confidence = highRiskConfidence
		}
	}
	return isFraud, confidence
}

// explain ranks features by local contribution (value x global importance)
// and returns the top two labels, highest first. For online orders a fixed
// channel label is appended when "Online Order" itself was not picked. The
// list is built in that order, capped at three, and never re-sorted.
func explain(vector, importances []float64, onlineOrder bool) []string {
	n := len(vector)
	if len(importances) < n {
		n = len(importances)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	contribution := func(i int) float64 { return vector[i] * importances[i] }

	// Ties break toward the lower feature index, keeping the ranking
	// deterministic.
	for i := 1; i < n; i++ {
		for j := i; j > 0 && contribution(indices[j]) > contribution(indices[j-1]); j-- {
			indices[j], indices[j-1] = indices[j-1], indices[j]
		}
	}

	top := 2
	if top > n {
		top = n
	}
	reasons := make([]string, 0, maxReasons)
	for _, idx := range indices[:top] {
		reasons = append(reasons, featureLabels[idx])
	}

	if onlineOrder && !containsLabel(reasons, featureLabels[6]) {
		reasons = append(reasons, onlineChannelLabel)
	}

	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	return reasons
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

func verdictLabel(isFraud bool) string {
	if isFraud {
		return "fraud"
	}
	return "legitimate"
}

// joinReasons serializes the ordered reason list for storage.
func joinReasons(reasons []string) string {
	return strings.Join(reasons, reasonsDelimiter)
}

// splitReasons restores the list from its storage form. An empty stored
// string is an empty list, not [""].
func splitReasons(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, reasonsDelimiter)
}
