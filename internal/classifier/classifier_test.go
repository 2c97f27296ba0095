package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = "testdata/fraud_model.json"

func TestLoad(t *testing.T) {
	m, err := Load(testModel)
	require.NoError(t, err)

	imp := m.Importances()
	require.Len(t, imp, len(FeatureNames))

	// Price ratio dominates in the shipped artifact
	assert.Equal(t, 0.45, imp[2])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.json")
	assert.Error(t, err)
}

func TestLoad_RejectsMalformedArtifacts(t *testing.T) {
	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "model.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "not json at all"},
		{"no trees", `{"features":["distance_from_home","distance_from_last_transaction","ratio_to_median_purchase_price","repeat_retailer","used_chip","used_pin_number","online_order"],"feature_importances":[1,0,0,0,0,0,0],"trees":[]}`},
		{"wrong feature order", `{"features":["online_order","distance_from_last_transaction","ratio_to_median_purchase_price","repeat_retailer","used_chip","used_pin_number","distance_from_home"],"feature_importances":[1,0,0,0,0,0,0],"trees":[{"nodes":[{"feature":-1,"counts":[1,1]}]}]}`},
		{"importances mismatch", `{"features":["distance_from_home","distance_from_last_transaction","ratio_to_median_purchase_price","repeat_retailer","used_chip","used_pin_number","online_order"],"feature_importances":[1,0],"trees":[{"nodes":[{"feature":-1,"counts":[1,1]}]}]}`},
		{"leaf without counts", `{"features":["distance_from_home","distance_from_last_transaction","ratio_to_median_purchase_price","repeat_retailer","used_chip","used_pin_number","online_order"],"feature_importances":[1,0,0,0,0,0,0],"trees":[{"nodes":[{"feature":-1}]}]}`},
		{"child out of range", `{"features":["distance_from_home","distance_from_last_transaction","ratio_to_median_purchase_price","repeat_retailer","used_chip","used_pin_number","online_order"],"feature_importances":[1,0,0,0,0,0,0],"trees":[{"nodes":[{"feature":0,"threshold":1,"left":5,"right":6}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestPredict_HighRiskVector(t *testing.T) {
	m, err := Load(testModel)
	require.NoError(t, err)

	// Online order, extreme price ratio, no PIN
	isFraud, probs, err := m.Predict([]float64{0, 0, 15.0, 0, 0, 0, 1})
	require.NoError(t, err)

	assert.True(t, isFraud)
	assert.Greater(t, probs[1], probs[0])
	assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-9)
}

func TestPredict_BenignVector(t *testing.T) {
	m, err := Load(testModel)
	require.NoError(t, err)

	// In-person chip+PIN purchase near home at a repeat retailer
	isFraud, probs, err := m.Predict([]float64{5, 2, 1.0, 1, 1, 1, 0})
	require.NoError(t, err)

	assert.False(t, isFraud)
	assert.Greater(t, probs[0], 0.9)
}

func TestPredict_WrongVectorLength(t *testing.T) {
	m, err := Load(testModel)
	require.NoError(t, err)

	_, _, err = m.Predict([]float64{1, 2, 3})
	assert.Error(t, err)
}
