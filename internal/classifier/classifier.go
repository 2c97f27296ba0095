// Package classifier loads and evaluates the pre-trained fraud model.
//
// The artifact is a JSON export of the trained tree ensemble: feature order,
// global feature-importance weights, and the decision trees themselves. It is
// produced offline by the training pipeline; this package only serves it.
// The loaded model is immutable and safe for unsynchronized concurrent reads.
package classifier

import (
	"encoding/json"
	"fmt"
	"os"
)

// FeatureNames is the canonical input order the model was trained on.
var FeatureNames = []string{
	"distance_from_home",
	"distance_from_last_transaction",
	"ratio_to_median_purchase_price",
	"repeat_retailer",
	"used_chip",
	"used_pin_number",
	"online_order",
}

// node is one decision-tree node. Internal nodes split on
// vector[Feature] <= Threshold (left) vs > (right), matching the training
// library's convention. Leaves have Feature == -1 and class counts
// [not_fraud, fraud].
type node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Counts    []float64 `json:"counts,omitempty"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

// artifact is the on-disk model format.
type artifact struct {
	Features    []string  `json:"features"`
	Importances []float64 `json:"feature_importances"`
	Trees       []tree    `json:"trees"`
}

// Model is the loaded fraud classifier.
type Model struct {
	importances []float64
	trees       []tree
}

// Load reads and validates a model artifact. Callers treat any error as the
// "model absent" startup state; prediction is then degraded, never crashed.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}

	if len(a.Features) != len(FeatureNames) {
		return nil, fmt.Errorf("model artifact has %d features, want %d", len(a.Features), len(FeatureNames))
	}
	for i, name := range a.Features {
		if name != FeatureNames[i] {
			return nil, fmt.Errorf("model feature %d is %q, want %q", i, name, FeatureNames[i])
		}
	}
	if len(a.Importances) != len(FeatureNames) {
		return nil, fmt.Errorf("model artifact has %d importances, want %d", len(a.Importances), len(FeatureNames))
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("model artifact has no trees")
	}
	for ti, t := range a.Trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Feature < 0 {
				if len(n.Counts) != 2 {
					return nil, fmt.Errorf("tree %d leaf %d has %d class counts, want 2", ti, ni, len(n.Counts))
				}
				continue
			}
			if n.Feature >= len(FeatureNames) {
				return nil, fmt.Errorf("tree %d node %d splits on unknown feature %d", ti, ni, n.Feature)
			}
			if n.Left < 0 || n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("tree %d node %d has out-of-range children", ti, ni)
			}
		}
	}

	return &Model{importances: a.Importances, trees: a.Trees}, nil
}

// Predict routes the vector through every tree and averages leaf class
// probabilities. Returns the binary label and the [not_fraud, fraud]
// probability pair.
func (m *Model) Predict(vector []float64) (bool, [2]float64, error) {
	var probs [2]float64
	if len(vector) != len(FeatureNames) {
		return false, probs, fmt.Errorf("feature vector has %d values, want %d", len(vector), len(FeatureNames))
	}

	for ti := range m.trees {
		leaf, err := m.trees[ti].route(vector)
		if err != nil {
			return false, probs, fmt.Errorf("tree %d: %w", ti, err)
		}
		total := leaf.Counts[0] + leaf.Counts[1]
		if total <= 0 {
			return false, probs, fmt.Errorf("tree %d leaf has empty class counts", ti)
		}
		probs[0] += leaf.Counts[0] / total
		probs[1] += leaf.Counts[1] / total
	}

	n := float64(len(m.trees))
	probs[0] /= n
	probs[1] /= n

	// Ties break toward not-fraud
	return probs[1] > probs[0], probs, nil
}

// route walks the tree from the root to a leaf. The step bound guards
// against cycles in a corrupt artifact.
func (t *tree) route(vector []float64) (*node, error) {
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		n := &t.Nodes[idx]
		if n.Feature < 0 {
			return n, nil
		}
		if vector[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return nil, fmt.Errorf("no leaf reached after %d steps", len(t.Nodes))
}

// Importances returns the model's static per-feature importance weights.
// Used only for explanation ranking, never for the decision itself.
func (m *Model) Importances() []float64 {
	out := make([]float64, len(m.importances))
	copy(out, m.importances)
	return out
}
