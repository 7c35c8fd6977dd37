package classifier

import (
	"errors"
	"fmt"
	"math"

	"github.com/maternia-ai/platform/pkg/common/logger"
	"github.com/maternia-ai/platform/pkg/common/models"
)

// ErrUnavailable marks a classifier whose artifact never loaded; the
// engine treats it as a permanent abstention for the process lifetime.
var ErrUnavailable = errors.New("classifier unavailable")

// Adapter wraps one fitted artifact behind a uniform scoring call.
// Immutable after construction and safe for concurrent use.
type Adapter struct {
	name     string
	artifact *Artifact
}

// Load builds an adapter from an artifact directory. A missing or
// invalid artifact yields an unavailable adapter rather than an error:
// the classifier abstains, the pipeline continues.
func Load(dir, name string) *Adapter {
	artifact, err := LoadArtifact(dir, name)
	if err != nil {
		logger.Log.WithError(err).WithField("classifier", name).Warn("Classifier artifact not loaded; classifier will abstain")
		return &Adapter{name: name}
	}
	logger.Log.WithFields(map[string]interface{}{
		"classifier": name,
		"algorithm":  artifact.Model.Algorithm,
		"features":   len(artifact.Model.FeatureNames),
	}).Info("Classifier artifact loaded")
	return &Adapter{name: name, artifact: artifact}
}

// NewFromArtifact wires a pre-built artifact, used by tests and by
// callers that fetch artifacts from elsewhere.
func NewFromArtifact(name string, artifact *Artifact) *Adapter {
	return &Adapter{name: name, artifact: artifact}
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) Available() bool { return a != nil && a.artifact != nil }

// Predict scales the required features and runs the decision function.
// Any unresolvable feature or malformed parameter surfaces as an error;
// the caller records the classifier as abstaining for this request.
func (a *Adapter) Predict(features map[string]float64) (*models.ClassifierResult, error) {
	if !a.Available() {
		return nil, ErrUnavailable
	}
	m := &a.artifact.Model

	sample := make([]float64, len(m.FeatureNames))
	for idx, name := range m.FeatureNames {
		value, ok := features[name]
		if !ok {
			return nil, fmt.Errorf("missing feature %s", name)
		}
		scale := m.Scaler.Scale[idx]
		if scale == 0 {
			scale = 1
		}
		sample[idx] = (value - m.Scaler.Mean[idx]) / scale
	}

	var probs []float64
	switch m.Type {
	case "logreg":
		probs = a.softmaxScores(sample)
	case "forest":
		probs = a.forestScores(sample)
	default:
		return nil, fmt.Errorf("unknown model type %q", m.Type)
	}

	best := 0
	probabilities := make(map[string]float64, len(m.Classes))
	for i, class := range m.Classes {
		probabilities[class] = probs[i]
		if probs[i] > probs[best] {
			best = i
		}
	}

	return &models.ClassifierResult{
		RiskLevel:     m.Classes[best],
		Probabilities: probabilities,
	}, nil
}

func (a *Adapter) softmaxScores(sample []float64) []float64 {
	m := &a.artifact.Model
	logits := make([]float64, len(m.Classes))
	maxLogit := math.Inf(-1)
	for c := range m.Classes {
		sum := m.Weights.Bias[c]
		for j, coeff := range m.Weights.Coefficients[c] {
			sum += coeff * sample[j]
		}
		logits[c] = sum
		if sum > maxLogit {
			maxLogit = sum
		}
	}

	var total float64
	probs := make([]float64, len(logits))
	for c, logit := range logits {
		probs[c] = math.Exp(logit - maxLogit)
		total += probs[c]
	}
	for c := range probs {
		probs[c] /= total
	}
	return probs
}

func (a *Adapter) forestScores(sample []float64) []float64 {
	m := &a.artifact.Model
	probs := make([]float64, len(m.Classes))
	for _, tree := range m.Trees {
		leaf := walkTree(tree, sample)
		total := 0.0
		for _, v := range leaf {
			total += v
		}
		if total == 0 {
			continue
		}
		for c := range probs {
			if c < len(leaf) {
				probs[c] += leaf[c] / total
			}
		}
	}

	var total float64
	for _, p := range probs {
		total += p
	}
	if total == 0 {
		// Degenerate forest: fall back to a uniform distribution.
		for c := range probs {
			probs[c] = 1 / float64(len(probs))
		}
		return probs
	}
	for c := range probs {
		probs[c] /= total
	}
	return probs
}

func walkTree(tree Tree, sample []float64) []float64 {
	idx := 0
	// Depth bound guards against cyclic node references in a corrupt
	// artifact.
	for steps := 0; steps <= len(tree.Nodes); steps++ {
		node := tree.Nodes[idx]
		if node.Left < 0 || node.Right < 0 || node.Left >= len(tree.Nodes) || node.Right >= len(tree.Nodes) {
			return node.Value
		}
		if node.Feature >= 0 && node.Feature < len(sample) && sample[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return nil
}
