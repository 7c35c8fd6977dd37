package engine

import (
	"fmt"
	"strings"

	"github.com/maternia-ai/platform/pkg/common/models"
	"github.com/maternia-ai/platform/pkg/risk/heuristic"
)

// Fusion weights. The heuristic strictly outweighs the combined
// classifier opinion, and classifiers may only escalate the level the
// heuristic assigned, never reduce it.
const (
	heuristicWeight  = 0.6
	classifierWeight = 0.4
)

func (e *Engine) fuse(h heuristic.Result, forest, logreg *models.ClassifierResult) models.Verdict {
	level := h.Level
	if h.Severe {
		level = models.LevelCritical
	}

	available := 0
	escalation := models.LevelNormal
	expected := 0.0
	for _, result := range []*models.ClassifierResult{forest, logreg} {
		if result == nil {
			continue
		}
		available++
		expected += expectedRisk(result)
		if rank(classLevel(result.RiskLevel)) > rank(escalation) {
			escalation = classLevel(result.RiskLevel)
		}
	}
	if rank(escalation) > rank(level) {
		level = escalation
	}

	score := h.Score
	if available > 0 {
		blend := heuristicWeight*h.Score + classifierWeight*(expected/float64(available))
		if blend > score {
			score = blend
		}
	}

	warnAt, critAt := e.scorer.Thresholds()
	switch level {
	case models.LevelCritical:
		if score < critAt {
			score = critAt
		}
	case models.LevelWarning:
		if score < warnAt {
			score = warnAt
		}
	}
	if score > 1 {
		score = 1
	}

	return models.Verdict{
		RiskLevel:             level,
		RiskScore:             score,
		Reason:                buildReason(h, forest, logreg),
		ModelVersion:          modelVersion(forest, logreg),
		MLRiskLevel:           resultLevel(forest),
		MLClassProbabilities:  resultProbs(forest),
		MLLogregRiskLevel:     resultLevel(logreg),
		MLLogregProbabilities: resultProbs(logreg),
	}
}

// expectedRisk collapses a class distribution to a scalar: low counts
// zero, mid half, high full weight.
func expectedRisk(result *models.ClassifierResult) float64 {
	return 0.5*result.Probabilities[models.ClassMid] + result.Probabilities[models.ClassHigh]
}

// classLevel maps classifier class labels onto the verdict scale.
func classLevel(class string) string {
	switch class {
	case models.ClassHigh:
		return models.LevelCritical
	case models.ClassMid, "medium":
		return models.LevelWarning
	default:
		return models.LevelNormal
	}
}

func rank(level string) int {
	return heuristic.LevelRank(level)
}

func buildReason(h heuristic.Result, forest, logreg *models.ClassifierResult) string {
	parts := []string{strings.Join(h.Reasons, "; ")}
	if forest != nil {
		parts = append(parts, fmt.Sprintf("forest model indicates %s risk", forest.RiskLevel))
	}
	if logreg != nil {
		parts = append(parts, fmt.Sprintf("logreg model indicates %s risk", logreg.RiskLevel))
	}
	return strings.Join(parts, "; ")
}

// modelVersion records which sources contributed to the verdict so a
// heuristic-only assessment is distinguishable from a fully informed
// one.
func modelVersion(forest, logreg *models.ClassifierResult) string {
	version := "heuristic"
	if forest != nil {
		version += "+forest"
	}
	if logreg != nil {
		version += "+logreg"
	}
	return version
}

func resultLevel(result *models.ClassifierResult) *string {
	if result == nil {
		return nil
	}
	level := result.RiskLevel
	return &level
}

func resultProbs(result *models.ClassifierResult) map[string]float64 {
	if result == nil {
		return nil
	}
	return result.Probabilities
}
