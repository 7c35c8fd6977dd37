package engine

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/maternia-ai/platform/pkg/common/logger"
	"github.com/maternia-ai/platform/pkg/common/models"
	"github.com/maternia-ai/platform/pkg/risk/classifier"
	"github.com/maternia-ai/platform/pkg/risk/heuristic"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func heuristicOnlyEngine() *Engine {
	scorer := heuristic.NewScorer(heuristic.DefaultRules())
	return New(scorer, classifier.NewFromArtifact("forest", nil), classifier.NewFromArtifact("logreg", nil), 5*time.Second)
}

func fullEngine() *Engine {
	scorer := heuristic.NewScorer(heuristic.DefaultRules())
	return New(scorer, classifier.NewFromArtifact("forest", testArtifact("forest")), classifier.NewFromArtifact("logreg", testArtifact("logreg")), 5*time.Second)
}

// testArtifact builds a minimal real artifact over the canonical
// feature set so end-to-end evaluation exercises the scaler and the
// decision function.
func testArtifact(kind string) *classifier.Artifact {
	artifact := &classifier.Artifact{}
	m := &artifact.Model
	m.Classes = []string{models.ClassLow, models.ClassMid, models.ClassHigh}
	m.FeatureNames = []string{"systolic_bp", "diastolic_bp", "spo2", "map"}
	m.Scaler.Mean = []float64{120, 80, 98, 93.33}
	m.Scaler.Scale = []float64{15, 10, 3, 10}

	switch kind {
	case "logreg":
		m.Type = "logreg"
		m.Weights.Bias = []float64{1, 0, -1}
		m.Weights.Coefficients = [][]float64{
			{-0.8, -0.5, 0.6, -0.4},
			{0.1, 0.1, -0.1, 0.1},
			{0.8, 0.5, -0.6, 0.4},
		}
	case "forest":
		m.Type = "forest"
		m.Trees = []classifier.Tree{
			{Nodes: []classifier.Node{
				{Feature: 0, Threshold: 1.0, Left: 1, Right: 2},
				{Left: -1, Right: -1, Value: []float64{9, 1, 0}},
				{Left: -1, Right: -1, Value: []float64{0, 2, 8}},
			}},
		}
	}
	return artifact
}

func TestEvaluateAlwaysReturnsWellFormedVerdict(t *testing.T) {
	e := fullEngine()
	inputs := []map[string]interface{}{
		nil,
		{},
		{"systolic_bp": "garbage"},
		{"systolic_bp": 200, "spo2": 80},
		{"fetal_hr": 95},
	}
	for _, input := range inputs {
		verdict := e.Evaluate(context.Background(), input)
		switch verdict.RiskLevel {
		case models.LevelNormal, models.LevelWarning, models.LevelCritical:
		default:
			t.Fatalf("invalid risk level %q for input %v", verdict.RiskLevel, input)
		}
		if verdict.RiskScore < 0 || verdict.RiskScore > 1 {
			t.Fatalf("risk score out of range: %v", verdict.RiskScore)
		}
		if verdict.Reason == "" || verdict.ModelVersion == "" {
			t.Fatalf("verdict missing reason or model version: %+v", verdict)
		}
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	e := fullEngine()
	input := map[string]interface{}{"systolic_bp": 150, "spo2": 93}

	first := e.Evaluate(context.Background(), input)
	second := e.Evaluate(context.Background(), input)
	if first.RiskLevel != second.RiskLevel || first.RiskScore != second.RiskScore || first.Reason != second.Reason {
		t.Fatalf("evaluation is not idempotent: %+v vs %+v", first, second)
	}
}

func TestSevereVitalsAreCriticalEndToEnd(t *testing.T) {
	e := fullEngine()
	verdict := e.Evaluate(context.Background(), map[string]interface{}{
		"systolic_bp":  170,
		"diastolic_bp": 115,
		"fetal_hr":     140,
		"spo2":         98,
		"temperature":  36.8,
	})
	if verdict.RiskLevel != models.LevelCritical {
		t.Fatalf("expected critical verdict, got %+v", verdict)
	}
}

func TestDefaultVitalsAreNormalEndToEnd(t *testing.T) {
	e := fullEngine()
	verdict := e.Evaluate(context.Background(), map[string]interface{}{})
	if verdict.RiskLevel != models.LevelNormal {
		t.Fatalf("expected normal verdict for default vitals, got %+v", verdict)
	}
	if verdict.Reason == "" {
		t.Fatal("expected default no-risk reason")
	}
	if verdict.MLRiskLevel == nil || *verdict.MLRiskLevel != models.ClassLow {
		t.Fatalf("expected forest to agree on low, got %v", verdict.MLRiskLevel)
	}
	if verdict.MLLogregRiskLevel == nil || *verdict.MLLogregRiskLevel != models.ClassLow {
		t.Fatalf("expected logreg to agree on low, got %v", verdict.MLLogregRiskLevel)
	}
}

func TestAbstentionToleranceMatchesHeuristicOnly(t *testing.T) {
	input := map[string]interface{}{"fetal_hr": 95}

	with := fullEngine().Evaluate(context.Background(), input)
	without := heuristicOnlyEngine().Evaluate(context.Background(), input)

	if without.MLRiskLevel != nil || without.MLClassProbabilities != nil {
		t.Fatalf("expected null ml fields without classifiers, got %+v", without)
	}
	if without.MLLogregRiskLevel != nil || without.MLLogregProbabilities != nil {
		t.Fatalf("expected null logreg fields without classifiers, got %+v", without)
	}
	if without.ModelVersion != "heuristic" {
		t.Fatalf("expected heuristic-only model version, got %s", without.ModelVersion)
	}

	// Disabling classifiers must not reduce the heuristic floor.
	if heuristic.LevelRank(with.RiskLevel) < heuristic.LevelRank(without.RiskLevel) {
		t.Fatalf("classifiers reduced severity: %s < %s", with.RiskLevel, without.RiskLevel)
	}
}

func TestCancelledContextYieldsErrorFallback(t *testing.T) {
	e := fullEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	verdict := e.Evaluate(ctx, map[string]interface{}{})
	if verdict.RiskLevel != models.LevelCritical || verdict.RiskScore != 1.0 {
		t.Fatalf("expected fail-safe-high fallback, got %+v", verdict)
	}
	if verdict.ModelVersion != "fallback-error" {
		t.Fatalf("expected fallback-error tag, got %s", verdict.ModelVersion)
	}
}

func TestInputFallbackIsSafeDefault(t *testing.T) {
	verdict := heuristicOnlyEngine().InputFallback()
	if verdict.RiskLevel != models.LevelNormal {
		t.Fatalf("expected normal input fallback, got %+v", verdict)
	}
	if verdict.ModelVersion != "fallback-input" {
		t.Fatalf("expected fallback-input tag, got %s", verdict.ModelVersion)
	}
}

func TestHealthReportsArtifactState(t *testing.T) {
	health := fullEngine().Health()
	if !health["forest"] || !health["logreg"] {
		t.Fatalf("expected both classifiers loaded, got %v", health)
	}

	health = heuristicOnlyEngine().Health()
	if health["forest"] || health["logreg"] {
		t.Fatalf("expected both classifiers unavailable, got %v", health)
	}
}
