package heuristic

import (
	"testing"

	"github.com/maternia-ai/platform/pkg/common/models"
	"github.com/maternia-ai/platform/pkg/risk/normalize"
)

func defaultVitals() normalize.Vitals {
	return normalize.Normalize(nil)
}

func TestScoreDefaultsAreNormal(t *testing.T) {
	scorer := NewScorer(DefaultRules())
	result := scorer.Score(defaultVitals())

	if result.Level != models.LevelNormal {
		t.Fatalf("expected normal level for default vitals, got %s", result.Level)
	}
	if result.Severe {
		t.Fatal("default vitals must not set the severe flag")
	}
	if len(result.Reasons) != 1 || result.Reasons[0] != NoRiskReason {
		t.Fatalf("expected the no-risk reason, got %v", result.Reasons)
	}
	if result.Score < 0 || result.Score > 1 {
		t.Fatalf("score out of range: %v", result.Score)
	}
}

func TestSevereHypertensionIsCritical(t *testing.T) {
	scorer := NewScorer(DefaultRules())
	v := defaultVitals()
	v.SystolicBP = 170
	v.DiastolicBP = 115

	result := scorer.Score(v)
	if !result.Severe {
		t.Fatal("expected severe flag for 170/115")
	}
	if result.Level != models.LevelCritical {
		t.Fatalf("expected critical level, got %s", result.Level)
	}
	if !containsReason(result.Reasons, "Severe hypertension") {
		t.Fatalf("expected severe hypertension reason, got %v", result.Reasons)
	}
}

func TestSevereHypertensionSupersedesElevated(t *testing.T) {
	scorer := NewScorer(DefaultRules())
	v := defaultVitals()
	v.SystolicBP = 165

	result := scorer.Score(v)
	if containsReason(result.Reasons, "Elevated blood pressure") {
		t.Fatalf("elevated BP must not fire alongside severe hypertension: %v", result.Reasons)
	}
}

func TestLowFetalHeartRateRaisesLevel(t *testing.T) {
	scorer := NewScorer(DefaultRules())
	v := defaultVitals()
	v.FetalHR = 95

	result := scorer.Score(v)
	if !containsReason(result.Reasons, "Abnormal fetal heart rate") {
		t.Fatalf("expected abnormal fetal heart rate reason, got %v", result.Reasons)
	}
	if LevelRank(result.Level) < LevelRank(models.LevelWarning) {
		t.Fatalf("expected at least warning, got %s", result.Level)
	}
}

func TestBorderlineRulesAreMilder(t *testing.T) {
	scorer := NewScorer(DefaultRules())

	v := defaultVitals()
	v.FetalHR = 165
	borderline := scorer.Score(v)
	if borderline.Severe {
		t.Fatal("borderline fetal HR must not set severe flag")
	}
	if !containsReason(borderline.Reasons, "Borderline fetal heart rate") {
		t.Fatalf("expected borderline reason, got %v", borderline.Reasons)
	}

	v.FetalHR = 175
	abnormal := scorer.Score(v)
	if abnormal.Score <= borderline.Score {
		t.Fatalf("abnormal score %v should exceed borderline %v", abnormal.Score, borderline.Score)
	}
}

func TestMonotonicEscalationOnSystolic(t *testing.T) {
	scorer := NewScorer(DefaultRules())

	prevScore := -1.0
	prevRank := -1
	for _, systolic := range []float64{120, 139, 140, 159, 160, 200} {
		v := defaultVitals()
		v.SystolicBP = systolic
		result := scorer.Score(v)
		if result.Score < prevScore {
			t.Fatalf("score decreased at systolic=%v: %v < %v", systolic, result.Score, prevScore)
		}
		if LevelRank(result.Level) < prevRank {
			t.Fatalf("level decreased at systolic=%v: %s", systolic, result.Level)
		}
		prevScore = result.Score
		prevRank = LevelRank(result.Level)
	}
}

func TestAccumulatedScoreIsClamped(t *testing.T) {
	scorer := NewScorer(DefaultRules())
	v := defaultVitals()
	v.SystolicBP = 180
	v.DiastolicBP = 120
	v.FetalHR = 60
	v.SpO2 = 80
	v.Temperature = 39.5
	v.FetalMovement = 0
	v.MaternalHR = 140

	result := scorer.Score(v)
	if result.Score != 1 {
		t.Fatalf("expected clamped score 1.0, got %v", result.Score)
	}
	if result.Level != models.LevelCritical || !result.Severe {
		t.Fatalf("expected severe critical verdict, got %+v", result)
	}
	if len(result.Reasons) < 5 {
		t.Fatalf("expected reasons for each triggered rule, got %v", result.Reasons)
	}
}

func TestScoreIsIdempotent(t *testing.T) {
	scorer := NewScorer(DefaultRules())
	v := defaultVitals()
	v.SpO2 = 91

	first := scorer.Score(v)
	second := scorer.Score(v)
	if first.Score != second.Score || first.Level != second.Level {
		t.Fatalf("scoring is not idempotent: %+v vs %+v", first, second)
	}
}

func TestLoadRulesFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadRules("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Rules) == 0 {
		t.Fatal("expected default rule table")
	}
	if cfg.WarningThreshold >= cfg.CriticalThreshold {
		t.Fatalf("default thresholds are not a strict partition: %v >= %v", cfg.WarningThreshold, cfg.CriticalThreshold)
	}
}

func containsReason(reasons []string, want string) bool {
	for _, reason := range reasons {
		if reason == want {
			return true
		}
	}
	return false
}
