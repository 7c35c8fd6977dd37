package heuristic

import (
	"github.com/maternia-ai/platform/pkg/common/models"
	"github.com/maternia-ai/platform/pkg/risk/normalize"
)

// NoRiskReason is emitted when no rule triggers.
const NoRiskReason = "Vitals within acceptable ranges"

// Result is the scorer's verdict on one normalized record. The scorer
// is the authoritative safety floor: downstream fusion may escalate the
// level but never reduce it.
type Result struct {
	Score   float64
	Level   string
	Reasons []string
	Severe  bool
}

// Scorer evaluates the clinical rule table against a vitals record.
// Stateless apart from the rule table, which is read-only after
// construction, so a single Scorer is safe for concurrent use.
type Scorer struct {
	cfg     RulesConfig
	weights map[string]Rule
}

func NewScorer(cfg RulesConfig) *Scorer {
	weights := make(map[string]Rule, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		weights[rule.Name] = rule
	}
	return &Scorer{cfg: cfg, weights: weights}
}

// Score is a pure function of the normalized record. Rules are
// evaluated independently except where a severe rule is a tightened
// sub-case of a milder one (severe hypertension supersedes elevated
// blood pressure, and so on for fetal HR, SpO2, temperature and
// movement), in which case only the tighter rule fires.
func (s *Scorer) Score(v normalize.Vitals) Result {
	score := s.cfg.Base
	var reasons []string
	severe := false

	trigger := func(name string) {
		rule, ok := s.weights[name]
		if !ok {
			return
		}
		score += rule.Weight
		reasons = append(reasons, rule.Reason)
		if rule.Severe {
			severe = true
		}
	}

	// Blood pressure
	switch {
	case v.SystolicBP >= 160 || v.DiastolicBP >= 110:
		trigger(RuleSevereHypertension)
	case v.SystolicBP >= 140 || v.DiastolicBP >= 90:
		trigger(RuleElevatedBP)
	}

	// Fetal heart rate
	switch {
	case v.FetalHR < 110 || v.FetalHR > 170:
		trigger(RuleAbnormalFetalHR)
	case v.FetalHR < 120 || v.FetalHR > 160:
		trigger(RuleBorderlineFetalHR)
	}

	// Oxygen saturation
	switch {
	case v.SpO2 < 92:
		trigger(RuleHypoxia)
	case v.SpO2 < 94:
		trigger(RuleBorderlineSpO2)
	}

	// Temperature
	switch {
	case v.Temperature >= 38.5:
		trigger(RuleHighTemperature)
	case v.Temperature >= 37.8:
		trigger(RuleBorderlineTemp)
	}

	// Fetal movement
	switch {
	case v.FetalMovement <= 2:
		trigger(RuleVeryLowMovement)
	case v.FetalMovement <= 5:
		trigger(RuleReducedMovement)
	}

	// Maternal heart rate
	if v.MaternalHR < 60 || v.MaternalHR > 120 {
		trigger(RuleAbnormalMaternalHR)
	}

	score = clamp(score)

	level := models.LevelNormal
	switch {
	case severe || score >= s.cfg.CriticalThreshold:
		level = models.LevelCritical
	case score >= s.cfg.WarningThreshold:
		level = models.LevelWarning
	}

	if len(reasons) == 0 {
		reasons = []string{NoRiskReason}
	}

	return Result{Score: score, Level: level, Reasons: reasons, Severe: severe}
}

// Thresholds exposes the two-threshold partition so the fusion policy
// maps blended scores through the same calibration.
func (s *Scorer) Thresholds() (warning, critical float64) {
	return s.cfg.WarningThreshold, s.cfg.CriticalThreshold
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// LevelRank orders risk levels for floor comparisons.
func LevelRank(level string) int {
	switch level {
	case models.LevelCritical:
		return 2
	case models.LevelWarning:
		return 1
	default:
		return 0
	}
}
