package heuristic

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Rule is one clinical trigger in the scorer's table. Weights are
// tunable through a YAML override; the severe tier and the reason
// strings are part of the clinical contract and come from the defaults.
type Rule struct {
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight" json:"weight"`
	Reason string  `yaml:"reason" json:"reason"`
	Severe bool    `yaml:"severe" json:"severe"`
}

type RulesConfig struct {
	Base              float64 `yaml:"base" json:"base"`
	WarningThreshold  float64 `yaml:"warning_threshold" json:"warning_threshold"`
	CriticalThreshold float64 `yaml:"critical_threshold" json:"critical_threshold"`
	Rules             []Rule  `yaml:"rules" json:"rules"`
}

// LoadRules reads a rule table from YAML, falling back to the compiled
// defaults when no path is configured.
func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}

	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return RulesConfig{}, err
	}

	if len(cfg.Rules) == 0 {
		return RulesConfig{}, errors.New("no heuristic rules configured")
	}
	if cfg.WarningThreshold <= 0 || cfg.CriticalThreshold <= cfg.WarningThreshold {
		return RulesConfig{}, errors.New("rule thresholds must satisfy 0 < warning < critical")
	}

	return cfg, nil
}

// Rule names, used to bind weights from an override to the evaluators
// in the scorer.
const (
	RuleSevereHypertension = "severe_hypertension"
	RuleElevatedBP         = "elevated_bp"
	RuleAbnormalFetalHR    = "abnormal_fetal_hr"
	RuleBorderlineFetalHR  = "borderline_fetal_hr"
	RuleHypoxia            = "hypoxia"
	RuleBorderlineSpO2     = "borderline_spo2"
	RuleHighTemperature    = "high_temperature"
	RuleBorderlineTemp     = "borderline_temperature"
	RuleVeryLowMovement    = "very_low_movement"
	RuleReducedMovement    = "reduced_movement"
	RuleAbnormalMaternalHR = "abnormal_maternal_hr"
)

func DefaultRules() RulesConfig {
	return RulesConfig{
		Base:              0.10,
		WarningThreshold:  0.35,
		CriticalThreshold: 0.70,
		Rules: []Rule{
			{Name: RuleSevereHypertension, Weight: 0.40, Reason: "Severe hypertension", Severe: true},
			{Name: RuleElevatedBP, Weight: 0.18, Reason: "Elevated blood pressure"},
			{Name: RuleAbnormalFetalHR, Weight: 0.30, Reason: "Abnormal fetal heart rate", Severe: true},
			{Name: RuleBorderlineFetalHR, Weight: 0.12, Reason: "Borderline fetal heart rate"},
			{Name: RuleHypoxia, Weight: 0.25, Reason: "Maternal hypoxia", Severe: true},
			{Name: RuleBorderlineSpO2, Weight: 0.12, Reason: "Borderline oxygen saturation"},
			{Name: RuleHighTemperature, Weight: 0.18, Reason: "High maternal temperature"},
			{Name: RuleBorderlineTemp, Weight: 0.10, Reason: "Borderline maternal temperature"},
			{Name: RuleVeryLowMovement, Weight: 0.25, Reason: "Very low fetal movement", Severe: true},
			{Name: RuleReducedMovement, Weight: 0.10, Reason: "Reduced fetal movement"},
			{Name: RuleAbnormalMaternalHR, Weight: 0.22, Reason: "Abnormal maternal heart rate"},
		},
	}
}
