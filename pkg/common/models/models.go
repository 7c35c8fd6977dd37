package models

import "time"

// Risk levels reported to callers. The heuristic scorer and the fusion
// policy both speak this scale; classifier class labels (low/mid/high)
// are mapped onto it at fusion time.
const (
	LevelNormal   = "normal"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Classifier class labels as stored in model artifacts.
const (
	ClassLow  = "low"
	ClassMid  = "mid"
	ClassHigh = "high"
)

// ClassifierResult is one classifier's opinion for a single request.
// A nil *ClassifierResult means the classifier abstained (artifact
// missing, feature contract unsatisfied, or inference failure).
type ClassifierResult struct {
	RiskLevel     string             `json:"risk_level"`
	Probabilities map[string]float64 `json:"class_probabilities"`
}

// Verdict is the unit returned to the caller. Constructed once by the
// fusion policy and never mutated afterward.
type Verdict struct {
	RiskLevel    string  `json:"risk_level"`
	RiskScore    float64 `json:"risk_score"`
	Reason       string  `json:"reason"`
	ModelVersion string  `json:"model_version"`

	MLRiskLevel           *string            `json:"ml_risk_level"`
	MLClassProbabilities  map[string]float64 `json:"ml_class_probabilities"`
	MLLogregRiskLevel     *string            `json:"ml_logreg_risk_level"`
	MLLogregProbabilities map[string]float64 `json:"ml_logreg_class_probabilities"`
}

// Evaluation is the persisted record of one verdict, keyed by patient.
type Evaluation struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patient_id"`
	RiskLevel    string    `json:"risk_level"`
	RiskScore    float64   `json:"risk_score"`
	Reason       string    `json:"reason"`
	ModelVersion string    `json:"model_version"`
	CreatedAt    time.Time `json:"created_at"`
}

// HealthStatus reports process liveness and per-classifier load state.
type HealthStatus struct {
	Status string          `json:"status"`
	Models map[string]bool `json:"models"`
}
