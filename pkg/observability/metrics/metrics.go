package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	assessmentsNormal   atomic.Int64
	assessmentsWarning  atomic.Int64
	assessmentsCritical atomic.Int64
	fallbackVerdicts    atomic.Int64
	alertsPublished     atomic.Int64
)

func ObserveAssessment(riskLevel, modelVersion string) {
	switch riskLevel {
	case "critical":
		assessmentsCritical.Add(1)
	case "warning":
		assessmentsWarning.Add(1)
	default:
		assessmentsNormal.Add(1)
	}
	if modelVersion == "fallback-input" || modelVersion == "fallback-error" {
		fallbackVerdicts.Add(1)
	}
}

func ObserveAlertPublished() {
	alertsPublished.Add(1)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP maternia_risk_assessments_total Assessments completed, by final risk level.\n")
	fmt.Fprintf(w, "# TYPE maternia_risk_assessments_total counter\n")
	fmt.Fprintf(w, "maternia_risk_assessments_total{level=\"normal\"} %d\n", assessmentsNormal.Load())
	fmt.Fprintf(w, "maternia_risk_assessments_total{level=\"warning\"} %d\n", assessmentsWarning.Load())
	fmt.Fprintf(w, "maternia_risk_assessments_total{level=\"critical\"} %d\n", assessmentsCritical.Load())

	fmt.Fprintf(w, "# HELP maternia_risk_fallback_verdicts_total Verdicts produced by a degradation fallback path.\n")
	fmt.Fprintf(w, "# TYPE maternia_risk_fallback_verdicts_total counter\n")
	fmt.Fprintf(w, "maternia_risk_fallback_verdicts_total %d\n", fallbackVerdicts.Load())

	fmt.Fprintf(w, "# HELP maternia_risk_alerts_published_total Critical-risk alert events published to the bus.\n")
	fmt.Fprintf(w, "# TYPE maternia_risk_alerts_published_total counter\n")
	fmt.Fprintf(w, "maternia_risk_alerts_published_total %d\n", alertsPublished.Load())
}
