package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/maternia-ai/platform/pkg/common/logger"
	"github.com/maternia-ai/platform/pkg/common/models"
	"github.com/maternia-ai/platform/pkg/risk/classifier"
	"github.com/maternia-ai/platform/pkg/risk/heuristic"
	"github.com/maternia-ai/platform/pkg/risk/normalize"
)

// Engine runs the full assessment pipeline: normalize, heuristic
// score, classifier inference, fusion. It always returns a verdict;
// every failure mode degrades to either a classifier abstention or a
// fallback verdict. All state is read-only after construction, so one
// Engine serves concurrent requests without locking.
type Engine struct {
	scorer  *heuristic.Scorer
	forest  *classifier.Adapter
	logreg  *classifier.Adapter
	timeout time.Duration
}

func New(scorer *heuristic.Scorer, forest, logreg *classifier.Adapter, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{scorer: scorer, forest: forest, logreg: logreg, timeout: timeout}
}

// Evaluate assesses one vitals record within the engine's timeout
// budget. If the budget is exhausted or the caller cancels, the
// fail-safe-high fallback verdict is returned instead of an error.
func (e *Engine) Evaluate(ctx context.Context, vitals map[string]interface{}) models.Verdict {
	if err := ctx.Err(); err != nil {
		return e.ErrorFallback(err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan models.Verdict, 1)
	go func() {
		done <- e.evaluate(vitals)
	}()

	select {
	case verdict := <-done:
		return verdict
	case <-ctx.Done():
		logger.Log.WithError(ctx.Err()).Error("Risk evaluation did not complete; returning fail-safe fallback")
		return e.ErrorFallback(ctx.Err())
	}
}

func (e *Engine) evaluate(vitals map[string]interface{}) models.Verdict {
	v := normalize.Normalize(vitals)
	h := e.scorer.Score(v)

	features := v.FeatureMap()
	forestResult := e.safePredict(e.forest, features)
	logregResult := e.safePredict(e.logreg, features)

	return e.fuse(h, forestResult, logregResult)
}

// safePredict turns every classifier failure mode into an abstention:
// a missing artifact, an unsatisfied feature contract, an inference
// error or a panic all yield a nil result for this request.
func (e *Engine) safePredict(adapter *classifier.Adapter, features map[string]float64) (result *models.ClassifierResult) {
	if !adapter.Available() {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"classifier": adapter.Name(),
				"panic":      fmt.Sprintf("%v", r),
			}).Error("Classifier panicked during inference; treating as abstention")
			result = nil
		}
	}()

	result, err := adapter.Predict(features)
	if err != nil {
		logger.Log.WithError(err).WithField("classifier", adapter.Name()).Warn("Classifier abstained")
		return nil
	}
	return result
}

// InputFallback is the verdict for a malformed request payload. Parse
// errors never surface to the caller as hard failures.
func (e *Engine) InputFallback() models.Verdict {
	return models.Verdict{
		RiskLevel:    models.LevelNormal,
		RiskScore:    0.1,
		Reason:       "Unable to parse vitals payload; defaults applied, assessment skipped",
		ModelVersion: "fallback-input",
	}
}

// ErrorFallback is the fail-safe-high verdict for a pipeline that
// could not complete: report critical and let a clinician triage.
func (e *Engine) ErrorFallback(cause error) models.Verdict {
	reason := "Risk evaluation failed"
	if cause != nil {
		reason = fmt.Sprintf("Risk evaluation failed (%v); manual review required", cause)
	}
	return models.Verdict{
		RiskLevel:    models.LevelCritical,
		RiskScore:    1.0,
		Reason:       reason,
		ModelVersion: "fallback-error",
	}
}

// Health reports which classifier artifacts are loaded.
func (e *Engine) Health() map[string]bool {
	return map[string]bool{
		"forest": e.forest.Available(),
		"logreg": e.logreg.Available(),
	}
}
