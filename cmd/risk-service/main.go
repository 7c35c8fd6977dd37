package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/maternia-ai/platform/pkg/common/config"
	"github.com/maternia-ai/platform/pkg/common/database"
	"github.com/maternia-ai/platform/pkg/common/kafka"
	"github.com/maternia-ai/platform/pkg/common/logger"
	"github.com/maternia-ai/platform/pkg/common/middleware"
	"github.com/maternia-ai/platform/pkg/common/models"
	"github.com/maternia-ai/platform/pkg/observability/metrics"
	"github.com/maternia-ai/platform/pkg/risk/classifier"
	"github.com/maternia-ai/platform/pkg/risk/engine"
	"github.com/maternia-ai/platform/pkg/risk/heuristic"
	"github.com/maternia-ai/platform/pkg/risk/store"
)

type RiskService struct {
	engine   *engine.Engine
	repo     *store.Repository
	cache    *store.VerdictCache
	producer *kafka.Producer
}

func main() {
	logger.Init()
	cfg := config.Load()

	rules, err := heuristic.LoadRules(cfg.RuleConfigPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Rule config not loaded; using default rule table")
	}
	scorer := heuristic.NewScorer(rules)

	forest := classifier.Load(cfg.ArtifactDir, "forest")
	logreg := classifier.Load(cfg.ArtifactDir, "logreg")
	riskEngine := engine.New(scorer, forest, logreg, cfg.EvalTimeout)

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	repo := store.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate evaluation tables")
	}

	redisClient := database.GetRedis()
	cache := store.NewVerdictCache(redisClient, cfg.VerdictCacheTTL)

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaAlertTopic)
	defer producer.Close()

	service := &RiskService{
		engine:   riskEngine,
		repo:     repo,
		cache:    cache,
		producer: producer,
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging, middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	router.HandleFunc("/health", service.handleHealth).Methods("GET")
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods("GET")
	router.HandleFunc("/api/v1/risk/assess", service.handleAssess).Methods("POST")
	router.HandleFunc("/api/v1/risk/latest/{patient_id}", service.handleLatest).Methods("GET")
	router.HandleFunc("/api/v1/risk/history/{patient_id}", service.handleHistory).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Risk Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Risk Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Risk Service stopped")
}

func (s *RiskService) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.HealthStatus{
		Status: "healthy",
		Models: s.engine.Health(),
	})
}

// handleAssess runs the full pipeline for one vitals record. The
// response is always a well-formed verdict with HTTP 200: a malformed
// payload degrades to the input fallback verdict, and persistence or
// publish failures are logged without failing the request.
func (s *RiskService) handleAssess(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var payload map[string]interface{}
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()

	var verdict models.Verdict
	patientID := ""
	if err := decoder.Decode(&payload); err != nil {
		logger.Log.WithError(err).Warn("Malformed assessment payload")
		verdict = s.engine.InputFallback()
	} else {
		if id, ok := payload["patient_id"].(string); ok {
			patientID = id
		}
		verdict = s.engine.Evaluate(r.Context(), payload)
	}

	s.record(patientID, verdict)
	metrics.ObserveAssessment(verdict.RiskLevel, verdict.ModelVersion)

	logger.Log.WithFields(map[string]interface{}{
		"patient_id":    patientID,
		"risk_level":    verdict.RiskLevel,
		"model_version": verdict.ModelVersion,
		"latency_ms":    time.Since(start).Milliseconds(),
	}).Info("Assessment completed")

	writeJSON(w, verdict)
}

// record persists, caches and (for critical verdicts) publishes one
// assessment outcome. Detached from the request context so a caller
// hang-up cannot abort the audit trail.
func (s *RiskService) record(patientID string, verdict models.Verdict) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if patientID != "" {
		if _, err := s.repo.Record(ctx, patientID, verdict); err != nil {
			logger.Log.WithError(err).Error("Failed to persist evaluation")
		}
		if err := s.cache.Set(ctx, patientID, verdict); err != nil {
			logger.Log.WithError(err).Warn("Failed to cache verdict")
		}
	}

	if verdict.RiskLevel == models.LevelCritical {
		if err := s.producer.PublishAlert(ctx, patientID, verdict); err != nil {
			logger.Log.WithError(err).Error("Failed to publish critical alert")
		} else {
			metrics.ObserveAlertPublished()
		}
	}
}

func (s *RiskService) handleLatest(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patient_id"]
	ctx := r.Context()

	cached, err := s.cache.Get(ctx, patientID)
	if err != nil {
		logger.Log.WithError(err).Warn("Verdict cache read failed")
	}
	if cached != nil {
		writeJSON(w, cached)
		return
	}

	evaluation, err := s.repo.Latest(ctx, patientID)
	if err == store.ErrEvaluationNotFound {
		http.Error(w, "No evaluations for patient", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("Failed to load latest evaluation")
		http.Error(w, "Failed to load latest evaluation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, models.Verdict{
		RiskLevel:    evaluation.RiskLevel,
		RiskScore:    evaluation.RiskScore,
		Reason:       evaluation.Reason,
		ModelVersion: evaluation.ModelVersion,
	})
}

func (s *RiskService) handleHistory(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patient_id"]

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	evaluations, err := s.repo.History(r.Context(), patientID, limit)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to load evaluation history")
		http.Error(w, "Failed to load evaluation history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"patient_id":  patientID,
		"evaluations": evaluations,
		"count":       len(evaluations),
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response")
	}
}
