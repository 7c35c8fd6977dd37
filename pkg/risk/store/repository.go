package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/maternia-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrEvaluationNotFound = errors.New("evaluation not found")

// EvaluationModel is the persisted audit row for one verdict.
type EvaluationModel struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey"`
	PatientID     string            `gorm:"index"`
	RiskLevel     string            `gorm:"size:16"`
	RiskScore     float64
	Reason        string
	ModelVersion  string            `gorm:"size:64"`
	Probabilities datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

func (EvaluationModel) TableName() string {
	return "risk_evaluations"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&EvaluationModel{})
}

// Record persists one verdict. The raw classifier distributions ride
// along in a JSON column for audit and display.
func (r *Repository) Record(ctx context.Context, patientID string, verdict models.Verdict) (uuid.UUID, error) {
	probabilities := datatypes.JSONMap{}
	if verdict.MLClassProbabilities != nil {
		probabilities["forest"] = verdict.MLClassProbabilities
	}
	if verdict.MLLogregProbabilities != nil {
		probabilities["logreg"] = verdict.MLLogregProbabilities
	}

	row := &EvaluationModel{
		ID:            uuid.New(),
		PatientID:     patientID,
		RiskLevel:     verdict.RiskLevel,
		RiskScore:     verdict.RiskScore,
		Reason:        verdict.Reason,
		ModelVersion:  verdict.ModelVersion,
		Probabilities: probabilities,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

func (r *Repository) History(ctx context.Context, patientID string, limit int) ([]models.Evaluation, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []EvaluationModel
	result := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	evaluations := make([]models.Evaluation, 0, len(rows))
	for _, row := range rows {
		evaluations = append(evaluations, toDomain(row))
	}
	return evaluations, nil
}

func (r *Repository) Latest(ctx context.Context, patientID string) (models.Evaluation, error) {
	var row EvaluationModel
	result := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at desc").
		First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.Evaluation{}, ErrEvaluationNotFound
	}
	if result.Error != nil {
		return models.Evaluation{}, result.Error
	}
	return toDomain(row), nil
}

func toDomain(row EvaluationModel) models.Evaluation {
	return models.Evaluation{
		ID:           row.ID.String(),
		PatientID:    row.PatientID,
		RiskLevel:    row.RiskLevel,
		RiskScore:    row.RiskScore,
		Reason:       row.Reason,
		ModelVersion: row.ModelVersion,
		CreatedAt:    row.CreatedAt,
	}
}
