package repository

import (
	"edu_assess_backend/internal/model"

	"gorm.io/gorm"
)

// MetricsRepository reads a student's per-subskill performance history.
// Implements service.HistoryProvider.
type MetricsRepository struct {
	DB *gorm.DB
}

func NewMetricsRepository(db *gorm.DB) *MetricsRepository {
	return &MetricsRepository{DB: db}
}

func (r *MetricsRepository) StudentHistory(studentID uint, subject string) (*model.StudentHistory, error) {
	var records []model.SubskillMetricRecord
	err := r.DB.Where("student_id = ? AND subject = ?", studentID, subject).
		Order("unit_id asc, skill_id asc, subskill_id asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	history := &model.StudentHistory{
		StudentID: studentID,
		Subject:   subject,
		Subskills: make([]model.SubskillMetrics, 0, len(records)),
	}
	for _, rec := range records {
		history.Subskills = append(history.Subskills, model.SubskillMetrics{
			UnitID:              rec.UnitID,
			UnitTitle:           rec.UnitTitle,
			SkillID:             rec.SkillID,
			SkillDescription:    rec.SkillDescription,
			SubskillID:          rec.SubskillID,
			SubskillDescription: rec.SubskillDescription,
			Mastery:             rec.Mastery,
			AttemptCount:        rec.AttemptCount,
			IsAttempted:         rec.IsAttempted,
			ReadinessStatus:     rec.ReadinessStatus,
			LastActivity:        rec.LastActivity,
		})
	}
	return history, nil
}

// UpsertMetric writes one history row; the metrics pipeline that feeds
// this table lives outside this service.
func (r *MetricsRepository) UpsertMetric(rec *model.SubskillMetricRecord) error {
	var existing model.SubskillMetricRecord
	err := r.DB.Where("student_id = ? AND subject = ? AND subskill_id = ?",
		rec.StudentID, rec.Subject, rec.SubskillID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.DB.Create(rec).Error
	}
	if err != nil {
		return err
	}

	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	return r.DB.Save(rec).Error
}
