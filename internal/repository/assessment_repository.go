package repository

import (
	"edu_assess_backend/internal/model"
	"edu_assess_backend/internal/util"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// AssessmentRepository persists assessment runs: the frozen blueprint at
// creation and the report blob once scoring has finished. The store is an
// opaque key-value map keyed by (assessment_id, student_id).
type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) CreateRun(studentID uint, subject string, blueprint *model.AssessmentBlueprint) (*model.AssessmentRun, error) {
	blob, err := json.Marshal(blueprint)
	if err != nil {
		return nil, err
	}

	run := &model.AssessmentRun{
		StudentID: studentID,
		Subject:   subject,
		Status:    "created",
		Blueprint: blob,
	}
	if err := r.DB.Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *AssessmentRepository) FindRun(assessmentID string, studentID uint) (*model.AssessmentRun, error) {
	var run model.AssessmentRun
	err := r.DB.Where("id = ? AND student_id = ?", assessmentID, studentID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Blueprint decodes the frozen blueprint of a run.
func (r *AssessmentRepository) Blueprint(run *model.AssessmentRun) (*model.AssessmentBlueprint, error) {
	var blueprint model.AssessmentBlueprint
	if err := json.Unmarshal(run.Blueprint, &blueprint); err != nil {
		return nil, err
	}
	return &blueprint, nil
}

// SaveReport writes the report blob and flips the run to scored. Single
// write: either the full report lands or nothing does.
func (r *AssessmentRepository) SaveReport(assessmentID string, studentID uint, report *model.AssessmentReport) error {
	blob, err := json.Marshal(report)
	if err != nil {
		return err
	}

	result := r.DB.Model(&model.AssessmentRun{}).
		Where("id = ? AND student_id = ?", assessmentID, studentID).
		Updates(map[string]any{"report": blob, "status": "scored"})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return util.ErrAssessmentNotFound
	}
	return nil
}

func (r *AssessmentRepository) LoadReport(assessmentID string, studentID uint) (*model.AssessmentReport, error) {
	run, err := r.FindRun(assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	if len(run.Report) == 0 {
		return nil, util.ErrReportNotFound
	}

	var report model.AssessmentReport
	if err := json.Unmarshal(run.Report, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
