package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"edu_assess_backend/internal/config"
	"edu_assess_backend/internal/model"
	"edu_assess_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps runs in memory, keyed the same way the repository keys
// them.
type fakeStore struct {
	runs map[string]*model.AssessmentRun
}

func newFakeStore() *fakeStore {
	return &fakeStore{runs: make(map[string]*model.AssessmentRun)}
}

func storeKey(assessmentID string, studentID uint) string {
	return fmt.Sprintf("%s/%d", assessmentID, studentID)
}

func (f *fakeStore) CreateRun(studentID uint, subject string, blueprint *model.AssessmentBlueprint) (*model.AssessmentRun, error) {
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
	run.ID = model.GenerateUUID()
	f.runs[storeKey(run.ID, studentID)] = run
	return run, nil
}

func (f *fakeStore) FindRun(assessmentID string, studentID uint) (*model.AssessmentRun, error) {
	run, ok := f.runs[storeKey(assessmentID, studentID)]
	if !ok {
		return nil, util.ErrAssessmentNotFound
	}
	return run, nil
}

func (f *fakeStore) Blueprint(run *model.AssessmentRun) (*model.AssessmentBlueprint, error) {
	var bp model.AssessmentBlueprint
	if err := json.Unmarshal(run.Blueprint, &bp); err != nil {
		return nil, err
	}
	return &bp, nil
}

func (f *fakeStore) SaveReport(assessmentID string, studentID uint, report *model.AssessmentReport) error {
	run, ok := f.runs[storeKey(assessmentID, studentID)]
	if !ok {
		return util.ErrAssessmentNotFound
	}
	blob, err := json.Marshal(report)
	if err != nil {
		return err
	}
	run.Report = blob
	run.Status = "scored"
	return nil
}

func (f *fakeStore) LoadReport(assessmentID string, studentID uint) (*model.AssessmentReport, error) {
	run, ok := f.runs[storeKey(assessmentID, studentID)]
	if !ok {
		return nil, util.ErrAssessmentNotFound
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

func newTestAssessmentService(store AssessmentStore) *AssessmentService {
	cfg := &config.Config{}
	cfg.Assessment.DefaultQuestionCount = 10
	cfg.Assessment.ReportCacheMinutes = 30

	blueprintSvc := NewBlueprintService(
		&stubHistory{history: ampleHistory()},
		&stubCurriculum{units: curriculumFixture()},
		rand.New(rand.NewSource(5)),
	)

	return NewAssessmentService(store, blueprintSvc, newScorer(), nil, nil, cfg)
}

func TestAssessmentLifecycle(t *testing.T) {
	store := newFakeStore()
	svc := newTestAssessmentService(store)
	ctx := context.Background()

	run, blueprint, err := svc.CreateAssessment(1, "math", 0)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Len(t, blueprint.SelectedSubskills, 10)
	assert.Equal(t, "created", run.Status)

	// report before submission is not found
	_, err = svc.GetReport(ctx, run.ID, 1)
	assert.ErrorIs(t, err, util.ErrReportNotFound)

	problems := []map[string]any{
		trueFalseProblem("p1", nil),
		trueFalseProblem("p2", nil),
	}
	report, err := svc.SubmitAssessment(ctx, run.ID, 1, problems, map[string]any{"p1": true, "p2": false})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.TotalQuestions)
	assert.Equal(t, 1, report.Summary.CorrectCount)

	// resubmission is rejected
	_, err = svc.SubmitAssessment(ctx, run.ID, 1, problems, map[string]any{"p1": true})
	assert.ErrorIs(t, err, util.ErrAlreadyScored)

	// the stored report round-trips
	loaded, err := svc.GetReport(ctx, run.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, report.Summary.CorrectCount, loaded.Summary.CorrectCount)
}

func TestAssessmentScopedToStudent(t *testing.T) {
	store := newFakeStore()
	svc := newTestAssessmentService(store)
	ctx := context.Background()

	run, _, err := svc.CreateAssessment(1, "math", 5)
	require.NoError(t, err)

	// another student cannot see or submit this run
	_, err = svc.GetReport(ctx, run.ID, 2)
	assert.ErrorIs(t, err, util.ErrAssessmentNotFound)

	_, err = svc.SubmitAssessment(ctx, run.ID, 2, nil, nil)
	assert.ErrorIs(t, err, util.ErrAssessmentNotFound)
}

func TestCreateAssessmentDefaultCount(t *testing.T) {
	store := newFakeStore()
	svc := newTestAssessmentService(store)

	_, blueprint, err := svc.CreateAssessment(1, "math", 4)
	require.NoError(t, err)
	assert.Len(t, blueprint.SelectedSubskills, 4)
}
