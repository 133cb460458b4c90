package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"edu_assess_backend/internal/config"
	"edu_assess_backend/internal/model"
	"edu_assess_backend/internal/util"
	"edu_assess_backend/pkg/logger"
	"edu_assess_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AssessmentStore is the persistence surface the orchestrator needs:
// run lifecycle plus the report blob keyed by (assessment_id, student_id).
type AssessmentStore interface {
	CreateRun(studentID uint, subject string, blueprint *model.AssessmentBlueprint) (*model.AssessmentRun, error)
	FindRun(assessmentID string, studentID uint) (*model.AssessmentRun, error)
	Blueprint(run *model.AssessmentRun) (*model.AssessmentBlueprint, error)
	SaveReport(assessmentID string, studentID uint, report *model.AssessmentReport) error
	LoadReport(assessmentID string, studentID uint) (*model.AssessmentReport, error)
}

// AssessmentService ties the engine together: blueprint construction at
// creation, scoring plus aggregation at submission, and report retrieval
// with a redis read-through cache. Redis and the archiver are optional;
// nil disables them.
type AssessmentService struct {
	Store     AssessmentStore
	Blueprint *BlueprintService
	Scorer    *ScorerService
	Redis     *redis.Client
	Archiver  ReportArchiver
	Config    *config.Config
}

func NewAssessmentService(
	store AssessmentStore,
	blueprint *BlueprintService,
	scorer *ScorerService,
	redisClient *redis.Client,
	archiver ReportArchiver,
	cfg *config.Config,
) *AssessmentService {
	return &AssessmentService{
		Store:     store,
		Blueprint: blueprint,
		Scorer:    scorer,
		Redis:     redisClient,
		Archiver:  archiver,
		Config:    cfg,
	}
}

// CreateAssessment builds a blueprint for the student and freezes it in a
// new run. Question count falls back to the configured default when the
// caller passes 0.
func (s *AssessmentService) CreateAssessment(studentID uint, subject string, questionCount int) (*model.AssessmentRun, *model.AssessmentBlueprint, error) {
	if questionCount <= 0 {
		questionCount = s.Config.Assessment.DefaultQuestionCount
	}

	blueprint, err := s.Blueprint.BuildBlueprint(studentID, subject, questionCount)
	if err != nil {
		return nil, nil, err
	}

	run, err := s.Store.CreateRun(studentID, subject, blueprint)
	if err != nil {
		return nil, nil, fmt.Errorf("persist assessment run: %w", err)
	}

	path := "history"
	if blueprint.CategoryBreakdown[model.CategoryColdStart] > 0 {
		path = "cold_start"
	}
	monitoring.BlueprintsBuilt.WithLabelValues(path).Inc()

	logger.Log.Info("assessment created",
		zap.String("assessmentId", run.ID),
		zap.Uint("studentId", studentID),
		zap.String("subject", subject),
		zap.String("path", path),
		zap.Int("subskills", len(blueprint.SelectedSubskills)))

	return run, blueprint, nil
}

// SubmitAssessment scores the full problem set against the run's frozen
// blueprint and stores the report. A run can be scored once; resubmission
// returns ErrAlreadyScored. The cache and archive writes are best effort
// and never fail the submission.
func (s *AssessmentService) SubmitAssessment(
	ctx context.Context,
	assessmentID string,
	studentID uint,
	problems []map[string]any,
	answersByProblemID map[string]any,
) (*model.AssessmentReport, error) {
	run, err := s.Store.FindRun(assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	if run.Status == "scored" {
		return nil, util.ErrAlreadyScored
	}

	blueprint, err := s.Store.Blueprint(run)
	if err != nil {
		return nil, fmt.Errorf("decode blueprint for run %s: %w", assessmentID, err)
	}

	report, err := s.Scorer.ScoreAssessment(problems, blueprint, answersByProblemID)
	if err != nil {
		return nil, err
	}

	if err := s.Store.SaveReport(assessmentID, studentID, report); err != nil {
		return nil, fmt.Errorf("save report for run %s: %w", assessmentID, err)
	}

	s.cacheReport(ctx, assessmentID, studentID, report)
	s.archiveReport(ctx, assessmentID, studentID, report)

	return report, nil
}

// GetReport reads through the redis cache to the store.
func (s *AssessmentService) GetReport(ctx context.Context, assessmentID string, studentID uint) (*model.AssessmentReport, error) {
	if s.Redis != nil {
		cached, err := s.Redis.Get(ctx, reportCacheKey(assessmentID, studentID)).Bytes()
		if err == nil {
			var report model.AssessmentReport
			if jsonErr := json.Unmarshal(cached, &report); jsonErr == nil {
				return &report, nil
			}
			logger.Log.Warn("dropping undecodable cached report",
				zap.String("assessmentId", assessmentID))
		} else if err != redis.Nil {
			logger.Log.Warn("report cache read failed", zap.Error(err))
		}
	}

	report, err := s.Store.LoadReport(assessmentID, studentID)
	if err != nil {
		return nil, err
	}

	s.cacheReport(ctx, assessmentID, studentID, report)
	return report, nil
}

func (s *AssessmentService) cacheReport(ctx context.Context, assessmentID string, studentID uint, report *model.AssessmentReport) {
	if s.Redis == nil {
		return
	}

	blob, err := json.Marshal(report)
	if err != nil {
		logger.Log.Warn("report cache marshal failed", zap.Error(err))
		return
	}

	ttl := time.Duration(s.Config.Assessment.ReportCacheMinutes) * time.Minute
	if err := s.Redis.Set(ctx, reportCacheKey(assessmentID, studentID), blob, ttl).Err(); err != nil {
		logger.Log.Warn("report cache write failed",
			zap.String("assessmentId", assessmentID), zap.Error(err))
	}
}

func (s *AssessmentService) archiveReport(ctx context.Context, assessmentID string, studentID uint, report *model.AssessmentReport) {
	if s.Archiver == nil {
		return
	}

	blob, err := json.Marshal(report)
	if err != nil {
		logger.Log.Warn("report archive marshal failed", zap.Error(err))
		return
	}

	location, err := s.Archiver.ArchiveReport(ctx, assessmentID, studentID, blob)
	if err != nil {
		logger.Log.Warn("report archive upload failed",
			zap.String("assessmentId", assessmentID), zap.Error(err))
		return
	}

	logger.Log.Info("report archived",
		zap.String("assessmentId", assessmentID),
		zap.String("location", location))
}

func reportCacheKey(assessmentID string, studentID uint) string {
	return fmt.Sprintf("assessment:report:%d:%s", studentID, assessmentID)
}
