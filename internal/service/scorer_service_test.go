package service

import (
	"fmt"
	"math/rand"
	"testing"

	"edu_assess_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScorer() *ScorerService {
	return NewScorerService(NewNormalizerService(), NewValidatorService())
}

func trueFalseProblem(id string, extra map[string]any) map[string]any {
	raw := map[string]any{
		"id":        id,
		"statement": "Statement " + id,
		"correct":   true,
	}
	for k, v := range extra {
		raw[k] = v
	}
	return raw
}

func TestScoreAssessmentPercentage(t *testing.T) {
	s := newScorer()

	problems := make([]map[string]any, 0, 10)
	answers := make(map[string]any)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("p%d", i)
		problems = append(problems, trueFalseProblem(id, nil))
		if i < 9 {
			answers[id] = true
		}
	}

	report, err := s.ScoreAssessment(problems, nil, answers)
	require.NoError(t, err)

	assert.Equal(t, 10, report.Summary.TotalQuestions)
	assert.Equal(t, 9, report.Summary.CorrectCount)
	assert.InDelta(t, 90.0, report.Summary.ScorePercentage, 1e-9)

	// the unanswered problem is scored zero without running the validator
	var unanswered *model.ProcessedReview
	for i := range report.Reviews {
		if report.Reviews[i].Evaluation.QuestionID == "p9" {
			unanswered = &report.Reviews[i]
		}
	}
	require.NotNil(t, unanswered)
	assert.Equal(t, 0.0, unanswered.Evaluation.Score)
	assert.Equal(t, "Not Answered", unanswered.Evaluation.Feedback)
	assert.False(t, unanswered.Evaluation.IsCorrect)
}

func TestScoreAssessmentDropsUnrecognizedPayloads(t *testing.T) {
	s := newScorer()

	problems := []map[string]any{
		trueFalseProblem("ok", nil),
		{"mystery_field": "no fingerprint matches this"},
	}

	report, err := s.ScoreAssessment(problems, nil, map[string]any{"ok": true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.TotalQuestions)
}

func TestScoreAssessmentExpandsBatchPayloads(t *testing.T) {
	s := newScorer()

	// one batch entry in the problems list carries two problems of its own
	problems := []map[string]any{
		{
			"true_false": []any{
				trueFalseProblem("b1", nil),
				trueFalseProblem("b2", nil),
			},
			"short_answer": []any{
				map[string]any{"id": "b3", "question": "capital?", "correct_answer": "Paris"},
			},
		},
		trueFalseProblem("solo", nil),
	}

	report, err := s.ScoreAssessment(problems, nil, map[string]any{
		"b1":   true,
		"b2":   false,
		"b3":   "Paris",
		"solo": true,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Summary.TotalQuestions)
	assert.Equal(t, 3, report.Summary.CorrectCount)

	byID := make(map[string]model.ProcessedReview)
	for _, r := range report.Reviews {
		byID[r.Evaluation.QuestionID] = r
	}
	assert.True(t, byID["b1"].Evaluation.IsCorrect)
	assert.False(t, byID["b2"].Evaluation.IsCorrect)
	assert.True(t, byID["b3"].Evaluation.IsCorrect)
	assert.True(t, byID["solo"].Evaluation.IsCorrect)
}

func TestScoreAssessmentDropsMalformedBatch(t *testing.T) {
	s := newScorer()

	problems := []map[string]any{
		{"true_false": []any{"not an object"}},
		trueFalseProblem("ok", nil),
	}

	report, err := s.ScoreAssessment(problems, nil, map[string]any{"ok": true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.TotalQuestions)
}

func TestScoreAssessmentOrderIndependent(t *testing.T) {
	s := newScorer()

	problems := make([]map[string]any, 0, 8)
	answers := make(map[string]any)
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("p%d", i)
		problems = append(problems, trueFalseProblem(id, map[string]any{
			"skill_id":   fmt.Sprintf("skill_%d", i%3),
			"skill_name": fmt.Sprintf("Skill %d", i%3),
		}))
		answers[id] = i%2 == 0
	}

	first, err := s.ScoreAssessment(problems, nil, answers)
	require.NoError(t, err)

	shuffled := make([]map[string]any, len(problems))
	copy(shuffled, problems)
	rng := rand.New(rand.NewSource(99))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	second, err := s.ScoreAssessment(shuffled, nil, answers)
	require.NoError(t, err)

	assert.Equal(t, first.Summary.CorrectCount, second.Summary.CorrectCount)
	assert.Equal(t, first.Summary.ScorePercentage, second.Summary.ScorePercentage)
	assert.Equal(t, first.Summary.SkillPercentages, second.Summary.SkillPercentages)
	assert.Equal(t, first.Summary.ByProblemType, second.Summary.ByProblemType)
	assert.Equal(t, first.Skills, second.Skills)
}

func TestResolveHierarchyEmbeddedWins(t *testing.T) {
	s := newScorer()

	blueprint := &model.AssessmentBlueprint{
		Subject: "math",
		SelectedSubskills: []model.SubskillSelection{{
			UnitID: "bp_unit", UnitTitle: "Blueprint Unit",
			SkillID: "sk1", SkillDescription: "Blueprint Skill",
			SubskillID: "sub1", SubskillDescription: "Blueprint Subskill",
			Category: model.CategoryWeakSpots,
		}},
	}

	problems := []map[string]any{trueFalseProblem("p1", map[string]any{
		"skill_id":      "sk1",
		"subskill_id":   "sub1",
		"skill_name":    "Embedded Skill",
		"subskill_name": "Embedded Subskill",
		"unit_id":       "embedded_unit",
		"unit_title":    "Embedded Unit",
		"category":      model.CategoryRecentPractice,
	})}

	report, err := s.ScoreAssessment(problems, blueprint, map[string]any{"p1": true})
	require.NoError(t, err)
	require.Len(t, report.Reviews, 1)

	review := report.Reviews[0]
	assert.Equal(t, "Embedded Skill", review.SkillName)
	assert.Equal(t, "embedded_unit", review.UnitID)
	assert.Equal(t, model.CategoryRecentPractice, review.Category)
}

func TestResolveHierarchyBlueprintFallback(t *testing.T) {
	s := newScorer()

	blueprint := &model.AssessmentBlueprint{
		Subject: "math",
		SelectedSubskills: []model.SubskillSelection{{
			UnitID: "u1", UnitTitle: "Unit One",
			SkillID: "sk1", SkillDescription: "Skill One",
			SubskillID: "sub1", SubskillDescription: "Subskill One",
			Category: model.CategoryWeakSpots,
		}},
	}

	// only ids embedded; names and category come from the blueprint
	problems := []map[string]any{trueFalseProblem("p1", map[string]any{
		"skill_id":    "sk1",
		"subskill_id": "sub1",
	})}

	report, err := s.ScoreAssessment(problems, blueprint, map[string]any{"p1": true})
	require.NoError(t, err)

	review := report.Reviews[0]
	assert.Equal(t, "Skill One", review.SkillName)
	assert.Equal(t, "Subskill One", review.SubskillName)
	assert.Equal(t, "Unit One", review.UnitTitle)
	assert.Equal(t, model.CategoryWeakSpots, review.Category)
	assert.Equal(t, "math", review.Subject)
}

func TestResolveHierarchyDefaultsToUnknown(t *testing.T) {
	s := newScorer()

	report, err := s.ScoreAssessment(
		[]map[string]any{trueFalseProblem("p1", nil)},
		nil,
		map[string]any{"p1": true},
	)
	require.NoError(t, err)

	review := report.Reviews[0]
	assert.Equal(t, "unknown", review.SkillID)
	assert.Equal(t, "unknown", review.SkillName)
	assert.Equal(t, "unknown", review.UnitTitle)
	assert.Equal(t, "unknown", review.Category)
}

func TestBuildSkillAnalysisOrdering(t *testing.T) {
	reviews := []model.ProcessedReview{
		{SkillID: "frontier", SkillName: "Frontier", Category: model.CategoryNewFrontiers,
			Evaluation: model.QuestionEvaluation{IsCorrect: true}},
		{SkillID: "weak_low", SkillName: "Weak Low", Category: model.CategoryWeakSpots,
			Evaluation: model.QuestionEvaluation{IsCorrect: false}},
		{SkillID: "weak_high", SkillName: "Weak High", Category: model.CategoryWeakSpots,
			Evaluation: model.QuestionEvaluation{IsCorrect: true}},
		{SkillID: "review", SkillName: "Review", Category: model.CategoryFoundationalReview,
			Evaluation: model.QuestionEvaluation{IsCorrect: true}},
	}

	rows := buildSkillAnalysis(reviews)
	require.Len(t, rows, 4)

	// weak spots first, higher percentage first within the bucket
	assert.Equal(t, "weak_high", rows[0].SkillID)
	assert.Equal(t, "weak_low", rows[1].SkillID)
	assert.Equal(t, "review", rows[2].SkillID)
	assert.Equal(t, "frontier", rows[3].SkillID)
}

func TestPerformanceLabels(t *testing.T) {
	assert.Equal(t, model.PerformanceMastered, performanceLabel(100))
	assert.Equal(t, model.PerformanceProficient, performanceLabel(80))
	assert.Equal(t, model.PerformanceProficient, performanceLabel(75))
	assert.Equal(t, model.PerformanceDeveloping, performanceLabel(60))
	assert.Equal(t, model.PerformanceDeveloping, performanceLabel(50))
	assert.Equal(t, model.PerformanceNeedsReview, performanceLabel(49))
}

func TestBuildSummarySkillCounts(t *testing.T) {
	reviews := []model.ProcessedReview{
		{SkillID: "mastered", Evaluation: model.QuestionEvaluation{IsCorrect: true}},
		{SkillID: "mastered", Evaluation: model.QuestionEvaluation{IsCorrect: true}},
		{SkillID: "struggling", Evaluation: model.QuestionEvaluation{IsCorrect: false}},
		{SkillID: "struggling", Evaluation: model.QuestionEvaluation{IsCorrect: false}},
		{SkillID: "middling", Evaluation: model.QuestionEvaluation{IsCorrect: true}},
		{SkillID: "middling", Evaluation: model.QuestionEvaluation{IsCorrect: false}},
	}

	summary := buildSummary(reviews)
	assert.Equal(t, 1, summary.SkillsMastered)
	assert.Equal(t, 1, summary.SkillsStruggling)
	assert.InDelta(t, 100.0, summary.SkillPercentages["mastered"], 1e-9)
	assert.InDelta(t, 0.0, summary.SkillPercentages["struggling"], 1e-9)
	assert.InDelta(t, 50.0, summary.SkillPercentages["middling"], 1e-9)
}

func TestProblemTypeTag(t *testing.T) {
	s := newScorer()

	report, err := s.ScoreAssessment(
		[]map[string]any{trueFalseProblem("p1", map[string]any{"problem_type": "TRUE_FALSE"})},
		nil,
		map[string]any{"p1": true},
	)
	require.NoError(t, err)

	assert.Equal(t, "TRUE_FALSE", report.Reviews[0].ProblemType)
	stat, ok := report.Summary.ByProblemType["TRUE_FALSE"]
	require.True(t, ok)
	assert.Equal(t, 1, stat.Total)
}
