package service

import (
	"edu_assess_backend/internal/model"
	"edu_assess_backend/pkg/logger"
	"edu_assess_backend/pkg/monitoring"
	"sort"

	"go.uber.org/zap"
)

// Thresholds for the summary's skill counts and the per-skill performance
// label, in percent.
const (
	masteredThreshold   = 80.0
	strugglingThreshold = 50.0
	proficientThreshold = 75.0
	developingThreshold = 50.0
)

// categoryPriority orders skill rows in the report: weak spots first.
var categoryPriority = map[string]int{
	model.CategoryWeakSpots:          0,
	model.CategoryRecentPractice:     1,
	model.CategoryFoundationalReview: 2,
	model.CategoryNewFrontiers:       3,
	model.CategoryColdStart:          4,
}

// ScorerService runs the normalizer and validator across every problem of
// an assessment and rolls the results up into the three report views. The
// per-problem loop has no data dependency between iterations; aggregation
// waits for the complete review set.
type ScorerService struct {
	Normalizer *NormalizerService
	Validator  *ValidatorService
}

func NewScorerService(normalizer *NormalizerService, validator *ValidatorService) *ScorerService {
	return &ScorerService{Normalizer: normalizer, Validator: validator}
}

// ScoreAssessment grades every problem against answersByProblemID and
// aggregates the reviews. A type-keyed batch entry in the problems list is
// expanded to its individual problems first, each paired with its own
// answer. Problems with no answer entry are scored 0 and marked
// "Not Answered" without touching the validator. Problems whose payload
// matches no known shape are dropped and logged, never silently scored.
func (s *ScorerService) ScoreAssessment(
	problems []map[string]any,
	blueprint *model.AssessmentBlueprint,
	answersByProblemID map[string]any,
) (*model.AssessmentReport, error) {
	reviews := make([]model.ProcessedReview, 0, len(problems))

	for i, raw := range problems {
		entries, isBatch, err := s.Normalizer.ExpandBatch(raw)
		if err != nil {
			logger.Log.Warn("dropping malformed batch payload",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		if !isBatch {
			entries = []map[string]any{raw}
		}

		for _, entry := range entries {
			question, err := s.Normalizer.Normalize(entry)
			if err != nil {
				logger.Log.Warn("dropping unrecognized problem payload",
					zap.Int("index", i),
					zap.Error(err))
				continue
			}

			review := s.processProblem(question, entry, blueprint, answersByProblemID)
			monitoring.ProblemsScored.WithLabelValues(string(question.Kind()), outcomeLabel(review.Evaluation.IsCorrect)).Inc()
			reviews = append(reviews, review)
		}
	}

	monitoring.AssessmentsScored.Inc()

	return &model.AssessmentReport{
		Summary:  buildSummary(reviews),
		Skills:   buildSkillAnalysis(reviews),
		Problems: buildProblemReviews(reviews),
		Reviews:  reviews,
	}, nil
}

func (s *ScorerService) processProblem(
	question model.Question,
	raw map[string]any,
	blueprint *model.AssessmentBlueprint,
	answers map[string]any,
) model.ProcessedReview {
	base := question.Base()

	var evaluation model.QuestionEvaluation
	if answer, ok := answers[base.ID]; ok {
		evaluation = s.Validator.Validate(question, answer)
	} else {
		evaluation = model.QuestionEvaluation{
			QuestionID:        base.ID,
			Kind:              question.Kind(),
			IsCorrect:         false,
			Score:             0,
			Feedback:          "Not Answered",
			CorrectAnswerText: s.Validator.correctAnswerText(question),
			Explanation:       base.Rationale,
		}
	}

	review := s.resolveHierarchy(question, raw, blueprint)
	review.Evaluation = evaluation
	review.ProblemType = problemTypeTag(question, raw)
	return review
}

// resolveHierarchy fills the curriculum metadata for one problem: the
// problem's own embedded fields win, then a blueprint lookup by subskill
// or skill id. Some generators only echo the skill, not the full
// hierarchy, which is why the blueprint fallback exists. Anything still
// missing defaults to "unknown"; that is logged because it usually means a
// generator bug.
func (s *ScorerService) resolveHierarchy(question model.Question, raw map[string]any, blueprint *model.AssessmentBlueprint) model.ProcessedReview {
	meta := question.Base().Meta

	review := model.ProcessedReview{
		SkillID:    meta.SkillID,
		SubskillID: meta.SubskillID,
		Subject:    meta.Subject,
	}
	review.SkillName, _ = rawString(raw, "skill_name", "skill_description")
	review.SubskillName, _ = rawString(raw, "subskill_name", "subskill_description")
	review.UnitID, _ = rawString(raw, "unit_id")
	review.UnitTitle, _ = rawString(raw, "unit_title")
	review.Category, _ = rawString(raw, "category")

	if hierarchyIncomplete(review) && blueprint != nil {
		sel, ok := blueprint.FindBySubskillID(review.SubskillID)
		if !ok {
			sel, ok = blueprint.FindBySkillID(review.SkillID)
		}
		if ok {
			fillFromSelection(&review, sel)
		}
	}

	if review.Subject == "" && blueprint != nil {
		review.Subject = blueprint.Subject
	}

	defaulted := false
	for _, field := range []*string{
		&review.SkillID, &review.SkillName,
		&review.SubskillID, &review.SubskillName,
		&review.UnitID, &review.UnitTitle,
		&review.Subject, &review.Category,
	} {
		if *field == "" {
			*field = "unknown"
			defaulted = true
		}
	}
	if defaulted {
		logger.Log.Warn("problem hierarchy incomplete, defaulting to unknown",
			zap.String("questionId", question.Base().ID),
			zap.String("skillId", review.SkillID),
			zap.String("subskillId", review.SubskillID))
	}

	return review
}

func hierarchyIncomplete(review model.ProcessedReview) bool {
	return review.SkillName == "" || review.SubskillName == "" ||
		review.UnitID == "" || review.UnitTitle == "" || review.Category == ""
}

func fillFromSelection(review *model.ProcessedReview, sel model.SubskillSelection) {
	if review.SkillID == "" {
		review.SkillID = sel.SkillID
	}
	if review.SkillName == "" {
		review.SkillName = sel.SkillDescription
	}
	if review.SubskillID == "" {
		review.SubskillID = sel.SubskillID
	}
	if review.SubskillName == "" {
		review.SubskillName = sel.SubskillDescription
	}
	if review.UnitID == "" {
		review.UnitID = sel.UnitID
	}
	if review.UnitTitle == "" {
		review.UnitTitle = sel.UnitTitle
	}
	if review.Category == "" {
		review.Category = sel.Category
	}
}

type tally struct{ total, correct int }

// buildSummary computes the numeric rollup. Pure and order-independent:
// the same review set yields the same summary regardless of slice order.
func buildSummary(reviews []model.ProcessedReview) model.AssessmentSummary {
	summary := model.AssessmentSummary{
		TotalQuestions:   len(reviews),
		ByProblemType:    make(map[string]model.CategoryStat),
		ByCategory:       make(map[string]model.CategoryStat),
		SkillPercentages: make(map[string]float64),
	}

	byType := make(map[string]*tally)
	byCategory := make(map[string]*tally)
	bySkill := make(map[string]*tally)

	for _, r := range reviews {
		if r.Evaluation.IsCorrect {
			summary.CorrectCount++
		}
		bump(byType, r.ProblemType, r.Evaluation.IsCorrect)
		// pinned at blueprint time, never recomputed here
		bump(byCategory, r.Category, r.Evaluation.IsCorrect)
		bump(bySkill, r.SkillID, r.Evaluation.IsCorrect)
	}

	if summary.TotalQuestions > 0 {
		summary.ScorePercentage = 100 * float64(summary.CorrectCount) / float64(summary.TotalQuestions)
	}

	for key, t := range byType {
		summary.ByProblemType[key] = statOf(t.correct, t.total)
	}
	for key, t := range byCategory {
		summary.ByCategory[key] = statOf(t.correct, t.total)
	}
	for skill, t := range bySkill {
		pct := 100 * float64(t.correct) / float64(t.total)
		summary.SkillPercentages[skill] = pct
		if pct >= masteredThreshold {
			summary.SkillsMastered++
		}
		if pct < strugglingThreshold {
			summary.SkillsStruggling++
		}
	}

	return summary
}

// buildSkillAnalysis produces one row per distinct skill, sorted by
// category priority then descending percentage, with skill id as the
// final tie-break so recomputation is bit-identical.
func buildSkillAnalysis(reviews []model.ProcessedReview) []model.SkillAnalysis {
	rows := make(map[string]*model.SkillAnalysis)

	for _, r := range reviews {
		row, ok := rows[r.SkillID]
		if !ok {
			// categories are homogeneous per skill within one assessment,
			// so the first review seen decides
			row = &model.SkillAnalysis{
				SkillID:   r.SkillID,
				SkillName: r.SkillName,
				Category:  r.Category,
			}
			rows[r.SkillID] = row
		}
		row.Total++
		if r.Evaluation.IsCorrect {
			row.Correct++
		}
	}

	out := make([]model.SkillAnalysis, 0, len(rows))
	for _, row := range rows {
		row.Percentage = 100 * float64(row.Correct) / float64(row.Total)
		row.Performance = performanceLabel(row.Percentage)
		out = append(out, *row)
	}

	sort.Slice(out, func(i, j int) bool {
		pi, pj := priorityOf(out[i].Category), priorityOf(out[j].Category)
		if pi != pj {
			return pi < pj
		}
		if out[i].Percentage != out[j].Percentage {
			return out[i].Percentage > out[j].Percentage
		}
		return out[i].SkillID < out[j].SkillID
	})

	return out
}

// buildProblemReviews is a straight projection; nothing is recomputed.
func buildProblemReviews(reviews []model.ProcessedReview) []model.ProblemReview {
	out := make([]model.ProblemReview, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, model.ProblemReview{
			QuestionID:        r.Evaluation.QuestionID,
			ProblemType:       r.ProblemType,
			SkillName:         r.SkillName,
			SubskillName:      r.SubskillName,
			Category:          r.Category,
			IsCorrect:         r.Evaluation.IsCorrect,
			Score:             r.Evaluation.Score,
			StudentAnswerText: r.Evaluation.StudentAnswerText,
			CorrectAnswerText: r.Evaluation.CorrectAnswerText,
			Feedback:          r.Evaluation.Feedback,
		})
	}
	return out
}

func bump(tallies map[string]*tally, key string, correct bool) {
	t, ok := tallies[key]
	if !ok {
		t = &tally{}
		tallies[key] = t
	}
	t.total++
	if correct {
		t.correct++
	}
}

func performanceLabel(percentage float64) string {
	switch {
	case percentage >= 100:
		return model.PerformanceMastered
	case percentage >= proficientThreshold:
		return model.PerformanceProficient
	case percentage >= developingThreshold:
		return model.PerformanceDeveloping
	default:
		return model.PerformanceNeedsReview
	}
}

func priorityOf(category string) int {
	if p, ok := categoryPriority[category]; ok {
		return p
	}
	return len(categoryPriority)
}

func statOf(correct, total int) model.CategoryStat {
	stat := model.CategoryStat{Total: total, Correct: correct}
	if total > 0 {
		stat.Percentage = 100 * float64(correct) / float64(total)
	}
	return stat
}

func outcomeLabel(correct bool) string {
	if correct {
		return "correct"
	}
	return "incorrect"
}

func problemTypeTag(question model.Question, raw map[string]any) string {
	if tag, ok := rawString(raw, "problem_type", "question_type"); ok {
		return tag
	}
	return string(question.Kind())
}
