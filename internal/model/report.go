package model

// Performance labels derived purely from a percentage.
const (
	PerformanceMastered    = "Mastered"
	PerformanceProficient  = "Proficient"
	PerformanceDeveloping  = "Developing"
	PerformanceNeedsReview = "Needs Review"
)

// CategoryStat is one row of the summary's per-category breakdown.
type CategoryStat struct {
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Percentage float64 `json:"percentage"`
}

// AssessmentSummary is the numeric rollup of one scored assessment. It is
// a pure function of the ProcessedReview set: recomputing it from the same
// reviews in any order yields identical output.
type AssessmentSummary struct {
	TotalQuestions    int                     `json:"totalQuestions"`
	CorrectCount      int                     `json:"correctCount"`
	ScorePercentage   float64                 `json:"scorePercentage"`
	ByProblemType     map[string]CategoryStat `json:"byProblemType"`
	ByCategory        map[string]CategoryStat `json:"byCategory"`
	SkillPercentages  map[string]float64      `json:"skillPercentages"`
	SkillsMastered    int                     `json:"skillsMastered"`    // skills at >= 80%
	SkillsStruggling  int                     `json:"skillsStruggling"`  // skills below 50%
	AINarrative       string                  `json:"aiNarrative"`       // filled by an external generator, empty here
}

// SkillAnalysis is one row per distinct skill, sorted by category priority
// (weak spots first) then descending percentage. Category is taken from
// the first review seen for the skill; within one assessment a skill's
// reviews share a category.
type SkillAnalysis struct {
	SkillID     string  `json:"skillId"`
	SkillName   string  `json:"skillName"`
	Category    string  `json:"category"`
	Total       int     `json:"totalQuestions"`
	Correct     int     `json:"correctCount"`
	Percentage  float64 `json:"percentage"`
	Performance string  `json:"performanceLabel"`
}

// ProblemReview is the lean per-problem row handed to the UI. Straight
// projection of a ProcessedReview; nothing is recomputed.
type ProblemReview struct {
	QuestionID        string  `json:"questionId"`
	ProblemType       string  `json:"problemType"`
	SkillName         string  `json:"skillName"`
	SubskillName      string  `json:"subskillName"`
	Category          string  `json:"category"`
	IsCorrect         bool    `json:"isCorrect"`
	Score             float64 `json:"score"`
	StudentAnswerText string  `json:"studentAnswerText"`
	CorrectAnswerText string  `json:"correctAnswerText"`
	Feedback          string  `json:"feedback"`
}

// AssessmentReport bundles the three aggregate views plus the reviews they
// were derived from. The views are never stored apart from the reviews.
type AssessmentReport struct {
	Summary  AssessmentSummary `json:"summary"`
	Skills   []SkillAnalysis   `json:"skillAnalysis"`
	Problems []ProblemReview   `json:"problemReviews"`
	Reviews  []ProcessedReview `json:"reviews"`
}
