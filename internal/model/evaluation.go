package model

// QuestionEvaluation is the uniform grading record produced exactly once
// per (Question, answer) pair, regardless of the source shape of either.
// Score is on a 0-10 scale.
type QuestionEvaluation struct {
	QuestionID        string       `json:"questionId"`
	Kind              QuestionKind `json:"questionType"`
	IsCorrect         bool         `json:"isCorrect"`
	Score             float64      `json:"score"`
	Feedback          string       `json:"feedback"`
	StudentAnswerText string       `json:"studentAnswerText"`
	CorrectAnswerText string       `json:"correctAnswerText"`
	Explanation       string       `json:"explanation"`
}

// ProcessedReview is the fully resolved record of one scored problem:
// the evaluation plus the curriculum hierarchy it was tested under.
// Category is pinned at blueprint time and never recomputed afterward;
// it is the single source of truth for why the question was asked.
type ProcessedReview struct {
	Evaluation   QuestionEvaluation `json:"evaluation"`
	ProblemType  string             `json:"problemType"`
	SkillID      string             `json:"skillId"`
	SkillName    string             `json:"skillName"`
	SubskillID   string             `json:"subskillId"`
	SubskillName string             `json:"subskillName"`
	UnitID       string             `json:"unitId"`
	UnitTitle    string             `json:"unitTitle"`
	Subject      string             `json:"subject"`
	Category     string             `json:"category"`
}
