package model

import "time"

// Pedagogical categories a subskill can be selected under. First-match-wins
// during blueprint construction; foundational_cold_start only appears when
// the student has no history for the subject.
const (
	CategoryWeakSpots          = "weak_spots"
	CategoryRecentPractice     = "recent_practice"
	CategoryFoundationalReview = "foundational_review"
	CategoryNewFrontiers       = "new_frontiers"
	CategoryColdStart          = "foundational_cold_start"
)

// SubskillMetrics is one row of a student's learning history, flattened
// from the unit -> skill -> subskill nesting the metrics source uses.
// Mastery is in [0,1]; LastActivity is nil when the subskill was never
// touched.
type SubskillMetrics struct {
	UnitID              string     `json:"unitId"`
	UnitTitle           string     `json:"unitTitle"`
	SkillID             string     `json:"skillId"`
	SkillDescription    string     `json:"skillDescription"`
	SubskillID          string     `json:"subskillId"`
	SubskillDescription string     `json:"subskillDescription"`
	Mastery             float64    `json:"mastery"`
	AttemptCount        int        `json:"attemptCount"`
	IsAttempted         bool       `json:"isAttempted"`
	ReadinessStatus     string     `json:"readinessStatus"`
	LastActivity        *time.Time `json:"lastActivityDate"`
}

// StudentHistory is everything the blueprint builder needs about one
// student in one subject.
type StudentHistory struct {
	StudentID uint              `json:"studentId"`
	Subject   string            `json:"subject"`
	Subskills []SubskillMetrics `json:"subskills"`
}

// SubskillSelection is one blueprint entry: the subskill descriptor plus
// the category it was selected under.
type SubskillSelection struct {
	UnitID              string `json:"unitId"`
	UnitTitle           string `json:"unitTitle"`
	SkillID             string `json:"skillId"`
	SkillDescription    string `json:"skillDescription"`
	SubskillID          string `json:"subskillId"`
	SubskillDescription string `json:"subskillDescription"`
	Category            string `json:"category"`
}

// AssessmentBlueprint is built once per assessment, before any problem is
// generated, and is immutable thereafter. The problem-bank generator
// consumes it, and the scorer re-consults it to recover hierarchy metadata
// for problems that do not carry their own.
//
// SelectedSubskills may contain duplicates: when history is sparse the
// builder pads by resampling what it already picked. Callers must not
// assume subskill uniqueness.
type AssessmentBlueprint struct {
	StudentID         uint                `json:"studentId"`
	Subject           string              `json:"subject"`
	SelectedSubskills []SubskillSelection `json:"selectedSubskills"`
	CategoryBreakdown map[string]int      `json:"categoryBreakdown"`
	CreatedAt         time.Time           `json:"createdAt"`
}

// FindBySubskillID returns the first selection with the given subskill id.
func (b *AssessmentBlueprint) FindBySubskillID(subskillID string) (SubskillSelection, bool) {
	for _, s := range b.SelectedSubskills {
		if s.SubskillID == subskillID {
			return s, true
		}
	}
	return SubskillSelection{}, false
}

// FindBySkillID returns the first selection with the given skill id.
func (b *AssessmentBlueprint) FindBySkillID(skillID string) (SubskillSelection, bool) {
	for _, s := range b.SelectedSubskills {
		if s.SkillID == skillID {
			return s, true
		}
	}
	return SubskillSelection{}, false
}

// CurriculumSubskill / CurriculumSkill / CurriculumUnit mirror the
// curriculum tree the cold-start path walks, in document order.
type CurriculumSubskill struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type CurriculumSkill struct {
	ID          string               `json:"id"`
	Description string               `json:"description"`
	Subskills   []CurriculumSubskill `json:"subskills"`
}

type CurriculumUnit struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Skills []CurriculumSkill `json:"skills"`
}
