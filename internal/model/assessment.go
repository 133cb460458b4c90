package model

import (
	"encoding/json"
	"time"
)

// AssessmentRun is one assessment instance for one student. The blueprint
// is frozen at creation; the report blob is written exactly once, when the
// full problem set has been scored.
type AssessmentRun struct {
	UUIDBase
	StudentID uint            `gorm:"index:idx_assessment_student;type:bigint unsigned" json:"studentId"`
	Subject   string          `gorm:"size:100;not null" json:"subject"`
	Status    string          `gorm:"size:20;default:'created'" json:"status"` // created, scored
	Blueprint json.RawMessage `gorm:"type:json" json:"blueprint"`
	Report    json.RawMessage `gorm:"type:json" json:"report,omitempty"`
}

func (AssessmentRun) TableName() string {
	return "assessment_runs"
}

// SubskillMetricRecord is one persisted history row; the metrics
// repository flattens these into a StudentHistory.
type SubskillMetricRecord struct {
	BaseModel
	StudentID           uint       `gorm:"index:idx_metric_student_subject;type:bigint unsigned" json:"studentId"`
	Subject             string     `gorm:"index:idx_metric_student_subject;size:100" json:"subject"`
	UnitID              string     `gorm:"size:64" json:"unitId"`
	UnitTitle           string     `gorm:"size:255" json:"unitTitle"`
	SkillID             string     `gorm:"size:64" json:"skillId"`
	SkillDescription    string     `gorm:"size:255" json:"skillDescription"`
	SubskillID          string     `gorm:"size:64" json:"subskillId"`
	SubskillDescription string     `gorm:"size:255" json:"subskillDescription"`
	Mastery             float64    `gorm:"default:0" json:"mastery"`
	AttemptCount        int        `gorm:"default:0" json:"attemptCount"`
	IsAttempted         bool       `gorm:"default:false" json:"isAttempted"`
	ReadinessStatus     string     `gorm:"size:32" json:"readinessStatus"`
	LastActivity        *time.Time `json:"lastActivityDate"`
}

func (SubskillMetricRecord) TableName() string {
	return "subskill_metrics"
}

// Curriculum rows, ordered by Position within their parent.
type CurriculumUnitRecord struct {
	BaseModel
	Subject  string `gorm:"index;size:100" json:"subject"`
	UnitID   string `gorm:"size:64;not null" json:"unitId"`
	Title    string `gorm:"size:255" json:"title"`
	Position int    `gorm:"default:0" json:"position"`
}

func (CurriculumUnitRecord) TableName() string {
	return "curriculum_units"
}

type CurriculumSkillRecord struct {
	BaseModel
	UnitID      string `gorm:"index;size:64" json:"unitId"`
	SkillID     string `gorm:"size:64;not null" json:"skillId"`
	Description string `gorm:"size:255" json:"description"`
	Position    int    `gorm:"default:0" json:"position"`
}

func (CurriculumSkillRecord) TableName() string {
	return "curriculum_skills"
}

type CurriculumSubskillRecord struct {
	BaseModel
	SkillID     string `gorm:"index;size:64" json:"skillId"`
	SubskillID  string `gorm:"size:64;not null" json:"subskillId"`
	Description string `gorm:"size:255" json:"description"`
	Position    int    `gorm:"default:0" json:"position"`
}

func (CurriculumSubskillRecord) TableName() string {
	return "curriculum_subskills"
}
