package service

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"edu_assess_backend/internal/model"
	"edu_assess_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct {
	history *model.StudentHistory
	err     error
}

func (s *stubHistory) StudentHistory(studentID uint, subject string) (*model.StudentHistory, error) {
	return s.history, s.err
}

type stubCurriculum struct {
	units []model.CurriculumUnit
	err   error
}

func (s *stubCurriculum) CurriculumTree(subject string) ([]model.CurriculumUnit, error) {
	return s.units, s.err
}

func daysAgo(n int) *time.Time {
	t := time.Now().Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func metric(id string, mastery float64, attempts int, attempted bool, readiness string, last *time.Time) model.SubskillMetrics {
	return model.SubskillMetrics{
		UnitID:              "u1",
		UnitTitle:           "Unit One",
		SkillID:             "skill_" + id,
		SkillDescription:    "Skill " + id,
		SubskillID:          id,
		SubskillDescription: "Subskill " + id,
		Mastery:             mastery,
		AttemptCount:        attempts,
		IsAttempted:         attempted,
		ReadinessStatus:     readiness,
		LastActivity:        last,
	}
}

func TestCategoryForRules(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		sub      model.SubskillMetrics
		category string
		matched  bool
	}{
		{"weak spot", metric("a", 0.3, 5, true, "", daysAgo(30)), model.CategoryWeakSpots, true},
		{"weak spot needs more than two attempts", metric("b", 0.3, 2, true, "", daysAgo(30)), "", false},
		{"recent practice", metric("c", 0.7, 1, true, "", daysAgo(3)), model.CategoryRecentPractice, true},
		{"fully mastered falls through to review", metric("d", 1.0, 1, true, "", daysAgo(3)), model.CategoryFoundationalReview, true},
		{"foundational review", metric("e", 0.9, 1, true, "", daysAgo(60)), model.CategoryFoundationalReview, true},
		{"new frontier", metric("f", 0, 0, false, "ready", nil), model.CategoryNewFrontiers, true},
		{"not ready not attempted", metric("g", 0, 0, false, "locked", nil), "", false},
		{"weak spot wins over recent", metric("h", 0.3, 5, true, "", daysAgo(1)), model.CategoryWeakSpots, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, ok := categoryFor(tt.sub, now)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.category, category)
		})
	}
}

func ampleHistory() *model.StudentHistory {
	subskills := make([]model.SubskillMetrics, 0, 16)
	for i := 0; i < 5; i++ {
		subskills = append(subskills, metric(fmt.Sprintf("weak_%d", i), 0.2, 5, true, "", daysAgo(40)))
	}
	for i := 0; i < 4; i++ {
		subskills = append(subskills, metric(fmt.Sprintf("recent_%d", i), 0.7, 2, true, "", daysAgo(2)))
	}
	for i := 0; i < 3; i++ {
		subskills = append(subskills, metric(fmt.Sprintf("solid_%d", i), 0.95, 4, true, "", daysAgo(90)))
	}
	for i := 0; i < 2; i++ {
		subskills = append(subskills, metric(fmt.Sprintf("new_%d", i), 0, 0, false, "ready", nil))
	}
	return &model.StudentHistory{StudentID: 1, Subject: "math", Subskills: subskills}
}

func TestBuildBlueprintShares(t *testing.T) {
	s := NewBlueprintService(
		&stubHistory{history: ampleHistory()},
		&stubCurriculum{},
		rand.New(rand.NewSource(42)),
	)

	blueprint, err := s.BuildBlueprint(1, "math", 10)
	require.NoError(t, err)
	require.Len(t, blueprint.SelectedSubskills, 10)

	assert.Equal(t, 4, blueprint.CategoryBreakdown[model.CategoryWeakSpots])
	assert.Equal(t, 3, blueprint.CategoryBreakdown[model.CategoryRecentPractice])
	assert.Equal(t, 2, blueprint.CategoryBreakdown[model.CategoryFoundationalReview])
	assert.Equal(t, 1, blueprint.CategoryBreakdown[model.CategoryNewFrontiers])
}

func TestBuildBlueprintDeterministicWithSeed(t *testing.T) {
	history := ampleHistory()

	build := func() *model.AssessmentBlueprint {
		s := NewBlueprintService(
			&stubHistory{history: history},
			&stubCurriculum{},
			rand.New(rand.NewSource(7)),
		)
		bp, err := s.BuildBlueprint(1, "math", 10)
		require.NoError(t, err)
		return bp
	}

	first, second := build(), build()
	require.Equal(t, len(first.SelectedSubskills), len(second.SelectedSubskills))
	for i := range first.SelectedSubskills {
		assert.Equal(t, first.SelectedSubskills[i].SubskillID, second.SelectedSubskills[i].SubskillID)
	}
}

func TestBuildBlueprintPadsSparseHistory(t *testing.T) {
	history := &model.StudentHistory{
		StudentID: 1,
		Subject:   "math",
		Subskills: []model.SubskillMetrics{
			metric("only_weak", 0.2, 5, true, "", daysAgo(40)),
		},
	}

	s := NewBlueprintService(&stubHistory{history: history}, &stubCurriculum{}, rand.New(rand.NewSource(1)))

	blueprint, err := s.BuildBlueprint(1, "math", 6)
	require.NoError(t, err)
	// padded by resampling: duplicates are allowed and expected here
	require.Len(t, blueprint.SelectedSubskills, 6)
	for _, sel := range blueprint.SelectedSubskills {
		assert.Equal(t, "only_weak", sel.SubskillID)
	}
}

func curriculumFixture() []model.CurriculumUnit {
	return []model.CurriculumUnit{
		{
			ID: "u1", Title: "Counting",
			Skills: []model.CurriculumSkill{
				{ID: "s1", Description: "Count to ten", Subskills: []model.CurriculumSubskill{
					{ID: "s1a", Description: "Count objects"},
					{ID: "s1b", Description: "Count aloud"},
				}},
			},
		},
		{
			ID: "u2", Title: "Addition",
			Skills: []model.CurriculumSkill{
				{ID: "s2", Description: "Add within ten", Subskills: []model.CurriculumSubskill{
					{ID: "s2a", Description: "Add with objects"},
				}},
			},
		},
		{
			ID: "u3", Title: "Subtraction",
			Skills: []model.CurriculumSkill{
				{ID: "s3", Description: "Subtract within ten", Subskills: []model.CurriculumSubskill{
					{ID: "s3a", Description: "Take away"},
				}},
			},
		},
	}
}

func TestBuildBlueprintColdStart(t *testing.T) {
	s := NewBlueprintService(
		&stubHistory{history: &model.StudentHistory{StudentID: 2, Subject: "math"}},
		&stubCurriculum{units: curriculumFixture()},
		rand.New(rand.NewSource(1)),
	)

	blueprint, err := s.BuildBlueprint(2, "math", 10)
	require.NoError(t, err)

	// only the first two structural units contribute
	require.Len(t, blueprint.SelectedSubskills, 3)
	ids := make([]string, 0, 3)
	for _, sel := range blueprint.SelectedSubskills {
		assert.Equal(t, model.CategoryColdStart, sel.Category)
		assert.NotEqual(t, "u3", sel.UnitID)
		ids = append(ids, sel.SubskillID)
	}
	assert.Equal(t, []string{"s1a", "s1b", "s2a"}, ids)
	assert.Equal(t, 3, blueprint.CategoryBreakdown[model.CategoryColdStart])
}

func TestBuildBlueprintColdStartWhenNothingCategorizes(t *testing.T) {
	// History exists but every subskill falls outside all buckets.
	history := &model.StudentHistory{
		StudentID: 3,
		Subject:   "math",
		Subskills: []model.SubskillMetrics{
			metric("idle", 0.7, 1, true, "", daysAgo(100)),
		},
	}

	s := NewBlueprintService(
		&stubHistory{history: history},
		&stubCurriculum{units: curriculumFixture()},
		rand.New(rand.NewSource(1)),
	)

	blueprint, err := s.BuildBlueprint(3, "math", 5)
	require.NoError(t, err)
	for _, sel := range blueprint.SelectedSubskills {
		assert.Equal(t, model.CategoryColdStart, sel.Category)
	}
}

func TestBuildBlueprintConcurrent(t *testing.T) {
	// One service instance serves every request in the app; concurrent
	// builds must not corrupt the shared randomness source.
	s := NewBlueprintService(
		&stubHistory{history: ampleHistory()},
		&stubCurriculum{},
		rand.New(rand.NewSource(11)),
	)

	const builders = 8
	var wg sync.WaitGroup
	errs := make(chan error, builders)
	blueprints := make(chan *model.AssessmentBlueprint, builders)

	for i := 0; i < builders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bp, err := s.BuildBlueprint(1, "math", 10)
			if err != nil {
				errs <- err
				return
			}
			blueprints <- bp
		}()
	}
	wg.Wait()
	close(errs)
	close(blueprints)

	for err := range errs {
		t.Fatalf("concurrent build failed: %v", err)
	}
	for bp := range blueprints {
		assert.Len(t, bp.SelectedSubskills, 10)
	}
}

func TestBuildBlueprintNoCurriculum(t *testing.T) {
	s := NewBlueprintService(
		&stubHistory{history: nil},
		&stubCurriculum{units: nil},
		rand.New(rand.NewSource(1)),
	)

	_, err := s.BuildBlueprint(4, "botany", 5)
	assert.ErrorIs(t, err, util.ErrNoCurriculumData)
}
