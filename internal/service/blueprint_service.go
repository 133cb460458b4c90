package service

import (
	"edu_assess_backend/internal/model"
	"edu_assess_backend/internal/util"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"edu_assess_backend/pkg/logger"

	"go.uber.org/zap"
)

// Target proportions per pedagogical category. New frontiers absorbs the
// integer-rounding slack.
const (
	weakSpotShare       = 0.40
	recentPracticeShare = 0.30
	foundationalShare   = 0.20
)

const (
	weakSpotMasteryCeiling   = 0.6
	weakSpotMinAttempts      = 2
	recentPracticeWindow     = 14 * 24 * time.Hour
	foundationalMasteryFloor = 0.8
	readinessReady           = "ready"
	coldStartUnitCount       = 2
)

// HistoryProvider supplies a student's per-subskill performance metrics.
// Injected so tests can substitute a double per call.
type HistoryProvider interface {
	StudentHistory(studentID uint, subject string) (*model.StudentHistory, error)
}

// CurriculumProvider supplies the curriculum tree in document order, used
// by the cold-start path.
type CurriculumProvider interface {
	CurriculumTree(subject string) ([]model.CurriculumUnit, error)
}

// BlueprintService builds the categorized subskill selection an assessment
// will test, before any problem exists. History and curriculum sources and
// the randomness source are constructor arguments, never ambient globals.
// Safe for concurrent use: one Rand serves every request, so all draws go
// through the mutex (math/rand.Rand is not concurrency-safe itself).
type BlueprintService struct {
	History    HistoryProvider
	Curriculum CurriculumProvider

	mu   sync.Mutex
	Rand *rand.Rand
}

func NewBlueprintService(history HistoryProvider, curriculum CurriculumProvider, rng *rand.Rand) *BlueprintService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &BlueprintService{History: history, Curriculum: curriculum, Rand: rng}
}

// BuildBlueprint stratified-samples targetCount subskills across the four
// pedagogical buckets derived from the student's history. With no history
// at all it falls back to a cold-start walk of the curriculum.
func (s *BlueprintService) BuildBlueprint(studentID uint, subject string, targetCount int) (*model.AssessmentBlueprint, error) {
	history, err := s.History.StudentHistory(studentID, subject)
	if err != nil {
		return nil, fmt.Errorf("load history for student %d: %w", studentID, err)
	}

	if history == nil || len(history.Subskills) == 0 {
		return s.buildColdStart(studentID, subject, targetCount)
	}

	buckets := s.categorize(history.Subskills)

	targets := map[string]int{
		model.CategoryWeakSpots:          int(float64(targetCount) * weakSpotShare),
		model.CategoryRecentPractice:     int(float64(targetCount) * recentPracticeShare),
		model.CategoryFoundationalReview: int(float64(targetCount) * foundationalShare),
	}
	// remainder absorbs rounding slack
	targets[model.CategoryNewFrontiers] = targetCount -
		targets[model.CategoryWeakSpots] -
		targets[model.CategoryRecentPractice] -
		targets[model.CategoryFoundationalReview]

	var selected []model.SubskillSelection
	for _, category := range []string{
		model.CategoryWeakSpots,
		model.CategoryRecentPractice,
		model.CategoryFoundationalReview,
		model.CategoryNewFrontiers,
	} {
		selected = append(selected, s.sampleBucket(buckets[category], category, targets[category])...)
	}

	// History exists but nothing categorized: treat like a new student.
	if len(selected) == 0 {
		return s.buildColdStart(studentID, subject, targetCount)
	}

	// Sparse history: pad by resampling what was already picked. The
	// blueprint may legitimately contain duplicate subskills; callers must
	// not assume uniqueness.
	if len(selected) < targetCount && len(selected) > 0 {
		logger.Log.Info("blueprint short of target, padding by resampling",
			zap.Uint("studentId", studentID),
			zap.Int("selected", len(selected)),
			zap.Int("target", targetCount))
		shortfall := targetCount - len(selected)
		for i := 0; i < shortfall; i++ {
			selected = append(selected, selected[s.intn(len(selected))])
		}
	}

	s.shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	breakdown := make(map[string]int)
	for _, sel := range selected {
		breakdown[sel.Category]++
	}

	return &model.AssessmentBlueprint{
		StudentID:         studentID,
		Subject:           subject,
		SelectedSubskills: selected,
		CategoryBreakdown: breakdown,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// categorize applies the bucket rules once per subskill, first match wins.
// Subskills matching no rule are excluded from selection; that is not an
// error.
func (s *BlueprintService) categorize(subskills []model.SubskillMetrics) map[string][]model.SubskillMetrics {
	buckets := make(map[string][]model.SubskillMetrics)
	now := time.Now()

	for _, sub := range subskills {
		category, ok := categoryFor(sub, now)
		if !ok {
			continue
		}
		buckets[category] = append(buckets[category], sub)
	}
	return buckets
}

func categoryFor(sub model.SubskillMetrics, now time.Time) (string, bool) {
	switch {
	case sub.Mastery < weakSpotMasteryCeiling && sub.AttemptCount > weakSpotMinAttempts:
		return model.CategoryWeakSpots, true
	case sub.LastActivity != nil && now.Sub(*sub.LastActivity) <= recentPracticeWindow &&
		sub.Mastery < 1.0 && sub.IsAttempted:
		return model.CategoryRecentPractice, true
	case sub.Mastery >= foundationalMasteryFloor && sub.IsAttempted:
		return model.CategoryFoundationalReview, true
	case sub.ReadinessStatus == readinessReady && !sub.IsAttempted:
		return model.CategoryNewFrontiers, true
	}
	return "", false
}

// sampleBucket takes a uniform sample without replacement, capped by the
// bucket's pool size.
func (s *BlueprintService) sampleBucket(pool []model.SubskillMetrics, category string, target int) []model.SubskillSelection {
	if target <= 0 || len(pool) == 0 {
		return nil
	}

	indices := s.perm(len(pool))
	if target > len(pool) {
		target = len(pool)
	}

	out := make([]model.SubskillSelection, 0, target)
	for _, idx := range indices[:target] {
		out = append(out, toSelection(pool[idx], category))
	}
	return out
}

// buildColdStart walks the curriculum tree in document order and takes
// subskills from the first two structural units until targetCount is
// reached.
func (s *BlueprintService) buildColdStart(studentID uint, subject string, targetCount int) (*model.AssessmentBlueprint, error) {
	units, err := s.Curriculum.CurriculumTree(subject)
	if err != nil {
		return nil, fmt.Errorf("load curriculum for %q: %w", subject, err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: %q", util.ErrNoCurriculumData, subject)
	}

	logger.Log.Info("no history for subject, building cold-start blueprint",
		zap.Uint("studentId", studentID),
		zap.String("subject", subject))

	unitLimit := coldStartUnitCount
	if len(units) < unitLimit {
		unitLimit = len(units)
	}

	var selected []model.SubskillSelection
	for _, unit := range units[:unitLimit] {
		for _, skill := range unit.Skills {
			for _, subskill := range skill.Subskills {
				if len(selected) >= targetCount {
					break
				}
				selected = append(selected, model.SubskillSelection{
					UnitID:              unit.ID,
					UnitTitle:           unit.Title,
					SkillID:             skill.ID,
					SkillDescription:    skill.Description,
					SubskillID:          subskill.ID,
					SubskillDescription: subskill.Description,
					Category:            model.CategoryColdStart,
				})
			}
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: %q has no subskills", util.ErrNoCurriculumData, subject)
	}

	return &model.AssessmentBlueprint{
		StudentID:         studentID,
		Subject:           subject,
		SelectedSubskills: selected,
		CategoryBreakdown: map[string]int{model.CategoryColdStart: len(selected)},
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// Locked draws from the shared Rand.
func (s *BlueprintService) perm(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Rand.Perm(n)
}

func (s *BlueprintService) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Rand.Intn(n)
}

func (s *BlueprintService) shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rand.Shuffle(n, swap)
}

func toSelection(sub model.SubskillMetrics, category string) model.SubskillSelection {
	return model.SubskillSelection{
		UnitID:              sub.UnitID,
		UnitTitle:           sub.UnitTitle,
		SkillID:             sub.SkillID,
		SkillDescription:    sub.SkillDescription,
		SubskillID:          sub.SubskillID,
		SubskillDescription: sub.SubskillDescription,
		Category:            category,
	}
}
