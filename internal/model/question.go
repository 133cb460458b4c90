package model

// QuestionKind enumerates the closed set of question variants the engine
// understands. Every switch over a Question must handle all of these.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindTrueFalse      QuestionKind = "true_false"
	KindCategorization QuestionKind = "categorization"
	KindSequencing     QuestionKind = "sequencing"
	KindShortAnswer    QuestionKind = "short_answer"
	KindScenario       QuestionKind = "scenario"
	KindFillInBlanks   QuestionKind = "fill_in_blanks"
	KindMatching       QuestionKind = "matching"
)

// QuestionMeta carries the curriculum hierarchy tags extracted at
// normalization time.
type QuestionMeta struct {
	Subject    string `json:"subject"`
	SkillID    string `json:"skillId"`
	SubskillID string `json:"subskillId"`
	Difficulty string `json:"difficulty"`
	GradeLevel string `json:"gradeLevel"`
}

// QuestionBase holds the fields shared by every variant. A Question is
// immutable once the normalizer has built it; nothing downstream mutates
// the answer key.
type QuestionBase struct {
	ID              string       `json:"id"`
	Prompt          string       `json:"prompt"`
	Rationale       string       `json:"rationale"`
	TeachingNote    string       `json:"teachingNote"`
	SuccessCriteria []string     `json:"successCriteria"`
	Meta            QuestionMeta `json:"metadata"`
}

// Question is the closed polymorphic type over all variants. Only the
// types in this file implement it.
type Question interface {
	Kind() QuestionKind
	Base() *QuestionBase
}

// Option is a single multiple-choice option. Correctness is decided by
// option identity, never by list position: option order is not stable
// across wire encodings.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type MultipleChoice struct {
	QuestionBase
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correctOptionId"`
}

type TrueFalse struct {
	QuestionBase
	Correct bool `json:"correct"`
}

type Categorization struct {
	QuestionBase
	Items      []string          `json:"items"`
	Categories []string          `json:"categories"`
	CorrectMap map[string]string `json:"correctAnswer"` // item -> category
}

// Sequencing stores its items in the correct order; the canonical order is
// itself the answer key.
type Sequencing struct {
	QuestionBase
	Items []string `json:"items"`
}

type ShortAnswer struct {
	QuestionBase
	CorrectAnswer string `json:"correctAnswer"`
	AcceptPartial bool   `json:"acceptPartial"`
}

type Scenario struct {
	QuestionBase
	ScenarioText  string `json:"scenarioText"`
	CorrectAnswer string `json:"correctAnswer"`
}

type FillInBlanks struct {
	QuestionBase
	TextWithBlanks string   `json:"textWithBlanks"`
	CorrectAnswers []string `json:"correctAnswers"` // ordered per blank
	CaseSensitive  bool     `json:"caseSensitive"`
}

type Matching struct {
	QuestionBase
	LeftItems  []string          `json:"leftItems"`
	RightItems []string          `json:"rightItems"`
	CorrectMap map[string]string `json:"correctAnswer"` // left -> right
}

func (q *MultipleChoice) Kind() QuestionKind { return KindMultipleChoice }
func (q *TrueFalse) Kind() QuestionKind      { return KindTrueFalse }
func (q *Categorization) Kind() QuestionKind { return KindCategorization }
func (q *Sequencing) Kind() QuestionKind     { return KindSequencing }
func (q *ShortAnswer) Kind() QuestionKind    { return KindShortAnswer }
func (q *Scenario) Kind() QuestionKind       { return KindScenario }
func (q *FillInBlanks) Kind() QuestionKind   { return KindFillInBlanks }
func (q *Matching) Kind() QuestionKind       { return KindMatching }

func (q *MultipleChoice) Base() *QuestionBase { return &q.QuestionBase }
func (q *TrueFalse) Base() *QuestionBase      { return &q.QuestionBase }
func (q *Categorization) Base() *QuestionBase { return &q.QuestionBase }
func (q *Sequencing) Base() *QuestionBase     { return &q.QuestionBase }
func (q *ShortAnswer) Base() *QuestionBase    { return &q.QuestionBase }
func (q *Scenario) Base() *QuestionBase       { return &q.QuestionBase }
func (q *FillInBlanks) Base() *QuestionBase   { return &q.QuestionBase }
func (q *Matching) Base() *QuestionBase       { return &q.QuestionBase }

// OptionByID returns the option with the given id, if present.
func (q *MultipleChoice) OptionByID(id string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}
