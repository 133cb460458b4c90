package model

// Response is the closed set of parsed student answers, one variant per
// question variant. The validator builds these from raw wire payloads and
// never hands a raw payload to a scoring rule.
type Response interface {
	QuestionID() string
}

type responseBase struct {
	QID string `json:"questionId"`
}

func (r responseBase) QuestionID() string { return r.QID }

// SelectedOption is a multiple-choice answer resolved to an option id.
// Legacy index and letter encodings are resolved against the question's
// option list before this is built.
type SelectedOption struct {
	responseBase
	OptionID string `json:"selectedOptionId"`
}

type BoolAnswer struct {
	responseBase
	Value bool `json:"selectedAnswer"`
}

// CategoryPlacements maps item -> chosen category.
type CategoryPlacements struct {
	responseBase
	Placements map[string]string `json:"placements"`
}

// OrderedItems is the student's proposed sequence.
type OrderedItems struct {
	responseBase
	Items []string `json:"items"`
}

// TextAnswer serves both ShortAnswer and Scenario questions.
type TextAnswer struct {
	responseBase
	Text string `json:"text"`
}

// BlankAnswers holds one value per blank, in blank order.
type BlankAnswers struct {
	responseBase
	Values []string `json:"values"`
}

// PairMatches maps left item -> chosen right item.
type PairMatches struct {
	responseBase
	Pairs map[string]string `json:"pairs"`
}

func NewSelectedOption(questionID, optionID string) *SelectedOption {
	return &SelectedOption{responseBase{questionID}, optionID}
}

func NewBoolAnswer(questionID string, value bool) *BoolAnswer {
	return &BoolAnswer{responseBase{questionID}, value}
}

func NewCategoryPlacements(questionID string, placements map[string]string) *CategoryPlacements {
	return &CategoryPlacements{responseBase{questionID}, placements}
}

func NewOrderedItems(questionID string, items []string) *OrderedItems {
	return &OrderedItems{responseBase{questionID}, items}
}

func NewTextAnswer(questionID, text string) *TextAnswer {
	return &TextAnswer{responseBase{questionID}, text}
}

func NewBlankAnswers(questionID string, values []string) *BlankAnswers {
	return &BlankAnswers{responseBase{questionID}, values}
}

func NewPairMatches(questionID string, pairs map[string]string) *PairMatches {
	return &PairMatches{responseBase{questionID}, pairs}
}
