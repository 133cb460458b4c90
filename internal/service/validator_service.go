package service

import (
	"edu_assess_backend/internal/model"
	"edu_assess_backend/internal/util"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Score scale. A wrong but structurally valid answer never drops below the
// participation floor: structural mistakes should not be punished as
// harshly as conceptual ones.
const (
	scoreFull        = 10.0
	scoreFloor       = 3.0
	scorePartialText = 7.0
)

// ValidatorService grades one typed Question against one raw student
// answer. Pure function of its inputs: no I/O, no shared state, safe to
// call concurrently. It never panics; a payload it cannot parse degrades
// to a zero-score evaluation carrying the parse error in the feedback.
type ValidatorService struct{}

func NewValidatorService() *ValidatorService {
	return &ValidatorService{}
}

// Validate parses the raw answer payload into the response variant the
// question expects and applies the variant's scoring rule.
func (s *ValidatorService) Validate(q model.Question, raw any) model.QuestionEvaluation {
	resp, err := s.parseResponse(q, raw)
	if err != nil {
		return model.QuestionEvaluation{
			QuestionID:        q.Base().ID,
			Kind:              q.Kind(),
			IsCorrect:         false,
			Score:             0,
			Feedback:          fmt.Sprintf("Your answer could not be read: %v", err),
			StudentAnswerText: stringify(raw),
			CorrectAnswerText: s.correctAnswerText(q),
			Explanation:       q.Base().Rationale,
		}
	}

	switch question := q.(type) {
	case *model.MultipleChoice:
		return s.scoreMultipleChoice(question, resp.(*model.SelectedOption))
	case *model.TrueFalse:
		return s.scoreTrueFalse(question, resp.(*model.BoolAnswer))
	case *model.Categorization:
		return s.scoreCategorization(question, resp.(*model.CategoryPlacements))
	case *model.Sequencing:
		return s.scoreSequencing(question, resp.(*model.OrderedItems))
	case *model.ShortAnswer:
		return s.scoreText(q, question.CorrectAnswer, question.AcceptPartial, resp.(*model.TextAnswer))
	case *model.Scenario:
		return s.scoreText(q, question.CorrectAnswer, true, resp.(*model.TextAnswer))
	case *model.FillInBlanks:
		return s.scoreFillInBlanks(question, resp.(*model.BlankAnswers))
	case *model.Matching:
		return s.scoreMatching(question, resp.(*model.PairMatches))
	default:
		// unreachable for the closed variant set
		return model.QuestionEvaluation{
			QuestionID: q.Base().ID,
			Kind:       q.Kind(),
			Feedback:   fmt.Sprintf("unsupported question type %q", q.Kind()),
		}
	}
}

// parseResponse normalizes the wire encodings into one Response variant.
// A structured primitive-response payload wins; the flat student_answer
// field is the fallback, with variant-appropriate coercion.
func (s *ValidatorService) parseResponse(q model.Question, raw any) (model.Response, error) {
	if m, ok := raw.(map[string]any); ok {
		if inner, ok := rawMap(m, "primitive_response", "structured_response"); ok {
			m = inner
		}
		if resp, handled, err := s.parseStructured(q, m); handled {
			return resp, err
		}
		if flat, ok := m["student_answer"]; ok {
			return s.coerceFlat(q, flat)
		}
		return nil, fmt.Errorf("%w: no recognizable answer field", util.ErrUnparsableResponse)
	}
	return s.coerceFlat(q, raw)
}

// parseStructured tries the variant-specific field aliases. The handled
// return reports whether any alias was present at all.
func (s *ValidatorService) parseStructured(q model.Question, m map[string]any) (resp model.Response, handled bool, err error) {
	qid := q.Base().ID

	switch question := q.(type) {
	case *model.MultipleChoice:
		if id, ok := rawString(m, "selected_option_id", "selected_id", "option_id"); ok {
			return model.NewSelectedOption(qid, id), true, nil
		}
		if v, ok := firstPresent(m, "selected_index", "answer_index"); ok {
			resp, err := s.mcqFromValue(question, v)
			return resp, true, err
		}
		return nil, false, nil
	case *model.TrueFalse:
		if b, ok := rawBool(m, "selected_answer", "selected", "answer", "value"); ok {
			return model.NewBoolAnswer(qid, b), true, nil
		}
		return nil, false, nil
	case *model.Categorization:
		if v, ok := firstPresent(m, "categorization_answers", "student_categorization", "placements"); ok {
			placements, err := coerceStringMap(v)
			if err != nil {
				return nil, true, err
			}
			return model.NewCategoryPlacements(qid, placements), true, nil
		}
		return nil, false, nil
	case *model.Sequencing:
		if v, ok := firstPresent(m, "student_order", "ordered_items", "sequence"); ok {
			items, err := coerceStringList(v)
			if err != nil {
				return nil, true, err
			}
			return model.NewOrderedItems(qid, items), true, nil
		}
		return nil, false, nil
	case *model.FillInBlanks:
		if v, ok := firstPresent(m, "blank_answers", "answers", "blanks"); ok {
			values, err := coerceStringList(v)
			if err != nil {
				return nil, true, err
			}
			return model.NewBlankAnswers(qid, values), true, nil
		}
		return nil, false, nil
	case *model.Matching:
		if v, ok := firstPresent(m, "student_matches", "matches", "mappings"); ok {
			pairs, err := coerceStringMap(v)
			if err != nil {
				return nil, true, err
			}
			return model.NewPairMatches(qid, pairs), true, nil
		}
		return nil, false, nil
	case *model.ShortAnswer, *model.Scenario:
		if text, ok := rawString(m, "answer", "response", "text"); ok {
			return model.NewTextAnswer(qid, text), true, nil
		}
		return nil, false, nil
	}
	return nil, false, nil
}

// coerceFlat handles the legacy single-value encoding: a bare value that
// has to be reinterpreted per variant, including JSON-in-a-string for the
// map and list shaped answers.
func (s *ValidatorService) coerceFlat(q model.Question, v any) (model.Response, error) {
	qid := q.Base().ID

	switch question := q.(type) {
	case *model.MultipleChoice:
		return s.mcqFromValue(question, v)
	case *model.TrueFalse:
		if b, ok := v.(bool); ok {
			return model.NewBoolAnswer(qid, b), nil
		}
		if str, ok := v.(string); ok {
			switch strings.ToLower(strings.TrimSpace(str)) {
			case "true", "t", "yes":
				return model.NewBoolAnswer(qid, true), nil
			case "false", "f", "no":
				return model.NewBoolAnswer(qid, false), nil
			}
		}
		return nil, fmt.Errorf("%w: %q is not a true/false answer", util.ErrUnparsableResponse, stringify(v))
	case *model.Categorization:
		placements, err := coerceStringMap(v)
		if err != nil {
			return nil, err
		}
		return model.NewCategoryPlacements(qid, placements), nil
	case *model.Sequencing:
		items, err := coerceStringList(v)
		if err != nil {
			return nil, err
		}
		return model.NewOrderedItems(qid, items), nil
	case *model.FillInBlanks:
		if str, ok := v.(string); ok && len(question.CorrectAnswers) == 1 && !looksLikeJSON(str) {
			return model.NewBlankAnswers(qid, []string{str}), nil
		}
		values, err := coerceStringList(v)
		if err != nil {
			return nil, err
		}
		return model.NewBlankAnswers(qid, values), nil
	case *model.Matching:
		pairs, err := coerceStringMap(v)
		if err != nil {
			return nil, err
		}
		return model.NewPairMatches(qid, pairs), nil
	case *model.ShortAnswer, *model.Scenario:
		if str, ok := v.(string); ok {
			return model.NewTextAnswer(qid, str), nil
		}
		return model.NewTextAnswer(qid, stringify(v)), nil
	}
	return nil, fmt.Errorf("%w: unsupported question type %q", util.ErrUnparsableResponse, q.Kind())
}

// mcqFromValue resolves the historical multiple-choice encodings to an
// option id: a verbatim id, a zero-based index, a single letter, or the
// option's display text. Index and letter resolve against the same ordered
// option list the question was built with.
func (s *ValidatorService) mcqFromValue(q *model.MultipleChoice, v any) (model.Response, error) {
	qid := q.Base().ID

	switch value := v.(type) {
	case float64:
		idx := int(value)
		if idx < 0 || idx >= len(q.Options) {
			return nil, fmt.Errorf("%w: option index %d out of range", util.ErrUnparsableResponse, idx)
		}
		return model.NewSelectedOption(qid, q.Options[idx].ID), nil
	case int:
		return s.mcqFromValue(q, float64(value))
	case string:
		trimmed := strings.TrimSpace(value)
		if _, ok := q.OptionByID(trimmed); ok {
			return model.NewSelectedOption(qid, trimmed), nil
		}
		if idx, err := strconv.Atoi(trimmed); err == nil {
			return s.mcqFromValue(q, float64(idx))
		}
		if len(trimmed) == 1 {
			idx := int(strings.ToUpper(trimmed)[0] - 'A')
			if idx >= 0 && idx < len(q.Options) {
				return model.NewSelectedOption(qid, q.Options[idx].ID), nil
			}
		}
		for _, opt := range q.Options {
			if strings.EqualFold(opt.Text, trimmed) {
				return model.NewSelectedOption(qid, opt.ID), nil
			}
		}
		return nil, fmt.Errorf("%w: %q matches no option", util.ErrUnparsableResponse, trimmed)
	}
	return nil, fmt.Errorf("%w: unsupported selection type %T", util.ErrUnparsableResponse, v)
}

func (s *ValidatorService) scoreMultipleChoice(q *model.MultipleChoice, resp *model.SelectedOption) model.QuestionEvaluation {
	// identity comparison, never positional: option order is not stable
	correct := resp.OptionID == q.CorrectOptionID

	studentText := resp.OptionID
	if opt, ok := q.OptionByID(resp.OptionID); ok {
		studentText = opt.Text
	}

	return s.evaluation(q, correct, pickScore(correct), s.feedbackFor(correct, "That is not the right option."), studentText)
}

func (s *ValidatorService) scoreTrueFalse(q *model.TrueFalse, resp *model.BoolAnswer) model.QuestionEvaluation {
	correct := resp.Value == q.Correct
	return s.evaluation(q, correct, pickScore(correct), s.feedbackFor(correct, "That is not the right answer."), boolWord(resp.Value))
}

func (s *ValidatorService) scoreCategorization(q *model.Categorization, resp *model.CategoryPlacements) model.QuestionEvaluation {
	total := len(q.Items)
	matched := 0
	for _, item := range q.Items {
		if resp.Placements[item] == q.CorrectMap[item] {
			matched++
		}
	}

	correct := total > 0 && matched == total
	feedback := fmt.Sprintf("%d of %d items placed in the right category.", matched, total)
	if correct {
		feedback = "All items placed correctly."
	}

	return s.evaluation(q, correct, proportionalScore(matched, total), feedback, renderPairs(resp.Placements))
}

func (s *ValidatorService) scoreSequencing(q *model.Sequencing, resp *model.OrderedItems) model.QuestionEvaluation {
	total := len(q.Items)
	studentText := strings.Join(resp.Items, ", ")

	if len(resp.Items) != total {
		feedback := fmt.Sprintf("Your sequence has %d items but %d were expected.", len(resp.Items), total)
		return s.evaluation(q, false, scoreFloor, feedback, studentText)
	}

	matched := 0
	for i, item := range q.Items {
		if resp.Items[i] == item {
			matched++
		}
	}

	correct := total > 0 && matched == total
	feedback := fmt.Sprintf("%d of %d positions in the right order.", matched, total)
	if correct {
		feedback = "Sequence is exactly right."
	}

	return s.evaluation(q, correct, proportionalScore(matched, total), feedback, studentText)
}

func (s *ValidatorService) scoreFillInBlanks(q *model.FillInBlanks, resp *model.BlankAnswers) model.QuestionEvaluation {
	total := len(q.CorrectAnswers)
	matched := 0
	for i, want := range q.CorrectAnswers {
		if i >= len(resp.Values) {
			break
		}
		got := strings.TrimSpace(resp.Values[i])
		want = strings.TrimSpace(want)
		if q.CaseSensitive {
			if got == want {
				matched++
			}
		} else if strings.EqualFold(got, want) {
			matched++
		}
	}

	correct := total > 0 && matched == total
	feedback := fmt.Sprintf("%d of %d blanks filled correctly.", matched, total)
	if correct {
		feedback = "All blanks filled correctly."
	}

	return s.evaluation(q, correct, proportionalScore(matched, total), feedback, strings.Join(resp.Values, ", "))
}

func (s *ValidatorService) scoreMatching(q *model.Matching, resp *model.PairMatches) model.QuestionEvaluation {
	total := len(q.CorrectMap)
	matched := 0
	for left, want := range q.CorrectMap {
		if resp.Pairs[left] == want {
			matched++
		}
	}

	correct := total > 0 && matched == total
	feedback := fmt.Sprintf("%d of %d pairs matched correctly.", matched, total)
	if correct {
		feedback = "All pairs matched correctly."
	}

	return s.evaluation(q, correct, proportionalScore(matched, total), feedback, renderPairs(resp.Pairs))
}

// scoreText grades ShortAnswer and Scenario questions: case-insensitive
// trimmed equality, with an optional substring-containment fallback at a
// reduced score. The containment check is a loose heuristic, not semantic
// matching.
func (s *ValidatorService) scoreText(q model.Question, correctAnswer string, acceptPartial bool, resp *model.TextAnswer) model.QuestionEvaluation {
	got := strings.TrimSpace(strings.ToLower(resp.Text))
	want := strings.TrimSpace(strings.ToLower(correctAnswer))

	if got != "" && got == want {
		return s.evaluation(q, true, scoreFull, "Correct!", resp.Text)
	}

	if acceptPartial && got != "" && want != "" &&
		(strings.Contains(got, want) || strings.Contains(want, got)) {
		return s.evaluation(q, true, scorePartialText, "Close enough - your answer covers the key idea.", resp.Text)
	}

	return s.evaluation(q, false, scoreFloor, "That is not the expected answer.", resp.Text)
}

func (s *ValidatorService) evaluation(q model.Question, correct bool, score float64, feedback, studentText string) model.QuestionEvaluation {
	return model.QuestionEvaluation{
		QuestionID:        q.Base().ID,
		Kind:              q.Kind(),
		IsCorrect:         correct,
		Score:             score,
		Feedback:          feedback,
		StudentAnswerText: studentText,
		CorrectAnswerText: s.correctAnswerText(q),
		Explanation:       q.Base().Rationale,
	}
}

// correctAnswerText renders the answer key for the report. Exhaustive over
// the variant set.
func (s *ValidatorService) correctAnswerText(q model.Question) string {
	switch question := q.(type) {
	case *model.MultipleChoice:
		if opt, ok := question.OptionByID(question.CorrectOptionID); ok {
			return opt.Text
		}
		return question.CorrectOptionID
	case *model.TrueFalse:
		return boolWord(question.Correct)
	case *model.Categorization:
		return renderPairs(question.CorrectMap)
	case *model.Sequencing:
		return strings.Join(question.Items, ", ")
	case *model.ShortAnswer:
		return question.CorrectAnswer
	case *model.Scenario:
		return question.CorrectAnswer
	case *model.FillInBlanks:
		return strings.Join(question.CorrectAnswers, ", ")
	case *model.Matching:
		return renderPairs(question.CorrectMap)
	}
	return ""
}

func (s *ValidatorService) feedbackFor(correct bool, wrong string) string {
	if correct {
		return "Correct!"
	}
	return wrong
}

func pickScore(correct bool) float64 {
	if correct {
		return scoreFull
	}
	return scoreFloor
}

// proportionalScore maps matched/total onto the 0-10 scale with the
// participation floor.
func proportionalScore(matched, total int) float64 {
	if total == 0 {
		return scoreFloor
	}
	score := scoreFull * float64(matched) / float64(total)
	if score < scoreFloor {
		return scoreFloor
	}
	return score
}

// renderPairs renders a map answer in stable key order.
func renderPairs(pairs map[string]string) string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, pairs[k]))
	}
	return strings.Join(parts, "; ")
}

func boolWord(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func firstPresent(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// coerceStringMap accepts a decoded object or a JSON object in a string.
func coerceStringMap(v any) (map[string]string, error) {
	if m, ok := toStringMap(v); ok {
		return m, nil
	}
	if str, ok := v.(string); ok {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(str), &decoded); err == nil {
			if m, ok := toStringMap(any(decoded)); ok {
				return m, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: expected an object of answers", util.ErrUnparsableResponse)
}

// coerceStringList accepts a decoded array or a JSON array in a string.
func coerceStringList(v any) ([]string, error) {
	if list, ok := toStringSlice(v); ok {
		return list, nil
	}
	if str, ok := v.(string); ok {
		var decoded []any
		if err := json.Unmarshal([]byte(str), &decoded); err == nil {
			if list, ok := toStringSlice(any(decoded)); ok {
				return list, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: expected a list of answers", util.ErrUnparsableResponse)
}

func looksLikeJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{")
}
