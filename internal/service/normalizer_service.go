package service

import (
	"edu_assess_backend/internal/model"
	"edu_assess_backend/internal/util"
	"fmt"
	"sort"
)

// NormalizerService converts raw, weakly typed problem payloads into typed
// questions. It is the only place in the engine that reasons about the
// messy source shapes; everything downstream works on model.Question.
//
// Payloads arrive in three layouts: content at the top level, content
// nested under a problem_data wrapper, or grouped by type inside a
// type-keyed batch. Variant detection uses a fixed priority order of
// structural fingerprints because several variants share marker fields.
type NormalizerService struct{}

func NewNormalizerService() *NormalizerService {
	return &NormalizerService{}
}

// batchKeys are the type-keyed batch groupings the generators emit, in the
// order they are scanned.
var batchKeys = []string{
	"multiple_choice",
	"true_false",
	"categorization",
	"sequencing",
	"short_answer",
	"scenario",
	"fill_in_blanks",
	"matching",
}

// Normalize converts one raw problem into exactly one typed Question.
// Returns util.ErrUnrecognizedShape when no fingerprint matches; the
// caller reports and drops the problem, never coerces it.
func (s *NormalizerService) Normalize(raw map[string]any) (model.Question, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty payload", util.ErrUnrecognizedShape)
	}

	// Content may be nested one level down.
	if inner, ok := rawMap(raw, "problem_data"); ok {
		merged := make(map[string]any, len(inner)+4)
		for k, v := range inner {
			merged[k] = v
		}
		// id and metadata often live on the wrapper, not the payload
		for _, k := range []string{"id", "problem_id", "metadata", "subject", "skill_id", "subskill_id", "difficulty", "grade_level"} {
			if _, exists := merged[k]; !exists {
				if v, ok := raw[k]; ok {
					merged[k] = v
				}
			}
		}
		raw = merged
	}

	// Fingerprint order matters: several variants share marker fields and
	// the listed order is the tie-break.
	switch {
	case hasKey(raw, "text_with_blanks") && hasKey(raw, "blanks"):
		return s.normalizeFillInBlanks(raw)
	case hasKey(raw, "left_items") && hasKey(raw, "right_items") && hasKey(raw, "mappings"):
		return s.normalizeMatching(raw)
	case hasKey(raw, "categorization_items") && hasKey(raw, "categories"):
		return s.normalizeCategorization(raw)
	case hasKey(raw, "items") && hasKey(raw, "instruction") && !hasKey(raw, "categories"):
		return s.normalizeSequencing(raw)
	case hasKey(raw, "scenario") && hasKey(raw, "scenario_question"):
		return s.normalizeScenario(raw)
	case hasKey(raw, "statement") && hasKey(raw, "correct"):
		return s.normalizeTrueFalse(raw)
	case hasOptionList(raw):
		return s.normalizeMultipleChoice(raw)
	case hasKey(raw, "question"):
		return s.normalizeShortAnswer(raw)
	}

	return nil, fmt.Errorf("%w: keys %v", util.ErrUnrecognizedShape, keyNames(raw))
}

// ExpandBatch splits a type-keyed batch payload into its individual
// problem payloads, scanning the type keys in batchKeys order. The second
// return reports whether raw was a batch at all; a non-batch payload is the
// caller's to normalize as a single problem.
func (s *NormalizerService) ExpandBatch(raw map[string]any) ([]map[string]any, bool, error) {
	isBatch := false
	for _, key := range batchKeys {
		if _, ok := raw[key].([]any); ok {
			isBatch = true
			break
		}
	}
	if !isBatch {
		return nil, false, nil
	}

	var entries []map[string]any
	for _, key := range batchKeys {
		list, ok := raw[key].([]any)
		if !ok {
			continue
		}
		for i, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				return nil, true, fmt.Errorf("%w: %s[%d] is not an object", util.ErrUnrecognizedShape, key, i)
			}
			entries = append(entries, m)
		}
	}
	return entries, true, nil
}

// NormalizeBatch expands a type-keyed batch payload into typed questions.
// A payload that is not a batch normalizes as a single problem.
func (s *NormalizerService) NormalizeBatch(raw map[string]any) ([]model.Question, error) {
	entries, isBatch, err := s.ExpandBatch(raw)
	if err != nil {
		return nil, err
	}
	if !isBatch {
		q, err := s.Normalize(raw)
		if err != nil {
			return nil, err
		}
		return []model.Question{q}, nil
	}

	questions := make([]model.Question, 0, len(entries))
	for i, entry := range entries {
		q, err := s.Normalize(entry)
		if err != nil {
			return nil, fmt.Errorf("batch entry %d: %w", i, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (s *NormalizerService) normalizeFillInBlanks(raw map[string]any) (model.Question, error) {
	text, _ := rawString(raw, "text_with_blanks")
	blanks, _ := rawList(raw, "blanks")

	answers := make([]string, 0, len(blanks))
	for _, b := range blanks {
		switch blank := b.(type) {
		case map[string]any:
			ans, _ := rawString(blank, "correct_answer", "answer", "text")
			answers = append(answers, ans)
		default:
			answers = append(answers, stringify(b))
		}
	}

	caseSensitive, _ := rawBool(raw, "case_sensitive")

	return &model.FillInBlanks{
		QuestionBase:   s.baseFrom(raw, text),
		TextWithBlanks: text,
		CorrectAnswers: answers,
		CaseSensitive:  caseSensitive,
	}, nil
}

func (s *NormalizerService) normalizeMatching(raw map[string]any) (model.Question, error) {
	left, _ := rawStringSlice(raw, "left_items")
	right, _ := rawStringSlice(raw, "right_items")

	correct := make(map[string]string)
	if obj, ok := rawMap(raw, "mappings"); ok {
		for k, v := range obj {
			correct[k] = stringify(v)
		}
	} else if pairs, ok := rawList(raw, "mappings"); ok {
		for _, p := range pairs {
			pair, ok := p.(map[string]any)
			if !ok {
				continue
			}
			l, _ := rawString(pair, "left", "left_item")
			r, _ := rawString(pair, "right", "right_item")
			if l != "" {
				correct[l] = r
			}
		}
	}

	prompt, _ := rawString(raw, "question", "instruction", "prompt")

	return &model.Matching{
		QuestionBase: s.baseFrom(raw, prompt),
		LeftItems:    left,
		RightItems:   right,
		CorrectMap:   correct,
	}, nil
}

func (s *NormalizerService) normalizeCategorization(raw map[string]any) (model.Question, error) {
	categories, _ := rawStringSlice(raw, "categories")
	entries, _ := rawList(raw, "categorization_items")

	items := make([]string, 0, len(entries))
	correct := make(map[string]string)
	for _, e := range entries {
		switch entry := e.(type) {
		case map[string]any:
			text, _ := rawString(entry, "item_text", "item", "text")
			cat, _ := rawString(entry, "correct_category", "category")
			items = append(items, text)
			if cat != "" {
				correct[text] = cat
			}
		default:
			items = append(items, stringify(e))
		}
	}

	// legacy layout: plain items plus a separate answer-key map
	if obj, ok := rawMap(raw, "correct_answer", "correct_mapping"); ok {
		for k, v := range obj {
			correct[k] = stringify(v)
		}
	}

	prompt, _ := rawString(raw, "question", "instruction", "prompt")

	return &model.Categorization{
		QuestionBase: s.baseFrom(raw, prompt),
		Items:        items,
		Categories:   categories,
		CorrectMap:   correct,
	}, nil
}

func (s *NormalizerService) normalizeSequencing(raw map[string]any) (model.Question, error) {
	// items arrive in the correct order; the order is the answer key
	items, _ := rawStringSlice(raw, "items")
	instruction, _ := rawString(raw, "instruction")

	return &model.Sequencing{
		QuestionBase: s.baseFrom(raw, instruction),
		Items:        items,
	}, nil
}

func (s *NormalizerService) normalizeScenario(raw map[string]any) (model.Question, error) {
	scenarioText, _ := rawString(raw, "scenario")
	question, _ := rawString(raw, "scenario_question")
	answer, _ := rawString(raw, "scenario_answer", "correct_answer", "answer")

	return &model.Scenario{
		QuestionBase:  s.baseFrom(raw, question),
		ScenarioText:  scenarioText,
		CorrectAnswer: answer,
	}, nil
}

func (s *NormalizerService) normalizeTrueFalse(raw map[string]any) (model.Question, error) {
	statement, _ := rawString(raw, "statement")
	correct, ok := rawBool(raw, "correct")
	if !ok {
		return nil, fmt.Errorf("%w: true_false without a boolean answer key", util.ErrUnrecognizedShape)
	}

	return &model.TrueFalse{
		QuestionBase: s.baseFrom(raw, statement),
		Correct:      correct,
	}, nil
}

func (s *NormalizerService) normalizeMultipleChoice(raw map[string]any) (model.Question, error) {
	list, _ := rawList(raw, "options")

	options := make([]model.Option, 0, len(list))
	legacyStrings := false
	for i, o := range list {
		switch opt := o.(type) {
		case map[string]any:
			id, _ := rawString(opt, "id", "option_id")
			text, _ := rawString(opt, "text", "option_text")
			if id == "" {
				id = syntheticOptionID(i)
			}
			options = append(options, model.Option{ID: id, Text: text})
		default:
			// legacy plain-string array: mint stable ids in presentation
			// order so downstream code has an identity to compare against
			legacyStrings = true
			options = append(options, model.Option{ID: syntheticOptionID(i), Text: stringify(o)})
		}
	}

	correctID, _ := rawString(raw, "correct_option_id")
	if correctID == "" {
		// legacy keys hold the correct option's text, not its id
		if correctText, ok := rawString(raw, "correct_answer", "answer"); ok {
			for _, opt := range options {
				if opt.Text == correctText {
					correctID = opt.ID
					break
				}
			}
			if correctID == "" && legacyStrings && len(correctText) == 1 {
				// single-letter key against a minted option_A.. list
				idx := int(correctText[0] - 'A')
				if idx >= 0 && idx < len(options) {
					correctID = options[idx].ID
				}
			}
		}
	}

	prompt, _ := rawString(raw, "question", "question_text", "prompt")

	return &model.MultipleChoice{
		QuestionBase:    s.baseFrom(raw, prompt),
		Options:         options,
		CorrectOptionID: correctID,
	}, nil
}

func (s *NormalizerService) normalizeShortAnswer(raw map[string]any) (model.Question, error) {
	question, _ := rawString(raw, "question")
	answer, _ := rawString(raw, "correct_answer", "answer")

	acceptPartial := true // historical default for free-form answers
	if v, ok := rawBool(raw, "accept_partial"); ok {
		acceptPartial = v
	}

	return &model.ShortAnswer{
		QuestionBase:  s.baseFrom(raw, question),
		CorrectAnswer: answer,
		AcceptPartial: acceptPartial,
	}, nil
}

// baseFrom extracts the fields every variant shares: id, display text,
// rationale, teaching note, success criteria, and hierarchy metadata.
func (s *NormalizerService) baseFrom(raw map[string]any, prompt string) model.QuestionBase {
	id, _ := rawString(raw, "id", "problem_id", "question_id")
	rationale, _ := rawString(raw, "rationale")
	note, _ := rawString(raw, "teaching_note")
	criteria, _ := rawStringSlice(raw, "success_criteria")

	meta := raw
	if m, ok := rawMap(raw, "metadata"); ok {
		meta = m
	}
	subject, _ := rawString(meta, "subject")
	skillID, _ := rawString(meta, "skill_id")
	subskillID, _ := rawString(meta, "subskill_id")
	difficulty, _ := rawString(meta, "difficulty")
	gradeLevel, _ := rawString(meta, "grade_level")

	return model.QuestionBase{
		ID:              id,
		Prompt:          prompt,
		Rationale:       rationale,
		TeachingNote:    note,
		SuccessCriteria: criteria,
		Meta: model.QuestionMeta{
			Subject:    subject,
			SkillID:    skillID,
			SubskillID: subskillID,
			Difficulty: difficulty,
			GradeLevel: gradeLevel,
		},
	}
}

func syntheticOptionID(index int) string {
	return fmt.Sprintf("option_%c", 'A'+index)
}

func hasKey(m map[string]any, key string) bool {
	v, ok := m[key]
	return ok && v != nil
}

func hasOptionList(m map[string]any) bool {
	_, ok := m["options"].([]any)
	return ok
}

func keyNames(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
