// Package scoring implements the test evaluation engine: decoding of
// submitted answers into per-type values and deterministic scoring against the
// question definitions. It is pure; persistence and access decisions live in
// the service layer.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mkravtsov/traineeflow/internal/apperr"
	"github.com/mkravtsov/traineeflow/internal/model"
)

const numberEpsilon = 1e-9

// SubmittedAnswer is one raw answer from the trainee. Value is decoded
// according to the question type: a JSON string for text, number and yes_no, a
// positional index (or option label) for single_choice, and a non-empty array
// of positional indices (or labels) for multiple_choice.
type SubmittedAnswer struct {
	QuestionID uint            `json:"question_id"`
	Value      json.RawMessage `json:"value"`
}

// PresentedQuestion captures the option ordering the trainee was actually
// shown. OptionOrder[i] is the canonical index of the option displayed at
// position i. Positional indices in choice answers are resolved against this
// ordering, never against the catalog order.
type PresentedQuestion struct {
	QuestionID  uint  `json:"question_id"`
	OptionOrder []int `json:"option_order"`
}

// LogEntry is one row of the structured answer log persisted with the result.
type LogEntry struct {
	QuestionID uint    `json:"question_id"`
	Submitted  string  `json:"submitted"`
	Correct    bool    `json:"correct"`
	Delta      float64 `json:"delta"`
}

// WrongAnswer records one incorrectly answered question for mentor review.
type WrongAnswer struct {
	QuestionID uint   `json:"question_id"`
	Expected   string `json:"expected"`
	Got        string `json:"got"`
}

// Outcome is the result of evaluating one full submission. Score is already
// clamped to [0, MaxPossibleScore].
type Outcome struct {
	Score            float64
	MaxPossibleScore float64
	CorrectCount     int
	Log              []LogEntry
	Wrong            []WrongAnswer
}

// Evaluate scores a submission against the test's questions. Exactly one
// answer per question is required. Validation failures (shape mismatch,
// unparseable number, unknown question) reject the whole submission before any
// scoring result is produced.
func Evaluate(questions []model.Question, answers []SubmittedAnswer, presented []PresentedQuestion) (*Outcome, error) {
	if len(answers) != len(questions) {
		return nil, fmt.Errorf("expected %d answers, got %d: %w", len(questions), len(answers), apperr.ErrInvalidSubmission)
	}

	answerByQuestion := make(map[uint]SubmittedAnswer, len(answers))
	for _, a := range answers {
		if _, dup := answerByQuestion[a.QuestionID]; dup {
			return nil, fmt.Errorf("duplicate answer for question %d: %w", a.QuestionID, apperr.ErrInvalidSubmission)
		}
		answerByQuestion[a.QuestionID] = a
	}

	orderByQuestion := make(map[uint][]int, len(presented))
	for _, p := range presented {
		orderByQuestion[p.QuestionID] = p.OptionOrder
	}

	outcome := &Outcome{}
	for _, q := range questions {
		outcome.MaxPossibleScore += q.Points

		answer, ok := answerByQuestion[q.ID]
		if !ok {
			return nil, fmt.Errorf("missing answer for question %d: %w", q.ID, apperr.ErrInvalidSubmission)
		}

		correct, submittedText, expectedText, err := evaluateOne(q, answer.Value, orderByQuestion[q.ID])
		if err != nil {
			return nil, err
		}

		delta := -q.PenaltyPoints
		if correct {
			delta = q.Points
			outcome.CorrectCount++
		} else {
			outcome.Wrong = append(outcome.Wrong, WrongAnswer{QuestionID: q.ID, Expected: expectedText, Got: submittedText})
		}
		outcome.Score += delta
		outcome.Log = append(outcome.Log, LogEntry{QuestionID: q.ID, Submitted: submittedText, Correct: correct, Delta: delta})
	}

	// Clamp once after the full pass, not per question.
	if outcome.Score < 0 {
		outcome.Score = 0
	}
	if outcome.Score > outcome.MaxPossibleScore {
		outcome.Score = outcome.MaxPossibleScore
	}
	return outcome, nil
}

func evaluateOne(q model.Question, raw json.RawMessage, optionOrder []int) (correct bool, submitted, expected string, err error) {
	switch q.Type {
	case model.QuestionTypeText:
		return evaluateText(q, raw)
	case model.QuestionTypeNumber:
		return evaluateNumber(q, raw)
	case model.QuestionTypeYesNo:
		return evaluateYesNo(q, raw)
	case model.QuestionTypeSingleChoice:
		return evaluateSingleChoice(q, raw, optionOrder)
	case model.QuestionTypeMultipleChoice:
		return evaluateMultipleChoice(q, raw, optionOrder)
	default:
		return false, "", "", fmt.Errorf("question %d has unknown type %q: %w", q.ID, q.Type, apperr.ErrInvalidSubmission)
	}
}

func evaluateText(q model.Question, raw json.RawMessage) (bool, string, string, error) {
	var got string
	if err := json.Unmarshal(raw, &got); err != nil {
		return false, "", "", fmt.Errorf("question %d expects a text answer: %w", q.ID, apperr.ErrInvalidSubmission)
	}
	var want string
	if err := json.Unmarshal(q.CorrectAnswer, &want); err != nil {
		return false, "", "", fmt.Errorf("question %d has a malformed correct answer: %w", q.ID, err)
	}
	got = strings.TrimSpace(got)
	return strings.EqualFold(got, strings.TrimSpace(want)), got, want, nil
}

func evaluateNumber(q model.Question, raw json.RawMessage) (bool, string, string, error) {
	got, err := parseNumberValue(raw)
	if err != nil {
		return false, "", "", fmt.Errorf("question %d expects a numeric answer: %w", q.ID, apperr.ErrInvalidSubmission)
	}
	var wantStr string
	if err := json.Unmarshal(q.CorrectAnswer, &wantStr); err != nil {
		return false, "", "", fmt.Errorf("question %d has a malformed correct answer: %w", q.ID, err)
	}
	want, err := parseNumber(wantStr)
	if err != nil {
		return false, "", "", fmt.Errorf("question %d has a non-numeric correct answer %q: %w", q.ID, wantStr, err)
	}
	gotStr := strconv.FormatFloat(got, 'f', -1, 64)
	return math.Abs(got-want) < numberEpsilon, gotStr, wantStr, nil
}

// parseNumberValue accepts both a JSON number and a JSON string holding a
// number; the comma decimal separator is tolerated.
func parseNumberValue(raw json.RawMessage) (float64, error) {
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return 0, fmt.Errorf("not a number or numeric string")
	}
	return parseNumber(asString)
}

func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	return strconv.ParseFloat(s, 64)
}

func evaluateYesNo(q model.Question, raw json.RawMessage) (bool, string, string, error) {
	var got string
	if err := json.Unmarshal(raw, &got); err != nil {
		return false, "", "", fmt.Errorf("question %d expects %q or %q: %w", q.ID, model.AnswerYes, model.AnswerNo, apperr.ErrInvalidSubmission)
	}
	got = strings.TrimSpace(got)
	if !strings.EqualFold(got, model.AnswerYes) && !strings.EqualFold(got, model.AnswerNo) {
		return false, "", "", fmt.Errorf("question %d expects %q or %q, got %q: %w", q.ID, model.AnswerYes, model.AnswerNo, got, apperr.ErrInvalidSubmission)
	}
	var want string
	if err := json.Unmarshal(q.CorrectAnswer, &want); err != nil {
		return false, "", "", fmt.Errorf("question %d has a malformed correct answer: %w", q.ID, err)
	}
	return strings.EqualFold(got, strings.TrimSpace(want)), got, want, nil
}

func evaluateSingleChoice(q model.Question, raw json.RawMessage, optionOrder []int) (bool, string, string, error) {
	options, err := decodeOptions(q)
	if err != nil {
		return false, "", "", err
	}
	label, err := resolveChoice(q, raw, options, optionOrder)
	if err != nil {
		return false, "", "", err
	}
	var want string
	if err := json.Unmarshal(q.CorrectAnswer, &want); err != nil {
		return false, "", "", fmt.Errorf("question %d has a malformed correct answer: %w", q.ID, err)
	}
	return label == want, label, want, nil
}

func evaluateMultipleChoice(q model.Question, raw json.RawMessage, optionOrder []int) (bool, string, string, error) {
	options, err := decodeOptions(q)
	if err != nil {
		return false, "", "", err
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		return false, "", "", fmt.Errorf("question %d expects a list of selected options: %w", q.ID, apperr.ErrInvalidSubmission)
	}
	if len(rawItems) == 0 {
		return false, "", "", fmt.Errorf("question %d requires at least one selected option: %w", q.ID, apperr.ErrInvalidSubmission)
	}

	gotSet := make(map[string]struct{}, len(rawItems))
	gotLabels := make([]string, 0, len(rawItems))
	for _, item := range rawItems {
		label, err := resolveChoice(q, item, options, optionOrder)
		if err != nil {
			return false, "", "", err
		}
		if _, dup := gotSet[label]; dup {
			return false, "", "", fmt.Errorf("question %d has option %q selected twice: %w", q.ID, label, apperr.ErrInvalidSubmission)
		}
		gotSet[label] = struct{}{}
		gotLabels = append(gotLabels, label)
	}

	var want []string
	if err := json.Unmarshal(q.CorrectAnswer, &want); err != nil {
		return false, "", "", fmt.Errorf("question %d has a malformed correct answer: %w", q.ID, err)
	}

	// Set comparison: order of selection never matters.
	correct := len(gotSet) == len(want)
	if correct {
		for _, w := range want {
			if _, ok := gotSet[w]; !ok {
				correct = false
				break
			}
		}
	}
	return correct, strings.Join(gotLabels, ", "), strings.Join(want, ", "), nil
}

// resolveChoice turns a single selected value into a canonical option label.
// A numeric value is a position in the presented ordering; a string value is
// matched against the option labels directly.
func resolveChoice(q model.Question, raw json.RawMessage, options []string, optionOrder []int) (string, error) {
	var idx int
	if err := json.Unmarshal(raw, &idx); err == nil {
		canonical, err := canonicalIndex(idx, len(options), optionOrder)
		if err != nil {
			return "", fmt.Errorf("question %d: %s: %w", q.ID, err, apperr.ErrInvalidSubmission)
		}
		return options[canonical], nil
	}

	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		return "", fmt.Errorf("question %d expects an option index or label: %w", q.ID, apperr.ErrInvalidSubmission)
	}
	for _, opt := range options {
		if opt == label {
			return label, nil
		}
	}
	return "", fmt.Errorf("question %d has no option %q: %w", q.ID, label, apperr.ErrInvalidSubmission)
}

func canonicalIndex(position, optionCount int, optionOrder []int) (int, error) {
	if len(optionOrder) == 0 {
		// No recorded presentation: options were shown in catalog order.
		if position < 0 || position >= optionCount {
			return 0, fmt.Errorf("option index %d out of range", position)
		}
		return position, nil
	}
	if position < 0 || position >= len(optionOrder) {
		return 0, fmt.Errorf("option index %d out of range", position)
	}
	canonical := optionOrder[position]
	if canonical < 0 || canonical >= optionCount {
		return 0, fmt.Errorf("presented option order refers to unknown option %d", canonical)
	}
	return canonical, nil
}

func decodeOptions(q model.Question) ([]string, error) {
	var options []string
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return nil, fmt.Errorf("question %d has malformed options: %w", q.ID, err)
	}
	if len(options) < 2 {
		return nil, fmt.Errorf("question %d has fewer than two options", q.ID)
	}
	return options, nil
}
