package dto

import (
	"encoding/json"
	"time"
)

// PresentedQuestionDTO is one question as shown to the trainee. Options are in
// the presented order; OptionOrder maps each presented position back to the
// catalog index and must be echoed back on submit so choice answers are
// resolved against what the trainee actually saw.
type PresentedQuestionDTO struct {
	QuestionID  uint     `json:"question_id"`
	Text        string   `json:"text"`
	Type        string   `json:"type"`
	Options     []string `json:"options,omitempty"`
	OptionOrder []int    `json:"option_order,omitempty"`
	Points      float64  `json:"points"`
}

// AttemptPresentationDTO is returned by the start-test endpoint. No attempt
// state is persisted at this point; abandoning the attempt costs nothing.
type AttemptPresentationDTO struct {
	TestID      uint                   `json:"test_id"`
	TestTitle   string                 `json:"test_title"`
	Description string                 `json:"description,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	Questions   []PresentedQuestionDTO `json:"questions"`
}

// SubmittedAnswerDTO carries one raw answer value; its JSON shape depends on
// the question type.
type SubmittedAnswerDTO struct {
	QuestionID uint            `json:"question_id" binding:"required"`
	Value      json.RawMessage `json:"value" binding:"required"`
}

// PresentedOrderDTO echoes the option ordering from the presentation.
type PresentedOrderDTO struct {
	QuestionID  uint  `json:"question_id" binding:"required"`
	OptionOrder []int `json:"option_order"`
}

// AttemptSubmitDTO is the full submission for one test attempt.
type AttemptSubmitDTO struct {
	StartedAt    time.Time            `json:"started_at" binding:"required"`
	Answers      []SubmittedAnswerDTO `json:"answers" binding:"required,min=1,dive"`
	Presentation []PresentedOrderDTO  `json:"presentation,omitempty" binding:"omitempty,dive"`
}

// WrongAnswerDTO is one incorrectly answered question in the result.
type WrongAnswerDTO struct {
	QuestionID uint   `json:"question_id"`
	Expected   string `json:"expected"`
	Got        string `json:"got"`
}

// ProgressEventDTO describes one boundary the completion cascade crossed as a
// consequence of this attempt.
type ProgressEventDTO struct {
	Type     string `json:"type"`
	UnitID   uint   `json:"unit_id"`
	UnitName string `json:"unit_name,omitempty"`
}

// TestResultDTO is the evaluated attempt returned to the trainee.
type TestResultDTO struct {
	ID               uint               `json:"id"`
	TestID           uint               `json:"test_id"`
	TestTitle        string             `json:"test_title,omitempty"`
	Score            float64            `json:"score"`
	MaxPossibleScore float64            `json:"max_possible_score"`
	ThresholdScore   float64            `json:"threshold_score"`
	IsPassed         bool               `json:"is_passed"`
	CorrectCount     int                `json:"correct_count"`
	StartTime        time.Time          `json:"start_time"`
	EndTime          time.Time          `json:"end_time"`
	WrongAnswers     []WrongAnswerDTO   `json:"wrong_answers,omitempty"`
	Crossed          []ProgressEventDTO `json:"crossed_boundaries,omitempty"`
}
