package dto

import (
	"encoding/json"
	"time"
)

// QuestionCreateDTO is used within TestCreateDTO. CorrectAnswer is a JSON
// string for text, number, yes_no and single_choice questions and a JSON
// array of option labels for multiple_choice.
type QuestionCreateDTO struct {
	Text          string          `json:"text" binding:"required"`
	Type          string          `json:"type" binding:"required,oneof=text number single_choice multiple_choice yes_no"`
	Options       []string        `json:"options,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer" binding:"required"`
	Points        float64         `json:"points" binding:"required,gt=0"`
	PenaltyPoints float64         `json:"penalty_points" binding:"gte=0"`
	OrderInTest   int             `json:"order_in_test" binding:"required,min=1"`
}

// TestCreateDTO is for recruiters to author a test with all its questions.
type TestCreateDTO struct {
	Title            string              `json:"title" binding:"required"`
	Description      string              `json:"description,omitempty"`
	ThresholdScore   float64             `json:"threshold_score" binding:"gte=0"`
	MaxAttempts      int                 `json:"max_attempts" binding:"gte=0"`
	ShuffleQuestions bool                `json:"shuffle_questions"`
	Questions        []QuestionCreateDTO `json:"questions" binding:"required,min=1,dive"`
}

// TestLinkDTO attaches an existing test to a session with an explicit order.
type TestLinkDTO struct {
	TestID      uint `json:"test_id" binding:"required"`
	OrderNumber int  `json:"order_number" binding:"required,min=1"`
}

type SessionCreateDTO struct {
	Name        string        `json:"name" binding:"required"`
	OrderNumber int           `json:"order_number" binding:"required,min=1"`
	Tests       []TestLinkDTO `json:"tests" binding:"omitempty,dive"`
}

type StageCreateDTO struct {
	Name        string             `json:"name" binding:"required"`
	OrderNumber int                `json:"order_number" binding:"required,min=1"`
	Sessions    []SessionCreateDTO `json:"sessions" binding:"required,min=1,dive"`
}

// LearningPathCreateDTO is for recruiters to author a full curriculum.
type LearningPathCreateDTO struct {
	Name          string           `json:"name" binding:"required"`
	GroupID       *uint            `json:"group_id,omitempty"`
	AttestationID *uint            `json:"attestation_id,omitempty"`
	Stages        []StageCreateDTO `json:"stages" binding:"required,min=1,dive"`
}

type AttestationCreateDTO struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
}

// --- Catalog responses ---

type QuestionResponseDTO struct {
	ID            uint     `json:"id"`
	TestID        uint     `json:"test_id"`
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options,omitempty"`
	Points        float64  `json:"points"`
	PenaltyPoints float64  `json:"penalty_points"`
	OrderInTest   int      `json:"order_in_test"`
}

type TestResponseDTO struct {
	ID               uint                  `json:"id"`
	Title            string                `json:"title"`
	Description      string                `json:"description,omitempty"`
	ThresholdScore   float64               `json:"threshold_score"`
	MaxScore         float64               `json:"max_score"`
	MaxAttempts      int                   `json:"max_attempts"`
	ShuffleQuestions bool                  `json:"shuffle_questions"`
	Questions        []QuestionResponseDTO `json:"questions,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

type SessionResponseDTO struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	OrderNumber int    `json:"order_number"`
	TestIDs     []uint `json:"test_ids,omitempty"`
}

type StageResponseDTO struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	OrderNumber int                  `json:"order_number"`
	Sessions    []SessionResponseDTO `json:"sessions,omitempty"`
}

type LearningPathResponseDTO struct {
	ID            uint               `json:"id"`
	Name          string             `json:"name"`
	GroupID       *uint              `json:"group_id,omitempty"`
	AttestationID *uint              `json:"attestation_id,omitempty"`
	Stages        []StageResponseDTO `json:"stages,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}
