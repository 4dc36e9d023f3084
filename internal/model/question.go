package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question types supported by the evaluation engine.
const (
	QuestionTypeText           = "text"
	QuestionTypeNumber         = "number"
	QuestionTypeSingleChoice   = "single_choice"
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeYesNo          = "yes_no"
)

// Answers accepted for yes_no questions.
const (
	AnswerYes = "Да"
	AnswerNo  = "Нет"
)

// Question belongs to one test. Options holds a JSON array of option labels
// for the choice types. CorrectAnswer is a JSON string for text, number,
// yes_no and single_choice, and a JSON array of option labels for
// multiple_choice.
type Question struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	TestID        uint           `json:"test_id" gorm:"not null;index"`
	Text          string         `json:"text" gorm:"type:text;not null"`
	Type          string         `json:"type" gorm:"not null"`
	Options       datatypes.JSON `json:"options,omitempty" gorm:"type:jsonb"`
	CorrectAnswer datatypes.JSON `json:"correct_answer" gorm:"type:jsonb;not null"`
	Points        float64        `json:"points" gorm:"not null"`
	PenaltyPoints float64        `json:"penalty_points" gorm:"not null;default:0"`
	OrderInTest   int            `json:"order_in_test" gorm:"not null"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
