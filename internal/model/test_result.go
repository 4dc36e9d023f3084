package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TestResult is one scored attempt. Score is clamped to
// [0, MaxPossibleScore] by the evaluation engine before the row is written.
// AnswerLog holds the structured per-question log, WrongAnswers the subset the
// trainee got wrong, both as JSON for mentor review.
type TestResult struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	CompanyID        uint           `json:"company_id" gorm:"not null;index"`
	TraineeID        uint           `json:"trainee_id" gorm:"not null;index:idx_results_trainee_test"`
	TestID           uint           `json:"test_id" gorm:"not null;index:idx_results_trainee_test"`
	Test             Test           `json:"test,omitempty" gorm:"foreignKey:TestID"`
	Score            float64        `json:"score" gorm:"not null"`
	MaxPossibleScore float64        `json:"max_possible_score" gorm:"not null"`
	IsPassed         bool           `json:"is_passed" gorm:"not null"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	AnswerLog        datatypes.JSON `json:"answer_log,omitempty" gorm:"type:jsonb"`
	WrongAnswers     datatypes.JSON `json:"wrong_answers,omitempty" gorm:"type:jsonb"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
