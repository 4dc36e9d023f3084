package model

import (
	"time"

	"gorm.io/gorm"
)

// Test is a scored questionnaire. MaxAttempts == 0 means unlimited attempts.
type Test struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	CompanyID        uint           `json:"company_id" gorm:"not null;index:idx_tests_company"`
	Title            string         `json:"title" gorm:"not null"`
	Description      string         `json:"description,omitempty"`
	ThresholdScore   float64        `json:"threshold_score" gorm:"not null"`
	MaxScore         float64        `json:"max_score" gorm:"not null"`
	MaxAttempts      int            `json:"max_attempts" gorm:"not null;default:0"`
	ShuffleQuestions bool           `json:"shuffle_questions" gorm:"not null;default:false"`
	IsActive         bool           `json:"is_active" gorm:"default:true;index:idx_tests_company"`
	Questions        []Question     `json:"questions,omitempty" gorm:"foreignKey:TestID"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
