package model

import (
	"time"

	"gorm.io/gorm"
)

// Attestation is the terminal, manually graded evaluation of a learning path.
// It is never auto-scored; a manager records the verdict.
type Attestation struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CompanyID   uint           `json:"company_id" gorm:"not null;index"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// AttestationResult is the manager-recorded verdict for one trainee.
type AttestationResult struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	CompanyID     uint           `json:"company_id" gorm:"not null;index"`
	AttestationID uint           `json:"attestation_id" gorm:"not null;index:idx_attestation_trainee"`
	TraineeID     uint           `json:"trainee_id" gorm:"not null;index:idx_attestation_trainee"`
	Score         float64        `json:"score" gorm:"not null"`
	IsPassed      bool           `json:"is_passed" gorm:"not null"`
	GradedBy      uint           `json:"graded_by" gorm:"not null"`
	Comment       string         `json:"comment,omitempty" gorm:"type:text"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
