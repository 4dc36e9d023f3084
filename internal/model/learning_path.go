package model

import (
	"time"

	"gorm.io/gorm"
)

// LearningPath is the ordered onboarding trajectory assigned to trainees.
// GroupID optionally ties the path to an intake group; AttestationID, when
// set, gates the final manual evaluation behind full stage completion.
type LearningPath struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	CompanyID     uint           `json:"company_id" gorm:"not null;index"`
	Name          string         `json:"name" gorm:"not null"`
	GroupID       *uint          `json:"group_id,omitempty" gorm:"index"`
	AttestationID *uint          `json:"attestation_id,omitempty"`
	Attestation   *Attestation   `json:"attestation,omitempty" gorm:"foreignKey:AttestationID"`
	IsActive      bool           `json:"is_active" gorm:"default:true"`
	Stages        []Stage        `json:"stages,omitempty" gorm:"foreignKey:LearningPathID"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Stage is one ordered block of a learning path. OrderNumber is unique per
// path and drives the sequential-open rule.
type Stage struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CompanyID      uint           `json:"company_id" gorm:"not null;index"`
	LearningPathID uint           `json:"learning_path_id" gorm:"not null;uniqueIndex:idx_stage_order"`
	Name           string         `json:"name" gorm:"not null"`
	OrderNumber    int            `json:"order_number" gorm:"not null;uniqueIndex:idx_stage_order"`
	Sessions       []Session      `json:"sessions,omitempty" gorm:"foreignKey:StageID"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// Session is a unit of work inside a stage. Its tests are attached through
// SessionTest links so one test can appear in many sessions.
type Session struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CompanyID   uint           `json:"company_id" gorm:"not null;index"`
	StageID     uint           `json:"stage_id" gorm:"not null;uniqueIndex:idx_session_order"`
	Name        string         `json:"name" gorm:"not null"`
	OrderNumber int            `json:"order_number" gorm:"not null;uniqueIndex:idx_session_order"`
	TestLinks   []SessionTest  `json:"test_links,omitempty" gorm:"foreignKey:SessionID"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// SessionTest links a test into a session at a position.
type SessionTest struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	SessionID   uint           `json:"session_id" gorm:"not null;uniqueIndex:idx_session_test"`
	TestID      uint           `json:"test_id" gorm:"not null;uniqueIndex:idx_session_test"`
	OrderNumber int            `json:"order_number" gorm:"not null"`
	Test        Test           `json:"test,omitempty" gorm:"foreignKey:TestID"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
