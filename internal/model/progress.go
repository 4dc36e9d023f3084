package model

import (
	"time"

	"gorm.io/gorm"
)

// TraineeLearningPath links a trainee to their active learning path. At most
// one row per trainee has IsActive == true; reassigning a path is an explicit
// destructive operation that removes the prior row and all dependent progress.
type TraineeLearningPath struct {
	ID                   uint            `gorm:"primarykey" json:"id"`
	CompanyID            uint            `json:"company_id" gorm:"not null;index:idx_tlp_company"`
	TraineeID            uint            `json:"trainee_id" gorm:"not null;index"`
	LearningPathID       uint            `json:"learning_path_id" gorm:"not null;index"`
	LearningPath         LearningPath    `json:"learning_path,omitempty" gorm:"foreignKey:LearningPathID"`
	AttestationCompleted bool            `json:"attestation_completed" gorm:"not null;default:false"`
	IsActive             bool            `json:"is_active" gorm:"not null;default:true;index:idx_tlp_company"`
	StageProgresses      []StageProgress `json:"stage_progresses,omitempty" gorm:"foreignKey:TraineeLearningPathID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	DeletedAt            gorm.DeletedAt  `gorm:"index" json:"-"`
}

// StageProgress mirrors one catalog stage for one trainee. A row may be
// completed only if it has been opened first. Version backs the optimistic
// concurrency check on flag updates.
type StageProgress struct {
	ID                    uint              `gorm:"primarykey" json:"id"`
	CompanyID             uint              `json:"company_id" gorm:"not null;index"`
	TraineeLearningPathID uint              `json:"trainee_learning_path_id" gorm:"not null;index;uniqueIndex:idx_stage_progress"`
	StageID               uint              `json:"stage_id" gorm:"not null;index;uniqueIndex:idx_stage_progress"`
	IsOpened              bool              `json:"is_opened" gorm:"not null;default:false"`
	IsCompleted           bool              `json:"is_completed" gorm:"not null;default:false"`
	OpenedAt              *time.Time        `json:"opened_at,omitempty"`
	CompletedAt           *time.Time        `json:"completed_at,omitempty"`
	Version               int               `json:"-" gorm:"not null;default:0"`
	SessionProgresses     []SessionProgress `json:"session_progresses,omitempty" gorm:"foreignKey:StageProgressID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	DeletedAt             gorm.DeletedAt    `gorm:"index" json:"-"`
}

// SessionProgress mirrors one catalog session for one trainee. Openness is
// inherited from the enclosing stage; completion is tracked per session.
type SessionProgress struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	CompanyID       uint           `json:"company_id" gorm:"not null;index"`
	StageProgressID uint           `json:"stage_progress_id" gorm:"not null;index;uniqueIndex:idx_session_progress"`
	SessionID       uint           `json:"session_id" gorm:"not null;index;uniqueIndex:idx_session_progress"`
	IsOpened        bool           `json:"is_opened" gorm:"not null;default:false"`
	IsCompleted     bool           `json:"is_completed" gorm:"not null;default:false"`
	OpenedAt        *time.Time     `json:"opened_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Version         int            `json:"-" gorm:"not null;default:0"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
