package dto

import "time"

// AssignPathRequest assigns a learning path to a trainee. Replace must be set
// explicitly to discard an existing assignment and all its progress.
type AssignPathRequest struct {
	LearningPathID uint `json:"learning_path_id" binding:"required"`
	Replace        bool `json:"replace"`
}

type GrantAccessRequest struct {
	TraineeID uint `json:"trainee_id" binding:"required"`
	TestID    uint `json:"test_id" binding:"required"`
}

type GradeAttestationRequest struct {
	TraineeID uint    `json:"trainee_id" binding:"required"`
	Score     float64 `json:"score" binding:"gte=0"`
	IsPassed  bool    `json:"is_passed"`
	Comment   string  `json:"comment,omitempty"`
}

type TestAccessResponseDTO struct {
	ID        uint      `json:"id"`
	TraineeID uint      `json:"trainee_id"`
	TestID    uint      `json:"test_id"`
	GrantedBy uint      `json:"granted_by"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type AttestationResultDTO struct {
	ID            uint      `json:"id"`
	AttestationID uint      `json:"attestation_id"`
	TraineeID     uint      `json:"trainee_id"`
	Score         float64   `json:"score"`
	IsPassed      bool      `json:"is_passed"`
	GradedBy      uint      `json:"graded_by"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// --- Progression status read path ---

type TestStatusDTO struct {
	TestID       uint   `json:"test_id"`
	Title        string `json:"title"`
	OrderNumber  int    `json:"order_number"`
	IsPassed     bool   `json:"is_passed"`
	AttemptsUsed int    `json:"attempts_used"`
	MaxAttempts  int    `json:"max_attempts"`
}

type SessionStatusDTO struct {
	SessionID   uint            `json:"session_id"`
	Name        string          `json:"name"`
	OrderNumber int             `json:"order_number"`
	IsOpened    bool            `json:"is_opened"`
	IsCompleted bool            `json:"is_completed"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Tests       []TestStatusDTO `json:"tests,omitempty"`
}

type StageStatusDTO struct {
	StageID     uint               `json:"stage_id"`
	Name        string             `json:"name"`
	OrderNumber int                `json:"order_number"`
	IsOpened    bool               `json:"is_opened"`
	IsCompleted bool               `json:"is_completed"`
	OpenedAt    *time.Time         `json:"opened_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Sessions    []SessionStatusDTO `json:"sessions,omitempty"`
}

// PathStatusDTO is the full progression tree for one trainee. Attestation
// eligibility is derived from stage state on every read, never persisted.
type PathStatusDTO struct {
	LearningPathID       uint             `json:"learning_path_id"`
	LearningPathName     string           `json:"learning_path_name"`
	AttestationID        *uint            `json:"attestation_id,omitempty"`
	AttestationUnlocked  bool             `json:"attestation_unlocked"`
	AttestationCompleted bool             `json:"attestation_completed"`
	Stages               []StageStatusDTO `json:"stages"`
}
