package model

import (
	"time"

	"gorm.io/gorm"
)

// TestAccess is an explicit grant authorizing one trainee to take one test
// outside their trajectory. Grants are revoked by clearing IsActive, never by
// deleting the row, so the grant history stays auditable.
type TestAccess struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CompanyID uint           `json:"company_id" gorm:"not null;index:idx_access_company_active"`
	TraineeID uint           `json:"trainee_id" gorm:"not null;index:idx_access_trainee_test"`
	TestID    uint           `json:"test_id" gorm:"not null;index:idx_access_trainee_test"`
	GrantedBy uint           `json:"granted_by" gorm:"not null"`
	IsActive  bool           `json:"is_active" gorm:"not null;default:true;index:idx_access_company_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
