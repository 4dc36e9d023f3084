package repository

import (
	"github.com/mkravtsov/traineeflow/internal/model"
	"gorm.io/gorm"
)

type AccessRepository interface {
	Create(grant *model.TestAccess) error
	FindActive(companyID, traineeID, testID uint) (*model.TestAccess, error)
	Revoke(companyID, grantID uint) error
	DeleteForTests(companyID, traineeID uint, testIDs []uint) error
}

type accessRepository struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) AccessRepository {
	return &accessRepository{db: db}
}

func (r *accessRepository) Create(grant *model.TestAccess) error {
	return r.db.Create(grant).Error
}

func (r *accessRepository) FindActive(companyID, traineeID, testID uint) (*model.TestAccess, error) {
	var grant model.TestAccess
	err := r.db.
		Where("company_id = ? AND trainee_id = ? AND test_id = ? AND is_active = ?", companyID, traineeID, testID, true).
		First(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *accessRepository) Revoke(companyID, grantID uint) error {
	return r.db.Model(&model.TestAccess{}).
		Where("id = ? AND company_id = ?", grantID, companyID).
		Update("is_active", false).Error
}

// DeleteForTests hard-deletes grants for a stage being reset.
func (r *accessRepository) DeleteForTests(companyID, traineeID uint, testIDs []uint) error {
	if len(testIDs) == 0 {
		return nil
	}
	return r.db.Unscoped().
		Where("company_id = ? AND trainee_id = ? AND test_id IN ?", companyID, traineeID, testIDs).
		Delete(&model.TestAccess{}).Error
}
