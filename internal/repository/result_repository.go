package repository

import (
	"github.com/mkravtsov/traineeflow/internal/model"
	"gorm.io/gorm"
)

// ResultRepository stores scored attempts. CountByTraineeAndTest and
// HasPassing back the access gate and the completion cascade; both hit the
// (trainee_id, test_id) composite index.
type ResultRepository interface {
	Create(result *model.TestResult) error
	CountByTraineeAndTest(companyID, traineeID, testID uint) (int64, error)
	HasPassing(companyID, traineeID, testID uint) (bool, error)
	FindAllByTraineeAndTest(companyID, traineeID, testID uint) ([]model.TestResult, error)
	DeleteForTests(companyID, traineeID uint, testIDs []uint) error
}

type resultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) Create(result *model.TestResult) error {
	return r.db.Create(result).Error
}

func (r *resultRepository) CountByTraineeAndTest(companyID, traineeID, testID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.TestResult{}).
		Where("company_id = ? AND trainee_id = ? AND test_id = ?", companyID, traineeID, testID).
		Count(&count).Error
	return count, err
}

func (r *resultRepository) HasPassing(companyID, traineeID, testID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.TestResult{}).
		Where("company_id = ? AND trainee_id = ? AND test_id = ? AND is_passed = ?", companyID, traineeID, testID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *resultRepository) FindAllByTraineeAndTest(companyID, traineeID, testID uint) ([]model.TestResult, error) {
	var results []model.TestResult
	err := r.db.
		Where("company_id = ? AND trainee_id = ? AND test_id = ?", companyID, traineeID, testID).
		Order("end_time DESC").
		Find(&results).Error
	return results, err
}

// DeleteForTests hard-deletes a trainee's results for the given tests. Used by
// the destructive stage reset and path reassignment paths only.
func (r *resultRepository) DeleteForTests(companyID, traineeID uint, testIDs []uint) error {
	if len(testIDs) == 0 {
		return nil
	}
	return r.db.Unscoped().
		Where("company_id = ? AND trainee_id = ? AND test_id IN ?", companyID, traineeID, testIDs).
		Delete(&model.TestResult{}).Error
}
