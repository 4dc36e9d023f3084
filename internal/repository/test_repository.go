package repository

import (
	"github.com/mkravtsov/traineeflow/internal/model"
	"gorm.io/gorm"
)

type TestRepository interface {
	Create(test *model.Test) error
	FindByID(companyID, id uint) (*model.Test, error)
	FindByIDWithQuestions(companyID, id uint) (*model.Test, error)
	Deactivate(companyID, id uint) error
}

type testRepository struct {
	db *gorm.DB
}

func NewTestRepository(db *gorm.DB) TestRepository {
	return &testRepository{db: db}
}

func (r *testRepository) Create(test *model.Test) error {
	// GORM creates the associated questions along with the test.
	return r.db.Create(test).Error
}

func (r *testRepository) FindByID(companyID, id uint) (*model.Test, error) {
	var test model.Test
	err := r.db.Where("company_id = ?", companyID).First(&test, id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *testRepository) FindByIDWithQuestions(companyID, id uint) (*model.Test, error) {
	var test model.Test
	err := r.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_in_test ASC")
		}).
		Where("company_id = ?", companyID).
		First(&test, id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *testRepository) Deactivate(companyID, id uint) error {
	return r.db.Model(&model.Test{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Update("is_active", false).Error
}
