package repository

import (
	"github.com/mkravtsov/traineeflow/internal/model"
	"gorm.io/gorm"
)

// CatalogRepository serves the read side of the content catalog: learning
// paths, stages, sessions and the session↔test links, always filtered by the
// caller's company.
type CatalogRepository interface {
	CreateLearningPath(path *model.LearningPath) error
	FindLearningPathByID(companyID, id uint) (*model.LearningPath, error)
	DeactivateLearningPath(companyID, id uint) error
	FindSessionTests(sessionID uint) ([]model.SessionTest, error)
	FindSessionsContainingTest(companyID, testID uint) ([]model.Session, error)
	CreateAttestation(att *model.Attestation) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) CreateLearningPath(path *model.LearningPath) error {
	// GORM creates the nested stages, sessions and test links in one go.
	return r.db.Create(path).Error
}

func (r *catalogRepository) FindLearningPathByID(companyID, id uint) (*model.LearningPath, error) {
	var path model.LearningPath
	err := r.db.
		Preload("Attestation").
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("stages.order_number ASC")
		}).
		Preload("Stages.Sessions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sessions.order_number ASC")
		}).
		Preload("Stages.Sessions.TestLinks", func(db *gorm.DB) *gorm.DB {
			return db.Order("session_tests.order_number ASC")
		}).
		Preload("Stages.Sessions.TestLinks.Test").
		Where("company_id = ?", companyID).
		First(&path, id).Error
	if err != nil {
		return nil, err
	}
	return &path, nil
}

func (r *catalogRepository) DeactivateLearningPath(companyID, id uint) error {
	return r.db.Model(&model.LearningPath{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Update("is_active", false).Error
}

func (r *catalogRepository) FindSessionTests(sessionID uint) ([]model.SessionTest, error) {
	var links []model.SessionTest
	err := r.db.
		Preload("Test").
		Where("session_id = ?", sessionID).
		Order("order_number ASC").
		Find(&links).Error
	return links, err
}

func (r *catalogRepository) FindSessionsContainingTest(companyID, testID uint) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.
		Joins("JOIN session_tests ON session_tests.session_id = sessions.id AND session_tests.deleted_at IS NULL").
		Where("session_tests.test_id = ? AND sessions.company_id = ?", testID, companyID).
		Find(&sessions).Error
	return sessions, err
}

func (r *catalogRepository) CreateAttestation(att *model.Attestation) error {
	return r.db.Create(att).Error
}
