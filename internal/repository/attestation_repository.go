package repository

import (
	"github.com/mkravtsov/traineeflow/internal/model"
	"gorm.io/gorm"
)

type AttestationRepository interface {
	FindByID(companyID, id uint) (*model.Attestation, error)
	CreateResult(result *model.AttestationResult) error
	FindResult(companyID, attestationID, traineeID uint) (*model.AttestationResult, error)
}

type attestationRepository struct {
	db *gorm.DB
}

func NewAttestationRepository(db *gorm.DB) AttestationRepository {
	return &attestationRepository{db: db}
}

func (r *attestationRepository) FindByID(companyID, id uint) (*model.Attestation, error) {
	var att model.Attestation
	err := r.db.Where("company_id = ?", companyID).First(&att, id).Error
	if err != nil {
		return nil, err
	}
	return &att, nil
}

func (r *attestationRepository) CreateResult(result *model.AttestationResult) error {
	return r.db.Create(result).Error
}

func (r *attestationRepository) FindResult(companyID, attestationID, traineeID uint) (*model.AttestationResult, error) {
	var result model.AttestationResult
	err := r.db.
		Where("company_id = ? AND attestation_id = ? AND trainee_id = ?", companyID, attestationID, traineeID).
		Order("created_at DESC").
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}
