package service

import (
	"errors"
	"fmt"

	"github.com/mkravtsov/traineeflow/internal/apperr"
	"github.com/mkravtsov/traineeflow/internal/dto"
	"github.com/mkravtsov/traineeflow/internal/model"
	"github.com/mkravtsov/traineeflow/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AttestationService records manager verdicts for the terminal attestation.
// The attestation is never auto-scored; grading is allowed only once every
// stage of the trainee's path is completed.
type AttestationService interface {
	Grade(companyID, managerID, attestationID uint, req dto.GradeAttestationRequest) (*dto.AttestationResultDTO, error)
	GetResult(companyID, attestationID, traineeID uint) (*dto.AttestationResultDTO, error)
}

type attestationService struct {
	attestationRepo repository.AttestationRepository
	catalogRepo     repository.CatalogRepository
	progressRepo    repository.ProgressRepository
}

func NewAttestationService(
	attestationRepo repository.AttestationRepository,
	catalogRepo repository.CatalogRepository,
	progressRepo repository.ProgressRepository,
) AttestationService {
	return &attestationService{
		attestationRepo: attestationRepo,
		catalogRepo:     catalogRepo,
		progressRepo:    progressRepo,
	}
}

func (s *attestationService) Grade(companyID, managerID, attestationID uint, req dto.GradeAttestationRequest) (*dto.AttestationResultDTO, error) {
	if _, err := s.attestationRepo.FindByID(companyID, attestationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attestation %d: %w", attestationID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("loading attestation %d: %w", attestationID, err)
	}

	tlp, err := s.progressRepo.FindActiveByTrainee(companyID, req.TraineeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("trainee %d has no active learning path: %w", req.TraineeID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("loading trainee path: %w", err)
	}
	path, err := s.catalogRepo.FindLearningPathByID(companyID, tlp.LearningPathID)
	if err != nil {
		return nil, fmt.Errorf("loading learning path %d: %w", tlp.LearningPathID, err)
	}
	if path.AttestationID == nil || *path.AttestationID != attestationID {
		return nil, fmt.Errorf("attestation %d does not terminate the trainee's path: %w", attestationID, apperr.ErrInvalidTransition)
	}
	if !pathStagesCompleted(path, tlp) {
		return nil, fmt.Errorf("attestation %d is not unlocked, stages are still incomplete: %w", attestationID, apperr.ErrInvalidTransition)
	}

	result := &model.AttestationResult{
		CompanyID:     companyID,
		AttestationID: attestationID,
		TraineeID:     req.TraineeID,
		Score:         req.Score,
		IsPassed:      req.IsPassed,
		GradedBy:      managerID,
		Comment:       req.Comment,
	}
	if err := s.attestationRepo.CreateResult(result); err != nil {
		return nil, fmt.Errorf("saving attestation result: %w", err)
	}

	if req.IsPassed && !tlp.AttestationCompleted {
		tlp.AttestationCompleted = true
		if err := s.progressRepo.UpdateTraineeLearningPath(tlp); err != nil {
			return nil, fmt.Errorf("marking attestation completed: %w", err)
		}
	}

	log.Info().Uint("traineeID", req.TraineeID).Uint("attestationID", attestationID).Bool("passed", req.IsPassed).Uint("managerID", managerID).Msg("Attestation graded")
	return attestationResultDTO(result), nil
}

func (s *attestationService) GetResult(companyID, attestationID, traineeID uint) (*dto.AttestationResultDTO, error) {
	result, err := s.attestationRepo.FindResult(companyID, attestationID, traineeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no attestation result for trainee %d: %w", traineeID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("loading attestation result: %w", err)
	}
	return attestationResultDTO(result), nil
}

func pathStagesCompleted(path *model.LearningPath, tlp *model.TraineeLearningPath) bool {
	if len(path.Stages) == 0 {
		return false
	}
	for _, stage := range path.Stages {
		sp := stageProgressFor(tlp, stage.ID)
		if sp == nil || !sp.IsCompleted {
			return false
		}
	}
	return true
}

func attestationResultDTO(result *model.AttestationResult) *dto.AttestationResultDTO {
	return &dto.AttestationResultDTO{
		ID:            result.ID,
		AttestationID: result.AttestationID,
		TraineeID:     result.TraineeID,
		Score:         result.Score,
		IsPassed:      result.IsPassed,
		GradedBy:      result.GradedBy,
		Comment:       result.Comment,
		CreatedAt:     result.CreatedAt,
	}
}
