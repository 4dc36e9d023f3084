package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/mkravtsov/traineeflow/internal/apperr"
	"github.com/mkravtsov/traineeflow/internal/dto"
	"github.com/mkravtsov/traineeflow/internal/event"
	"github.com/mkravtsov/traineeflow/internal/model"
	"github.com/mkravtsov/traineeflow/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProgressionService drives the per-trainee progression state machine: path
// assignment, the explicit stage-open transition, the destructive stage reset
// and the status read path, plus ad-hoc test access grants.
type ProgressionService interface {
	AssignPath(companyID, mentorID, traineeID, pathID uint, replace bool) (*dto.PathStatusDTO, error)
	OpenStage(companyID, traineeID, stageID uint) error
	ResetStage(companyID, traineeID, stageID uint) error
	GetPathStatus(companyID, traineeID uint) (*dto.PathStatusDTO, error)
	GrantTestAccess(companyID, mentorID, traineeID, testID uint) (*dto.TestAccessResponseDTO, error)
	RevokeTestAccess(companyID, grantID uint) error
}

type progressionService struct {
	catalogRepo  repository.CatalogRepository
	testRepo     repository.TestRepository
	progressRepo repository.ProgressRepository
	resultRepo   repository.ResultRepository
	accessRepo   repository.AccessRepository
	notifier     event.Notifier
}

func NewProgressionService(
	catalogRepo repository.CatalogRepository,
	testRepo repository.TestRepository,
	progressRepo repository.ProgressRepository,
	resultRepo repository.ResultRepository,
	accessRepo repository.AccessRepository,
	notifier event.Notifier,
) ProgressionService {
	return &progressionService{
		catalogRepo:  catalogRepo,
		testRepo:     testRepo,
		progressRepo: progressRepo,
		resultRepo:   resultRepo,
		accessRepo:   accessRepo,
		notifier:     notifier,
	}
}

// AssignPath creates the full progress mirror for a learning path, every unit
// initially closed. An existing assignment is only discarded when replace is
// set: reassignment is destructive and must be explicit.
func (s *progressionService) AssignPath(companyID, mentorID, traineeID, pathID uint, replace bool) (*dto.PathStatusDTO, error) {
	path, err := s.catalogRepo.FindLearningPathByID(companyID, pathID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("learning path %d: %w", pathID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("loading learning path %d: %w", pathID, err)
	}
	if !path.IsActive {
		return nil, fmt.Errorf("learning path %d is deactivated: %w", pathID, apperr.ErrNotFound)
	}

	existing, err := s.progressRepo.FindActiveByTrainee(companyID, traineeID)
	switch {
	case err == nil:
		if !replace {
			return nil, fmt.Errorf("trainee %d already has an active learning path: %w", traineeID, apperr.ErrInvalidTransition)
		}
		if err := s.discardAssignment(companyID, traineeID, existing); err != nil {
			return nil, err
		}
		log.Info().Uint("traineeID", traineeID).Uint("oldPathID", existing.LearningPathID).Uint("mentorID", mentorID).Msg("Prior path assignment discarded")
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First assignment.
	default:
		return nil, fmt.Errorf("checking existing assignment: %w", err)
	}

	tlp := &model.TraineeLearningPath{
		CompanyID:      companyID,
		TraineeID:      traineeID,
		LearningPathID: path.ID,
		IsActive:       true,
	}
	for _, stage := range path.Stages {
		sp := model.StageProgress{
			CompanyID: companyID,
			StageID:   stage.ID,
		}
		for _, session := range stage.Sessions {
			sp.SessionProgresses = append(sp.SessionProgresses, model.SessionProgress{
				CompanyID: companyID,
				SessionID: session.ID,
			})
		}
		tlp.StageProgresses = append(tlp.StageProgresses, sp)
	}
	if err := s.progressRepo.CreateTree(tlp); err != nil {
		return nil, fmt.Errorf("creating progress tree: %w", err)
	}

	log.Info().Uint("traineeID", traineeID).Uint("pathID", pathID).Uint("mentorID", mentorID).Msg("Learning path assigned")
	return s.GetPathStatus(companyID, traineeID)
}

func (s *progressionService) discardAssignment(companyID, traineeID uint, tlp *model.TraineeLearningPath) error {
	oldPath, err := s.catalogRepo.FindLearningPathByID(companyID, tlp.LearningPathID)
	if err == nil {
		testIDs := collectPathTestIDs(oldPath)
		if err := s.resultRepo.DeleteForTests(companyID, traineeID, testIDs); err != nil {
			return fmt.Errorf("discarding old results: %w", err)
		}
		if err := s.accessRepo.DeleteForTests(companyID, traineeID, testIDs); err != nil {
			return fmt.Errorf("discarding old grants: %w", err)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("loading old learning path %d: %w", tlp.LearningPathID, err)
	}
	if err := s.progressRepo.DeleteTree(tlp.ID); err != nil {
		return fmt.Errorf("deleting old progress tree: %w", err)
	}
	return nil
}

// OpenStage performs the closed→opened transition. Only the first stage may
// open unconditionally; any later stage requires its predecessor (by order
// number) to be completed.
func (s *progressionService) OpenStage(companyID, traineeID, stageID uint) error {
	tlp, path, err := s.loadTrajectory(companyID, traineeID)
	if err != nil {
		return err
	}

	stage, stageProg, err := findStage(path, tlp, stageID)
	if err != nil {
		return err
	}
	if stageProg.IsOpened {
		return fmt.Errorf("stage %d is already opened: %w", stageID, apperr.ErrInvalidTransition)
	}

	if pred := predecessorStage(path.Stages, stage.OrderNumber); pred != nil {
		predProg := stageProgressFor(tlp, pred.ID)
		if predProg == nil || !predProg.IsCompleted {
			return fmt.Errorf("stage %q must be completed before opening stage %q: %w", pred.Name, stage.Name, apperr.ErrInvalidTransition)
		}
	}

	now := time.Now()
	stageProg.IsOpened = true
	stageProg.OpenedAt = &now
	// Sessions inherit openness from their stage; there is no separate
	// per-session open action.
	for i := range stageProg.SessionProgresses {
		sessionProg := &stageProg.SessionProgresses[i]
		if sessionProg.IsOpened {
			continue
		}
		sessionProg.IsOpened = true
		sessionProg.OpenedAt = &now
	}
	// One transactional write: the stage never ends up opened while its
	// sessions stay closed.
	if err := s.progressRepo.UpdateStageTree(stageProg); err != nil {
		return fmt.Errorf("opening stage %d: %w", stageID, err)
	}

	s.notifier.Publish(event.New(event.StageOpened, companyID, traineeID, stage.ID, stage.Name))
	log.Info().Uint("traineeID", traineeID).Uint("stageID", stageID).Msg("Stage opened")
	return nil
}

// ResetStage is the only transition back to closed: a full rollback that also
// deletes the trainee's results and grants for every test in the stage.
func (s *progressionService) ResetStage(companyID, traineeID, stageID uint) error {
	tlp, path, err := s.loadTrajectory(companyID, traineeID)
	if err != nil {
		return err
	}
	stage, stageProg, err := findStage(path, tlp, stageID)
	if err != nil {
		return err
	}

	testIDs := collectStageTestIDs(stage)
	if err := s.resultRepo.DeleteForTests(companyID, traineeID, testIDs); err != nil {
		return fmt.Errorf("deleting results for stage %d: %w", stageID, err)
	}
	if err := s.accessRepo.DeleteForTests(companyID, traineeID, testIDs); err != nil {
		return fmt.Errorf("deleting grants for stage %d: %w", stageID, err)
	}

	stageProg.IsOpened = false
	stageProg.IsCompleted = false
	stageProg.OpenedAt = nil
	stageProg.CompletedAt = nil
	for i := range stageProg.SessionProgresses {
		sessionProg := &stageProg.SessionProgresses[i]
		sessionProg.IsOpened = false
		sessionProg.IsCompleted = false
		sessionProg.OpenedAt = nil
		sessionProg.CompletedAt = nil
	}
	if err := s.progressRepo.UpdateStageTree(stageProg); err != nil {
		return fmt.Errorf("resetting stage progress %d: %w", stageProg.ID, err)
	}

	log.Info().Uint("traineeID", traineeID).Uint("stageID", stageID).Int("testsAffected", len(testIDs)).Msg("Stage reset")
	return nil
}

// GetPathStatus builds the full progression tree for one trainee. Attestation
// eligibility is derived from stage state on every read.
func (s *progressionService) GetPathStatus(companyID, traineeID uint) (*dto.PathStatusDTO, error) {
	tlp, path, err := s.loadTrajectory(companyID, traineeID)
	if err != nil {
		return nil, err
	}

	status := &dto.PathStatusDTO{
		LearningPathID:       path.ID,
		LearningPathName:     path.Name,
		AttestationID:        path.AttestationID,
		AttestationCompleted: tlp.AttestationCompleted,
	}

	allStagesDone := len(path.Stages) > 0
	for _, stage := range path.Stages {
		stageProg := stageProgressFor(tlp, stage.ID)
		if stageProg == nil {
			// An untracked stage counts as incomplete, same as the cascade.
			allStagesDone = false
			continue
		}
		stageDTO := dto.StageStatusDTO{
			StageID:     stage.ID,
			Name:        stage.Name,
			OrderNumber: stage.OrderNumber,
			IsOpened:    stageProg.IsOpened,
			IsCompleted: stageProg.IsCompleted,
			OpenedAt:    stageProg.OpenedAt,
			CompletedAt: stageProg.CompletedAt,
		}
		if !stageProg.IsCompleted {
			allStagesDone = false
		}
		for _, session := range stage.Sessions {
			sessionProg := sessionProgressFor(stageProg, session.ID)
			if sessionProg == nil {
				continue
			}
			sessionDTO := dto.SessionStatusDTO{
				SessionID:   session.ID,
				Name:        session.Name,
				OrderNumber: session.OrderNumber,
				IsOpened:    sessionProg.IsOpened,
				IsCompleted: sessionProg.IsCompleted,
				CompletedAt: sessionProg.CompletedAt,
			}
			for _, link := range session.TestLinks {
				passed, err := s.resultRepo.HasPassing(companyID, traineeID, link.TestID)
				if err != nil {
					return nil, fmt.Errorf("checking pass state for test %d: %w", link.TestID, err)
				}
				count, err := s.resultRepo.CountByTraineeAndTest(companyID, traineeID, link.TestID)
				if err != nil {
					return nil, fmt.Errorf("counting attempts for test %d: %w", link.TestID, err)
				}
				sessionDTO.Tests = append(sessionDTO.Tests, dto.TestStatusDTO{
					TestID:       link.TestID,
					Title:        link.Test.Title,
					OrderNumber:  link.OrderNumber,
					IsPassed:     passed,
					AttemptsUsed: int(count),
					MaxAttempts:  link.Test.MaxAttempts,
				})
			}
			stageDTO.Sessions = append(stageDTO.Sessions, sessionDTO)
		}
		status.Stages = append(status.Stages, stageDTO)
	}

	status.AttestationUnlocked = path.AttestationID != nil && allStagesDone
	return status, nil
}

func (s *progressionService) GrantTestAccess(companyID, mentorID, traineeID, testID uint) (*dto.TestAccessResponseDTO, error) {
	test, err := s.testRepo.FindByID(companyID, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", testID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("loading test %d: %w", testID, err)
	}
	if !test.IsActive {
		return nil, fmt.Errorf("test %d is deactivated: %w", testID, apperr.ErrNotFound)
	}

	grant := &model.TestAccess{
		CompanyID: companyID,
		TraineeID: traineeID,
		TestID:    test.ID,
		GrantedBy: mentorID,
		IsActive:  true,
	}
	if err := s.accessRepo.Create(grant); err != nil {
		return nil, fmt.Errorf("creating access grant: %w", err)
	}

	log.Info().Uint("traineeID", traineeID).Uint("testID", testID).Uint("mentorID", mentorID).Msg("Test access granted")
	return &dto.TestAccessResponseDTO{
		ID:        grant.ID,
		TraineeID: grant.TraineeID,
		TestID:    grant.TestID,
		GrantedBy: grant.GrantedBy,
		IsActive:  grant.IsActive,
		CreatedAt: grant.CreatedAt,
	}, nil
}

func (s *progressionService) RevokeTestAccess(companyID, grantID uint) error {
	return s.accessRepo.Revoke(companyID, grantID)
}

func (s *progressionService) loadTrajectory(companyID, traineeID uint) (*model.TraineeLearningPath, *model.LearningPath, error) {
	tlp, err := s.progressRepo.FindActiveByTrainee(companyID, traineeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("trainee %d has no active learning path: %w", traineeID, apperr.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("loading trainee path: %w", err)
	}
	path, err := s.catalogRepo.FindLearningPathByID(companyID, tlp.LearningPathID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading learning path %d: %w", tlp.LearningPathID, err)
	}
	return tlp, path, nil
}

func findStage(path *model.LearningPath, tlp *model.TraineeLearningPath, stageID uint) (*model.Stage, *model.StageProgress, error) {
	for i := range path.Stages {
		if path.Stages[i].ID == stageID {
			sp := stageProgressFor(tlp, stageID)
			if sp == nil {
				return nil, nil, fmt.Errorf("no progress row for stage %d: %w", stageID, apperr.ErrNotFound)
			}
			return &path.Stages[i], sp, nil
		}
	}
	return nil, nil, fmt.Errorf("stage %d is not part of the assigned path: %w", stageID, apperr.ErrNotFound)
}

func stageProgressFor(tlp *model.TraineeLearningPath, stageID uint) *model.StageProgress {
	for i := range tlp.StageProgresses {
		if tlp.StageProgresses[i].StageID == stageID {
			return &tlp.StageProgresses[i]
		}
	}
	return nil
}

func sessionProgressFor(sp *model.StageProgress, sessionID uint) *model.SessionProgress {
	for i := range sp.SessionProgresses {
		if sp.SessionProgresses[i].SessionID == sessionID {
			return &sp.SessionProgresses[i]
		}
	}
	return nil
}

func predecessorStage(stages []model.Stage, orderNumber int) *model.Stage {
	var pred *model.Stage
	for i := range stages {
		if stages[i].OrderNumber >= orderNumber {
			continue
		}
		if pred == nil || stages[i].OrderNumber > pred.OrderNumber {
			pred = &stages[i]
		}
	}
	return pred
}

func collectStageTestIDs(stage *model.Stage) []uint {
	seen := make(map[uint]struct{})
	var ids []uint
	for _, session := range stage.Sessions {
		for _, link := range session.TestLinks {
			if _, ok := seen[link.TestID]; ok {
				continue
			}
			seen[link.TestID] = struct{}{}
			ids = append(ids, link.TestID)
		}
	}
	return ids
}

func collectPathTestIDs(path *model.LearningPath) []uint {
	seen := make(map[uint]struct{})
	var ids []uint
	for i := range path.Stages {
		for _, id := range collectStageTestIDs(&path.Stages[i]) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
