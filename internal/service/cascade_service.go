package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/mkravtsov/traineeflow/internal/apperr"
	"github.com/mkravtsov/traineeflow/internal/event"
	"github.com/mkravtsov/traineeflow/internal/model"
	"github.com/mkravtsov/traineeflow/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CascadeService re-derives session, stage and attestation completion after a
// passing test result. It is the single place this recomputation happens.
// Running it against an already-completed tree is a no-op that returns no
// boundaries.
type CascadeService interface {
	Run(companyID, traineeID, testID uint) ([]event.Event, error)
}

type cascadeService struct {
	catalogRepo  repository.CatalogRepository
	progressRepo repository.ProgressRepository
	resultRepo   repository.ResultRepository
}

func NewCascadeService(
	catalogRepo repository.CatalogRepository,
	progressRepo repository.ProgressRepository,
	resultRepo repository.ResultRepository,
) CascadeService {
	return &cascadeService{
		catalogRepo:  catalogRepo,
		progressRepo: progressRepo,
		resultRepo:   resultRepo,
	}
}

func (s *cascadeService) Run(companyID, traineeID, testID uint) ([]event.Event, error) {
	tlp, err := s.progressRepo.FindActiveByTrainee(companyID, traineeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Ad-hoc test outside any trajectory: nothing to cascade.
			return nil, nil
		}
		return nil, fmt.Errorf("loading trainee path: %w", err)
	}

	path, err := s.catalogRepo.FindLearningPathByID(companyID, tlp.LearningPathID)
	if err != nil {
		return nil, fmt.Errorf("loading learning path %d: %w", tlp.LearningPathID, err)
	}

	stageProgressByStageID := make(map[uint]*model.StageProgress, len(tlp.StageProgresses))
	sessionProgressBySessionID := make(map[uint]*model.SessionProgress)
	for i := range tlp.StageProgresses {
		sp := &tlp.StageProgresses[i]
		stageProgressByStageID[sp.StageID] = sp
		for j := range sp.SessionProgresses {
			sessionProgressBySessionID[sp.SessionProgresses[j].SessionID] = &sp.SessionProgresses[j]
		}
	}

	var events []event.Event
	now := time.Now()

	// Session level: only sessions that contain the just-passed test and are
	// opened can cross the completion boundary in this run.
	for _, stage := range path.Stages {
		stageProg, tracked := stageProgressByStageID[stage.ID]
		if !tracked || !stageProg.IsOpened {
			continue
		}
		for _, session := range stage.Sessions {
			if !sessionContainsTest(session, testID) {
				continue
			}
			sessionProg, ok := sessionProgressBySessionID[session.ID]
			if !ok || !sessionProg.IsOpened || sessionProg.IsCompleted {
				continue
			}
			done, err := s.allSessionTestsPassed(companyID, traineeID, session.ID)
			if err != nil {
				return events, err
			}
			if !done {
				continue
			}
			crossed, err := s.completeSessionProgress(sessionProg, now)
			if err != nil {
				return events, err
			}
			if crossed {
				events = append(events, event.New(event.SessionCompleted, companyID, traineeID, session.ID, session.Name))
			}
		}
	}

	// Stage level: an opened stage completes when every child session is
	// completed. Completion is monotonic; nothing here ever reverts a flag.
	stageCrossed := false
	for _, stage := range path.Stages {
		stageProg, tracked := stageProgressByStageID[stage.ID]
		if !tracked || !stageProg.IsOpened || stageProg.IsCompleted {
			continue
		}
		allDone := len(stage.Sessions) > 0
		for _, session := range stage.Sessions {
			sessionProg, ok := sessionProgressBySessionID[session.ID]
			if !ok || !sessionProg.IsCompleted {
				allDone = false
				break
			}
		}
		if !allDone {
			continue
		}
		crossed, err := s.completeStageProgress(stageProg, now)
		if err != nil {
			return events, err
		}
		if crossed {
			stageCrossed = true
			events = append(events, event.New(event.StageCompleted, companyID, traineeID, stage.ID, stage.Name))
		}
	}

	// Attestation eligibility is a derived read, never a persisted flag. The
	// unlock event fires only on the run that crossed the last stage boundary.
	if stageCrossed && path.AttestationID != nil && allStagesCompleted(path.Stages, stageProgressByStageID) {
		name := ""
		if path.Attestation != nil {
			name = path.Attestation.Name
		}
		events = append(events, event.New(event.AttestationUnlocked, companyID, traineeID, *path.AttestationID, name))
	}

	return events, nil
}

func (s *cascadeService) allSessionTestsPassed(companyID, traineeID, sessionID uint) (bool, error) {
	links, err := s.catalogRepo.FindSessionTests(sessionID)
	if err != nil {
		return false, fmt.Errorf("loading tests of session %d: %w", sessionID, err)
	}
	if len(links) == 0 {
		return false, nil
	}
	for _, link := range links {
		passed, err := s.resultRepo.HasPassing(companyID, traineeID, link.TestID)
		if err != nil {
			return false, fmt.Errorf("checking passing result for test %d: %w", link.TestID, err)
		}
		if !passed {
			return false, nil
		}
	}
	return true, nil
}

// completeSessionProgress flips the completion flag with one optimistic-lock
// retry. Returns false without error when a concurrent writer already
// completed the row, keeping boundary events exactly-once.
func (s *cascadeService) completeSessionProgress(sp *model.SessionProgress, now time.Time) (bool, error) {
	sp.IsCompleted = true
	sp.CompletedAt = &now
	err := s.progressRepo.UpdateSessionProgress(sp)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, apperr.ErrConcurrentModification) {
		return false, fmt.Errorf("completing session progress %d: %w", sp.ID, err)
	}

	log.Warn().Uint("sessionProgressID", sp.ID).Msg("Cascade: session progress update lost a race, retrying once")
	fresh, err := s.progressRepo.FindSessionProgressByID(sp.ID)
	if err != nil {
		return false, fmt.Errorf("reloading session progress %d: %w", sp.ID, err)
	}
	if fresh.IsCompleted {
		*sp = *fresh
		return false, nil
	}
	fresh.IsCompleted = true
	fresh.CompletedAt = &now
	if err := s.progressRepo.UpdateSessionProgress(fresh); err != nil {
		return false, fmt.Errorf("completing session progress %d after retry: %w", sp.ID, err)
	}
	*sp = *fresh
	return true, nil
}

func (s *cascadeService) completeStageProgress(sp *model.StageProgress, now time.Time) (bool, error) {
	sp.IsCompleted = true
	sp.CompletedAt = &now
	err := s.progressRepo.UpdateStageProgress(sp)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, apperr.ErrConcurrentModification) {
		return false, fmt.Errorf("completing stage progress %d: %w", sp.ID, err)
	}

	log.Warn().Uint("stageProgressID", sp.ID).Msg("Cascade: stage progress update lost a race, retrying once")
	fresh, err := s.progressRepo.FindStageProgressByID(sp.ID)
	if err != nil {
		return false, fmt.Errorf("reloading stage progress %d: %w", sp.ID, err)
	}
	if fresh.IsCompleted {
		fresh.SessionProgresses = sp.SessionProgresses
		*sp = *fresh
		return false, nil
	}
	fresh.IsCompleted = true
	fresh.CompletedAt = &now
	if err := s.progressRepo.UpdateStageProgress(fresh); err != nil {
		return false, fmt.Errorf("completing stage progress %d after retry: %w", sp.ID, err)
	}
	fresh.SessionProgresses = sp.SessionProgresses
	*sp = *fresh
	return true, nil
}

func sessionContainsTest(session model.Session, testID uint) bool {
	for _, link := range session.TestLinks {
		if link.TestID == testID {
			return true
		}
	}
	return false
}

func allStagesCompleted(stages []model.Stage, progressByStageID map[uint]*model.StageProgress) bool {
	if len(stages) == 0 {
		return false
	}
	for _, stage := range stages {
		sp, ok := progressByStageID[stage.ID]
		if !ok || !sp.IsCompleted {
			return false
		}
	}
	return true
}
