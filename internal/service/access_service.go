package service

import (
	"errors"
	"fmt"

	"github.com/mkravtsov/traineeflow/internal/apperr"
	"github.com/mkravtsov/traineeflow/internal/model"
	"github.com/mkravtsov/traineeflow/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AccessDecision is the outcome of the gate. Reason is nil when Allowed and
// one of the apperr sentinels (wrapped with detail) otherwise, so callers can
// report the specific denial to the trainee.
type AccessDecision struct {
	Allowed bool
	Reason  error
}

// AccessGateService decides whether a trainee may start a test. It is a pure
// decision function: it never mutates grants or progress.
type AccessGateService interface {
	CanTakeTest(companyID, traineeID uint, test *model.Test) (AccessDecision, error)
}

type accessGateService struct {
	accessRepo   repository.AccessRepository
	catalogRepo  repository.CatalogRepository
	progressRepo repository.ProgressRepository
	resultRepo   repository.ResultRepository
}

func NewAccessGateService(
	accessRepo repository.AccessRepository,
	catalogRepo repository.CatalogRepository,
	progressRepo repository.ProgressRepository,
	resultRepo repository.ResultRepository,
) AccessGateService {
	return &accessGateService{
		accessRepo:   accessRepo,
		catalogRepo:  catalogRepo,
		progressRepo: progressRepo,
		resultRepo:   resultRepo,
	}
}

func (s *accessGateService) CanTakeTest(companyID, traineeID uint, test *model.Test) (AccessDecision, error) {
	// Tenant isolation is the hard boundary and is checked first. Even a
	// (corrupted) grant row never lets a trainee cross companies.
	if test.CompanyID != companyID {
		return deny(fmt.Errorf("test %d belongs to another company: %w", test.ID, apperr.ErrAccessDenied)), nil
	}

	// A deactivated test takes no new attempts, grant or not. Existing
	// results stay on record.
	if !test.IsActive {
		return deny(fmt.Errorf("test %d is deactivated: %w", test.ID, apperr.ErrAccessDenied)), nil
	}

	authorized, reason, err := s.isAuthorized(companyID, traineeID, test.ID)
	if err != nil {
		return AccessDecision{}, err
	}
	if !authorized {
		return deny(reason), nil
	}

	// Attempt limit. MaxAttempts == 0 means unlimited.
	if test.MaxAttempts > 0 {
		count, err := s.resultRepo.CountByTraineeAndTest(companyID, traineeID, test.ID)
		if err != nil {
			return AccessDecision{}, fmt.Errorf("counting attempts for test %d: %w", test.ID, err)
		}
		if count >= int64(test.MaxAttempts) {
			return deny(fmt.Errorf("all %d attempts for test %d used: %w", test.MaxAttempts, test.ID, apperr.ErrAttemptsExhausted)), nil
		}
	}

	return AccessDecision{Allowed: true}, nil
}

// isAuthorized checks the two independent authorization paths: an explicit
// active grant, or membership of the test in a session whose stage is opened
// in the trainee's trajectory. The grant path deliberately ignores trajectory
// state.
func (s *accessGateService) isAuthorized(companyID, traineeID, testID uint) (bool, error, error) {
	_, err := s.accessRepo.FindActive(companyID, traineeID, testID)
	if err == nil {
		return true, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, fmt.Errorf("looking up access grant: %w", err)
	}

	tlp, err := s.progressRepo.FindActiveByTrainee(companyID, traineeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("no access grant and no assigned learning path: %w", apperr.ErrAccessDenied), nil
		}
		return false, nil, fmt.Errorf("looking up trainee path: %w", err)
	}

	sessions, err := s.catalogRepo.FindSessionsContainingTest(companyID, testID)
	if err != nil {
		return false, nil, fmt.Errorf("looking up sessions for test %d: %w", testID, err)
	}
	if len(sessions) == 0 {
		return false, fmt.Errorf("no access grant and test %d is not part of the trajectory: %w", testID, apperr.ErrAccessDenied), nil
	}

	openedStages := make(map[uint]bool, len(tlp.StageProgresses))
	for _, sp := range tlp.StageProgresses {
		openedStages[sp.StageID] = sp.IsOpened
	}
	inTrajectory := false
	for _, session := range sessions {
		opened, tracked := openedStages[session.StageID]
		if !tracked {
			continue
		}
		inTrajectory = true
		if opened {
			return true, nil, nil
		}
	}
	if inTrajectory {
		return false, fmt.Errorf("stage for test %d is not opened yet: %w", testID, apperr.ErrAccessDenied), nil
	}

	log.Debug().Uint("traineeID", traineeID).Uint("testID", testID).Msg("CanTakeTest: test not in trainee's trajectory and no grant")
	return false, fmt.Errorf("no access grant and test %d is not part of the trajectory: %w", testID, apperr.ErrAccessDenied), nil
}

func deny(reason error) AccessDecision {
	return AccessDecision{Allowed: false, Reason: reason}
}
