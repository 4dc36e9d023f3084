package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/mkravtsov/traineeflow/internal/apperr"
	"github.com/mkravtsov/traineeflow/internal/dto"
	"github.com/mkravtsov/traineeflow/internal/model"
	"github.com/mkravtsov/traineeflow/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CatalogService is the recruiter-facing authoring surface: learning paths,
// tests and attestations. Catalog rows are soft-deactivated, never deleted
// while trainees reference them.
type CatalogService interface {
	CreateLearningPath(companyID uint, req dto.LearningPathCreateDTO) (*dto.LearningPathResponseDTO, error)
	GetLearningPath(companyID, pathID uint) (*dto.LearningPathResponseDTO, error)
	DeactivateLearningPath(companyID, pathID uint) error
	CreateTest(companyID uint, req dto.TestCreateDTO) (*dto.TestResponseDTO, error)
	GetTest(companyID, testID uint) (*dto.TestResponseDTO, error)
	DeactivateTest(companyID, testID uint) error
	CreateAttestation(companyID uint, req dto.AttestationCreateDTO) (*model.Attestation, error)
}

type catalogService struct {
	catalogRepo repository.CatalogRepository
	testRepo    repository.TestRepository
}

func NewCatalogService(catalogRepo repository.CatalogRepository, testRepo repository.TestRepository) CatalogService {
	return &catalogService{catalogRepo: catalogRepo, testRepo: testRepo}
}

func (s *catalogService) CreateLearningPath(companyID uint, req dto.LearningPathCreateDTO) (*dto.LearningPathResponseDTO, error) {
	stageOrders := make(map[int]bool)
	path := model.LearningPath{
		CompanyID:     companyID,
		Name:          req.Name,
		GroupID:       req.GroupID,
		AttestationID: req.AttestationID,
		IsActive:      true,
	}

	for _, stageDTO := range req.Stages {
		if stageOrders[stageDTO.OrderNumber] {
			return nil, fmt.Errorf("duplicate stage order_number %d: %w", stageDTO.OrderNumber, apperr.ErrInvalidSubmission)
		}
		stageOrders[stageDTO.OrderNumber] = true

		stage := model.Stage{
			CompanyID:   companyID,
			Name:        stageDTO.Name,
			OrderNumber: stageDTO.OrderNumber,
		}
		sessionOrders := make(map[int]bool)
		for _, sessionDTO := range stageDTO.Sessions {
			if sessionOrders[sessionDTO.OrderNumber] {
				return nil, fmt.Errorf("duplicate session order_number %d in stage %q: %w", sessionDTO.OrderNumber, stageDTO.Name, apperr.ErrInvalidSubmission)
			}
			sessionOrders[sessionDTO.OrderNumber] = true

			session := model.Session{
				CompanyID:   companyID,
				Name:        sessionDTO.Name,
				OrderNumber: sessionDTO.OrderNumber,
			}
			for _, linkDTO := range sessionDTO.Tests {
				if _, err := s.testRepo.FindByID(companyID, linkDTO.TestID); err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return nil, fmt.Errorf("test %d: %w", linkDTO.TestID, apperr.ErrNotFound)
					}
					return nil, fmt.Errorf("checking test %d: %w", linkDTO.TestID, err)
				}
				session.TestLinks = append(session.TestLinks, model.SessionTest{
					TestID:      linkDTO.TestID,
					OrderNumber: linkDTO.OrderNumber,
				})
			}
			stage.Sessions = append(stage.Sessions, session)
		}
		path.Stages = append(path.Stages, stage)
	}

	if err := s.catalogRepo.CreateLearningPath(&path); err != nil {
		log.Error().Err(err).Str("name", req.Name).Msg("Failed to create learning path")
		return nil, fmt.Errorf("creating learning path: %w", err)
	}
	return s.GetLearningPath(companyID, path.ID)
}

func (s *catalogService) GetLearningPath(companyID, pathID uint) (*dto.LearningPathResponseDTO, error) {
	path, err := s.catalogRepo.FindLearningPathByID(companyID, pathID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("learning path %d: %w", pathID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("loading learning path %d: %w", pathID, err)
	}

	resp := dto.LearningPathResponseDTO{
		ID:            path.ID,
		Name:          path.Name,
		GroupID:       path.GroupID,
		AttestationID: path.AttestationID,
		CreatedAt:     path.CreatedAt,
	}
	for _, stage := range path.Stages {
		stageDTO := dto.StageResponseDTO{
			ID:          stage.ID,
			Name:        stage.Name,
			OrderNumber: stage.OrderNumber,
		}
		for _, session := range stage.Sessions {
			sessionDTO := dto.SessionResponseDTO{
				ID:          session.ID,
				Name:        session.Name,
				OrderNumber: session.OrderNumber,
			}
			for _, link := range session.TestLinks {
				sessionDTO.TestIDs = append(sessionDTO.TestIDs, link.TestID)
			}
			stageDTO.Sessions = append(stageDTO.Sessions, sessionDTO)
		}
		resp.Stages = append(resp.Stages, stageDTO)
	}
	return &resp, nil
}

func (s *catalogService) DeactivateLearningPath(companyID, pathID uint) error {
	if _, err := s.catalogRepo.FindLearningPathByID(companyID, pathID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("learning path %d: %w", pathID, apperr.ErrNotFound)
		}
		return fmt.Errorf("loading learning path %d: %w", pathID, err)
	}
	return s.catalogRepo.DeactivateLearningPath(companyID, pathID)
}

func (s *catalogService) CreateTest(companyID uint, req dto.TestCreateDTO) (*dto.TestResponseDTO, error) {
	orderSeen := make(map[int]bool)
	maxScore := 0.0
	var questions []model.Question

	for _, qDTO := range req.Questions {
		if orderSeen[qDTO.OrderInTest] {
			return nil, fmt.Errorf("duplicate order_in_test %d: %w", qDTO.OrderInTest, apperr.ErrInvalidSubmission)
		}
		orderSeen[qDTO.OrderInTest] = true

		if err := validateQuestion(qDTO); err != nil {
			return nil, err
		}

		optionsJSON, err := json.Marshal(qDTO.Options)
		if err != nil {
			return nil, fmt.Errorf("encoding options: %w", err)
		}
		questions = append(questions, model.Question{
			Text:          qDTO.Text,
			Type:          qDTO.Type,
			Options:       optionsJSON,
			CorrectAnswer: datatypes.JSON(qDTO.CorrectAnswer),
			Points:        qDTO.Points,
			PenaltyPoints: qDTO.PenaltyPoints,
			OrderInTest:   qDTO.OrderInTest,
		})
		maxScore += qDTO.Points
	}

	if req.ThresholdScore > maxScore {
		return nil, fmt.Errorf("threshold_score %.2f exceeds the maximum score %.2f: %w", req.ThresholdScore, maxScore, apperr.ErrInvalidSubmission)
	}

	test := model.Test{
		CompanyID:        companyID,
		Title:            req.Title,
		Description:      req.Description,
		ThresholdScore:   req.ThresholdScore,
		MaxScore:         maxScore,
		MaxAttempts:      req.MaxAttempts,
		ShuffleQuestions: req.ShuffleQuestions,
		IsActive:         true,
		Questions:        questions,
	}
	if err := s.testRepo.Create(&test); err != nil {
		log.Error().Err(err).Str("title", req.Title).Msg("Failed to create test")
		return nil, fmt.Errorf("creating test: %w", err)
	}
	return s.GetTest(companyID, test.ID)
}

func (s *catalogService) GetTest(companyID, testID uint) (*dto.TestResponseDTO, error) {
	test, err := s.testRepo.FindByIDWithQuestions(companyID, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", testID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("loading test %d: %w", testID, err)
	}

	var resp dto.TestResponseDTO
	if err := copier.Copy(&resp, test); err != nil {
		return nil, fmt.Errorf("preparing test response: %w", err)
	}
	// copier cannot decode the JSON options column, fill them in by hand.
	resp.Questions = make([]dto.QuestionResponseDTO, len(test.Questions))
	for i, q := range test.Questions {
		var options []string
		if len(q.Options) > 0 {
			if err := json.Unmarshal(q.Options, &options); err != nil {
				return nil, fmt.Errorf("question %d has malformed options: %w", q.ID, err)
			}
		}
		resp.Questions[i] = dto.QuestionResponseDTO{
			ID:            q.ID,
			TestID:        q.TestID,
			Text:          q.Text,
			Type:          q.Type,
			Options:       options,
			Points:        q.Points,
			PenaltyPoints: q.PenaltyPoints,
			OrderInTest:   q.OrderInTest,
		}
	}
	return &resp, nil
}

func (s *catalogService) DeactivateTest(companyID, testID uint) error {
	if _, err := s.testRepo.FindByID(companyID, testID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("test %d: %w", testID, apperr.ErrNotFound)
		}
		return fmt.Errorf("loading test %d: %w", testID, err)
	}
	return s.testRepo.Deactivate(companyID, testID)
}

func (s *catalogService) CreateAttestation(companyID uint, req dto.AttestationCreateDTO) (*model.Attestation, error) {
	att := &model.Attestation{
		CompanyID:   companyID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.catalogRepo.CreateAttestation(att); err != nil {
		return nil, fmt.Errorf("creating attestation: %w", err)
	}
	return att, nil
}

// validateQuestion enforces the per-type shape of the correct answer at
// authoring time, so the evaluation engine can trust the catalog.
func validateQuestion(q dto.QuestionCreateDTO) error {
	switch q.Type {
	case model.QuestionTypeText:
		var answer string
		if err := json.Unmarshal(q.CorrectAnswer, &answer); err != nil || strings.TrimSpace(answer) == "" {
			return fmt.Errorf("text question %q needs a non-empty string correct answer: %w", q.Text, apperr.ErrInvalidSubmission)
		}
	case model.QuestionTypeNumber:
		var answer string
		if err := json.Unmarshal(q.CorrectAnswer, &answer); err != nil {
			return fmt.Errorf("number question %q needs a string correct answer: %w", q.Text, apperr.ErrInvalidSubmission)
		}
		normalized := strings.ReplaceAll(strings.TrimSpace(answer), ",", ".")
		if _, err := json.Number(normalized).Float64(); err != nil {
			return fmt.Errorf("number question %q has unparseable correct answer %q: %w", q.Text, answer, apperr.ErrInvalidSubmission)
		}
	case model.QuestionTypeYesNo:
		var answer string
		if err := json.Unmarshal(q.CorrectAnswer, &answer); err != nil {
			return fmt.Errorf("yes_no question %q needs a string correct answer: %w", q.Text, apperr.ErrInvalidSubmission)
		}
		if !strings.EqualFold(answer, model.AnswerYes) && !strings.EqualFold(answer, model.AnswerNo) {
			return fmt.Errorf("yes_no question %q must have %q or %q as the correct answer: %w", q.Text, model.AnswerYes, model.AnswerNo, apperr.ErrInvalidSubmission)
		}
	case model.QuestionTypeSingleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("single_choice question %q needs at least two options: %w", q.Text, apperr.ErrInvalidSubmission)
		}
		var answer string
		if err := json.Unmarshal(q.CorrectAnswer, &answer); err != nil {
			return fmt.Errorf("single_choice question %q needs a string correct answer: %w", q.Text, apperr.ErrInvalidSubmission)
		}
		if !containsOption(q.Options, answer) {
			return fmt.Errorf("single_choice question %q has correct answer %q outside its options: %w", q.Text, answer, apperr.ErrInvalidSubmission)
		}
	case model.QuestionTypeMultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("multiple_choice question %q needs at least two options: %w", q.Text, apperr.ErrInvalidSubmission)
		}
		var answer []string
		if err := json.Unmarshal(q.CorrectAnswer, &answer); err != nil || len(answer) == 0 {
			return fmt.Errorf("multiple_choice question %q needs a non-empty array correct answer: %w", q.Text, apperr.ErrInvalidSubmission)
		}
		for _, a := range answer {
			if !containsOption(q.Options, a) {
				return fmt.Errorf("multiple_choice question %q has correct answer %q outside its options: %w", q.Text, a, apperr.ErrInvalidSubmission)
			}
		}
	default:
		return fmt.Errorf("unknown question type %q: %w", q.Type, apperr.ErrInvalidSubmission)
	}
	return nil
}

func containsOption(options []string, label string) bool {
	for _, opt := range options {
		if opt == label {
			return true
		}
	}
	return false
}
