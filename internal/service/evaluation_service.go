package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/mkravtsov/traineeflow/internal/apperr"
	"github.com/mkravtsov/traineeflow/internal/dto"
	"github.com/mkravtsov/traineeflow/internal/event"
	"github.com/mkravtsov/traineeflow/internal/model"
	"github.com/mkravtsov/traineeflow/internal/repository"
	"github.com/mkravtsov/traineeflow/internal/scoring"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// EvaluationService runs a trainee's test attempt end to end: access check,
// question presentation, scoring, result persistence and the completion
// cascade for passing trajectory results.
type EvaluationService interface {
	StartTest(companyID, traineeID, testID uint) (*dto.AttemptPresentationDTO, error)
	SubmitTest(companyID, traineeID, testID uint, req dto.AttemptSubmitDTO) (*dto.TestResultDTO, error)
	GetAttemptHistory(companyID, traineeID, testID uint) ([]dto.TestResultDTO, error)
}

type evaluationService struct {
	testRepo   repository.TestRepository
	resultRepo repository.ResultRepository
	gate       AccessGateService
	cascade    CascadeService
	notifier   event.Notifier
}

func NewEvaluationService(
	testRepo repository.TestRepository,
	resultRepo repository.ResultRepository,
	gate AccessGateService,
	cascade CascadeService,
	notifier event.Notifier,
) EvaluationService {
	return &evaluationService{
		testRepo:   testRepo,
		resultRepo: resultRepo,
		gate:       gate,
		cascade:    cascade,
		notifier:   notifier,
	}
}

// StartTest authorizes the trainee and builds the attempt presentation. No
// server-side attempt state is created; an abandoned attempt leaves no trace.
func (s *evaluationService) StartTest(companyID, traineeID, testID uint) (*dto.AttemptPresentationDTO, error) {
	test, err := s.loadTest(companyID, testID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(companyID, traineeID, test); err != nil {
		return nil, err
	}
	if len(test.Questions) == 0 {
		return nil, fmt.Errorf("test %d has no questions: %w", testID, apperr.ErrNotFound)
	}

	questions := make([]model.Question, len(test.Questions))
	copy(questions, test.Questions)
	if test.ShuffleQuestions {
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	presentation := &dto.AttemptPresentationDTO{
		TestID:      test.ID,
		TestTitle:   test.Title,
		Description: test.Description,
		StartedAt:   time.Now(),
	}
	for _, q := range questions {
		pq := dto.PresentedQuestionDTO{
			QuestionID: q.ID,
			Text:       q.Text,
			Type:       q.Type,
			Points:     q.Points,
		}
		if q.Type == model.QuestionTypeSingleChoice || q.Type == model.QuestionTypeMultipleChoice {
			var options []string
			if err := json.Unmarshal(q.Options, &options); err != nil {
				return nil, fmt.Errorf("question %d has malformed options: %w", q.ID, err)
			}
			order := make([]int, len(options))
			for i := range order {
				order[i] = i
			}
			if test.ShuffleQuestions {
				rand.Shuffle(len(order), func(i, j int) {
					order[i], order[j] = order[j], order[i]
				})
			}
			shown := make([]string, len(options))
			for pos, canonical := range order {
				shown[pos] = options[canonical]
			}
			pq.Options = shown
			pq.OptionOrder = order
		}
		presentation.Questions = append(presentation.Questions, pq)
	}

	log.Info().Uint("traineeID", traineeID).Uint("testID", testID).Bool("shuffled", test.ShuffleQuestions).Msg("Test attempt presentation built")
	return presentation, nil
}

// SubmitTest scores a submission and persists the result. The result insert
// commits on its own; a cascade failure after it never loses the attempt.
func (s *evaluationService) SubmitTest(companyID, traineeID, testID uint, req dto.AttemptSubmitDTO) (*dto.TestResultDTO, error) {
	test, err := s.loadTest(companyID, testID)
	if err != nil {
		return nil, err
	}
	// The attempt limit is enforced here, before any scoring starts.
	if err := s.authorize(companyID, traineeID, test); err != nil {
		return nil, err
	}

	answers := make([]scoring.SubmittedAnswer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = scoring.SubmittedAnswer{QuestionID: a.QuestionID, Value: a.Value}
	}
	presented := make([]scoring.PresentedQuestion, len(req.Presentation))
	for i, p := range req.Presentation {
		presented[i] = scoring.PresentedQuestion{QuestionID: p.QuestionID, OptionOrder: p.OptionOrder}
	}

	outcome, err := scoring.Evaluate(test.Questions, answers, presented)
	if err != nil {
		return nil, err
	}

	isPassed := outcome.Score >= test.ThresholdScore
	answerLog, err := json.Marshal(outcome.Log)
	if err != nil {
		return nil, fmt.Errorf("encoding answer log: %w", err)
	}
	wrongLog, err := json.Marshal(outcome.Wrong)
	if err != nil {
		return nil, fmt.Errorf("encoding wrong answers: %w", err)
	}

	result := &model.TestResult{
		CompanyID:        companyID,
		TraineeID:        traineeID,
		TestID:           test.ID,
		Score:            outcome.Score,
		MaxPossibleScore: outcome.MaxPossibleScore,
		IsPassed:         isPassed,
		StartTime:        req.StartedAt,
		EndTime:          time.Now(),
		AnswerLog:        answerLog,
		WrongAnswers:     wrongLog,
	}
	if err := s.resultRepo.Create(result); err != nil {
		log.Error().Err(err).Uint("testID", testID).Uint("traineeID", traineeID).Msg("SubmitTest: failed to persist result")
		return nil, fmt.Errorf("saving test result: %w", err)
	}

	resultEventType := event.TestFailed
	if isPassed {
		resultEventType = event.TestPassed
	}
	s.notifier.Publish(event.New(resultEventType, companyID, traineeID, test.ID, test.Title))

	var crossed []event.Event
	if isPassed {
		// Only trajectory tests cascade; Run is a no-op for ad-hoc grants.
		crossed, err = s.cascade.Run(companyID, traineeID, testID)
		if err != nil {
			// The result row is already durable; the next passing attempt or
			// status read re-derives the same flags.
			log.Error().Err(err).Uint("testID", testID).Uint("traineeID", traineeID).Msg("SubmitTest: completion cascade failed after result was saved")
			return nil, fmt.Errorf("result %d saved but cascade failed: %w", result.ID, err)
		}
		for _, ev := range crossed {
			s.notifier.Publish(ev)
		}
	}

	resp := &dto.TestResultDTO{
		ID:               result.ID,
		TestID:           test.ID,
		TestTitle:        test.Title,
		Score:            result.Score,
		MaxPossibleScore: result.MaxPossibleScore,
		ThresholdScore:   test.ThresholdScore,
		IsPassed:         result.IsPassed,
		CorrectCount:     outcome.CorrectCount,
		StartTime:        result.StartTime,
		EndTime:          result.EndTime,
	}
	for _, w := range outcome.Wrong {
		resp.WrongAnswers = append(resp.WrongAnswers, dto.WrongAnswerDTO{QuestionID: w.QuestionID, Expected: w.Expected, Got: w.Got})
	}
	for _, ev := range crossed {
		resp.Crossed = append(resp.Crossed, dto.ProgressEventDTO{Type: string(ev.Type), UnitID: ev.UnitID, UnitName: ev.UnitName})
	}
	return resp, nil
}

func (s *evaluationService) GetAttemptHistory(companyID, traineeID, testID uint) ([]dto.TestResultDTO, error) {
	test, err := s.loadTest(companyID, testID)
	if err != nil {
		return nil, err
	}
	results, err := s.resultRepo.FindAllByTraineeAndTest(companyID, traineeID, testID)
	if err != nil {
		return nil, fmt.Errorf("loading attempts for test %d: %w", testID, err)
	}
	dtos := make([]dto.TestResultDTO, 0, len(results))
	for _, r := range results {
		dtos = append(dtos, dto.TestResultDTO{
			ID:               r.ID,
			TestID:           r.TestID,
			TestTitle:        test.Title,
			Score:            r.Score,
			MaxPossibleScore: r.MaxPossibleScore,
			ThresholdScore:   test.ThresholdScore,
			IsPassed:         r.IsPassed,
			StartTime:        r.StartTime,
			EndTime:          r.EndTime,
		})
	}
	return dtos, nil
}

func (s *evaluationService) loadTest(companyID, testID uint) (*model.Test, error) {
	test, err := s.testRepo.FindByIDWithQuestions(companyID, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", testID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("loading test %d: %w", testID, err)
	}
	return test, nil
}

func (s *evaluationService) authorize(companyID, traineeID uint, test *model.Test) error {
	decision, err := s.gate.CanTakeTest(companyID, traineeID, test)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return decision.Reason
	}
	return nil
}
