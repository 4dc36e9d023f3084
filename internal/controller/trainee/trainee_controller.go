package trainee

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkravtsov/traineeflow/internal/controller"
	"github.com/mkravtsov/traineeflow/internal/dto"
	"github.com/mkravtsov/traineeflow/internal/service"
	"github.com/rs/zerolog/log"
)

// TraineeController exposes the trainee-facing flow: progression status,
// starting a test and submitting an attempt.
type TraineeController struct {
	evaluationService  service.EvaluationService
	progressionService service.ProgressionService
	attestationService service.AttestationService
}

func NewTraineeController(evaluationService service.EvaluationService, progressionService service.ProgressionService, attestationService service.AttestationService) *TraineeController {
	return &TraineeController{
		evaluationService:  evaluationService,
		progressionService: progressionService,
		attestationService: attestationService,
	}
}

// GetPathStatus godoc
// @Summary (Trainee) Get the full progression tree
// @Description Stages and sessions with opened/completed flags, per-test pass state and attempts used, plus derived attestation eligibility.
// @Tags Trainee - Progression
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param trainee_id query int true "Trainee ID (temporary, until auth wiring)"
// @Success 200 {object} dto.PathStatusDTO
// @Failure 404 {object} dto.ErrorResponse "No active learning path"
// @Router /trainee/path [get]
func (c *TraineeController) GetPathStatus(ctx *gin.Context) {
	traineeID, ok := controller.UintQuery(ctx, "trainee_id")
	if !ok {
		return
	}
	status, err := c.progressionService.GetPathStatus(controller.CompanyID(ctx), traineeID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, status)
}

// StartTest godoc
// @Summary (Trainee) Start a test attempt
// @Description Runs the access gate and returns the questions as presented (shuffled when the test requires it). The option_order values must be echoed back on submit.
// @Tags Trainee - Tests
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param test_id path int true "Test ID"
// @Param trainee_id query int true "Trainee ID (temporary, until auth wiring)"
// @Success 200 {object} dto.AttemptPresentationDTO
// @Failure 403 {object} dto.ErrorResponse "Access denied or attempts exhausted"
// @Failure 404 {object} dto.ErrorResponse
// @Router /trainee/tests/{test_id}/start [post]
func (c *TraineeController) StartTest(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	traineeID, ok := controller.UintQuery(ctx, "trainee_id")
	if !ok {
		return
	}
	presentation, err := c.evaluationService.StartTest(controller.CompanyID(ctx), traineeID, testID)
	if err != nil {
		log.Warn().Err(err).Uint("traineeID", traineeID).Uint("testID", testID).Msg("StartTest: denied or failed")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, presentation)
}

// SubmitTest godoc
// @Summary (Trainee) Submit a test attempt
// @Description Scores the submission, persists the result and runs the completion cascade for passing trajectory tests.
// @Tags Trainee - Tests
// @Accept json
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param test_id path int true "Test ID"
// @Param trainee_id query int true "Trainee ID (temporary, until auth wiring)"
// @Param submission body dto.AttemptSubmitDTO true "Answers plus the echoed presentation"
// @Success 200 {object} dto.TestResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid submission"
// @Failure 403 {object} dto.ErrorResponse "Access denied or attempts exhausted"
// @Failure 404 {object} dto.ErrorResponse
// @Router /trainee/tests/{test_id}/submit [post]
func (c *TraineeController) SubmitTest(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	traineeID, ok := controller.UintQuery(ctx, "trainee_id")
	if !ok {
		return
	}
	var req dto.AttemptSubmitDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("SubmitTest: failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	result, err := c.evaluationService.SubmitTest(controller.CompanyID(ctx), traineeID, testID, req)
	if err != nil {
		log.Warn().Err(err).Uint("traineeID", traineeID).Uint("testID", testID).Msg("SubmitTest: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetAttemptHistory godoc
// @Summary (Trainee) List own attempts for a test
// @Tags Trainee - Tests
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param test_id path int true "Test ID"
// @Param trainee_id query int true "Trainee ID (temporary, until auth wiring)"
// @Success 200 {array} dto.TestResultDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /trainee/tests/{test_id}/attempts [get]
func (c *TraineeController) GetAttemptHistory(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	traineeID, ok := controller.UintQuery(ctx, "trainee_id")
	if !ok {
		return
	}
	history, err := c.evaluationService.GetAttemptHistory(controller.CompanyID(ctx), traineeID, testID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, history)
}

// GetAttestationResult godoc
// @Summary (Trainee) Get own attestation result
// @Tags Trainee - Attestation
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param attestation_id path int true "Attestation ID"
// @Param trainee_id query int true "Trainee ID (temporary, until auth wiring)"
// @Success 200 {object} dto.AttestationResultDTO
// @Failure 404 {object} dto.ErrorResponse "Not graded yet"
// @Router /trainee/attestations/{attestation_id}/result [get]
func (c *TraineeController) GetAttestationResult(ctx *gin.Context) {
	attestationID, ok := controller.UintParam(ctx, "attestation_id")
	if !ok {
		return
	}
	traineeID, ok := controller.UintQuery(ctx, "trainee_id")
	if !ok {
		return
	}
	result, err := c.attestationService.GetResult(controller.CompanyID(ctx), attestationID, traineeID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}
