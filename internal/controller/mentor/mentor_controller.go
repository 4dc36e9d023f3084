package mentor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkravtsov/traineeflow/internal/controller"
	"github.com/mkravtsov/traineeflow/internal/dto"
	"github.com/mkravtsov/traineeflow/internal/service"
	"github.com/rs/zerolog/log"
)

// MentorController exposes the mentor and manager actions: path assignment,
// stage opening and reset, ad-hoc grants and attestation grading.
type MentorController struct {
	progressionService service.ProgressionService
	attestationService service.AttestationService
}

func NewMentorController(progressionService service.ProgressionService, attestationService service.AttestationService) *MentorController {
	return &MentorController{
		progressionService: progressionService,
		attestationService: attestationService,
	}
}

// AssignPath godoc
// @Summary (Mentor) Assign a learning path to a trainee
// @Description Creates the progress mirror with every unit closed. Set replace=true to discard an existing assignment, its results and grants.
// @Tags Mentor - Progression
// @Accept json
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param trainee_id path int true "Trainee ID"
// @Param mentor_id query int true "Mentor ID (temporary, until auth wiring)"
// @Param assign_data body dto.AssignPathRequest true "Path assignment"
// @Success 201 {object} dto.PathStatusDTO
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Trainee already has a path and replace is not set"
// @Router /mentor/trainees/{trainee_id}/assign-path [post]
func (c *MentorController) AssignPath(ctx *gin.Context) {
	traineeID, ok := controller.UintParam(ctx, "trainee_id")
	if !ok {
		return
	}
	mentorID, ok := controller.UintQuery(ctx, "mentor_id")
	if !ok {
		return
	}
	var req dto.AssignPathRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	status, err := c.progressionService.AssignPath(controller.CompanyID(ctx), mentorID, traineeID, req.LearningPathID, req.Replace)
	if err != nil {
		log.Warn().Err(err).Uint("traineeID", traineeID).Msg("AssignPath: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, status)
}

// OpenStage godoc
// @Summary (Mentor) Open a stage for a trainee
// @Description closed→opened transition. Requires the preceding stage to be completed; the first stage opens unconditionally.
// @Tags Mentor - Progression
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param trainee_id path int true "Trainee ID"
// @Param stage_id path int true "Stage ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Predecessor stage not completed"
// @Router /mentor/trainees/{trainee_id}/stages/{stage_id}/open [post]
func (c *MentorController) OpenStage(ctx *gin.Context) {
	traineeID, ok := controller.UintParam(ctx, "trainee_id")
	if !ok {
		return
	}
	stageID, ok := controller.UintParam(ctx, "stage_id")
	if !ok {
		return
	}
	if err := c.progressionService.OpenStage(controller.CompanyID(ctx), traineeID, stageID); err != nil {
		log.Warn().Err(err).Uint("traineeID", traineeID).Uint("stageID", stageID).Msg("OpenStage: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ResetStage godoc
// @Summary (Mentor) Reset a stage for a trainee
// @Description Destructive rollback: zeroes progress flags and deletes the trainee's results and grants for the stage's tests.
// @Tags Mentor - Progression
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param trainee_id path int true "Trainee ID"
// @Param stage_id path int true "Stage ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /mentor/trainees/{trainee_id}/stages/{stage_id}/reset [post]
func (c *MentorController) ResetStage(ctx *gin.Context) {
	traineeID, ok := controller.UintParam(ctx, "trainee_id")
	if !ok {
		return
	}
	stageID, ok := controller.UintParam(ctx, "stage_id")
	if !ok {
		return
	}
	if err := c.progressionService.ResetStage(controller.CompanyID(ctx), traineeID, stageID); err != nil {
		log.Warn().Err(err).Uint("traineeID", traineeID).Uint("stageID", stageID).Msg("ResetStage: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// GrantTestAccess godoc
// @Summary (Mentor) Grant ad-hoc access to a test
// @Description The grant authorizes the test independently of trajectory stage state.
// @Tags Mentor - Access
// @Accept json
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param mentor_id query int true "Mentor ID (temporary, until auth wiring)"
// @Param grant_data body dto.GrantAccessRequest true "Grant"
// @Success 201 {object} dto.TestAccessResponseDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /mentor/test-access [post]
func (c *MentorController) GrantTestAccess(ctx *gin.Context) {
	mentorID, ok := controller.UintQuery(ctx, "mentor_id")
	if !ok {
		return
	}
	var req dto.GrantAccessRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	grant, err := c.progressionService.GrantTestAccess(controller.CompanyID(ctx), mentorID, req.TraineeID, req.TestID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, grant)
}

// RevokeTestAccess godoc
// @Summary (Mentor) Revoke an ad-hoc test access grant
// @Tags Mentor - Access
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param grant_id path int true "Grant ID"
// @Success 204
// @Router /mentor/test-access/{grant_id} [delete]
func (c *MentorController) RevokeTestAccess(ctx *gin.Context) {
	grantID, ok := controller.UintParam(ctx, "grant_id")
	if !ok {
		return
	}
	if err := c.progressionService.RevokeTestAccess(controller.CompanyID(ctx), grantID); err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// GradeAttestation godoc
// @Summary (Manager) Grade an attestation
// @Description Allowed only once every stage of the trainee's path is completed. A passing verdict promotes the trainee.
// @Tags Mentor - Attestation
// @Accept json
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param attestation_id path int true "Attestation ID"
// @Param manager_id query int true "Manager ID (temporary, until auth wiring)"
// @Param grade_data body dto.GradeAttestationRequest true "Verdict"
// @Success 201 {object} dto.AttestationResultDTO
// @Failure 409 {object} dto.ErrorResponse "Attestation not unlocked"
// @Router /mentor/attestations/{attestation_id}/grade [post]
func (c *MentorController) GradeAttestation(ctx *gin.Context) {
	attestationID, ok := controller.UintParam(ctx, "attestation_id")
	if !ok {
		return
	}
	managerID, ok := controller.UintQuery(ctx, "manager_id")
	if !ok {
		return
	}
	var req dto.GradeAttestationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	result, err := c.attestationService.Grade(controller.CompanyID(ctx), managerID, attestationID, req)
	if err != nil {
		log.Warn().Err(err).Uint("attestationID", attestationID).Msg("GradeAttestation: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, result)
}
