package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkravtsov/traineeflow/internal/controller"
	"github.com/mkravtsov/traineeflow/internal/dto"
	"github.com/mkravtsov/traineeflow/internal/service"
	"github.com/rs/zerolog/log"
)

// CatalogController is the recruiter-facing authoring surface.
type CatalogController struct {
	catalogService service.CatalogService
}

func NewCatalogController(catalogService service.CatalogService) *CatalogController {
	return &CatalogController{catalogService: catalogService}
}

// CreateLearningPath godoc
// @Summary (Recruiter) Create a learning path
// @Description Creates a learning path with nested stages, sessions and test links. Order numbers must be unique among siblings.
// @Tags Admin - Catalog
// @Accept json
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param path_data body dto.LearningPathCreateDTO true "Learning path definition"
// @Success 201 {object} dto.LearningPathResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Router /admin/learning-paths [post]
func (c *CatalogController) CreateLearningPath(ctx *gin.Context) {
	var req dto.LearningPathCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("CreateLearningPath: failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	resp, err := c.catalogService.CreateLearningPath(controller.CompanyID(ctx), req)
	if err != nil {
		log.Error().Err(err).Msg("CreateLearningPath: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// GetLearningPath godoc
// @Summary (Recruiter) Get a learning path
// @Tags Admin - Catalog
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param path_id path int true "Learning path ID"
// @Success 200 {object} dto.LearningPathResponseDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/learning-paths/{path_id} [get]
func (c *CatalogController) GetLearningPath(ctx *gin.Context) {
	pathID, ok := controller.UintParam(ctx, "path_id")
	if !ok {
		return
	}
	resp, err := c.catalogService.GetLearningPath(controller.CompanyID(ctx), pathID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// DeactivateLearningPath godoc
// @Summary (Recruiter) Deactivate a learning path
// @Description Soft-deactivation only; referenced paths are never hard-deleted.
// @Tags Admin - Catalog
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param path_id path int true "Learning path ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/learning-paths/{path_id} [delete]
func (c *CatalogController) DeactivateLearningPath(ctx *gin.Context) {
	pathID, ok := controller.UintParam(ctx, "path_id")
	if !ok {
		return
	}
	if err := c.catalogService.DeactivateLearningPath(controller.CompanyID(ctx), pathID); err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// CreateTest godoc
// @Summary (Recruiter) Create a test with questions
// @Description Question shapes are validated per type; the maximum score is derived from question points.
// @Tags Admin - Catalog
// @Accept json
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param test_data body dto.TestCreateDTO true "Test definition including questions"
// @Success 201 {object} dto.TestResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Router /admin/tests [post]
func (c *CatalogController) CreateTest(ctx *gin.Context) {
	var req dto.TestCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("CreateTest: failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	resp, err := c.catalogService.CreateTest(controller.CompanyID(ctx), req)
	if err != nil {
		log.Error().Err(err).Msg("CreateTest: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// GetTest godoc
// @Summary (Recruiter) Get a test with questions and correct answers
// @Tags Admin - Catalog
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/tests/{test_id} [get]
func (c *CatalogController) GetTest(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	resp, err := c.catalogService.GetTest(controller.CompanyID(ctx), testID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// DeactivateTest godoc
// @Summary (Recruiter) Deactivate a test
// @Tags Admin - Catalog
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param test_id path int true "Test ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/tests/{test_id} [delete]
func (c *CatalogController) DeactivateTest(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	if err := c.catalogService.DeactivateTest(controller.CompanyID(ctx), testID); err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// CreateAttestation godoc
// @Summary (Recruiter) Create an attestation
// @Tags Admin - Catalog
// @Accept json
// @Produce json
// @Param X-Company-ID header int true "Company ID"
// @Param attestation_data body dto.AttestationCreateDTO true "Attestation definition"
// @Success 201 {object} model.Attestation
// @Failure 400 {object} dto.ErrorResponse
// @Router /admin/attestations [post]
func (c *CatalogController) CreateAttestation(ctx *gin.Context) {
	var req dto.AttestationCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	att, err := c.catalogService.CreateAttestation(controller.CompanyID(ctx), req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, att)
}
