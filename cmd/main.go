package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mkravtsov/traineeflow/config"
	"github.com/mkravtsov/traineeflow/database"
	"github.com/mkravtsov/traineeflow/internal/controller"
	adminctrl "github.com/mkravtsov/traineeflow/internal/controller/admin"
	mentorctrl "github.com/mkravtsov/traineeflow/internal/controller/mentor"
	traineectrl "github.com/mkravtsov/traineeflow/internal/controller/trainee"
	"github.com/mkravtsov/traineeflow/internal/event"
	"github.com/mkravtsov/traineeflow/internal/logger"
	"github.com/mkravtsov/traineeflow/internal/model"
	"github.com/mkravtsov/traineeflow/internal/repository"
	"github.com/mkravtsov/traineeflow/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Trainee Onboarding Progression API
// @version 1.0
// @description Learning path progression and test evaluation engine for corporate intern onboarding.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
		),

		fx.Provide(
			repository.NewCatalogRepository,
			repository.NewTestRepository,
			repository.NewProgressRepository,
			repository.NewResultRepository,
			repository.NewAccessRepository,
			repository.NewAttestationRepository,
		),

		fx.Provide(
			event.NewLogNotifier,
			service.NewCatalogService,
			service.NewAccessGateService,
			service.NewCascadeService,
			service.NewEvaluationService,
			service.NewProgressionService,
			service.NewAttestationService,
		),

		fx.Provide(
			adminctrl.NewCatalogController,
			mentorctrl.NewMentorController,
			traineectrl.NewTraineeController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.DebugMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Company-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger UI at /swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages the HTTP
// server lifecycle. Every /api/v1 route requires the X-Company-ID header.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	catalogCtrl *adminctrl.CatalogController,
	mentorCtrl *mentorctrl.MentorController,
	traineeCtrl *traineectrl.TraineeController,
) {
	api := router.Group("/api/v1", controller.TenantMiddleware())

	admin := api.Group("/admin")
	{
		admin.POST("/learning-paths", catalogCtrl.CreateLearningPath)
		admin.GET("/learning-paths/:path_id", catalogCtrl.GetLearningPath)
		admin.DELETE("/learning-paths/:path_id", catalogCtrl.DeactivateLearningPath)
		admin.POST("/tests", catalogCtrl.CreateTest)
		admin.GET("/tests/:test_id", catalogCtrl.GetTest)
		admin.DELETE("/tests/:test_id", catalogCtrl.DeactivateTest)
		admin.POST("/attestations", catalogCtrl.CreateAttestation)
	}

	mentor := api.Group("/mentor")
	{
		mentor.POST("/trainees/:trainee_id/assign-path", mentorCtrl.AssignPath)
		mentor.POST("/trainees/:trainee_id/stages/:stage_id/open", mentorCtrl.OpenStage)
		mentor.POST("/trainees/:trainee_id/stages/:stage_id/reset", mentorCtrl.ResetStage)
		mentor.POST("/test-access", mentorCtrl.GrantTestAccess)
		mentor.DELETE("/test-access/:grant_id", mentorCtrl.RevokeTestAccess)
		mentor.POST("/attestations/:attestation_id/grade", mentorCtrl.GradeAttestation)
	}

	trainee := api.Group("/trainee")
	{
		trainee.GET("/path", traineeCtrl.GetPathStatus)
		trainee.POST("/tests/:test_id/start", traineeCtrl.StartTest)
		trainee.POST("/tests/:test_id/submit", traineeCtrl.SubmitTest)
		trainee.GET("/tests/:test_id/attempts", traineeCtrl.GetAttemptHistory)
		trainee.GET("/attestations/:attestation_id/result", traineeCtrl.GetAttestationResult)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Onboarding API server starting on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.LearningPath{},
		&model.Stage{},
		&model.Session{},
		&model.SessionTest{},
		&model.Test{},
		&model.Question{},
		&model.Attestation{},
		&model.AttestationResult{},
		&model.TraineeLearningPath{},
		&model.StageProgress{},
		&model.SessionProgress{},
		&model.TestResult{},
		&model.TestAccess{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
