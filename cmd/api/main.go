package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/psychedhire/psychedhire-api/api/swagger"
	"github.com/psychedhire/psychedhire-api/internal/handler"
	"github.com/psychedhire/psychedhire-api/internal/middleware"
	"github.com/psychedhire/psychedhire-api/internal/models"
	"github.com/psychedhire/psychedhire-api/internal/repository"
	"github.com/psychedhire/psychedhire-api/internal/service"
	"github.com/psychedhire/psychedhire-api/pkg/cache"
	"github.com/psychedhire/psychedhire-api/pkg/config"
	"github.com/psychedhire/psychedhire-api/pkg/database"
	"github.com/psychedhire/psychedhire-api/pkg/jobs"
	"github.com/psychedhire/psychedhire-api/pkg/logger"
	corsmiddleware "github.com/psychedhire/psychedhire-api/pkg/middleware/cors"
	reqidmiddleware "github.com/psychedhire/psychedhire-api/pkg/middleware/requestid"
	"github.com/psychedhire/psychedhire-api/pkg/storage"
)

// @title PsychedHire API
// @version 1.0.0
// @description Marketplace connecting school districts with school psychologists
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	districtRepo := repository.NewDistrictRepository(db)
	psychologistRepo := repository.NewPsychologistRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	jobRepo := repository.NewJobRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Cross-cutting services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, redisClient != nil)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metricsSvc, logr, cfg.Analytics.CacheTTL, cfg.Analytics.Enabled)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	approvalSvc := service.NewApprovalService(approvalRepo, userRepo, analyticsSvc, metricsSvc, logr)

	authSvc := service.NewAuthService(userRepo, analyticsSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	// Domain services.
	districtSvc := service.NewDistrictService(districtRepo, validate, logr)
	psychologistSvc := service.NewPsychologistService(psychologistRepo, validate, logr)
	schoolSvc := service.NewSchoolService(schoolRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, schoolRepo, validate, logr)
	jobSvc := service.NewJobService(jobRepo, analyticsSvc, validate, logr)
	applicationSvc := service.NewApplicationService(applicationRepo, jobRepo, psychologistRepo, districtRepo, notificationSvc, analyticsSvc, validate, logr)
	evaluationSvc := service.NewEvaluationService(evaluationRepo, schoolRepo, psychologistRepo, districtRepo, notificationSvc, analyticsSvc, validate, logr)

	// Document storage.
	documentDir := cfg.Documents.StorageDir
	if documentDir == "" {
		documentDir = "./data/documents"
	}
	documentStore, err := storage.NewLocalStorage(documentDir)
	if err != nil {
		sugar.Fatalw("failed to init document storage", "error", err)
	}
	documentSigner := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)
	documentSvc := service.NewDocumentService(documentRepo, documentStore, documentSigner, logr, service.DocumentServiceConfig{
		MaxFileSizeBytes: cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Documents.AllowedMIMEs,
	})

	// Async report pipeline. The queue handler delegates to the service so
	// both can reference each other.
	reportDir := cfg.Reports.StorageDir
	if reportDir == "" {
		reportDir = "./data/reports"
	}
	reportStore, err := storage.NewLocalStorage(reportDir)
	if err != nil {
		sugar.Fatalw("failed to init report storage", "error", err)
	}
	reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	var reportSvc *service.ReportService
	reportQueue := jobs.NewQueue("reports", func(ctx context.Context, job jobs.Job) error {
		return reportSvc.Handle(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc = service.NewReportService(reportRepo, studentRepo, evaluationRepo, analyticsRepo, reportQueue, reportStore, reportSigner, logr, service.ReportServiceConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	reportQueue.Start(ctx)
	defer reportQueue.Stop()
	reportSvc.StartCleanup(ctx)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	districtHandler := handler.NewDistrictHandler(districtSvc)
	psychologistHandler := handler.NewPsychologistHandler(psychologistSvc)
	schoolHandler := handler.NewSchoolHandler(schoolSvc, districtSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, districtSvc)
	jobHandler := handler.NewJobHandler(jobSvc, districtSvc, psychologistSvc)
	applicationHandler := handler.NewApplicationHandler(applicationSvc, districtSvc, psychologistSvc)
	evaluationHandler := handler.NewEvaluationHandler(evaluationSvc, districtSvc, psychologistSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc)
	reportHandler := handler.NewReportHandler(reportSvc, districtSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authRequired := middleware.JWT(authSvc)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	districtOnly := middleware.RequireRoles(models.RoleDistrict)
	psychologistOnly := middleware.RequireRoles(models.RolePsychologist)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/logout", authRequired, authHandler.Logout)
		auth.GET("/me", authRequired, authHandler.Me)
		auth.PUT("/me", authRequired, authHandler.UpdateProfile)
		auth.POST("/change-password", authRequired, authHandler.ChangePassword)
	}

	districts := api.Group("/districts", authRequired)
	{
		districts.GET("", adminOnly, districtHandler.List)
		districts.GET("/me", districtOnly, districtHandler.GetMine)
		districts.PUT("/me", districtOnly, districtHandler.UpdateMine)
		districts.GET("/:id", districtHandler.Get)
	}

	psychologists := api.Group("/psychologists", authRequired)
	{
		psychologists.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleDistrict), psychologistHandler.List)
		psychologists.GET("/me", psychologistOnly, psychologistHandler.GetMine)
		psychologists.PUT("/me/signup/:step", psychologistOnly, psychologistHandler.SubmitStep)
		psychologists.GET("/:id", psychologistHandler.Get)
	}

	schools := api.Group("/schools", authRequired, districtOnly)
	{
		schools.GET("", schoolHandler.List)
		schools.GET("/:id", schoolHandler.Get)
		schools.POST("", middleware.Audit(userRepo, "CREATE", "schools"), schoolHandler.Create)
		schools.PUT("/:id", middleware.Audit(userRepo, "UPDATE", "schools"), schoolHandler.Update)
		schools.DELETE("/:id", middleware.Audit(userRepo, "DELETE", "schools"), schoolHandler.Delete)
	}

	students := api.Group("/students", authRequired, districtOnly)
	{
		students.GET("", studentHandler.List)
		students.GET("/:id", studentHandler.Get)
		students.POST("", middleware.Audit(userRepo, "CREATE", "students"), studentHandler.Create)
		students.PUT("/:id", middleware.Audit(userRepo, "UPDATE", "students"), studentHandler.Update)
		students.DELETE("/:id", middleware.Audit(userRepo, "DELETE", "students"), studentHandler.Delete)
	}

	jobRoutes := api.Group("/jobs", authRequired)
	{
		jobRoutes.GET("", jobHandler.List)
		jobRoutes.GET("/:id", jobHandler.Get)
		jobRoutes.POST("", districtOnly, jobHandler.Create)
		jobRoutes.PUT("/:id", districtOnly, jobHandler.Update)
		jobRoutes.PATCH("/:id/active", districtOnly, jobHandler.SetActive)
		jobRoutes.DELETE("/:id", districtOnly, jobHandler.Delete)
	}

	applications := api.Group("/applications", authRequired)
	{
		applications.GET("", applicationHandler.List)
		applications.GET("/:id", applicationHandler.Get)
		applications.POST("", psychologistOnly, applicationHandler.Apply)
		applications.POST("/:id/review", districtOnly, applicationHandler.Review)
	}

	evaluations := api.Group("/evaluations", authRequired)
	{
		evaluations.GET("", evaluationHandler.List)
		evaluations.GET("/:id", evaluationHandler.Get)
		evaluations.POST("", districtOnly, evaluationHandler.Create)
		evaluations.PUT("/:id", districtOnly, evaluationHandler.Update)
		evaluations.DELETE("/:id", districtOnly, evaluationHandler.Delete)
		evaluations.POST("/:id/offer", districtOnly, evaluationHandler.Offer)
		evaluations.POST("/:id/respond", psychologistOnly, evaluationHandler.Respond)
		evaluations.PATCH("/:id/status", psychologistOnly, evaluationHandler.Advance)
	}

	approvals := api.Group("/approvals", authRequired, adminOnly)
	{
		approvals.GET("/:entity", approvalHandler.ListPending)
		approvals.POST("/:entity/:id/approve", approvalHandler.Approve)
		approvals.POST("/:entity/:id/reject", approvalHandler.Reject)
	}

	notifications := api.Group("/notifications", authRequired)
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
	}

	analytics := api.Group("/analytics", authRequired, adminOnly)
	{
		analytics.GET("/summary", analyticsHandler.Summary)
		analytics.GET("/events", analyticsHandler.Events)
		analytics.GET("/system", analyticsHandler.SystemMetrics)
	}

	documents := api.Group("/documents")
	{
		// Token-authenticated download stays outside the JWT guard.
		documents.GET("/download/:token", documentHandler.Download)
		documents.GET("", authRequired, documentHandler.List)
		documents.POST("", authRequired, documentHandler.Upload)
		documents.POST("/:id/sign", authRequired, documentHandler.SignDownload)
		documents.DELETE("/:id", authRequired, documentHandler.Delete)
	}

	reports := api.Group("/reports")
	{
		reports.GET("/download/:token", reportHandler.Download)
		reports.GET("", authRequired, reportHandler.List)
		reports.GET("/:id", authRequired, reportHandler.Get)
		reports.POST("", authRequired, middleware.RequireRoles(models.RoleAdmin, models.RoleDistrict), reportHandler.Create)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
	sugar.Info("server stopped")
}
