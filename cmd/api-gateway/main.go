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

	_ "github.com/Sumiong13/kbm-corner-api/api/swagger"
	"github.com/Sumiong13/kbm-corner-api/internal/handler"
	"github.com/Sumiong13/kbm-corner-api/internal/middleware"
	"github.com/Sumiong13/kbm-corner-api/internal/models"
	"github.com/Sumiong13/kbm-corner-api/internal/repository"
	"github.com/Sumiong13/kbm-corner-api/internal/service"
	"github.com/Sumiong13/kbm-corner-api/pkg/cache"
	"github.com/Sumiong13/kbm-corner-api/pkg/config"
	"github.com/Sumiong13/kbm-corner-api/pkg/database"
	"github.com/Sumiong13/kbm-corner-api/pkg/export"
	"github.com/Sumiong13/kbm-corner-api/pkg/logger"
	corsmiddleware "github.com/Sumiong13/kbm-corner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/Sumiong13/kbm-corner-api/pkg/middleware/requestid"
	"github.com/Sumiong13/kbm-corner-api/pkg/storage"
)

// @title KBM Corner API
// @version 1.0.0
// @description Membership, attendance and progression backend for the KBM Corner student club
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()
	probe := database.NewProbe(db, 10*time.Second)

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	profileRepo := repository.NewProfileRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	progressionRepo := repository.NewProgressionRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	validate := validator.New()
	service.RegisterValidations(validate)

	authz := service.NewAuthorizer(profileRepo)
	authSvc := service.NewAuthService(profileRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "kbm-corner-api",
	})
	memberSvc := service.NewMemberService(profileRepo, directoryRepo, cacheRepo, probe, logr, cfg.Fallback.Enabled, cfg.Fallback.SnapshotTTL)
	membershipSvc := service.NewMembershipService(profileRepo, paymentRepo, probe, validate, logr, cfg.Membership)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, directoryRepo, profileRepo, probe, logr)
	gradingSvc := service.NewGradingService(gradeRepo, authz, cacheRepo, probe, validate, logr, cfg.Grading, cfg.Fallback)
	progressionSvc := service.NewProgressionService(progressionRepo, profileRepo, authz, probe, validate, logr)
	directorySvc := service.NewDirectoryService(directoryRepo, probe, validate, logr)
	metricsSvc := service.NewMetricsService()
	reportSvc := service.NewReportService(
		profileRepo, paymentRepo, attendanceRepo, gradeRepo, progressionRepo, progressionRepo, profileRepo,
		export.NewCSVExporter(), export.NewCertificatePDF("KBM Corner"),
		store, signer, probe, logr,
		cfg.APIPrefix+"/reports/download")

	authHandler := handler.NewAuthHandler(authSvc)
	memberHandler := handler.NewMemberHandler(memberSvc)
	paymentHandler := handler.NewPaymentHandler(membershipSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	gradeHandler := handler.NewGradeHandler(gradingSvc)
	progressionHandler := handler.NewProgressionHandler(progressionSvc, reportSvc)
	directoryHandler := handler.NewDirectoryHandler(directorySvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	statusHandler := handler.NewStatusHandler(metricsSvc, probe)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", statusHandler.Health)
	r.GET("/ready", statusHandler.Ready)
	r.GET("/metrics", statusHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Signed tokens carry their own authorization.
	api.GET("/reports/download/:token", reportHandler.Download)

	protected := api.Group("", middleware.JWT(authSvc))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.POST("/auth/change-password", authHandler.ChangePassword)
		protected.GET("/auth/me", authHandler.Me)

		staff := middleware.RequireRoles(models.RoleAdmin, models.RoleCommittee, models.RoleTutor)
		adminOnly := middleware.RequireRoles(models.RoleAdmin)
		deskStaff := middleware.RequireRoles(models.RoleAdmin, models.RoleCommittee)
		tutors := middleware.RequireRoles(models.RoleAdmin, models.RoleTutor)

		protected.GET("/members", staff, memberHandler.List)
		protected.GET("/members/:id", middleware.RBAC("ADMIN", "COMMITTEE", "TUTOR", "SELF"), memberHandler.Get)
		protected.POST("/members/:id/verify", adminOnly, memberHandler.Verify)
		protected.POST("/members/:id/class", adminOnly, memberHandler.AssignClass)

		protected.POST("/payments", deskStaff, paymentHandler.Record)
		protected.GET("/payments", deskStaff, paymentHandler.List)
		protected.POST("/payments/self", paymentHandler.Pay)
		protected.GET("/payments/me", paymentHandler.MyPayments)
		protected.POST("/memberships/reset", adminOnly, paymentHandler.Reset)

		protected.POST("/attendance/check-in", attendanceHandler.CheckIn)
		protected.GET("/attendance", staff, attendanceHandler.List)
		protected.GET("/attendance/me", attendanceHandler.MyAttendance)

		protected.POST("/grades", tutors, gradeHandler.Create)
		protected.GET("/grades/students/:id", middleware.RBAC("ADMIN", "TUTOR", "SELF"), gradeHandler.StudentGrades)
		protected.GET("/grades/me", gradeHandler.MyGrades)

		protected.POST("/progression/verify", tutors, progressionHandler.Verify)
		protected.GET("/progression/students/:id", middleware.RBAC("ADMIN", "TUTOR", "SELF"), progressionHandler.History)
		protected.GET("/progression/me", progressionHandler.MyHistory)
		protected.GET("/progression/certificates/:id", progressionHandler.Certificate)

		protected.GET("/events", directoryHandler.ListEvents)
		protected.GET("/classes", directoryHandler.ListClasses)
		protected.POST("/events", deskStaff, directoryHandler.CreateEvent)
		protected.POST("/events/:id/active", deskStaff, directoryHandler.SetEventActive)
		protected.POST("/classes", deskStaff, directoryHandler.CreateClass)

		reports := protected.Group("/reports", deskStaff)
		reports.POST("/members", middleware.Audit(profileRepo, "REPORT_EXPORT", "members"), reportHandler.ExportMembers)
		reports.POST("/payments", middleware.Audit(profileRepo, "REPORT_EXPORT", "payments"), reportHandler.ExportPayments)
		reports.POST("/attendance", middleware.Audit(profileRepo, "REPORT_EXPORT", "attendance"), reportHandler.ExportAttendance)
		reports.POST("/grades", middleware.Audit(profileRepo, "REPORT_EXPORT", "grades"), reportHandler.ExportGrades)
		reports.POST("/progressions", middleware.Audit(profileRepo, "REPORT_EXPORT", "progressions"), reportHandler.ExportProgressions)

		protected.GET("/status/metrics", adminOnly, statusHandler.Metrics)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reportSvc.Cleanup(cfg.Reports.SignedURLTTL)
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
