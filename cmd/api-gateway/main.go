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

	_ "github.com/PiyushChaturvedii/login-leaf-saver-sub000/api/swagger"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/handler"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/middleware"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/repository"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/service"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/cache"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/config"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/database"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/logger"
	corsmiddleware "github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/middleware/requestid"
)

// @title Academy Attendance API
// @version 1.0.0
// @description Session-coded attendance tracking for the academy
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, stats caching disabled", "error", err)
		redisClient = nil
	}

	attendanceRepo := repository.NewAttendanceRepository(db)
	codeRepo := repository.NewCodeRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metricsService := service.NewMetricsService()

	codeService := service.NewCodeService(codeRepo, metricsService, logr, service.CodeServiceConfig{
		TTL:        cfg.Attendance.CodeTTL,
		CodeLength: cfg.Attendance.CodeLength,
		Tick:       cfg.Attendance.CountdownTick,
	})
	defer codeService.Close()

	ledgerService := service.NewLedgerService(attendanceRepo, codeService, cacheRepo, metricsService, logr)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	if err := ledgerService.Load(loadCtx); err != nil {
		cancelLoad()
		logr.Sugar().Fatalw("attendance ledger load failed", "error", err)
	}
	cancelLoad()

	statsService := service.NewStatsService()
	dashboardService := service.NewDashboardService(ledgerService, userRepo, statsService, cacheRepo, cfg.Stats.CacheTTL, logr)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	var exportService *service.ExportService
	if cfg.Exports.Enabled {
		exportService = service.NewExportService(dashboardService, logr, service.ExportConfig{
			StorageDir:        cfg.Exports.StorageDir,
			WorkerConcurrency: cfg.Exports.WorkerConcurrency,
			WorkerRetries:     cfg.Exports.WorkerRetries,
		})
		exportService.Start(context.Background())
		defer exportService.Stop()
	}

	authHandler := handler.NewAuthHandler(authService)
	attendanceHandler := newAttendanceHandler(codeService, ledgerService, dashboardService, exportService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg.APIPrefix, authService, authHandler, attendanceHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func newAttendanceHandler(codes *service.CodeService, ledger *service.LedgerService, dashboard *service.DashboardService, exporter *service.ExportService) *handler.AttendanceHandler {
	if exporter == nil {
		return handler.NewAttendanceHandler(codes, ledger, dashboard, nil)
	}
	return handler.NewAttendanceHandler(codes, ledger, dashboard, exporter)
}

func registerRoutes(r *gin.Engine, prefix string, authService *service.AuthService, authHandler *handler.AuthHandler, attendanceHandler *handler.AttendanceHandler) {
	root := r.Group(prefix)

	auth := root.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)

	attendance := root.Group("/attendance", middleware.JWT(authService))

	staff := attendance.Group("", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin))
	staff.POST("/codes", attendanceHandler.IssueCode)
	staff.POST("/records", attendanceHandler.ManualMark)
	staff.PATCH("/records/:id", attendanceHandler.EditRecord)
	staff.DELETE("/records/:id", attendanceHandler.DeleteRecord)
	staff.GET("/overview", attendanceHandler.Overview)
	staff.GET("/export", attendanceHandler.Export)

	attendance.GET("/codes/current", attendanceHandler.CurrentCode)
	attendance.POST("/submissions", middleware.RequireRoles(models.RoleStudent), attendanceHandler.Submit)
	attendance.GET("/calendar/days", attendanceHandler.CalendarDays)
	attendance.GET("/calendar/:date/sessions", attendanceHandler.SessionsOnDate)

	students := attendance.Group("/students/:email", middleware.RBAC(string(models.RoleInstructor), string(models.RoleAdmin), middleware.AllowSelf))
	students.GET("/records", attendanceHandler.StudentRecords)
	students.GET("/stats", attendanceHandler.StudentStats)
}
