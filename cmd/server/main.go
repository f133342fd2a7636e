package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/careloop/priorauth/internal/config"
	v1 "github.com/careloop/priorauth/internal/handler/v1"
	"github.com/careloop/priorauth/internal/repository/postgres"
	"github.com/careloop/priorauth/internal/service"
	"github.com/careloop/priorauth/pkg/auth"
	"github.com/careloop/priorauth/pkg/database"
	"github.com/careloop/priorauth/pkg/logger"
	"github.com/careloop/priorauth/pkg/metrics"
	"github.com/careloop/priorauth/pkg/tracer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting priorauth-api",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	collector := metrics.NewCollector("priorauth")
	jwtManager := auth.NewJWTManager(cfg.JWT)

	caseRepo := postgres.NewCaseRepository(db)
	reviewRepo := postgres.NewReviewRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	userRepo := postgres.NewUserRepository(db)

	auditSvc := service.NewAuditService(auditRepo, collector, log)
	authSvc := service.NewAuthService(userRepo, jwtManager, auditSvc, log)
	caseSvc := service.NewCaseService(caseRepo, reviewRepo, auditSvc, collector, log)
	reviewSvc := service.NewReviewService(reviewRepo, caseRepo, auditSvc, log)

	router := v1.NewRouter(v1.RouterDeps{
		Config:        cfg,
		Log:           log,
		Metrics:       collector,
		JWTManager:    jwtManager,
		AuthHandler:   v1.NewAuthHandler(authSvc),
		CaseHandler:   v1.NewCaseHandler(caseSvc),
		ReviewHandler: v1.NewReviewHandler(reviewSvc),
		AuditHandler:  v1.NewAuditHandler(auditSvc),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}

	// Flush remaining audit entries before the DB connection goes away.
	auditSvc.Shutdown()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", zap.Error(err))
	}

	log.Info("shutdown complete")
	return nil
}
