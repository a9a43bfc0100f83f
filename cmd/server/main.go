// Inscribo is an event-registration platform: a catalog of events with
// capacity-limited admission, an enrollment and payment ledger, and
// occupancy and revenue reporting.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inscribo/config"
	_ "inscribo/docs"
	"inscribo/internal/adapters/auth"
	"inscribo/internal/adapters/email"
	delivery "inscribo/internal/delivery/http"
	"inscribo/internal/delivery/http/controllers"
	"inscribo/internal/delivery/http/middleware"
	"inscribo/internal/repository/catalog"
	"inscribo/internal/repository/postgres"
	"inscribo/internal/services"
)

const bcryptCost = 12

// @title Inscribo API
// @version 1.0
// @description Event registration platform: event catalog, capacity-limited enrollment, payments, and statistics.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := postgres.Open(cfg.DBUrl, logger)
	if err != nil {
		logger.Error("ledger database unavailable", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(db); err != nil {
		logger.Error("ledger migration failed", "err", err)
		os.Exit(1)
	}

	catalogStore, err := catalog.New(cfg.CatalogPath)
	if err != nil {
		logger.Error("event catalog unavailable", "path", cfg.CatalogPath, "err", err)
		os.Exit(1)
	}
	defer catalogStore.Close()

	enrollmentRepo := postgres.NewEnrollmentRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	userRepo := postgres.NewUserRepository(db)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.SESRegion,
			AccessKeyID:        cfg.Email.SESAccessKeyID,
			SecretAccessKey:    cfg.Email.SESSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureTLS,
		},
	})
	if err != nil {
		logger.Error("mailer setup failed", "err", err)
		os.Exit(1)
	}
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer())

	tokenCodec := auth.NewJWTCodec(cfg.JWTSecret)
	hasher := auth.NewBcryptHasher(bcryptCost)

	authService := services.NewAuthService(userRepo, hasher, tokenCodec, cfg.JWTExpiry, emailService, logger)
	admissionService := services.NewAdmissionService(catalogStore, enrollmentRepo)
	enrollmentService := services.NewEnrollmentService(catalogStore, enrollmentRepo, paymentRepo, userRepo, emailService, logger)
	eventService := services.NewEventService(catalogStore, enrollmentRepo)
	statisticsService := services.NewStatisticsService(catalogStore, enrollmentRepo, paymentRepo)

	mux := delivery.NewRouter(
		tokenCodec,
		controllers.NewAuthController(logger, authService),
		controllers.NewEventController(logger, eventService, statisticsService),
		controllers.NewEnrollmentController(logger, admissionService, enrollmentService),
	)
	handler := middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}
