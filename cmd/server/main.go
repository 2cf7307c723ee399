package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"hospital-portal/internal/config"
	"hospital-portal/internal/database"
	"hospital-portal/internal/handler"
	"hospital-portal/internal/metrics"
	"hospital-portal/internal/middleware"
	"hospital-portal/internal/render"
	"hospital-portal/internal/repository"
	"hospital-portal/internal/service"
	"hospital-portal/pkg/logger"
	"hospital-portal/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hospital-portal",
		Short: "Hospital management portal API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			log.Info().Msg("database migrated")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			firstName, _ := cmd.Flags().GetString("first-name")

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}

			store := repository.NewStore(db)
			tokens := newTokenIssuer(cfg)
			authService := service.NewAuthService(store, tokens, service.NewIdentityService(store))

			user, err := authService.SignupAdmin(cmd.Context(), service.AccountInput{
				Username:  username,
				Password:  password,
				FirstName: firstName,
			})
			if err != nil {
				return err
			}
			log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("admin created")
			return nil
		},
	}

	cmd.Flags().String("username", "admin", "Admin username")
	cmd.Flags().String("password", "", "Admin password")
	cmd.Flags().String("first-name", "Admin", "Admin first name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// setup loads and validates configuration and builds the process logger
func setup() (*config.Config, zerolog.Logger, error) {
	cfg := config.LoadConfig()
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	if err := cfg.Validate(); err != nil {
		return nil, log, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, log, nil
}

func newTokenIssuer(cfg *config.Config) *utils.TokenIssuer {
	return utils.NewTokenIssuer(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
}

func runServer() error {
	// 1. Load configuration
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("configuration loaded")

	// 2. Initialize database connection
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	log.Info().Msg("connected to database")

	// 3. Initialize repositories and token issuer
	store := repository.NewStore(db)
	tokens := newTokenIssuer(cfg)

	// 4. Initialize services
	collector := metrics.NewCollector()
	identity := service.NewIdentityService(store)
	authService := service.NewAuthService(store, tokens, identity)
	approvals := service.NewApprovalService(store, collector)
	appointments := service.NewAppointmentService(store, collector)
	billing := service.NewBillingService(store, render.NewPDFRenderer(), collector)
	search := service.NewSearchService(store)
	workerService := service.NewWorkerService(store, cfg.Worker.TokenSweepInterval, log)

	// 5. Start background worker in goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go workerService.Start(ctx)

	// 6. Setup Gin router
	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
		collector.Middleware(),
		middleware.CORS(cfg),
	)

	// 7. Define routes
	handler.RegisterRoutes(r, handler.Handlers{
		Auth: handler.NewAuthHandler(authService, handler.AuthConfig{
			Secure:           cfg.Server.GinMode == gin.ReleaseMode,
			AccessTTL:        cfg.JWT.AccessTokenExpiry,
			RefreshTTL:       cfg.JWT.RefreshTokenExpiry,
			AllowAdminSignup: cfg.Server.AllowAdminSignup,
		}),
		Admin:   handler.NewAdminHandler(approvals, appointments, billing, search),
		Doctor:  handler.NewDoctorHandler(appointments, search),
		Patient: handler.NewPatientHandler(appointments, billing, search),
	}, middleware.NewAuth(tokens, identity))
	r.GET("/metrics", gin.WrapH(collector.Handler()))

	// 8. Start server and wait for shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	// Cancel background worker context
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	closeDB(db, log)
	log.Info().Msg("server exited")
	return nil
}

func closeDB(db *gorm.DB, log zerolog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close database")
	}
}
