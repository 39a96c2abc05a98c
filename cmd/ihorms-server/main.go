package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ihorms/ihorms/internal/config"
	"github.com/ihorms/ihorms/internal/domain/admission"
	"github.com/ihorms/ihorms/internal/domain/auditlog"
	"github.com/ihorms/ihorms/internal/domain/billing"
	"github.com/ihorms/ihorms/internal/domain/directory"
	"github.com/ihorms/ihorms/internal/domain/medicalhistory"
	"github.com/ihorms/ihorms/internal/domain/pharmacy"
	"github.com/ihorms/ihorms/internal/domain/scheduling"
	"github.com/ihorms/ihorms/internal/domain/telemetry"
	"github.com/ihorms/ihorms/internal/platform/audit"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/ihorms/ihorms/internal/platform/middleware"
	"github.com/ihorms/ihorms/internal/platform/sequence"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ihorms-server",
		Short: "Hospital operations API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

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
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// seedCmd loads a demo organization, branch and admin account for local
// development. Inserts use fixed ids with ON CONFLICT DO NOTHING, so running
// it twice is harmless.
func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo data for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			const (
				orgID    = "00000000-0000-0000-0000-000000000001"
				branchID = "00000000-0000-0000-0000-000000000002"
				adminID  = "00000000-0000-0000-0000-000000000003"
			)

			statements := []struct {
				desc  string
				query string
				args  []any
			}{
				{
					"demo organization",
					`INSERT INTO organizations (id, name, address, phone, email)
					 VALUES ($1, $2, $3, $4, $5)
					 ON CONFLICT (id) DO NOTHING`,
					[]any{orgID, "Demo Hospital Group", "1 Health Way", "+1-555-0100", "info@demo-hospital.test"},
				},
				{
					"demo branch",
					`INSERT INTO branches (id, org_id, name, city, address, phone)
					 VALUES ($1, $2, $3, $4, $5, $6)
					 ON CONFLICT (id) DO NOTHING`,
					[]any{branchID, orgID, "Demo General", "Metropolis", "1 Health Way", "+1-555-0101"},
				},
				{
					"demo org admin",
					`INSERT INTO users (id, email, role, state, uid, org_id, branch_id)
					 VALUES ($1, $2, $3, $4, $5, $6, $7)
					 ON CONFLICT (id) DO NOTHING`,
					[]any{adminID, "admin@demo-hospital.test", auth.RoleOrgAdmin, "active",
						sequence.FormatUID(sequence.Code("Demo Hospital Group"), sequence.Code("Metropolis"), "A", 1),
						orgID, branchID},
				},
			}

			for _, s := range statements {
				if _, err := pool.Exec(ctx, s.query, s.args...); err != nil {
					return fmt.Errorf("seed %s: %w", s.desc, err)
				}
			}

			fmt.Println("Seeded demo organization, branch and admin account.")
			return nil
		},
	}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	handle := db.NewHandle(pool)
	seq := sequence.New(pool)
	recorder := audit.NewPGRecorder(pool)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(uuid.Nil))
	} else {
		e.Use(auth.JWTMiddleware(cfg.JWTSecret))
	}
	e.Use(audit.Middleware())

	e.GET("/healthz", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	orgRepo := directory.NewPGOrganizationRepository(pool)
	branchRepo := directory.NewPGBranchRepository(pool)
	userRepo := directory.NewPGUserRepository(pool)
	doctorRepo := directory.NewPGDoctorRepository(pool)
	nurseRepo := directory.NewPGNurseRepository(pool)
	patientRepo := directory.NewPGPatientRepository(pool)
	dirSvc := directory.NewService(orgRepo, branchRepo, userRepo, doctorRepo, nurseRepo, patientRepo, seq, handle, recorder)
	directory.NewHandler(dirSvc).RegisterRoutes(apiV1)

	historyRepo := medicalhistory.NewPGRepository(pool)
	historySvc := medicalhistory.NewService(historyRepo, patientRepo, recorder)
	medicalhistory.NewHandler(historySvc).RegisterRoutes(apiV1)

	roomRepo := admission.NewPGRoomRepository(pool)
	admissionRepo := admission.NewPGAdmissionRepository(pool)

	apptRepo := scheduling.NewPGRepository(pool)
	schedSvc := scheduling.NewService(apptRepo, patientRepo, doctorRepo, userRepo, branchRepo,
		roomRepo, historyRepo, handle, recorder)
	scheduling.NewHandler(schedSvc).RegisterRoutes(apiV1)

	admissionSvc := admission.NewService(roomRepo, admissionRepo, apptRepo, doctorRepo, branchRepo, handle, recorder)
	admission.NewHandler(admissionSvc).RegisterRoutes(apiV1)

	vitalsRepo := telemetry.NewPGRepository(pool)
	vitalsSvc := telemetry.NewService(vitalsRepo, patientRepo, branchRepo, apptRepo, handle, recorder)
	telemetry.NewHandler(vitalsSvc).RegisterRoutes(apiV1)

	billRepo := billing.NewPGRepository(pool)
	billSvc := billing.NewService(billRepo, apptRepo, patientRepo, branchRepo, seq, handle, recorder)
	billing.NewHandler(billSvc).RegisterRoutes(apiV1)

	stockRepo := pharmacy.NewPGStockRepository(pool)
	orderRepo := pharmacy.NewPGOrderRepository(pool)
	pharmacySvc := pharmacy.NewService(stockRepo, orderRepo, patientRepo, branchRepo, seq, handle, recorder)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(apiV1)

	auditReader := auditlog.NewPGReader(pool)
	auditlog.NewHandler(auditReader).RegisterRoutes(apiV1)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
