package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carelist/carelist/internal/config"
	"github.com/carelist/carelist/internal/domain/worklist"
	"github.com/carelist/carelist/internal/platform/auth"
	"github.com/carelist/carelist/internal/platform/db"
	"github.com/carelist/carelist/internal/platform/middleware"
	"github.com/carelist/carelist/internal/platform/sandbox"
	"github.com/carelist/carelist/internal/platform/websocket"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "carelist-server",
		Short: "Patient worklist API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the worklist API server",
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

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
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
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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

// seedCmd writes generated demo data into Postgres. The in-memory engine
// seeds itself at startup, so this command only targets ENGINE_MODE=postgres.
func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load generated demo data into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			patients, _ := cmd.Flags().GetInt("patients")
			seed, _ := cmd.Flags().GetInt64("seed")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required to seed the database")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			sc := sandbox.DefaultSeedConfig()
			if patients > 0 {
				sc.PatientCount = patients
			}
			if seed != 0 {
				sc.Seed = seed
			}

			engine := worklist.NewPGEngine(pool)
			generated, risks := sandbox.NewSeeder(sc).Generate()
			for _, p := range generated {
				if err := engine.UpsertPatient(ctx, p); err != nil {
					return fmt.Errorf("seed patient %s: %w", p.ID, err)
				}
			}
			for _, ra := range risks {
				if err := engine.UpsertRiskAssessment(ctx, ra); err != nil {
					return fmt.Errorf("seed risk assessment %s: %w", ra.ID, err)
				}
			}

			fmt.Printf("Seeded %d patient(s) and %d risk assessment(s).\n", len(generated), len(risks))
			return nil
		},
	}
	cmd.Flags().Int("patients", 0, "Number of patients to generate (default from SEED_PATIENTS)")
	cmd.Flags().Int64("seed", 0, "Random seed for reproducible data (default from SEED_VALUE)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

// buildEngine constructs the search engine selected by ENGINE_MODE. The
// returned pool is non-nil only in postgres mode; the caller owns closing it.
func buildEngine(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (worklist.Engine, *pgxpool.Pool, error) {
	switch cfg.EngineMode {
	case "memory":
		engine := worklist.NewMemoryEngine()
		if cfg.SeedOnStart {
			sc := sandbox.DefaultSeedConfig()
			sc.PatientCount = cfg.SeedPatients
			sc.Seed = cfg.SeedValue
			res := sandbox.NewSeeder(sc).Seed(engine)
			logger.Info().
				Int("patients", res.Patients).
				Int("risk_assessments", res.RiskAssessments).
				Msg("seeded in-memory engine")
		}
		return engine, nil, nil
	case "rest":
		return worklist.NewRestEngine(cfg.FHIRBaseURL, cfg.FHIRToken), nil, nil
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, err
		}
		return worklist.NewPGEngine(pool), pool, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine mode: %s", cfg.EngineMode)
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Search engine
	ctx := context.Background()
	engine, pool, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build search engine")
	}
	if pool != nil {
		defer pool.Close()
	}
	logger.Info().Str("mode", cfg.EngineMode).Msg("search engine ready")

	// Worklist service and live session
	svc, err := worklist.NewService(engine, cfg.PageSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create worklist service")
	}

	hub := websocket.NewHub(logger)
	sess := worklist.NewSession(svc, hub, logger)
	defer sess.Close()
	if err := sess.Update(worklist.Filter{}); err != nil {
		logger.Error().Err(err).Msg("initial worklist refresh")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Auth middleware
	switch cfg.ResolvedAuthMode() {
	case "none":
		e.Use(auth.DevAuth())
		logger.Warn().Msg("authentication disabled; all requests run as dev-user")
	default:
		e.Use(auth.JWTMiddleware(auth.Config{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.JWTSecret),
		}))
	}

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	// WebSocket endpoint for worklist refresh events
	wsHandler := websocket.NewWebSocketHandler(hub)
	wsHandler.RegisterRoutes(e.Group(""))

	// Worklist API
	apiV1 := e.Group("/api/v1")
	handler := worklist.NewHandler(svc, sess)
	handler.RegisterRoutes(apiV1)

	// Graceful shutdown
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
