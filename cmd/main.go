/*
Package main is the entry point for the meetsignal server.

The root command has three subcommands: serve runs the signaling server until
SIGINT or SIGTERM and then drains it; migrate applies the meeting directory
schema; token mints a development JWT for local testing.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"meetsignal/internal/app/db"
	"meetsignal/internal/app/meeting"
	"meetsignal/internal/app/signal"
	"meetsignal/internal/configs"
	"meetsignal/internal/handler"
	"meetsignal/internal/pkg/auth/jwt"
	"meetsignal/internal/pkg/logx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logx.Fatal(err, "meetsignal exited with an error")
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "meetsignal",
		Short:         "Real-time signaling and room presence for video meetings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	configs.BindFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd())

	return root
}

// loadConfig reads the configuration and initializes the global logger from it.
func loadConfig(cmd *cobra.Command) (*configs.AppConfig, error) {
	cfg, err := configs.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)

	return cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the signaling server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *configs.AppConfig) error {
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("ice_servers", len(cfg.ICEServers)).
		Dur("empty_room_ttl", cfg.EmptyRoomTTL).
		Dur("pong_wait", cfg.PongWait).
		Bool("database", cfg.DatabaseDSN != "").
		Msg("Configuration loaded successfully")

	ctx, stop := ossignal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var directory meeting.Directory
	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}

		directory = meeting.NewPGDirectory(pool)
	} else {
		logx.Warn("DATABASE_URL not set, using the in-memory meeting directory")
		directory = meeting.NewMemoryDirectory()
	}

	hub := signal.NewHub(signal.NewRegistry(), signal.Config{
		Directory:    directory,
		ICEServers:   cfg.ICEServers,
		EmptyRoomTTL: cfg.EmptyRoomTTL,
	})
	go hub.Run(ctx)

	router := handler.Router(ctx, &handler.AppDeps{
		Hub:       hub,
		Config:    cfg,
		Directory: directory,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logx.Info(fmt.Sprintf("Signaling server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
	}

	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// WebSocket connections are hijacked and not tracked by server.Shutdown.
	hub.Shutdown()

	logx.Info("Server gracefully stopped.")
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the meeting directory schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DatabaseDSN == "" {
				return errors.New("DATABASE_URL or --database-url is required")
			}

			pool, err := db.NewPool(cmd.Context(), cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			return db.Migrate(cmd.Context(), pool)
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		userID string
		name   string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed JWT for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			tokenString, err := jwt.GenerateToken(&jwt.Payload{
				UserID: userID,
				Name:   name,
				Email:  email,
				Role:   "user",
			}, cfg.JWTSecret, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), tokenString)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to put in the token (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", jwt.DevTokenExpiration, "token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
