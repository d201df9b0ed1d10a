package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"photocache/downloader/internal/config"
	"photocache/downloader/internal/container"
	"photocache/downloader/internal/domain"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Errorf("❌ %v", err)
		if errors.Is(err, domain.ErrPassInProgress) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configPath string

	cmd := &cobra.Command{
		Use:           "photocache",
		Short:         "Download the first photos of the first albums of a remote catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), v, configPath, func(app *container.Container) error {
				log.Info("Starting photo cache pass...")
				if _, err := app.Run(cmd.Context()); err != nil {
					return err
				}
				log.Info("Pass finished successfully")
				return nil
			})
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./config.yaml if present)")
	if err := config.BindFlags(v, cmd.PersistentFlags()); err != nil {
		log.Fatalf("Failed to bind flags: %v", err)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "last",
		Short: "Print the summary of the previous pass (requires redis)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), v, configPath, func(app *container.Container) error {
				last, err := app.Service.LastPass(cmd.Context())
				if err != nil {
					return err
				}
				if last == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "no pass recorded yet")
					return nil
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(last)
			})
		},
	})

	return cmd
}

func withContainer(ctx context.Context, v *viper.Viper, configPath string, fn func(*container.Container) error) error {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogging(cfg.Log)
	log.Debug("Configuration loaded successfully")

	app, err := container.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer app.Close()

	return fn(app)
}

func setupLogging(cfg config.LogConfig) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("⚠️ Unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
