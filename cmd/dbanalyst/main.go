package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/dogukank/dbanalyst/internal/analyst"
	"github.com/dogukank/dbanalyst/internal/database"
	"github.com/dogukank/dbanalyst/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "dbanalyst",
	Short:         "Answer natural-language questions about a SQLite database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")
	rootCmd.AddCommand(serveCmd, askCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setup wires the shared dependency chain: config, database, schema
// snapshot, model client, analyst.
func setup(cmd *cobra.Command) (*analyst.Analyst, *config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() { db.Close() }

	schema, err := db.DescribeSchema(cmd.Context(), database.Notes{
		Purposes: cfg.Database.Notes.Purposes,
		Joins:    cfg.Database.Notes.Joins,
	})
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("introspecting schema: %w", err)
	}
	slog.Info("schema loaded", "path", cfg.Database.Path, "bytes", len(schema))

	opts := []openai.Option{
		openai.WithToken(cfg.Provider.APIKey),
		openai.WithModel(cfg.Provider.Model),
	}
	if cfg.Provider.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Provider.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("initializing model client: %w", err)
	}

	a := analyst.New(model, db, schema, analyst.Config{
		MaxRetries:   cfg.Agent.MaxRetries,
		MaxPlanSteps: cfg.Agent.MaxPlanSteps,
	}, slog.Default())

	return a, cfg, cleanup, nil
}
