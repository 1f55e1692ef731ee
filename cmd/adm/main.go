// Package main provides the main entry point for the adaptive quiz engine admin CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"adaptivequiz/cmd/adm/commands"
	"adaptivequiz/internal/config"
	"adaptivequiz/internal/database"
	"adaptivequiz/internal/observability"
	"adaptivequiz/internal/services"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Quiet logging and no telemetry export for the CLI
	cfg.Server.LogLevel = "error"
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "adaptivequiz-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if tp != nil {
			if sp, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
				if err := sp.Shutdown(context.TODO()); err != nil {
					logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
				}
			}
		}
		if mp != nil {
			if err := mp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
	}()

	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err, map[string]interface{}{"db_url": cfg.Database.URL})
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	questionService := services.NewQuestionService(db, logger)
	quizService := services.NewQuizService(db, questionService, cfg, logger)

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Adaptive Quiz Engine Administration Tool",
		Long: `Adaptive Quiz Engine Administration Tool

CLI for administering the quiz engine: seeding the question bank,
generating quizzes, and running database migrations.`,

		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.QuestionCommands(questionService, logger))
	rootCmd.AddCommand(commands.QuizCommands(quizService, logger))
	rootCmd.AddCommand(commands.DatabaseCommands(dbManager, logger, cfg.Database.URL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
