// Package commands contains the subcommands of the admin CLI.
package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"adaptivequiz/internal/models"
	"adaptivequiz/internal/observability"
	"adaptivequiz/internal/services"
	contextutils "adaptivequiz/internal/utils"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// QuestionCommands returns the question bank management commands
func QuestionCommands(questionService services.QuestionServiceInterface, logger *observability.Logger) *cobra.Command {
	questionCmd := &cobra.Command{
		Use:   "question",
		Short: "Question bank management commands",
		Long: `Question bank management commands.

Available commands:
  seed       - Load questions from a YAML file into the bank
  count      - Count eligible questions for a level
  deactivate - Remove a question from future generations`,
	}

	questionCmd.AddCommand(seedCmd(questionService, logger))
	questionCmd.AddCommand(countCmd(questionService, logger))
	questionCmd.AddCommand(deactivateCmd(questionService, logger))

	return questionCmd
}

func seedCmd(questionService services.QuestionServiceInterface, logger *observability.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed [file]",
		Short: "Seed the question bank from a YAML file",
		Long:  `Seed the question bank from a YAML file containing a list of questions.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runSeed(questionService, logger),
	}
	return cmd
}

func runSeed(questionService services.QuestionServiceInterface, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to read %s", args[0])
		}

		var questions []models.Question
		if err := yaml.Unmarshal(data, &questions); err != nil {
			return contextutils.WrapErrorf(err, "failed to parse %s", args[0])
		}

		for i := range questions {
			q := &questions[i]
			q.ID = 0
			// Seeded questions enter the bank active
			q.IsActive = true
			if err := questionService.SaveQuestion(ctx, q); err != nil {
				logger.Error(ctx, "Failed to save question", err, map[string]interface{}{"index": i})
				return contextutils.WrapErrorf(err, "failed to save question %d", i)
			}
		}

		fmt.Printf("Seeded %d questions\n", len(questions))
		return nil
	}
}

func countCmd(questionService services.QuestionServiceInterface, _ *observability.Logger) *cobra.Command {
	var grade, subject string
	cmd := &cobra.Command{
		Use:   "count [level]",
		Short: "Count eligible questions for a quiz level",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()
			count, err := questionService.CountEligibleQuestions(ctx, args[0], grade, subject)
			if err != nil {
				return err
			}
			fmt.Printf("%d eligible questions for level %q\n", count, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&grade, "grade", "", "filter by grade")
	cmd.Flags().StringVar(&subject, "subject", "", "filter by subject")
	return cmd
}

func deactivateCmd(questionService services.QuestionServiceInterface, _ *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate [id]",
		Short: "Deactivate a question",
		Long:  `Deactivate a question so future generations skip it. Existing quiz snapshots are unaffected.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return contextutils.ErrorWithContextf("question ID must be an integer, got %q", args[0])
			}
			if err := questionService.SetQuestionActive(ctx, id, false); err != nil {
				return err
			}
			fmt.Printf("Deactivated question %d\n", id)
			return nil
		},
	}
}
