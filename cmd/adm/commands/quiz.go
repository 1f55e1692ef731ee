package commands

import (
	"context"
	"fmt"

	"adaptivequiz/internal/models"
	"adaptivequiz/internal/observability"
	"adaptivequiz/internal/services"
	contextutils "adaptivequiz/internal/utils"

	"github.com/spf13/cobra"
)

// QuizCommands returns the quiz management commands
func QuizCommands(quizService services.QuizServiceInterface, logger *observability.Logger) *cobra.Command {
	quizCmd := &cobra.Command{
		Use:   "quiz",
		Short: "Quiz management commands",
		Long: `Quiz management commands.

Available commands:
  generate - Generate a new quiz for a level
  list     - List recent quizzes for a level`,
	}

	quizCmd.AddCommand(generateCmd(quizService, logger))
	quizCmd.AddCommand(listQuizzesCmd(quizService))

	return quizCmd
}

func generateCmd(quizService services.QuizServiceInterface, logger *observability.Logger) *cobra.Command {
	var grade, subject, reason string
	cmd := &cobra.Command{
		Use:   "generate [level]",
		Short: "Generate a quiz",
		Long:  `Generate a quiz for a level from the eligible question pool.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()

			quiz, err := quizService.GenerateQuiz(ctx, &models.GenerateQuizRequest{
				QuizLevel:     args[0],
				Grade:         grade,
				Subject:       subject,
				TriggerReason: reason,
			})
			if err != nil {
				if contextutils.IsError(err, contextutils.ErrInsufficientQuestions) {
					fmt.Println("Not enough eligible questions; seed more with 'adm question seed' and retry.")
				}
				logger.Error(ctx, "Quiz generation failed", err, map[string]interface{}{"quiz_level": args[0]})
				return err
			}

			fmt.Printf("Generated quiz %d (%s) with %d questions, hash %s\n",
				quiz.ID, quiz.Title, len(quiz.Questions), quiz.GenerationHash)
			return nil
		},
	}
	cmd.Flags().StringVar(&grade, "grade", "", "filter by grade")
	cmd.Flags().StringVar(&subject, "subject", "", "filter by subject")
	cmd.Flags().StringVar(&reason, "reason", "manual", "trigger reason recorded on the quiz")
	return cmd
}

func listQuizzesCmd(quizService services.QuizServiceInterface) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list [level]",
		Short: "List recent quizzes for a level",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()

			quizzes, err := quizService.GetQuizzesByLevel(ctx, args[0], limit)
			if err != nil {
				return err
			}

			if len(quizzes) == 0 {
				fmt.Println("No quizzes found")
				return nil
			}

			fmt.Printf("%-6s %-30s %-12s %-14s %s\n", "ID", "Title", "Hash", "Strategy", "Created")
			for _, quiz := range quizzes {
				fmt.Printf("%-6d %-30s %-12s %-14s %s\n",
					quiz.ID, quiz.Title, quiz.GenerationHash,
					quiz.Adaptive.ProgressionStrategy, quiz.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of quizzes to list")
	return cmd
}
