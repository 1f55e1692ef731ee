//go:build integration

package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"adaptivequiz/internal/models"
	contextutils "adaptivequiz/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedQuestions(t *testing.T, qs *QuestionService, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		q := &models.Question{
			Text:       fmt.Sprintf("What is %d + %d?", i, i),
			Choices:    []string{fmt.Sprintf("%d", 2*i), "0", "1", "2"},
			Answer:     fmt.Sprintf("%d", 2*i),
			Difficulty: i%5 + 1,
			Topic:      fmt.Sprintf("topic-%d", i%3),
			QuizLevel:  "level-1",
			IsActive:   true,
		}
		require.NoError(t, qs.SaveQuestion(ctx, q))
	}
}

func newEngineServices(t *testing.T, db *sql.DB) (*QuestionService, *QuizService, *AttemptService, *SkillService) {
	t.Helper()
	return newEngineServicesWithTarget(t, db, 10)
}

// newEngineServicesWithTarget wires the full service stack with a custom
// completion target. Attempt-flow tests use a low target so the happy path
// cannot run out of nearby questions first.
func newEngineServicesWithTarget(t *testing.T, db *sql.DB, target int) (*QuestionService, *QuizService, *AttemptService, *SkillService) {
	t.Helper()
	logger := testLogger()
	cfg := testEngineConfig()
	cfg.Engine.TargetCorrectAnswers = target
	questionService := NewQuestionService(db, logger)
	quizService := NewQuizService(db, questionService, cfg, logger)
	skillService := NewSkillService(db, logger)
	attemptService := NewAttemptService(db, quizService, skillService, logger)
	return questionService, quizService, attemptService, skillService
}

func TestGenerateQuiz_PersistsArtifact(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	questionService, quizService, _, _ := newEngineServices(t, db)
	ctx := context.Background()

	seedQuestions(t, questionService, 40)

	quiz, err := quizService.GenerateQuiz(ctx, &models.GenerateQuizRequest{QuizLevel: "level-1"})
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 20)
	assert.NotZero(t, quiz.ID)
	assert.Len(t, quiz.GenerationHash, 12)

	// Round-trip through storage
	loaded, err := quizService.GetQuizByID(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Questions, 20)
	assert.Equal(t, quiz.GenerationHash, loaded.GenerationHash)
	assert.Equal(t, quiz.Adaptive, loaded.Adaptive)

	// Exactly the selected questions got their usage stats bumped
	var usedCount int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE usage_count > 0`).Scan(&usedCount))
	assert.Equal(t, 20, usedCount)
}

func TestGenerateQuiz_HashesAreUnique(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	questionService, quizService, _, _ := newEngineServices(t, db)
	ctx := context.Background()

	seedQuestions(t, questionService, 40)

	first, err := quizService.GenerateQuiz(ctx, &models.GenerateQuizRequest{QuizLevel: "level-1"})
	require.NoError(t, err)
	second, err := quizService.GenerateQuiz(ctx, &models.GenerateQuizRequest{QuizLevel: "level-1"})
	require.NoError(t, err)

	assert.NotEqual(t, first.GenerationHash, second.GenerationHash)
}

func TestQuizSnapshots_SurviveBankEdits(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	questionService, quizService, _, _ := newEngineServices(t, db)
	ctx := context.Background()

	seedQuestions(t, questionService, 40)

	quiz, err := quizService.GenerateQuiz(ctx, &models.GenerateQuizRequest{QuizLevel: "level-1"})
	require.NoError(t, err)

	// Edit and deactivate the bank question behind the first snapshot
	snapshot := quiz.Questions[0]
	bankQuestion, err := questionService.GetQuestionByID(ctx, snapshot.QuestionID)
	require.NoError(t, err)
	bankQuestion.Text = "rewritten"
	bankQuestion.Answer = "rewritten"
	require.NoError(t, questionService.SaveQuestion(ctx, bankQuestion))
	require.NoError(t, questionService.SetQuestionActive(ctx, snapshot.QuestionID, false))

	loaded, err := quizService.GetQuizByID(ctx, quiz.ID)
	require.NoError(t, err)
	reloaded := loaded.QuestionByID(snapshot.QuestionID)
	require.NotNil(t, reloaded)
	assert.Equal(t, snapshot.Text, reloaded.Text)
	assert.Equal(t, snapshot.Answer, reloaded.Answer)
}

func TestAttemptFlow_TargetReached(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	questionService, quizService, attemptService, skillService := newEngineServicesWithTarget(t, db, 3)
	ctx := context.Background()

	seedQuestions(t, questionService, 40)
	quiz, err := quizService.GenerateQuiz(ctx, &models.GenerateQuizRequest{QuizLevel: "level-1"})
	require.NoError(t, err)

	attempt, err := attemptService.StartAttempt(ctx, 1, quiz.ID, true)
	require.NoError(t, err)
	assert.Equal(t, quiz.Adaptive.StartingDifficulty, attempt.CurrentDifficulty)

	// Answer everything correctly until the attempt completes
	var summary *models.AttemptSummary
	for i := 0; i < 25; i++ {
		next, err := attemptService.NextQuestion(ctx, attempt.ID)
		require.NoError(t, err)
		if next.Completed {
			summary = next.Summary
			break
		}

		served := quiz.QuestionByID(next.Question.QuestionID)
		require.NotNil(t, served)
		resp, err := attemptService.SubmitAnswer(ctx, attempt.ID, served.QuestionID, served.Answer)
		require.NoError(t, err)
		assert.True(t, resp.IsCorrect)
	}

	require.NotNil(t, summary, "attempt never completed")
	assert.Equal(t, models.CompletionReasonTargetReached, summary.CompletionReason)
	assert.Equal(t, quiz.Adaptive.TargetCorrectAnswers, summary.CorrectCount)
	assert.Equal(t, 100, summary.AccuracyPercent)

	// Completion fed the skill aggregator
	skills, err := skillService.GetUserSkills(ctx, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, skills)

	// Results projection agrees with the summary
	results, err := attemptService.GetResults(ctx, attempt.ID)
	require.NoError(t, err)
	assert.True(t, results.Completed)
	assert.Equal(t, summary.CorrectCount, results.CorrectCount)
	assert.Len(t, results.DifficultyTrace, results.TotalAnswered)
}

func TestAttempt_StateConflicts(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	questionService, quizService, attemptService, _ := newEngineServices(t, db)
	ctx := context.Background()

	seedQuestions(t, questionService, 40)
	quiz, err := quizService.GenerateQuiz(ctx, &models.GenerateQuizRequest{QuizLevel: "level-1"})
	require.NoError(t, err)

	// Unavailable quiz is rejected outright
	_, err = attemptService.StartAttempt(ctx, 1, quiz.ID, false)
	assert.Equal(t, contextutils.ErrorCodeQuizNotAvailable, contextutils.GetErrorCode(err))

	attempt, err := attemptService.StartAttempt(ctx, 1, quiz.ID, true)
	require.NoError(t, err)

	// Second active attempt for the same (user, quiz) conflicts
	_, err = attemptService.StartAttempt(ctx, 1, quiz.ID, true)
	assert.Equal(t, contextutils.ErrorCodeAttemptAlreadyActive, contextutils.GetErrorCode(err))

	// A different user is unaffected
	_, err = attemptService.StartAttempt(ctx, 2, quiz.ID, true)
	require.NoError(t, err)

	next, err := attemptService.NextQuestion(ctx, attempt.ID)
	require.NoError(t, err)
	served := quiz.QuestionByID(next.Question.QuestionID)

	// Foreign question is rejected
	_, err = attemptService.SubmitAnswer(ctx, attempt.ID, 999999, "x")
	assert.Equal(t, contextutils.ErrorCodeQuestionNotInQuiz, contextutils.GetErrorCode(err))

	resp, err := attemptService.SubmitAnswer(ctx, attempt.ID, served.QuestionID, served.Answer)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalAnswered)

	// Replaying the same question conflicts and does not double count
	_, err = attemptService.SubmitAnswer(ctx, attempt.ID, served.QuestionID, served.Answer)
	assert.Equal(t, contextutils.ErrorCodeQuestionAlreadyAnswered, contextutils.GetErrorCode(err))

	reloaded, err := attemptService.GetAttemptByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TotalAnswered)
}

func TestCompletion_AggregatesSkillsExactlyOnce(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	questionService, quizService, attemptService, skillService := newEngineServicesWithTarget(t, db, 3)
	ctx := context.Background()

	seedQuestions(t, questionService, 40)
	quiz, err := quizService.GenerateQuiz(ctx, &models.GenerateQuizRequest{QuizLevel: "level-1"})
	require.NoError(t, err)

	attempt, err := attemptService.StartAttempt(ctx, 1, quiz.ID, true)
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		next, err := attemptService.NextQuestion(ctx, attempt.ID)
		require.NoError(t, err)
		if next.Completed {
			break
		}
		served := quiz.QuestionByID(next.Question.QuestionID)
		_, err = attemptService.SubmitAnswer(ctx, attempt.ID, served.QuestionID, served.Answer)
		require.NoError(t, err)
	}

	skillsAfter, err := skillService.GetUserSkills(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, skillsAfter)

	// Polling a completed attempt returns the summary again without
	// re-running aggregation
	for i := 0; i < 3; i++ {
		next, err := attemptService.NextQuestion(ctx, attempt.ID)
		require.NoError(t, err)
		assert.True(t, next.Completed)
	}

	skillsRepolled, err := skillService.GetUserSkills(ctx, 1)
	require.NoError(t, err)
	require.Len(t, skillsRepolled, len(skillsAfter))
	for i := range skillsAfter {
		assert.Equal(t, skillsAfter[i].Points, skillsRepolled[i].Points)
		assert.Equal(t, skillsAfter[i].Level, skillsRepolled[i].Level)
	}
}

func TestSkillService_FloorsAtZero(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	_, _, _, skillService := newEngineServices(t, db)
	ctx := context.Background()

	// A run of misses on easy questions cannot push points negative
	err := skillService.RecordAttemptAnswers(ctx, 1, []models.SkillAnswer{
		{Topic: "algebra", Difficulty: 1, IsCorrect: false},
		{Topic: "algebra", Difficulty: 1, IsCorrect: false},
		{Topic: "algebra", Difficulty: 1, IsCorrect: false},
	})
	require.NoError(t, err)

	skills, err := skillService.GetUserSkills(ctx, 1)
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, 0.0, skills[0].Points)
	assert.Equal(t, 0, skills[0].Level)

	// Earned points accumulate and level up past thresholds
	answers := make([]models.SkillAnswer, 0, 6)
	for i := 0; i < 6; i++ {
		answers = append(answers, models.SkillAnswer{Topic: "algebra", Difficulty: 5, IsCorrect: true})
	}
	require.NoError(t, skillService.RecordAttemptAnswers(ctx, 1, answers))

	skills, err = skillService.GetUserSkills(ctx, 1)
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, 30.0, skills[0].Points)
	assert.Equal(t, 1, skills[0].Level)
}
