package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"adaptivequiz/internal/models"
	"adaptivequiz/internal/observability"
	contextutils "adaptivequiz/internal/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AttemptServiceInterface defines the interface for the attempt state machine.
// This allows for easier mocking in tests.
type AttemptServiceInterface interface {
	StartAttempt(ctx context.Context, userID, quizID int, available bool) (*models.Attempt, error)
	GetAttemptByID(ctx context.Context, attemptID string) (*models.Attempt, error)
	NextQuestion(ctx context.Context, attemptID string) (*models.NextQuestionResponse, error)
	SubmitAnswer(ctx context.Context, attemptID string, questionID int, answer string) (*models.SubmitAnswerResponse, error)
	GetResults(ctx context.Context, attemptID string) (*models.AttemptResults, error)
}

const uniqueViolation = "23505"

// AttemptService runs students through quizzes: it serves questions at the
// live adaptive difficulty, grades against embedded snapshots, and drives
// the attempt to completion.
type AttemptService struct {
	db      *sql.DB
	quizzes QuizServiceInterface
	skills  SkillServiceInterface
	logger  *observability.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewAttemptService creates an attempt service with a time-seeded RNG
func NewAttemptService(db *sql.DB, quizzes QuizServiceInterface, skills SkillServiceInterface, logger *observability.Logger) *AttemptService {
	return NewAttemptServiceWithRand(db, quizzes, skills, logger, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewAttemptServiceWithRand creates an attempt service with a caller-supplied
// RNG for deterministic tests.
func NewAttemptServiceWithRand(db *sql.DB, quizzes QuizServiceInterface, skills SkillServiceInterface, logger *observability.Logger, rng *rand.Rand) *AttemptService {
	return &AttemptService{
		db:      db,
		quizzes: quizzes,
		skills:  skills,
		logger:  logger,
		rng:     rng,
	}
}

// AnswersMatch grades a submitted answer against the snapshot answer.
// Grading is tolerant of surrounding whitespace and letter case, nothing
// else.
func AnswersMatch(expected, submitted string) bool {
	return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(submitted))
}

// StartAttempt creates a new in-progress attempt at the quiz's starting
// difficulty. The caller resolves availability; an unavailable quiz is
// rejected before any state is touched. The partial unique index on active
// attempts backstops the duplicate check under concurrency.
func (s *AttemptService) StartAttempt(ctx context.Context, userID, quizID int, available bool) (result0 *models.Attempt, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "start_attempt",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
	)
	defer observability.FinishSpan(span, &err)

	if !available {
		return nil, contextutils.ErrQuizNotAvailable
	}

	quiz, err := s.quizzes.GetQuizByID(ctx, quizID)
	if err != nil {
		return nil, err
	}

	var existingID string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM attempts WHERE user_id = $1 AND quiz_id = $2 AND NOT completed`,
		userID, quizID).Scan(&existingID)
	if err == nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrAttemptAlreadyActive, "attempt %s is still in progress", existingID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to check active attempts: %v", err))
	}

	attempt := &models.Attempt{
		ID:                uuid.NewString(),
		UserID:            userID,
		QuizID:            quizID,
		CurrentDifficulty: clampDifficulty(quiz.Adaptive.StartingDifficulty),
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO attempts (id, user_id, quiz_id, current_difficulty)
		VALUES ($1, $2, $3, $4)
		RETURNING started_at`,
		attempt.ID, attempt.UserID, attempt.QuizID, attempt.CurrentDifficulty,
	).Scan(&attempt.StartedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, contextutils.ErrAttemptAlreadyActive
		}
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to insert attempt: %v", err))
	}

	s.logger.Info(ctx, "Started attempt", map[string]interface{}{
		"attempt_id": attempt.ID,
		"user_id":    userID,
		"quiz_id":    quizID,
		"difficulty": attempt.CurrentDifficulty,
	})
	return attempt, nil
}

// GetAttemptByID loads an attempt with its ordered answer log
func (s *AttemptService) GetAttemptByID(ctx context.Context, attemptID string) (result0 *models.Attempt, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "get_attempt_by_id",
		observability.AttributeAttemptID(attemptID),
	)
	defer observability.FinishSpan(span, &err)

	attempt := &models.Attempt{}
	var completedAt sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		SELECT id, user_id, quiz_id, current_difficulty, correct_count, total_answered, completed, completion_reason, started_at, completed_at
		FROM attempts WHERE id = $1`, attemptID,
	).Scan(
		&attempt.ID, &attempt.UserID, &attempt.QuizID,
		&attempt.CurrentDifficulty, &attempt.CorrectCount, &attempt.TotalAnswered,
		&attempt.Completed, &attempt.CompletionReason, &attempt.StartedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.ErrAttemptNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to load attempt %s: %v", attemptID, err))
	}
	if completedAt.Valid {
		attempt.CompletedAt = &completedAt.Time
	}

	attempt.Answers, err = s.loadAttemptAnswers(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *AttemptService) loadAttemptAnswers(ctx context.Context, attemptID string) (result0 []models.AttemptAnswer, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, attempt_id, question_id, answer, is_correct, difficulty_at_time, topic, answered_at
		FROM attempt_answers WHERE attempt_id = $1 ORDER BY answered_at, id`, attemptID)
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to query attempt answers: %v", err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var answers []models.AttemptAnswer
	for rows.Next() {
		var answer models.AttemptAnswer
		if err := rows.Scan(
			&answer.ID, &answer.AttemptID, &answer.QuestionID,
			&answer.Answer, &answer.IsCorrect, &answer.DifficultyAtTime,
			&answer.Topic, &answer.AnsweredAt,
		); err != nil {
			return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to scan answer row: %v", err))
		}
		answers = append(answers, answer)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to iterate answer rows: %v", err))
	}
	return answers, nil
}

// NextQuestion returns the next question to present, or completes the
// attempt when the target is reached or no suitable question remains.
// Calling it on an already-completed attempt is not an error: it returns the
// same completion summary again.
func (s *AttemptService) NextQuestion(ctx context.Context, attemptID string) (result0 *models.NextQuestionResponse, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "next_question",
		observability.AttributeAttemptID(attemptID),
	)
	defer observability.FinishSpan(span, &err)

	attempt, err := s.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Completed {
		return completedResponse(attempt, attempt.CompletionReason), nil
	}

	quiz, err := s.quizzes.GetQuizByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	if attempt.CorrectCount >= quiz.Adaptive.TargetCorrectAnswers {
		return s.completeAttempt(ctx, attempt, models.CompletionReasonTargetReached)
	}

	snapshot := s.pickUnanswered(quiz, attempt)
	if snapshot == nil {
		return s.completeAttempt(ctx, attempt, models.CompletionReasonPoolExhausted)
	}

	return &models.NextQuestionResponse{
		Question: &models.AttemptQuestion{
			QuestionID: snapshot.QuestionID,
			Text:       snapshot.Text,
			Choices:    snapshot.Choices,
			Difficulty: snapshot.Difficulty,
		},
	}, nil
}

// pickUnanswered chooses uniformly among unanswered snapshots at the current
// difficulty, widening one step either side when none exist there. A nil
// return means nothing suitable is left and the attempt is done.
func (s *AttemptService) pickUnanswered(quiz *models.Quiz, attempt *models.Attempt) *models.QuizQuestion {
	exact := unansweredAtDifficulty(quiz, attempt, attempt.CurrentDifficulty, attempt.CurrentDifficulty)
	if len(exact) > 0 {
		return exact[s.randIntn(len(exact))]
	}

	adjacent := unansweredAtDifficulty(quiz, attempt, attempt.CurrentDifficulty-1, attempt.CurrentDifficulty+1)
	if len(adjacent) > 0 {
		return adjacent[s.randIntn(len(adjacent))]
	}
	return nil
}

func (s *AttemptService) randIntn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

func unansweredAtDifficulty(quiz *models.Quiz, attempt *models.Attempt, low, high int) []*models.QuizQuestion {
	var out []*models.QuizQuestion
	for i := range quiz.Questions {
		snapshot := &quiz.Questions[i]
		if snapshot.Difficulty < low || snapshot.Difficulty > high {
			continue
		}
		if attempt.HasAnswered(snapshot.QuestionID) {
			continue
		}
		out = append(out, snapshot)
	}
	return out
}

// completeAttempt transitions the attempt to its terminal state. The guarded
// update claims the transition at most once, and only the claiming call
// feeds the skill aggregator; aggregation failures are logged, never
// surfaced, so completion cannot fail on bookkeeping.
func (s *AttemptService) completeAttempt(ctx context.Context, attempt *models.Attempt, reason string) (result0 *models.NextQuestionResponse, err error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE attempts SET completed = TRUE, completion_reason = $2, completed_at = NOW()
		WHERE id = $1 AND NOT completed`,
		attempt.ID, reason)
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to complete attempt %s: %v", attempt.ID, err))
	}

	claimed, err := rowsAffected(result, "completion claim")
	if err != nil {
		return nil, err
	}

	if claimed == 1 {
		skillAnswers := make([]models.SkillAnswer, 0, len(attempt.Answers))
		for _, a := range attempt.Answers {
			skillAnswers = append(skillAnswers, models.SkillAnswer{
				Topic:      a.Topic,
				Difficulty: a.DifficultyAtTime,
				IsCorrect:  a.IsCorrect,
			})
		}
		if aggErr := s.skills.RecordAttemptAnswers(ctx, attempt.UserID, skillAnswers); aggErr != nil {
			s.logger.Error(ctx, "Skill aggregation failed", aggErr, map[string]interface{}{
				"attempt_id": attempt.ID,
				"user_id":    attempt.UserID,
			})
		}

		s.logger.Info(ctx, "Completed attempt", map[string]interface{}{
			"attempt_id":        attempt.ID,
			"completion_reason": reason,
			"correct_count":     attempt.CorrectCount,
			"total_answered":    attempt.TotalAnswered,
		})
	}

	return completedResponse(attempt, reason), nil
}

func completedResponse(attempt *models.Attempt, reason string) *models.NextQuestionResponse {
	message := "Quiz attempt complete."
	switch reason {
	case models.CompletionReasonTargetReached:
		message = fmt.Sprintf("Target reached: %d correct answers.", attempt.CorrectCount)
	case models.CompletionReasonPoolExhausted:
		message = "No more questions available at a suitable difficulty."
	}

	return &models.NextQuestionResponse{
		Completed: true,
		Summary: &models.AttemptSummary{
			AttemptID:        attempt.ID,
			CorrectCount:     attempt.CorrectCount,
			TotalAnswered:    attempt.TotalAnswered,
			AccuracyPercent:  attempt.AccuracyPercent(),
			CompletionReason: reason,
			Message:          message,
		},
	}
}

// SubmitAnswer grades one answer against the quiz's embedded snapshot, logs
// it, and moves the live difficulty per the quiz's progression strategy.
// Replays and answers for foreign questions are rejected before any write.
func (s *AttemptService) SubmitAnswer(ctx context.Context, attemptID string, questionID int, answer string) (result0 *models.SubmitAnswerResponse, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "submit_answer",
		observability.AttributeAttemptID(attemptID),
		observability.AttributeQuestionID(questionID),
	)
	defer observability.FinishSpan(span, &err)

	attempt, err := s.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Completed {
		return nil, contextutils.ErrAttemptCompleted
	}

	quiz, err := s.quizzes.GetQuizByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	snapshot := quiz.QuestionByID(questionID)
	if snapshot == nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrQuestionNotInQuiz, "question %d is not part of quiz %d", questionID, quiz.ID)
	}
	if attempt.HasAnswered(questionID) {
		return nil, contextutils.ErrQuestionAlreadyAnswered
	}

	isCorrect := AnswersMatch(snapshot.Answer, answer)

	logged := models.AttemptAnswer{
		AttemptID:        attemptID,
		QuestionID:       questionID,
		Answer:           answer,
		IsCorrect:        isCorrect,
		DifficultyAtTime: attempt.CurrentDifficulty,
		Topic:            snapshot.Topic,
		AnsweredAt:       time.Now().UTC(),
	}
	history := append(attempt.Answers, logged)

	strategy := StrategyForName(quiz.Adaptive.ProgressionStrategy)
	newDifficulty := strategy.NextDifficulty(attempt.CurrentDifficulty, isCorrect, history)

	newCorrect := attempt.CorrectCount
	if isCorrect {
		newCorrect++
	}
	newTotal := attempt.TotalAnswered + 1

	if err = s.persistAnswer(ctx, &logged, newCorrect, newTotal, newDifficulty); err != nil {
		return nil, err
	}

	return &models.SubmitAnswerResponse{
		IsCorrect:     isCorrect,
		CorrectAnswer: snapshot.Answer,
		NewDifficulty: newDifficulty,
		CorrectCount:  newCorrect,
		TotalAnswered: newTotal,
	}, nil
}

// persistAnswer writes the answer and the updated counters atomically. The
// unique constraint on (attempt_id, question_id) turns a concurrent replay
// into a state conflict instead of a double count.
func (s *AttemptService) persistAnswer(ctx context.Context, answer *models.AttemptAnswer, correctCount, totalAnswered, difficulty int) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseTransaction, fmt.Sprintf("failed to begin transaction: %v", err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn(ctx, "Failed to rollback answer transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO attempt_answers (attempt_id, question_id, answer, is_correct, difficulty_at_time, topic, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		answer.AttemptID, answer.QuestionID, answer.Answer, answer.IsCorrect,
		answer.DifficultyAtTime, answer.Topic, answer.AnsweredAt,
	).Scan(&answer.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			err = contextutils.ErrQuestionAlreadyAnswered
			return err
		}
		return contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to insert answer: %v", err))
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE attempts SET correct_count = $2, total_answered = $3, current_difficulty = $4
		WHERE id = $1 AND NOT completed`,
		answer.AttemptID, correctCount, totalAnswered, difficulty)
	if err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to update attempt: %v", err))
	}
	affected, err := rowsAffected(result, "attempt update")
	if err != nil {
		return err
	}
	if affected == 0 {
		err = contextutils.ErrAttemptCompleted
		return err
	}

	if err = tx.Commit(); err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseTransaction, fmt.Sprintf("failed to commit answer: %v", err))
	}
	return nil
}

// GetResults projects an attempt into its results view. Works for completed
// and in-progress attempts alike; the projection is read-only.
func (s *AttemptService) GetResults(ctx context.Context, attemptID string) (result0 *models.AttemptResults, err error) {
	ctx, span := observability.TraceAttemptFunction(ctx, "get_results",
		observability.AttributeAttemptID(attemptID),
	)
	defer observability.FinishSpan(span, &err)

	attempt, err := s.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	trace := make([]models.DifficultyTraceEntry, 0, len(attempt.Answers))
	for _, a := range attempt.Answers {
		trace = append(trace, models.DifficultyTraceEntry{
			QuestionID: a.QuestionID,
			Difficulty: a.DifficultyAtTime,
			IsCorrect:  a.IsCorrect,
		})
	}

	return &models.AttemptResults{
		AttemptID:        attempt.ID,
		UserID:           attempt.UserID,
		QuizID:           attempt.QuizID,
		Completed:        attempt.Completed,
		CompletionReason: attempt.CompletionReason,
		CorrectCount:     attempt.CorrectCount,
		TotalAnswered:    attempt.TotalAnswered,
		AccuracyPercent:  attempt.AccuracyPercent(),
		Answers:          attempt.Answers,
		DifficultyTrace:  trace,
		StartedAt:        attempt.StartedAt,
		CompletedAt:      attempt.CompletedAt,
	}, nil
}
