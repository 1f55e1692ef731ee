package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"adaptivequiz/internal/models"
	"adaptivequiz/internal/observability"
	contextutils "adaptivequiz/internal/utils"

	"go.opentelemetry.io/otel/codes"
)

// QuestionServiceInterface defines the interface for question bank operations.
// This allows for easier mocking in tests.
type QuestionServiceInterface interface {
	SaveQuestion(ctx context.Context, question *models.Question) error
	GetQuestionByID(ctx context.Context, id int) (*models.Question, error)
	GetEligiblePool(ctx context.Context, quizLevel, grade, subject string) ([]*models.Question, error)
	CountEligibleQuestions(ctx context.Context, quizLevel, grade, subject string) (int, error)
	MarkQuestionUsed(ctx context.Context, questionID int, usedAt time.Time) error
	SetQuestionActive(ctx context.Context, questionID int, active bool) error
	DB() *sql.DB
}

// QuestionService provides raw-SQL access to the question bank.
type QuestionService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewQuestionService creates a new question service
func NewQuestionService(db *sql.DB, logger *observability.Logger) *QuestionService {
	return &QuestionService{db: db, logger: logger}
}

// questionSelectFields contains all question fields for SELECT queries
const questionSelectFields = `id, text, choices, answer, difficulty, topic, subject, grade, quiz_level, is_active, usage_count, last_used_at, created_at`

// scanQuestion scans one row into a models.Question. Works for both *sql.Row
// and *sql.Rows via the scanner interface.
func scanQuestion(row interface{ Scan(dest ...interface{}) error }) (result0 *models.Question, err error) {
	question := &models.Question{}
	var choicesJSON string

	err = row.Scan(
		&question.ID,
		&question.Text,
		&choicesJSON,
		&question.Answer,
		&question.Difficulty,
		&question.Topic,
		&question.Subject,
		&question.Grade,
		&question.QuizLevel,
		&question.IsActive,
		&question.UsageCount,
		&question.LastUsedAt,
		&question.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := question.UnmarshalChoicesFromJSON(choicesJSON); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to unmarshal choices for question %d", question.ID)
	}

	return question, nil
}

// SaveQuestion inserts a new question, or updates it when the ID is set.
func (s *QuestionService) SaveQuestion(ctx context.Context, question *models.Question) (err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "save_question",
		observability.AttributeDifficulty(question.Difficulty),
	)
	defer observability.FinishSpan(span, &err)

	choicesJSON, err := question.MarshalChoicesToJSON()
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal question choices")
	}

	if question.ID == 0 {
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO questions (text, choices, answer, difficulty, topic, subject, grade, quiz_level, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at`,
			question.Text, choicesJSON, question.Answer, question.Difficulty,
			question.Topic, question.Subject, question.Grade, question.QuizLevel, question.IsActive,
		).Scan(&question.ID, &question.CreatedAt)
		if err != nil {
			return contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to insert question: %v", err))
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE questions
		SET text = $2, choices = $3, answer = $4, difficulty = $5, topic = $6,
		    subject = $7, grade = $8, quiz_level = $9, is_active = $10
		WHERE id = $1`,
		question.ID, question.Text, choicesJSON, question.Answer, question.Difficulty,
		question.Topic, question.Subject, question.Grade, question.QuizLevel, question.IsActive,
	)
	if err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to update question %d: %v", question.ID, err))
	}
	return nil
}

// GetQuestionByID returns a single bank question by its ID
func (s *QuestionService) GetQuestionByID(ctx context.Context, id int) (result0 *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "get_question_by_id",
		observability.AttributeQuestionID(id),
	)
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+questionSelectFields+` FROM questions WHERE id = $1`, id)

	question, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.ErrQuestionNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to load question %d: %v", id, err))
	}
	return question, nil
}

// eligibleWhereClause builds the WHERE clause and args for eligibility
// queries. Grade and subject are optional narrowing filters; quiz level is
// always required.
func eligibleWhereClause(quizLevel, grade, subject string) (string, []interface{}) {
	where := `WHERE is_active = TRUE AND quiz_level = $1`
	args := []interface{}{quizLevel}

	if grade != "" {
		args = append(args, grade)
		where += ` AND grade = $` + strconv.Itoa(len(args))
	}
	if subject != "" {
		args = append(args, subject)
		where += ` AND subject = $` + strconv.Itoa(len(args))
	}
	return where, args
}

// GetEligiblePool loads every active question matching the generation
// filters. The assembler needs the whole pool up front: weights depend on
// usage history and selection is without replacement.
func (s *QuestionService) GetEligiblePool(ctx context.Context, quizLevel, grade, subject string) (result0 []*models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "get_eligible_pool",
		observability.AttributeQuizLevel(quizLevel),
	)
	defer observability.FinishSpan(span, &err)

	where, args := eligibleWhereClause(quizLevel, grade, subject)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionSelectFields+` FROM questions `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to query eligible questions: %v", err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var pool []*models.Question
	for rows.Next() {
		question, scanErr := scanQuestion(rows)
		if scanErr != nil {
			return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to scan question row: %v", scanErr))
		}
		pool = append(pool, question)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to iterate question rows: %v", err))
	}

	span.SetAttributes(observability.AttributePoolSize(len(pool)))
	return pool, nil
}

// CountEligibleQuestions returns the eligible pool size without loading rows
func (s *QuestionService) CountEligibleQuestions(ctx context.Context, quizLevel, grade, subject string) (result0 int, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "count_eligible_questions",
		observability.AttributeQuizLevel(quizLevel),
	)
	defer observability.FinishSpan(span, &err)

	where, args := eligibleWhereClause(quizLevel, grade, subject)

	var count int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions `+where, args...).Scan(&count)
	if err != nil {
		return 0, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to count eligible questions: %v", err))
	}
	return count, nil
}

// MarkQuestionUsed bumps the usage counter and stamps the last-used time.
// Called once per selection, as selections happen, so that later slots in the
// same generation already see the updated stats.
func (s *QuestionService) MarkQuestionUsed(ctx context.Context, questionID int, usedAt time.Time) (err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "mark_question_used",
		observability.AttributeQuestionID(questionID),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx,
		`UPDATE questions SET usage_count = usage_count + 1, last_used_at = $2 WHERE id = $1`,
		questionID, usedAt)
	if err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to mark question %d used: %v", questionID, err))
	}

	affected, err := rowsAffected(result, "usage update")
	if err != nil {
		return err
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "question not found")
		return contextutils.ErrQuestionNotFound
	}
	return nil
}

// rowsAffected reads an update's affected-row count. The driver can fail
// this read independently of the update itself, so callers must not treat
// its error as a zero count.
func rowsAffected(result sql.Result, action string) (int64, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to read %s result: %v", action, err))
	}
	return affected, nil
}

// SetQuestionActive toggles a question's eligibility for future generations.
// Quizzes already generated keep their snapshots either way.
func (s *QuestionService) SetQuestionActive(ctx context.Context, questionID int, active bool) (err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "set_question_active",
		observability.AttributeQuestionID(questionID),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx,
		`UPDATE questions SET is_active = $2 WHERE id = $1`, questionID, active)
	if err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to update question %d: %v", questionID, err))
	}

	affected, err := rowsAffected(result, "activation update")
	if err != nil {
		return err
	}
	if affected == 0 {
		return contextutils.ErrQuestionNotFound
	}
	return nil
}

// DB exposes the underlying handle for services that share transactions
func (s *QuestionService) DB() *sql.DB {
	return s.db
}
