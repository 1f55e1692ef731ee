package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"adaptivequiz/internal/config"
	"adaptivequiz/internal/models"
	"adaptivequiz/internal/observability"
	contextutils "adaptivequiz/internal/utils"

	"github.com/google/uuid"
)

// QuizServiceInterface defines the interface for quiz generation and lookup.
// This allows for easier mocking in tests.
type QuizServiceInterface interface {
	GenerateQuiz(ctx context.Context, req *models.GenerateQuizRequest) (*models.Quiz, error)
	GetQuizByID(ctx context.Context, id int) (*models.Quiz, error)
	GetQuizzesByLevel(ctx context.Context, quizLevel string, limit int) ([]*models.Quiz, error)
}

// QuizService assembles quizzes from the question bank and persists them as
// immutable artifacts with embedded snapshots.
type QuizService struct {
	db        *sql.DB
	questions QuestionServiceInterface
	cfg       *config.Config
	logger    *observability.Logger

	// rng drives curation walks and weighted selection. Guarded because
	// math/rand sources are not safe for concurrent use.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewQuizService creates a quiz service with a time-seeded RNG
func NewQuizService(db *sql.DB, questions QuestionServiceInterface, cfg *config.Config, logger *observability.Logger) *QuizService {
	return NewQuizServiceWithRand(db, questions, cfg, logger, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewQuizServiceWithRand creates a quiz service with a caller-supplied RNG,
// so generation can be made deterministic in tests.
func NewQuizServiceWithRand(db *sql.DB, questions QuestionServiceInterface, cfg *config.Config, logger *observability.Logger, rng *rand.Rand) *QuizService {
	return &QuizService{
		db:        db,
		questions: questions,
		cfg:       cfg,
		logger:    logger,
		rng:       rng,
	}
}

// GenerateQuiz builds and persists a quiz for the request's filters: load the
// eligible pool, verify it clears the minimum size, assemble the snapshots,
// and store the artifact. The pool check happens before any selection so a
// failed generation never touches usage stats.
func (s *QuizService) GenerateQuiz(ctx context.Context, req *models.GenerateQuizRequest) (result0 *models.Quiz, err error) {
	ctx, span := observability.TraceAssemblerFunction(ctx, "generate_quiz",
		observability.AttributeQuizLevel(req.QuizLevel),
	)
	defer observability.FinishSpan(span, &err)

	pool, err := s.questions.GetEligiblePool(ctx, req.QuizLevel, req.Grade, req.Subject)
	if err != nil {
		return nil, err
	}

	minPool := s.cfg.Engine.MinimumPoolSizeOrDefault()
	if len(pool) < minPool {
		return nil, contextutils.WrapErrorf(contextutils.ErrInsufficientQuestions,
			"%d/%d eligible questions for level %q", len(pool), minPool, req.QuizLevel)
	}
	span.SetAttributes(observability.AttributePoolSize(len(pool)))

	now := time.Now().UTC()
	snapshots, err := s.assembleSnapshots(ctx, pool, now)
	if err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		Title:     quizTitle(req, now),
		QuizLevel: req.QuizLevel,
		Adaptive: models.AdaptiveConfig{
			TargetCorrectAnswers: s.cfg.Engine.TargetCorrectAnswersOrDefault(),
			ProgressionStrategy:  s.cfg.Engine.ProgressionStrategyOrDefault(),
			StartingDifficulty:   s.cfg.Engine.StartingDifficultyOrDefault(),
		},
		Questions:      snapshots,
		GenerationHash: generationHash(req, now),
		TriggerReason:  req.TriggerReason,
		AutoGenerated:  req.AutoGenerated,
	}

	if err := s.saveQuiz(ctx, quiz); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Generated quiz", map[string]interface{}{
		"quiz_id":         quiz.ID,
		"quiz_level":      quiz.QuizLevel,
		"question_count":  len(quiz.Questions),
		"pool_size":       len(pool),
		"generation_hash": quiz.GenerationHash,
	})
	return quiz, nil
}

// assembleSnapshots runs the slot loop: simulate the curation difficulty
// walk, fill each slot by weighted draw from the shrinking pool, persist
// usage per selection, then shuffle and renumber. Selection is without
// replacement, so a question appears at most once per quiz.
func (s *QuizService) assembleSnapshots(ctx context.Context, pool []*models.Question, now time.Time) ([]models.QuizQuestion, error) {
	count := s.cfg.Engine.QuestionCountOrDefault()
	horizon := s.cfg.Engine.FreshnessHorizonOrDefault()

	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	// The curation walk always climbs from the bottom; the attempt's
	// configured starting difficulty only applies at answer time.
	sequence := CurationSequence(count, config.MinDifficulty, s.rng)

	remaining := make([]*models.Question, len(pool))
	copy(remaining, pool)

	snapshots := make([]models.QuizQuestion, 0, count)
	for slot, target := range sequence {
		candidates := slotCandidates(remaining, target)
		if len(candidates) == 0 {
			return nil, contextutils.WrapErrorf(contextutils.ErrPoolExhausted,
				"no candidates left at slot %d (target difficulty %d)", slot+1, target)
		}

		weights := PoolWeights(candidates, now, horizon)
		picked := candidates[WeightedSelect(weights, s.rng)]

		remaining = removeQuestion(remaining, picked.ID)
		if err := s.questions.MarkQuestionUsed(ctx, picked.ID, now); err != nil {
			return nil, err
		}

		snapshots = append(snapshots, models.QuizQuestion{
			QuestionID:         picked.ID,
			Text:               picked.Text,
			Choices:            append([]string(nil), picked.Choices...),
			Answer:             picked.Answer,
			Difficulty:         picked.Difficulty,
			Topic:              picked.Topic,
			Position:           slot + 1,
			CurationDifficulty: target,
		})
	}

	// The curation walk shaped the mix; the presented order is random.
	s.rng.Shuffle(len(snapshots), func(i, j int) {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	})
	for i := range snapshots {
		snapshots[i].Position = i + 1
	}
	return snapshots, nil
}

// slotCandidates returns the questions eligible for a slot: exact target
// difficulty first, widening to one step either side, then anything left.
func slotCandidates(remaining []*models.Question, target int) []*models.Question {
	exact := filterByDifficulty(remaining, target, target)
	if len(exact) > 0 {
		return exact
	}

	adjacent := filterByDifficulty(remaining, target-1, target+1)
	if len(adjacent) > 0 {
		return adjacent
	}

	return remaining
}

func filterByDifficulty(pool []*models.Question, low, high int) []*models.Question {
	var out []*models.Question
	for _, q := range pool {
		if q.Difficulty >= low && q.Difficulty <= high {
			out = append(out, q)
		}
	}
	return out
}

func removeQuestion(pool []*models.Question, id int) []*models.Question {
	for i, q := range pool {
		if q.ID == id {
			return append(pool[:i], pool[i+1:]...)
		}
	}
	return pool
}

// generationHash derives a short identifier for a generated quiz. The UUID
// component guarantees uniqueness even for identical requests in the same
// nanosecond.
func generationHash(req *models.GenerateQuizRequest, now time.Time) string {
	studentID := 0
	if req.StudentID != nil {
		studentID = *req.StudentID
	}
	seed := fmt.Sprintf("%s|%s|%s|%d|%d|%s",
		req.QuizLevel, req.Grade, req.Subject, studentID, now.UnixNano(), uuid.NewString())
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:12]
}

func quizTitle(req *models.GenerateQuizRequest, now time.Time) string {
	return fmt.Sprintf("%s quiz %s", req.QuizLevel, now.Format("2006-01-02"))
}

// saveQuiz persists the quiz and its snapshots in one transaction
func (s *QuizService) saveQuiz(ctx context.Context, quiz *models.Quiz) (err error) {
	ctx, span := observability.TraceAssemblerFunction(ctx, "save_quiz")
	defer observability.FinishSpan(span, &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseTransaction, fmt.Sprintf("failed to begin transaction: %v", err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn(ctx, "Failed to rollback quiz transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO quizzes (title, quiz_level, target_correct_answers, progression_strategy, starting_difficulty, generation_hash, trigger_reason, auto_generated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		quiz.Title, quiz.QuizLevel,
		quiz.Adaptive.TargetCorrectAnswers, quiz.Adaptive.ProgressionStrategy, quiz.Adaptive.StartingDifficulty,
		quiz.GenerationHash, quiz.TriggerReason, quiz.AutoGenerated,
	).Scan(&quiz.ID, &quiz.CreatedAt)
	if err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to insert quiz: %v", err))
	}

	for i := range quiz.Questions {
		snapshot := &quiz.Questions[i]
		snapshot.QuizID = quiz.ID

		choicesJSON, marshalErr := json.Marshal(snapshot.Choices)
		if marshalErr != nil {
			err = contextutils.WrapError(marshalErr, "failed to marshal snapshot choices")
			return err
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO quiz_questions (quiz_id, question_id, text, choices, answer, difficulty, topic, position, curation_difficulty)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			snapshot.QuizID, snapshot.QuestionID, snapshot.Text, string(choicesJSON),
			snapshot.Answer, snapshot.Difficulty, snapshot.Topic, snapshot.Position, snapshot.CurationDifficulty,
		).Scan(&snapshot.ID)
		if err != nil {
			return contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to insert quiz question %d: %v", snapshot.QuestionID, err))
		}
	}

	if err = tx.Commit(); err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseTransaction, fmt.Sprintf("failed to commit quiz: %v", err))
	}
	return nil
}

// GetQuizByID loads a quiz with its embedded snapshots
func (s *QuizService) GetQuizByID(ctx context.Context, id int) (result0 *models.Quiz, err error) {
	ctx, span := observability.TraceAssemblerFunction(ctx, "get_quiz_by_id",
		observability.AttributeQuizID(id),
	)
	defer observability.FinishSpan(span, &err)

	quiz := &models.Quiz{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, title, quiz_level, target_correct_answers, progression_strategy, starting_difficulty, generation_hash, trigger_reason, auto_generated, created_at
		FROM quizzes WHERE id = $1`, id,
	).Scan(
		&quiz.ID, &quiz.Title, &quiz.QuizLevel,
		&quiz.Adaptive.TargetCorrectAnswers, &quiz.Adaptive.ProgressionStrategy, &quiz.Adaptive.StartingDifficulty,
		&quiz.GenerationHash, &quiz.TriggerReason, &quiz.AutoGenerated, &quiz.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.ErrQuizNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to load quiz %d: %v", id, err))
	}

	quiz.Questions, err = s.loadQuizQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) loadQuizQuestions(ctx context.Context, quizID int) (result0 []models.QuizQuestion, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, quiz_id, question_id, text, choices, answer, difficulty, topic, position, curation_difficulty
		FROM quiz_questions WHERE quiz_id = $1 ORDER BY position`, quizID)
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to query quiz questions: %v", err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var snapshots []models.QuizQuestion
	for rows.Next() {
		var snapshot models.QuizQuestion
		var choicesJSON string
		if err := rows.Scan(
			&snapshot.ID, &snapshot.QuizID, &snapshot.QuestionID,
			&snapshot.Text, &choicesJSON, &snapshot.Answer,
			&snapshot.Difficulty, &snapshot.Topic, &snapshot.Position, &snapshot.CurationDifficulty,
		); err != nil {
			return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to scan quiz question row: %v", err))
		}
		if err := json.Unmarshal([]byte(choicesJSON), &snapshot.Choices); err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to unmarshal snapshot choices for question %d", snapshot.QuestionID)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to iterate quiz question rows: %v", err))
	}
	return snapshots, nil
}

// GetQuizzesByLevel lists recent quizzes for a level, newest first, without
// their snapshots.
func (s *QuizService) GetQuizzesByLevel(ctx context.Context, quizLevel string, limit int) (result0 []*models.Quiz, err error) {
	ctx, span := observability.TraceAssemblerFunction(ctx, "get_quizzes_by_level",
		observability.AttributeQuizLevel(quizLevel),
	)
	defer observability.FinishSpan(span, &err)

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, quiz_level, target_correct_answers, progression_strategy, starting_difficulty, generation_hash, trigger_reason, auto_generated, created_at
		FROM quizzes WHERE quiz_level = $1 ORDER BY created_at DESC LIMIT $2`, quizLevel, limit)
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to query quizzes: %v", err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var quizzes []*models.Quiz
	for rows.Next() {
		quiz := &models.Quiz{}
		if err := rows.Scan(
			&quiz.ID, &quiz.Title, &quiz.QuizLevel,
			&quiz.Adaptive.TargetCorrectAnswers, &quiz.Adaptive.ProgressionStrategy, &quiz.Adaptive.StartingDifficulty,
			&quiz.GenerationHash, &quiz.TriggerReason, &quiz.AutoGenerated, &quiz.CreatedAt,
		); err != nil {
			return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to scan quiz row: %v", err))
		}
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to iterate quiz rows: %v", err))
	}
	return quizzes, nil
}
