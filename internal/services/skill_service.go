package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"adaptivequiz/internal/models"
	"adaptivequiz/internal/observability"
	contextutils "adaptivequiz/internal/utils"
)

// SkillServiceInterface is the aggregation seam: the attempt state machine
// hands over the user and the completed attempt's answers and does not care
// how mastery is computed. Swapping the implementation must not touch the
// state machine.
type SkillServiceInterface interface {
	RecordAttemptAnswers(ctx context.Context, userID int, answers []models.SkillAnswer) error
	GetUserSkills(ctx context.Context, userID int) ([]*models.TopicSkill, error)
}

// Level thresholds: points at or above thresholds[i] put the user at level i.
var skillLevelThresholds = []float64{0, 25, 50, 100, 200, 400}

// SkillPointsDelta returns the points earned or lost for one answer.
// Correct answers pay out the difficulty itself; wrong answers cost more on
// easy questions than on hard ones, sliding from -2.5 at difficulty 1 to
// -0.5 at difficulty 5.
func SkillPointsDelta(difficulty int, isCorrect bool) float64 {
	if isCorrect {
		return float64(difficulty)
	}
	return -2.5 + float64(difficulty-1)*0.5
}

// SkillLevelForPoints maps a points total onto the discrete level ladder
func SkillLevelForPoints(points float64) int {
	level := 0
	for i, threshold := range skillLevelThresholds {
		if points >= threshold {
			level = i
		}
	}
	return level
}

// SkillService maintains per-topic mastery points and levels.
type SkillService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewSkillService creates a new skill service
func NewSkillService(db *sql.DB, logger *observability.Logger) *SkillService {
	return &SkillService{db: db, logger: logger}
}

// RecordAttemptAnswers folds a completed attempt's answers into the user's
// per-topic skills. Deltas are summed per topic first, then each topic row
// is updated once, floored at zero, and re-leveled.
func (s *SkillService) RecordAttemptAnswers(ctx context.Context, userID int, answers []models.SkillAnswer) (err error) {
	ctx, span := observability.TraceSkillFunction(ctx, "record_attempt_answers",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	deltas := make(map[string]float64)
	for _, a := range answers {
		if a.Topic == "" {
			continue
		}
		deltas[a.Topic] += SkillPointsDelta(a.Difficulty, a.IsCorrect)
	}
	if len(deltas) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseTransaction, fmt.Sprintf("failed to begin transaction: %v", err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn(ctx, "Failed to rollback skill transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	for topic, delta := range deltas {
		if err = s.applyTopicDelta(ctx, tx, userID, topic, delta); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseTransaction, fmt.Sprintf("failed to commit skill update: %v", err))
	}

	s.logger.Info(ctx, "Updated topic skills", map[string]interface{}{
		"user_id": userID,
		"topics":  len(deltas),
	})
	return nil
}

// applyTopicDelta locks the topic row, applies the delta with the zero
// floor, and recomputes the level from the new total.
func (s *SkillService) applyTopicDelta(ctx context.Context, tx *sql.Tx, userID int, topic string, delta float64) error {
	var points float64
	err := tx.QueryRowContext(ctx,
		`SELECT points FROM topic_skills WHERE user_id = $1 AND topic = $2 FOR UPDATE`,
		userID, topic).Scan(&points)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to load skill for topic %q: %v", topic, err))
	}

	points += delta
	if points < 0 {
		points = 0
	}
	level := SkillLevelForPoints(points)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO topic_skills (user_id, topic, points, level, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, topic)
		DO UPDATE SET points = EXCLUDED.points, level = EXCLUDED.level, updated_at = NOW()`,
		userID, topic, points, level)
	if err != nil {
		return contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to upsert skill for topic %q: %v", topic, err))
	}
	return nil
}

// GetUserSkills returns the user's per-topic skills, strongest first
func (s *SkillService) GetUserSkills(ctx context.Context, userID int) (result0 []*models.TopicSkill, err error) {
	ctx, span := observability.TraceSkillFunction(ctx, "get_user_skills",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, topic, points, level, updated_at
		FROM topic_skills WHERE user_id = $1 ORDER BY points DESC, topic`, userID)
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to query skills: %v", err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var skills []*models.TopicSkill
	for rows.Next() {
		skill := &models.TopicSkill{}
		if err := rows.Scan(&skill.ID, &skill.UserID, &skill.Topic, &skill.Points, &skill.Level, &skill.UpdatedAt); err != nil {
			return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to scan skill row: %v", err))
		}
		skills = append(skills, skill)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, fmt.Sprintf("failed to iterate skill rows: %v", err))
	}
	return skills, nil
}
