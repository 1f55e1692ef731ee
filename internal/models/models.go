// Package models defines data structures used throughout the adaptive quiz engine.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Question represents a question bank record. Questions are created and
// edited by an external admin flow; the assembler mutates only usage_count
// and last_used_at when it selects a question into a quiz.
type Question struct {
	ID         int          `json:"id" yaml:"id"`
	Text       string       `json:"text" yaml:"text"`
	Choices    []string     `json:"choices" yaml:"choices"`
	Answer     string       `json:"answer" yaml:"answer"`
	Difficulty int          `json:"difficulty" yaml:"difficulty"`
	Topic      string       `json:"topic" yaml:"topic"`
	Subject    string       `json:"subject" yaml:"subject"`
	Grade      string       `json:"grade" yaml:"grade"`
	QuizLevel  string       `json:"quiz_level" yaml:"quiz_level"`
	IsActive   bool         `json:"is_active" yaml:"is_active"`
	UsageCount int          `json:"usage_count" yaml:"usage_count"`
	LastUsedAt sql.NullTime `json:"last_used_at" yaml:"last_used_at"`
	CreatedAt  time.Time    `json:"created_at" yaml:"created_at"`
}

// MarshalJSON customizes JSON marshaling for Question to handle sql.NullTime properly
func (q Question) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID         int        `json:"id"`
		Text       string     `json:"text"`
		Choices    []string   `json:"choices"`
		Answer     string     `json:"answer"`
		Difficulty int        `json:"difficulty"`
		Topic      string     `json:"topic"`
		Subject    string     `json:"subject"`
		Grade      string     `json:"grade"`
		QuizLevel  string     `json:"quiz_level"`
		IsActive   bool       `json:"is_active"`
		UsageCount int        `json:"usage_count"`
		LastUsedAt *time.Time `json:"last_used_at"`
		CreatedAt  time.Time  `json:"created_at"`
	}{
		ID:         q.ID,
		Text:       q.Text,
		Choices:    q.Choices,
		Answer:     q.Answer,
		Difficulty: q.Difficulty,
		Topic:      q.Topic,
		Subject:    q.Subject,
		Grade:      q.Grade,
		QuizLevel:  q.QuizLevel,
		IsActive:   q.IsActive,
		UsageCount: q.UsageCount,
		LastUsedAt: nullTimeToPointer(q.LastUsedAt),
		CreatedAt:  q.CreatedAt,
	})
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// MarshalChoicesToJSON serializes the choice list for storage
func (q *Question) MarshalChoicesToJSON() (result0 string, err error) {
	data, err := json.Marshal(q.Choices)
	return string(data), err
}

// UnmarshalChoicesFromJSON deserializes a stored JSON choice list
func (q *Question) UnmarshalChoicesFromJSON(data string) error {
	return json.Unmarshal([]byte(data), &q.Choices)
}

// AdaptiveConfig controls the runtime behavior of attempts on a quiz
type AdaptiveConfig struct {
	TargetCorrectAnswers int    `json:"target_correct_answers" yaml:"target_correct_answers"`
	ProgressionStrategy  string `json:"progression_strategy" yaml:"progression_strategy"`
	StartingDifficulty   int    `json:"starting_difficulty" yaml:"starting_difficulty"`
}

// Progression strategy names accepted in AdaptiveConfig
const (
	// StrategyImmediate moves difficulty one step after every answer
	StrategyImmediate = "immediate"
	// StrategyGradual moves difficulty based on the last three answers
	StrategyGradual = "gradual"
	// StrategyMLBased steps difficulty toward a target derived from overall accuracy
	StrategyMLBased = "ml_based"
)

// QuizQuestion is an immutable snapshot of a bank question embedded into a
// quiz at generation time. Snapshots are value copies, never live
// references, so an attempt grades against the text and answer the student
// actually saw even if the bank question is later edited or deactivated.
type QuizQuestion struct {
	ID         int      `json:"id" yaml:"id"`
	QuizID     int      `json:"quiz_id" yaml:"quiz_id"`
	QuestionID int      `json:"question_id" yaml:"question_id"`
	Text       string   `json:"text" yaml:"text"`
	Choices    []string `json:"choices" yaml:"choices"`
	Answer     string   `json:"answer" yaml:"answer"`
	Difficulty int      `json:"difficulty" yaml:"difficulty"`
	Topic      string   `json:"topic" yaml:"topic"`
	Position   int      `json:"position" yaml:"position"`
	// CurationDifficulty is the slot target of the assembler's pre-simulated
	// sequence, kept for traceability. It is unrelated to the live adaptive
	// difficulty an attempt runs at.
	CurationDifficulty int `json:"starting_difficulty" yaml:"starting_difficulty"`
}

// Quiz is a generated, immutable artifact: an ordered set of embedded
// question snapshots plus the adaptive config attempts run under.
// Launch/availability state is owned by an external authorization concern.
type Quiz struct {
	ID             int            `json:"id" yaml:"id"`
	Title          string         `json:"title" yaml:"title"`
	QuizLevel      string         `json:"quiz_level" yaml:"quiz_level"`
	Adaptive       AdaptiveConfig `json:"adaptive_config" yaml:"adaptive_config"`
	Questions      []QuizQuestion `json:"questions" yaml:"questions"`
	GenerationHash string         `json:"generation_hash" yaml:"generation_hash"`
	TriggerReason  string         `json:"trigger_reason" yaml:"trigger_reason"`
	AutoGenerated  bool           `json:"auto_generated" yaml:"auto_generated"`
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
}

// QuestionByID returns the embedded snapshot for a question id, or nil if
// the question is not part of this quiz.
func (q *Quiz) QuestionByID(questionID int) *QuizQuestion {
	for i := range q.Questions {
		if q.Questions[i].QuestionID == questionID {
			return &q.Questions[i]
		}
	}
	return nil
}

// GenerateQuizRequest is the contract for quiz generation. StudentID is
// optional; the scheduler passes it when generating on behalf of a student.
type GenerateQuizRequest struct {
	QuizLevel     string `json:"quiz_level" binding:"required,notblank"`
	Grade         string `json:"grade,omitempty"`
	Subject       string `json:"subject,omitempty"`
	StudentID     *int   `json:"student_id,omitempty"`
	TriggerReason string `json:"trigger_reason,omitempty"`
	AutoGenerated bool   `json:"auto_generated,omitempty"`
}

// StartAttemptRequest starts an attempt for a user on a quiz
type StartAttemptRequest struct {
	UserID int `json:"user_id" binding:"required"`
	QuizID int `json:"quiz_id" binding:"required"`
}

// SubmitAnswerRequest is a user's answer submission for an attempt
type SubmitAnswerRequest struct {
	QuestionID int    `json:"question_id" binding:"required"`
	Answer     string `json:"answer"`
}

// SubmitAnswerResponse reports grading and the updated adaptive state
type SubmitAnswerResponse struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	NewDifficulty int    `json:"new_difficulty"`
	CorrectCount  int    `json:"correct_count"`
	TotalAnswered int    `json:"total_answered"`
}

// AttemptQuestion is the client-facing projection of an embedded snapshot.
// The stored answer is deliberately omitted.
type AttemptQuestion struct {
	QuestionID int      `json:"id"`
	Text       string   `json:"text"`
	Choices    []string `json:"choices"`
	Difficulty int      `json:"difficulty"`
}

// NextQuestionResponse either carries the next question or a completion summary
type NextQuestionResponse struct {
	Completed bool             `json:"completed"`
	Question  *AttemptQuestion `json:"question,omitempty"`
	Summary   *AttemptSummary  `json:"summary,omitempty"`
}
