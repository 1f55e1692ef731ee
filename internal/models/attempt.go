package models

import (
	"math"
	"time"
)

// Completion reasons. Both paths land in the same terminal state; the
// reason field is what distinguishes them.
const (
	// CompletionReasonTargetReached means the attempt hit target_correct_answers
	CompletionReasonTargetReached = "target_reached"
	// CompletionReasonPoolExhausted means no unanswered question remained near the current difficulty
	CompletionReasonPoolExhausted = "pool_exhausted"
)

// AttemptAnswer is one entry in an attempt's ordered answer log
type AttemptAnswer struct {
	ID               int       `json:"id" yaml:"id"`
	AttemptID        string    `json:"attempt_id" yaml:"attempt_id"`
	QuestionID       int       `json:"question_id" yaml:"question_id"`
	Answer           string    `json:"answer" yaml:"answer"`
	IsCorrect        bool      `json:"is_correct" yaml:"is_correct"`
	DifficultyAtTime int       `json:"difficulty_at_time" yaml:"difficulty_at_time"`
	Topic            string    `json:"topic" yaml:"topic"`
	AnsweredAt       time.Time `json:"answered_at" yaml:"answered_at"`
}

// Attempt is one student's run through one quiz. The completion flag is
// monotonic: once set it never reverts to in-progress.
type Attempt struct {
	ID                string          `json:"id" yaml:"id"`
	UserID            int             `json:"user_id" yaml:"user_id"`
	QuizID            int             `json:"quiz_id" yaml:"quiz_id"`
	CurrentDifficulty int             `json:"current_difficulty" yaml:"current_difficulty"`
	CorrectCount      int             `json:"correct_count" yaml:"correct_count"`
	TotalAnswered     int             `json:"total_answered" yaml:"total_answered"`
	Answers           []AttemptAnswer `json:"answers" yaml:"answers"`
	Completed         bool            `json:"completed" yaml:"completed"`
	CompletionReason  string          `json:"completion_reason,omitempty" yaml:"completion_reason,omitempty"`
	StartedAt         time.Time       `json:"started_at" yaml:"started_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// HasAnswered reports whether the attempt already has an answer logged for
// the given question.
func (a *Attempt) HasAnswered(questionID int) bool {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			return true
		}
	}
	return false
}

// AccuracyPercent returns the rounded percentage of correct answers
func (a *Attempt) AccuracyPercent() int {
	if a.TotalAnswered == 0 {
		return 0
	}
	return int(math.Round(float64(a.CorrectCount) / float64(a.TotalAnswered) * 100))
}

// AttemptSummary is the completion payload returned by nextQuestion once an
// attempt is done.
type AttemptSummary struct {
	AttemptID        string `json:"attempt_id"`
	CorrectCount     int    `json:"correct_count"`
	TotalAnswered    int    `json:"total_answered"`
	AccuracyPercent  int    `json:"accuracy_percent"`
	CompletionReason string `json:"completion_reason"`
	Message          string `json:"message"`
}

// DifficultyTraceEntry records the live difficulty at the moment a question
// was answered, for the results projection.
type DifficultyTraceEntry struct {
	QuestionID int  `json:"question_id"`
	Difficulty int  `json:"difficulty"`
	IsCorrect  bool `json:"is_correct"`
}

// AttemptResults is the read-only projection of a (possibly in-progress)
// attempt: accuracy, the full answer timeline, and the difficulty trace.
type AttemptResults struct {
	AttemptID        string                 `json:"attempt_id"`
	UserID           int                    `json:"user_id"`
	QuizID           int                    `json:"quiz_id"`
	Completed        bool                   `json:"completed"`
	CompletionReason string                 `json:"completion_reason,omitempty"`
	CorrectCount     int                    `json:"correct_count"`
	TotalAnswered    int                    `json:"total_answered"`
	AccuracyPercent  int                    `json:"accuracy_percent"`
	Answers          []AttemptAnswer        `json:"answers"`
	DifficultyTrace  []DifficultyTraceEntry `json:"difficulty_trace"`
	StartedAt        time.Time              `json:"started_at"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
}
