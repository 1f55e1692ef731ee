package models

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizQuestionByID(t *testing.T) {
	quiz := &Quiz{
		Questions: []QuizQuestion{
			{QuestionID: 10, Text: "first"},
			{QuestionID: 20, Text: "second"},
		},
	}

	found := quiz.QuestionByID(20)
	require.NotNil(t, found)
	assert.Equal(t, "second", found.Text)

	assert.Nil(t, quiz.QuestionByID(99))
}

func TestAttemptHasAnswered(t *testing.T) {
	attempt := &Attempt{
		Answers: []AttemptAnswer{{QuestionID: 5}, {QuestionID: 7}},
	}

	assert.True(t, attempt.HasAnswered(5))
	assert.False(t, attempt.HasAnswered(6))
}

func TestAttemptAccuracyPercent(t *testing.T) {
	assert.Equal(t, 0, (&Attempt{}).AccuracyPercent())
	assert.Equal(t, 71, (&Attempt{CorrectCount: 10, TotalAnswered: 14}).AccuracyPercent())
	assert.Equal(t, 100, (&Attempt{CorrectCount: 3, TotalAnswered: 3}).AccuracyPercent())
}

func TestQuestionMarshalJSON_NullLastUsed(t *testing.T) {
	q := Question{ID: 1, Text: "q"}

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"last_used_at":null`)

	q.LastUsedAt = sql.NullTime{Time: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Valid: true}
	data, err = json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"last_used_at":"2025-06-01T00:00:00Z"`)
}
