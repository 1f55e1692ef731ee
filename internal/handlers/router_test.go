package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"adaptivequiz/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(quiz *mockQuizService, attempt *mockAttemptService, skill *mockSkillService, availability AvailabilityChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(testRouterConfig(), quiz, attempt, skill, availability, testHandlerLogger())
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&mockQuizService{}, &mockAttemptService{}, &mockSkillService{}, nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"ok"`)
}

func TestGenerateQuiz_Created(t *testing.T) {
	router := newTestRouter(&mockQuizService{}, &mockAttemptService{}, &mockSkillService{}, nil)

	body := strings.NewReader(`{"quiz_level": "level-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/quizzes", body)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusCreated, recorder.Code)

	var quiz models.Quiz
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &quiz))
	assert.Equal(t, "level-1", quiz.QuizLevel)
}

func TestGenerateQuiz_MissingLevelRejected(t *testing.T) {
	router := newTestRouter(&mockQuizService{}, &mockAttemptService{}, &mockSkillService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/quizzes", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetQuiz_NotFound(t *testing.T) {
	router := newTestRouter(&mockQuizService{quizzes: map[int]*models.Quiz{}}, &mockAttemptService{}, &mockSkillService{}, nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/quizzes/42", nil))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestGetQuiz_InvalidIDRejected(t *testing.T) {
	router := newTestRouter(&mockQuizService{}, &mockAttemptService{}, &mockSkillService{}, nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/quizzes/abc", nil))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestStartAttempt_PassesAvailability(t *testing.T) {
	attempt := &mockAttemptService{}
	denyAll := func(_ context.Context, _, _ int) bool { return false }
	router := newTestRouter(&mockQuizService{}, attempt, &mockSkillService{}, denyAll)

	body := strings.NewReader(`{"user_id": 1, "quiz_id": 2}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/attempts", body)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Equal(t, 1, attempt.startCalls)
	assert.False(t, attempt.lastAvail)
}

func TestStartAttempt_Created(t *testing.T) {
	attempt := &mockAttemptService{}
	router := newTestRouter(&mockQuizService{}, attempt, &mockSkillService{}, nil)

	body := strings.NewReader(`{"user_id": 1, "quiz_id": 2}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/attempts", body)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.True(t, attempt.lastAvail)
}

func TestNextQuestion_InvalidAttemptIDRejected(t *testing.T) {
	router := newTestRouter(&mockQuizService{}, &mockAttemptService{}, &mockSkillService{}, nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/attempts/not-a-uuid/next", nil))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestNextQuestion_ServesQuestion(t *testing.T) {
	attempt := &mockAttemptService{
		nextResponse: &models.NextQuestionResponse{
			Question: &models.AttemptQuestion{QuestionID: 7, Text: "2+2?", Choices: []string{"3", "4"}, Difficulty: 1},
		},
	}
	router := newTestRouter(&mockQuizService{}, attempt, &mockSkillService{}, nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/attempts/11111111-2222-3333-4444-555555555555/next", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp models.NextQuestionResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.False(t, resp.Completed)
	require.NotNil(t, resp.Question)
	assert.Equal(t, 7, resp.Question.QuestionID)

	// The stored answer must never appear in the client payload
	assert.NotContains(t, recorder.Body.String(), `"answer"`)
}

func TestSubmitAnswer_Graded(t *testing.T) {
	router := newTestRouter(&mockQuizService{}, &mockAttemptService{}, &mockSkillService{}, nil)

	body := strings.NewReader(`{"question_id": 7, "answer": "4"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/attempts/11111111-2222-3333-4444-555555555555/answers", body)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp models.SubmitAnswerResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.True(t, resp.IsCorrect)
	assert.Equal(t, 2, resp.NewDifficulty)
}

func TestGetUserSkills(t *testing.T) {
	skill := &mockSkillService{skills: []*models.TopicSkill{{Topic: "algebra", Points: 30, Level: 1}}}
	router := newTestRouter(&mockQuizService{}, &mockAttemptService{}, skill, nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/users/1/skills", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"algebra"`)
	assert.Contains(t, recorder.Body.String(), `"count":1`)
}
