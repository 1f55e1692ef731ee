package handlers

import (
	"context"

	"adaptivequiz/internal/config"
	"adaptivequiz/internal/models"
	"adaptivequiz/internal/observability"
	contextutils "adaptivequiz/internal/utils"
)

// mockQuizService implements services.QuizServiceInterface for handler tests
type mockQuizService struct {
	quizzes     map[int]*models.Quiz
	generateErr error
}

func (m *mockQuizService) GenerateQuiz(_ context.Context, req *models.GenerateQuizRequest) (*models.Quiz, error) {
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return &models.Quiz{ID: 1, QuizLevel: req.QuizLevel, GenerationHash: "abcdef123456"}, nil
}

func (m *mockQuizService) GetQuizByID(_ context.Context, id int) (*models.Quiz, error) {
	quiz, ok := m.quizzes[id]
	if !ok {
		return nil, contextutils.ErrQuizNotFound
	}
	return quiz, nil
}

func (m *mockQuizService) GetQuizzesByLevel(_ context.Context, quizLevel string, _ int) ([]*models.Quiz, error) {
	var out []*models.Quiz
	for _, quiz := range m.quizzes {
		if quiz.QuizLevel == quizLevel {
			out = append(out, quiz)
		}
	}
	return out, nil
}

// mockAttemptService implements services.AttemptServiceInterface for handler tests
type mockAttemptService struct {
	startCalls   int
	lastAvail    bool
	attempt      *models.Attempt
	nextResponse *models.NextQuestionResponse
	submitErr    error
}

func (m *mockAttemptService) StartAttempt(_ context.Context, userID, quizID int, available bool) (*models.Attempt, error) {
	m.startCalls++
	m.lastAvail = available
	if !available {
		return nil, contextutils.ErrQuizNotAvailable
	}
	return &models.Attempt{ID: "11111111-2222-3333-4444-555555555555", UserID: userID, QuizID: quizID, CurrentDifficulty: 1}, nil
}

func (m *mockAttemptService) GetAttemptByID(_ context.Context, _ string) (*models.Attempt, error) {
	if m.attempt == nil {
		return nil, contextutils.ErrAttemptNotFound
	}
	return m.attempt, nil
}

func (m *mockAttemptService) NextQuestion(_ context.Context, _ string) (*models.NextQuestionResponse, error) {
	if m.nextResponse == nil {
		return nil, contextutils.ErrAttemptNotFound
	}
	return m.nextResponse, nil
}

func (m *mockAttemptService) SubmitAnswer(_ context.Context, _ string, _ int, _ string) (*models.SubmitAnswerResponse, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &models.SubmitAnswerResponse{IsCorrect: true, NewDifficulty: 2, CorrectCount: 1, TotalAnswered: 1}, nil
}

func (m *mockAttemptService) GetResults(_ context.Context, attemptID string) (*models.AttemptResults, error) {
	if m.attempt == nil {
		return nil, contextutils.ErrAttemptNotFound
	}
	return &models.AttemptResults{AttemptID: attemptID}, nil
}

// mockSkillService implements services.SkillServiceInterface for handler tests
type mockSkillService struct {
	skills []*models.TopicSkill
}

func (m *mockSkillService) RecordAttemptAnswers(_ context.Context, _ int, _ []models.SkillAnswer) error {
	return nil
}

func (m *mockSkillService) GetUserSkills(_ context.Context, _ int) ([]*models.TopicSkill, error) {
	return m.skills, nil
}

func testHandlerLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

func testRouterConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:        "8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
	}
}
