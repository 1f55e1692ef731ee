package handlers

import (
	"net/http"
	"strconv"

	"adaptivequiz/internal/config"
	"adaptivequiz/internal/models"
	"adaptivequiz/internal/observability"
	"adaptivequiz/internal/services"
	contextutils "adaptivequiz/internal/utils"

	"github.com/gin-gonic/gin"
)

// QuizHandler handles quiz generation and lookup HTTP requests
type QuizHandler struct {
	quizService services.QuizServiceInterface
	cfg         *config.Config
	logger      *observability.Logger
}

// NewQuizHandler creates a new QuizHandler
func NewQuizHandler(quizService services.QuizServiceInterface, cfg *config.Config, logger *observability.Logger) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		cfg:         cfg,
		logger:      logger,
	}
}

// GenerateQuiz handles POST requests to generate a new quiz
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "generate_quiz")
	defer observability.FinishSpan(span, nil)

	var req models.GenerateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid quiz generation request",
			err.Error(),
			err,
		))
		return
	}
	span.SetAttributes(observability.AttributeQuizLevel(req.QuizLevel))

	quiz, err := h.quizService.GenerateQuiz(ctx, &req)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// GetQuiz handles GET requests for a single quiz with its questions
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_quiz")
	defer observability.FinishSpan(span, nil)

	quizID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleValidationError(c, "quiz ID", c.Param("id"), "must be an integer")
		return
	}
	span.SetAttributes(observability.AttributeQuizID(quizID))

	quiz, err := h.quizService.GetQuizByID(ctx, quizID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// ListQuizzes handles GET requests listing recent quizzes for a level
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_quizzes")
	defer observability.FinishSpan(span, nil)

	quizLevel := c.Query("level")
	if quizLevel == "" {
		HandleValidationError(c, "level", quizLevel, "query parameter is required")
		return
	}
	span.SetAttributes(observability.AttributeQuizLevel(quizLevel))

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, parseErr := strconv.Atoi(limitStr)
		if parseErr != nil || parsed < 0 {
			HandleValidationError(c, "limit", limitStr, "must be a non-negative integer")
			return
		}
		limit = parsed
	}

	quizzes, err := h.quizService.GetQuizzesByLevel(ctx, quizLevel, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quizzes": quizzes, "count": len(quizzes)})
}
