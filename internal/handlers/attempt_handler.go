package handlers

import (
	"context"
	"net/http"
	"strconv"

	"adaptivequiz/internal/models"
	"adaptivequiz/internal/observability"
	"adaptivequiz/internal/services"
	contextutils "adaptivequiz/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AvailabilityChecker resolves whether a user may attempt a quiz. Launch and
// assignment policy live outside this service; the default checker allows
// everything and deployments plug in their own.
type AvailabilityChecker func(ctx context.Context, userID, quizID int) bool

// AllowAllAvailability treats every quiz as available to every user
func AllowAllAvailability(_ context.Context, _, _ int) bool { return true }

// AttemptHandler handles attempt lifecycle HTTP requests
type AttemptHandler struct {
	attemptService services.AttemptServiceInterface
	skillService   services.SkillServiceInterface
	availability   AvailabilityChecker
	logger         *observability.Logger
}

// NewAttemptHandler creates a new AttemptHandler
func NewAttemptHandler(attemptService services.AttemptServiceInterface, skillService services.SkillServiceInterface, availability AvailabilityChecker, logger *observability.Logger) *AttemptHandler {
	if availability == nil {
		availability = AllowAllAvailability
	}
	return &AttemptHandler{
		attemptService: attemptService,
		skillService:   skillService,
		availability:   availability,
		logger:         logger,
	}
}

// StartAttempt handles POST requests to start a new attempt
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "start_attempt")
	defer observability.FinishSpan(span, nil)

	var req models.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid start attempt request",
			err.Error(),
			err,
		))
		return
	}
	span.SetAttributes(
		observability.AttributeUserID(req.UserID),
		observability.AttributeQuizID(req.QuizID),
	)

	// Stamp the acting user onto the request context so error spans from
	// the tracing middleware carry it.
	ctx = contextutils.WithUserID(ctx, req.UserID)
	c.Request = c.Request.WithContext(ctx)

	available := h.availability(ctx, req.UserID, req.QuizID)
	attempt, err := h.attemptService.StartAttempt(ctx, req.UserID, req.QuizID, available)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// attemptIDFromPath validates the attempt ID path parameter
func attemptIDFromPath(c *gin.Context) (string, bool) {
	attemptID := c.Param("id")
	if _, err := uuid.Parse(attemptID); err != nil {
		HandleValidationError(c, "attempt ID", attemptID, "must be a valid UUID")
		return "", false
	}
	return attemptID, true
}

// NextQuestion handles GET requests for the next question of an attempt
func (h *AttemptHandler) NextQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "next_question")
	defer observability.FinishSpan(span, nil)

	attemptID, ok := attemptIDFromPath(c)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeAttemptID(attemptID))

	resp, err := h.attemptService.NextQuestion(ctx, attemptID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitAnswer handles POST requests submitting an answer for an attempt
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_answer")
	defer observability.FinishSpan(span, nil)

	attemptID, ok := attemptIDFromPath(c)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeAttemptID(attemptID))

	var req models.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid answer submission",
			err.Error(),
			err,
		))
		return
	}
	span.SetAttributes(observability.AttributeQuestionID(req.QuestionID))

	resp, err := h.attemptService.SubmitAnswer(ctx, attemptID, req.QuestionID, req.Answer)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetResults handles GET requests for an attempt's results projection
func (h *AttemptHandler) GetResults(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_results")
	defer observability.FinishSpan(span, nil)

	attemptID, ok := attemptIDFromPath(c)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeAttemptID(attemptID))

	results, err := h.attemptService.GetResults(ctx, attemptID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetUserSkills handles GET requests for a user's per-topic skills
func (h *AttemptHandler) GetUserSkills(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_user_skills")
	defer observability.FinishSpan(span, nil)

	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleValidationError(c, "user ID", c.Param("id"), "must be an integer")
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	ctx = contextutils.WithUserID(ctx, userID)
	c.Request = c.Request.WithContext(ctx)

	skills, err := h.skillService.GetUserSkills(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"skills": skills, "count": len(skills)})
}
