package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizmatters/agent-builder/travel-planner/internal/auth"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
	"github.com/bizmatters/agent-builder/travel-planner/internal/orchestration"
)

const (
	tokenTTL       = 24 * time.Hour
	streamTokenTTL = 15 * time.Minute
)

// PlanService is the orchestration surface the HTTP layer depends on.
type PlanService interface {
	StartPlan(ctx context.Context, userID uuid.UUID, sessionID string, req models.TripRequest) (*models.Run, error)
	GetRun(ctx context.Context, userID, runID uuid.UUID) (*models.Run, error)
	Subscribe(ctx context.Context, userID, runID uuid.UUID) (<-chan models.StageEvent, error)
	Chat(ctx context.Context, userID uuid.UUID, sessionID, message string) (models.ChatTurn, error)
	Messages(ctx context.Context, userID uuid.UUID, sessionID string) ([]models.ChatTurn, error)
	SuggestDestinations(ctx context.Context, theme string) ([]string, error)
}

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	service    PlanService
	users      orchestration.UserStore
	jwtManager *auth.JWTManager
}

// NewHandler creates a new gateway handler
func NewHandler(service PlanService, users orchestration.UserStore, jwtManager *auth.JWTManager) *Handler {
	return &Handler{
		service:    service,
		users:      users,
		jwtManager: jwtManager,
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{Error: message, Code: code})
}

// currentUser returns the id set by auth.RequireAuth.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userIDVal, exists := c.Get(auth.ContextUserID)
	if !exists {
		respondError(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDVal.(string))
	if err != nil {
		respondError(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid user ID")
		return uuid.Nil, false
	}
	return userID, true
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid request")
		return
	}

	user, err := h.users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, orchestration.ErrUserNotFound) {
			log.Printf(`{"level":"error","message":"User lookup failed","error":%q}`, err)
		}
		log.Printf(`{"level":"warn","message":"User not found","email":"%s"}`, req.Email)
		respondError(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		log.Printf(`{"level":"warn","message":"Invalid password","email":"%s"}`, req.Email)
		respondError(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.jwtManager.GenerateToken(c.Request.Context(), user.ID, user.Email, []string{auth.RoleUser}, tokenTTL)
	if err != nil {
		respondError(c, http.StatusInternalServerError, models.ErrCodeInternalError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(tokenTTL).UTC(),
		User:      user.ToUserInfo(),
	})
}

// CreatePlanRequest is the body of POST /plans.
type CreatePlanRequest struct {
	SessionID    string   `json:"session_id"`
	Origin       string   `json:"origin"`
	Destination  string   `json:"destination" binding:"required"`
	Dates        string   `json:"dates" binding:"required"`
	BudgetAmount int      `json:"budget_amount" binding:"required,min=100"`
	Currency     string   `json:"currency" binding:"required,oneof=USD EUR GBP INR JPY"`
	Interests    []string `json:"interests"`
}

// TripRequest composes the planner input from the form fields.
func (r CreatePlanRequest) TripRequest() models.TripRequest {
	origin := strings.TrimSpace(r.Origin)
	if origin == "" {
		origin = models.DefaultOrigin
	}
	return models.TripRequest{
		Origin:      origin,
		Destination: r.Destination,
		Dates:       r.Dates,
		Budget:      models.FormatBudget(r.BudgetAmount, r.Currency),
		Interests:   r.Interests,
	}
}

// CreatePlanResponse identifies the started run. StreamToken opens
// /ws/plans/{run_id} and nothing else.
type CreatePlanResponse struct {
	RunID       string           `json:"run_id"`
	SessionID   string           `json:"session_id"`
	Status      models.RunStatus `json:"status"`
	Summary     string           `json:"summary"`
	StreamToken string           `json:"stream_token"`
}

// CreatePlan godoc
// @Summary Start a planning run
// @Description Start the plan, research, draft and validate loop for a trip. Progress is streamed on /ws/plans/{id}.
// @Tags plans
// @Accept json
// @Produce json
// @Param request body CreatePlanRequest true "Trip details"
// @Success 202 {object} CreatePlanResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /plans [post]
func (h *Handler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Code:    models.ErrCodeInvalidRequest,
			Details: map[string]string{"validation": err.Error()},
		})
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	trip := req.TripRequest()
	run, err := h.service.StartPlan(c.Request.Context(), userID, req.SessionID, trip)
	if errors.Is(err, orchestration.ErrSessionNotFound) {
		respondError(c, http.StatusNotFound, models.ErrCodeNotFound, "Session not found")
		return
	}
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to start plan","error":%q,"user_id":"%s"}`, err, userID)
		respondError(c, http.StatusInternalServerError, models.ErrCodeInternalError, "Failed to start plan")
		return
	}

	streamToken, err := h.jwtManager.GenerateStreamToken(c.Request.Context(), userID.String(), run.ID, streamTokenTTL)
	if err != nil {
		respondError(c, http.StatusInternalServerError, models.ErrCodeInternalError, "Failed to generate stream token")
		return
	}

	c.JSON(http.StatusAccepted, CreatePlanResponse{
		RunID:       run.ID.String(),
		SessionID:   run.SessionID,
		Status:      run.Status,
		Summary:     trip.Summary(),
		StreamToken: streamToken,
	})
}

// GetPlan godoc
// @Summary Get a planning run
// @Description Return the status, revision count and outcome of a run
// @Tags plans
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} models.Run
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /plans/{id} [get]
func (h *Handler) GetPlan(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid run ID")
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), userID, runID)
	if err != nil {
		if errors.Is(err, orchestration.ErrRunNotFound) {
			respondError(c, http.StatusNotFound, models.ErrCodeNotFound, "Run not found")
			return
		}
		log.Printf(`{"level":"error","message":"Failed to get run","error":%q,"run_id":"%s"}`, err, runID)
		respondError(c, http.StatusInternalServerError, models.ErrCodeInternalError, "Failed to get run")
		return
	}

	c.JSON(http.StatusOK, run)
}

// ChatRequest is one follow-up question.
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatResponse carries the assistant's answer.
type ChatResponse struct {
	Message models.ChatTurn `json:"message"`
}

// MessagesResponse is the chat history of a session.
type MessagesResponse struct {
	Messages []models.ChatTurn `json:"messages"`
}

// Chat godoc
// @Summary Ask a follow-up question
// @Description Answer a question about the session's accepted itinerary, searching the web when needed
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body ChatRequest true "Question"
// @Success 200 {object} ChatResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/chat [post]
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		respondError(c, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid request")
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	sessionID := c.Param("id")
	turn, err := h.service.Chat(c.Request.Context(), userID, sessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, orchestration.ErrSessionNotFound):
			respondError(c, http.StatusNotFound, models.ErrCodeNotFound, "Session not found")
		case errors.Is(err, orchestration.ErrNoItinerary):
			respondError(c, http.StatusConflict, models.ErrCodeConflict, "No accepted itinerary in this session yet")
		default:
			log.Printf(`{"level":"error","message":"Chat turn failed","error":%q,"session_id":"%s"}`, err, sessionID)
			respondError(c, http.StatusBadGateway, models.ErrCodeUpstreamUnavailable, "Assistant is unavailable")
		}
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Message: turn})
}

// Messages godoc
// @Summary List chat messages
// @Description Return the follow-up conversation of a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} MessagesResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/messages [get]
func (h *Handler) Messages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	turns, err := h.service.Messages(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, models.ErrCodeNotFound, "Session not found")
		return
	}
	if turns == nil {
		turns = []models.ChatTurn{}
	}

	c.JSON(http.StatusOK, MessagesResponse{Messages: turns})
}

// SuggestRequest is a free-text travel theme.
type SuggestRequest struct {
	Theme string `json:"theme" binding:"required"`
}

// SuggestResponse lists "City, Country" destinations.
type SuggestResponse struct {
	Destinations []string `json:"destinations"`
}

// SuggestDestinations godoc
// @Summary Suggest destinations
// @Description Suggest up to five destinations for a theme such as "cheap beach vacation in Asia"
// @Tags destinations
// @Accept json
// @Produce json
// @Param request body SuggestRequest true "Theme"
// @Success 200 {object} SuggestResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /destinations/suggest [post]
func (h *Handler) SuggestDestinations(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid request")
		return
	}

	destinations, err := h.service.SuggestDestinations(c.Request.Context(), req.Theme)
	if err != nil {
		log.Printf(`{"level":"error","message":"Destination suggestion failed","error":%q}`, err)
		respondError(c, http.StatusBadGateway, models.ErrCodeUpstreamUnavailable, "Assistant is unavailable")
		return
	}

	c.JSON(http.StatusOK, SuggestResponse{Destinations: destinations})
}
