package gateway

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/travel-planner/internal/auth"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
	"github.com/bizmatters/agent-builder/travel-planner/internal/orchestration"
)

const writeTimeout = 10 * time.Second

// PlanStream pushes a run's stage events to WebSocket clients.
type PlanStream struct {
	service    PlanService
	jwtManager *auth.JWTManager
	tracer     trace.Tracer
	upgrader   websocket.Upgrader
}

// NewPlanStream creates the WebSocket endpoint for run progress.
func NewPlanStream(service PlanService, jwtManager *auth.JWTManager) *PlanStream {
	return &PlanStream{
		service:    service,
		jwtManager: jwtManager,
		tracer:     otel.Tracer("plan-stream"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict to the configured front-end origin once one exists
				return true
			},
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// StreamPlan handles WebSocket /api/ws/plans/:id
// @Summary Stream planning progress
// @Description WebSocket endpoint that replays a run's stage events and streams the rest until the run ends
// @Tags plans
// @Param id path string true "Run ID"
// @Param token query string false "Stream token from POST /plans, or a login JWT"
// @Success 101 "Switching Protocols"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ws/plans/{id} [get]
func (p *PlanStream) StreamPlan(c *gin.Context) {
	ctx, span := p.tracer.Start(c.Request.Context(), "plan_stream.stream_plan")
	defer span.End()

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid run ID")
		return
	}
	span.SetAttributes(attribute.String("run.id", runID.String()))

	claims, err := auth.AuthenticateToken(ctx, p.jwtManager, auth.RequestToken(c))
	if err != nil {
		span.RecordError(err)
		log.Printf(`{"level":"warn","message":"WebSocket authentication failed","error":%q}`, err)
		respondError(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Unauthorized")
		return
	}
	if err := claims.CanStream(runID); err != nil {
		respondError(c, http.StatusForbidden, models.ErrCodeForbidden, "Token is not valid for this run")
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		respondError(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid user ID")
		return
	}
	span.SetAttributes(attribute.String("user.id", claims.UserID))

	events, err := p.service.Subscribe(ctx, userID, runID)
	if err != nil {
		if errors.Is(err, orchestration.ErrRunNotFound) {
			respondError(c, http.StatusNotFound, models.ErrCodeNotFound, "Run not found")
			return
		}
		span.RecordError(err)
		respondError(c, http.StatusInternalServerError, models.ErrCodeInternalError, "Failed to subscribe to run")
		return
	}

	conn, err := p.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		log.Printf(`{"level":"error","message":"Failed to upgrade connection","error":%q}`, err)
		return
	}
	defer conn.Close()

	// The read side only exists to notice the client going away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sent := 0
	for {
		select {
		case event, ok := <-events:
			if !ok {
				p.close(conn, runID, sent)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				log.Printf(`{"level":"warn","message":"Failed to forward event","run_id":"%s","error":%q}`, runID, err)
				return
			}
			sent++
		case <-clientGone:
			log.Printf(`{"level":"info","message":"WebSocket client disconnected","run_id":"%s","events_sent":%d}`, runID, sent)
			return
		}
	}
}

func (p *PlanStream) close(conn *websocket.Conn, runID uuid.UUID, sent int) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		log.Printf(`{"level":"warn","message":"Failed to send close frame","run_id":"%s","error":%q}`, runID, err)
	}
	log.Printf(`{"level":"info","message":"WebSocket stream finished","run_id":"%s","events_sent":%d}`, runID, sent)
}
