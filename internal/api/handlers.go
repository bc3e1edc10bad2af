package api

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vitalink/internal/models"
	"vitalink/internal/ratelimit"
	"vitalink/internal/service/health"
)

// webhookTokenHeader carries the shared secret on device-data pushes.
const webhookTokenHeader = "x-oura-webhook-token"

const assistantTimeout = 2 * time.Minute

// Recomputer schedules fire-and-forget score recomputation after ingestion.
type Recomputer interface {
	Enqueue(userID string) error
}

// Asker answers a free-text query against a window of recent readings.
type Asker interface {
	Ask(ctx context.Context, readings []*models.Reading, query string) (string, error)
}

// Handler wires the three HTTP flows to the health service, the rate
// limiter and the assistant.
type Handler struct {
	health        *health.Service
	assistant     Asker
	limiter       *ratelimit.Limiter
	recomputer    Recomputer
	webhookSecret string
	failOpen      bool
}

// NewHandler constructs a Handler instance.
func NewHandler(healthSvc *health.Service, assistant Asker, limiter *ratelimit.Limiter, recomputer Recomputer, webhookSecret string, failOpen bool) *Handler {
	return &Handler{
		health:        healthSvc,
		assistant:     assistant,
		limiter:       limiter,
		recomputer:    recomputer,
		webhookSecret: webhookSecret,
		failOpen:      failOpen,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(h.rateLimitMiddleware())
	api.POST("/webhook", h.ingestWebhook)
	api.POST("/calculate-score", h.calculateScore)
	api.POST("/healthgpt", h.healthGPT)
}

// rateLimitMiddleware gates every route on the per-caller fixed window. The
// caller identity is the source address; a request never reaches a handler
// once the window ceiling is hit.
func (h *Handler) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := h.limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			if h.failOpen {
				log.Printf("rate limiter unavailable, admitting %s: %v", c.ClientIP(), err)
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "rate limiter unavailable"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// ingestWebhook handles device-data pushes: authenticate, normalize,
// persist, then hand scoring to the recompute queue. Nothing is written
// before authentication and validation both pass.
func (h *Handler) ingestWebhook(c *gin.Context) {
	if c.GetHeader(webhookTokenHeader) != h.webhookSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read request body failed"})
		return
	}
	reading, err := health.Normalize(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.health.UpsertReading(c.Request.Context(), reading); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persist reading failed"})
		return
	}

	// Scoring is decoupled from the ingestion acknowledgment: a full queue
	// or a failed recompute never fails the webhook response.
	if err := h.recomputer.Enqueue(reading.UserID); err != nil {
		log.Printf("schedule score recompute for user %s failed: %v", reading.UserID, err)
	}
	c.Status(http.StatusOK)
}

type scoreRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) calculateScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	score, err := h.health.RecomputeScore(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No data"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "calculate score failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": score})
}

type queryRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

func (h *Handler) healthGPT(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	// An empty window is fine: new users query against no data.
	readings, err := h.health.RecentReadings(c.Request.Context(), userID, health.AssistantWindow)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load readings failed"})
		return
	}

	askCtx, cancel := context.WithTimeout(c.Request.Context(), assistantTimeout)
	defer cancel()
	answer, err := h.assistant.Ask(askCtx, readings, req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "assistant query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer})
}
