package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"profile-matcher/internal/domain"
	"profile-matcher/internal/service"
)

// MatchHandler mantiene dependencias para los endpoints de matching.
type MatchHandler struct {
	logger   *zap.Logger
	matches  *service.MatchService
	resolver *service.VectorResolver
	limiter  service.RefreshLimiter
}

// NewMatchHandler crea una instancia de MatchHandler. limiter puede ser nil: sin límite de refrescos.
func NewMatchHandler(
	logger *zap.Logger,
	matches *service.MatchService,
	resolver *service.VectorResolver,
	limiter service.RefreshLimiter,
) *MatchHandler {
	return &MatchHandler{
		logger:   logger,
		matches:  matches,
		resolver: resolver,
		limiter:  limiter,
	}
}

// Health maneja GET /api/health.
func (h *MatchHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Server is running"})
}

// BatchMatch maneja POST /api/batch-match.
func (h *MatchHandler) BatchMatch(c *gin.Context) {
	var req struct {
		CurrentUserID   string   `json:"current_user_id" binding:"required"`
		FilteredUserIDs []string `json:"filtered_user_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid batch match request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.matches.RankCandidates(c.Request.Context(), req.CurrentUserID, req.FilteredUserIDs)
	if err != nil {
		h.writeServiceError(c, "batch match failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// MatchProfiles maneja POST /api/match-profiles.
func (h *MatchHandler) MatchProfiles(c *gin.Context) {
	var req struct {
		Profile1 json.RawMessage `json:"profile1" binding:"required"`
		Profile2 json.RawMessage `json:"profile2" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid match profiles request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	a, errA := domain.ParseProfileFields(req.Profile1)
	b, errB := domain.ParseProfileFields(req.Profile2)
	if errA != nil || errB != nil {
		h.logger.Warn("invalid profile payload", zap.NamedError("profile1", errA), zap.NamedError("profile2", errB))
		c.JSON(http.StatusBadRequest, gin.H{"error": "profiles must be objects of category text"})
		return
	}

	score, err := h.matches.ScorePair(c.Request.Context(), a, b)
	if err != nil {
		h.writeServiceError(c, "match profiles failed", err)
		return
	}

	c.JSON(http.StatusOK, score)
}

// UpdateEmbeddings maneja POST /api/update-embeddings.
func (h *MatchHandler) UpdateEmbeddings(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update embeddings request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if h.limiter != nil {
		if ok, retry := h.limiter.Allow(c.Request.Context(), userID); !ok {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(retry)))
			h.writeServiceError(c, "update embeddings refused", service.ErrRateLimited)
			return
		}
	}

	vectors, err := h.resolver.Refresh(c.Request.Context(), userID)
	if err != nil {
		h.writeServiceError(c, "update embeddings failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"message":            "embeddings updated",
		"categories_updated": vectors.PresentCategories(),
	})
}

// ResolveEmbeddings maneja POST /api/embeddings/resolve.
func (h *MatchHandler) ResolveEmbeddings(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid resolve request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	vectors, err := h.resolver.Resolve(c.Request.Context(), userID)
	if err != nil {
		h.writeServiceError(c, "resolve embeddings failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    userID,
		"categories": vectors.PresentCategories(),
		"dimension":  vectors.Dimension(),
	})
}

// retryAfterSeconds redondea hacia arriba; nunca anuncia 0 segundos.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// writeServiceError traduce los errores centinela del servicio a códigos HTTP.
func (h *MatchHandler) writeServiceError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrReferenceUnresolved):
		c.JSON(http.StatusNotFound, gin.H{"error": "reference profile unresolved"})
	case errors.Is(err, service.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
	case errors.Is(err, service.ErrEmbeddingUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "embeddings unavailable"})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	case errors.Is(err, service.ErrBackendUnavailable):
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend unavailable"})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
