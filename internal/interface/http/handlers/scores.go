package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dailydraw/streak-bot/internal/application/query"
	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/pkg/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ScoreHandler serves the score and scoreboard endpoints.
type ScoreHandler struct {
	scores     *query.GetScoreHandler
	scoreboard *query.GetScoreboardHandler
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(scores *query.GetScoreHandler, scoreboard *query.GetScoreboardHandler) *ScoreHandler {
	return &ScoreHandler{scores: scores, scoreboard: scoreboard}
}

// GetScore serves GET /api/v1/guilds/:guild/users/:user/score.
func (h *ScoreHandler) GetScore(c *gin.Context) {
	guildID, ok := pathID(c, "guild")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user")
	if !ok {
		return
	}

	dto, err := h.scores.Handle(c.Request.Context(), query.GetScoreQuery{UserID: userID, GuildID: guildID})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// GetScoreboard serves GET /api/v1/guilds/:guild/scoreboard?limit=N.
func (h *ScoreHandler) GetScoreboard(c *gin.Context) {
	guildID, ok := pathID(c, "guild")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	dto, err := h.scoreboard.Handle(c.Request.Context(), query.GetScoreboardQuery{GuildID: guildID, Limit: limit})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name + " id"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	switch {
	case shared.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case shared.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case shared.IsStoreUnavailable(err):
		logger.FromContext(c.Request.Context()).Error("store unavailable", logger.Err(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "store unavailable"})
	default:
		logger.FromContext(c.Request.Context()).Error("request failed", logger.Err(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
