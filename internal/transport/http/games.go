package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/blindify/backend/internal/domain"
	"github.com/blindify/backend/internal/service/game"
	"github.com/blindify/backend/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

type GameService interface {
	StartSolo(ctx context.Context, user *domain.User, difficulty string) (*game.Session, error)
	Finish(ctx context.Context, userID int64, gameID string, req game.FinishRequest) error
	History(ctx context.Context, userID int64) ([]domain.HistoryEntry, error)
	Stats(ctx context.Context, userID int64) (domain.DetailedStats, error)
	Badges(ctx context.Context, userID int64) ([]domain.Badge, error)
}

type GameHandler struct {
	Games GameService
}

func NewGameHandler(games GameService) *GameHandler {
	return &GameHandler{Games: games}
}

// StartSolo builds a new solo session. An empty body means normal difficulty.
func (h *GameHandler) StartSolo(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req struct {
		Difficulty string `json:"difficulty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.Games.StartSolo(c.Request.Context(), user, req.Difficulty)
	if err != nil {
		respondError(c, "GAME", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Finish stores the caller's self-reported result
func (h *GameHandler) Finish(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req game.FinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Score < 0 || req.CorrectAnswers < 0 || req.TotalQuestions < 0 ||
		(req.TotalQuestions > 0 && req.CorrectAnswers > req.TotalQuestions) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid result"})
		return
	}

	if err := h.Games.Finish(c.Request.Context(), user.ID, c.Param("id"), req); err != nil {
		respondError(c, "GAME", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Result saved"})
}

func (h *GameHandler) History(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	history, err := h.Games.History(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, "GAME", err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *GameHandler) Stats(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	stats, err := h.Games.Stats(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, "GAME", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *GameHandler) Badges(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	badges, err := h.Games.Badges(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, "GAME", err)
		return
	}
	c.JSON(http.StatusOK, badges)
}
