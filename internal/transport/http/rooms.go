package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/blindify/backend/internal/domain"
	"github.com/blindify/backend/internal/service/game"
	"github.com/blindify/backend/internal/service/room"
	"github.com/blindify/backend/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

type RoomService interface {
	Create(req room.CreateRequest) *domain.Room
	Join(code, username string) (*domain.Room, error)
	Leave(code, username string) (*domain.Room, error)
	Start(ctx context.Context, code string, userID int64, difficulty string) (*domain.Room, *game.Session, error)
	Get(code string) (*domain.Room, error)
}

type RoomHandler struct {
	Rooms RoomService
}

func NewRoomHandler(rooms RoomService) *RoomHandler {
	return &RoomHandler{Rooms: rooms}
}

// playerName prefers the name in the body, then the signed-in username
func playerName(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if user, ok := middleware.CurrentUser(c); ok {
		return user.Username
	}
	return ""
}

// bindOptional accepts an empty body
func bindOptional(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

func (h *RoomHandler) Create(c *gin.Context) {
	var req room.CreateRequest
	if !bindOptional(c, &req) {
		return
	}
	if user, ok := middleware.CurrentUser(c); ok {
		req.HostUserID = user.ID
		if req.Host == "" {
			req.Host = user.Username
		}
	}

	created := h.Rooms.Create(req)
	c.JSON(http.StatusOK, gin.H{"code": created.ID, "room": created})
}

func (h *RoomHandler) Join(c *gin.Context) {
	var req struct {
		Code     string `json:"code"`
		Username string `json:"username"`
	}
	if !bindOptional(c, &req) {
		return
	}
	if req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room code is required"})
		return
	}

	joined, err := h.Rooms.Join(req.Code, playerName(c, req.Username))
	if err != nil {
		respondError(c, "ROOM", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": joined})
}

func (h *RoomHandler) Get(c *gin.Context) {
	r, err := h.Rooms.Get(c.Param("id"))
	if err != nil {
		respondError(c, "ROOM", err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *RoomHandler) Leave(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if !bindOptional(c, &req) {
		return
	}

	left, err := h.Rooms.Leave(c.Param("id"), playerName(c, req.Username))
	if err != nil {
		respondError(c, "ROOM", err)
		return
	}
	c.JSON(http.StatusOK, left)
}

// Start builds the room's game from the host's catalog
func (h *RoomHandler) Start(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req struct {
		Difficulty string `json:"difficulty"`
	}
	if !bindOptional(c, &req) {
		return
	}

	started, session, err := h.Rooms.Start(c.Request.Context(), c.Param("id"), user.ID, req.Difficulty)
	if err != nil {
		respondError(c, "ROOM", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": started, "game": session})
}
