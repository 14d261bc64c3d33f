package room

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/blindify/backend/internal/domain"
	"github.com/blindify/backend/internal/service/game"
	"github.com/blindify/backend/pkg/uid"
)

const defaultQuestionCount = domain.SessionTrackCount

// Broadcaster pushes a message to every connected websocket client
type Broadcaster interface {
	BroadcastMessage(message domain.ServerMessage)
}

// GameStarter builds the session a room plays
type GameStarter interface {
	StartMultiplayer(ctx context.Context, hostID int64, difficulty string) (*game.Session, error)
}

type CreateRequest struct {
	Name          string `json:"name"`
	Host          string `json:"host"`
	MaxPlayers    int    `json:"maxPlayers"`
	QuestionCount int    `json:"questionCount"`
	HostUserID    int64  `json:"-"`
}

// Registry holds rooms in process memory only
type Registry struct {
	rooms       map[string]*domain.Room
	mu          sync.Mutex
	broadcaster Broadcaster
	games       GameStarter
	now         func() time.Time
}

func NewRegistry(broadcaster Broadcaster, games GameStarter) *Registry {
	return &Registry{
		rooms:       make(map[string]*domain.Room),
		broadcaster: broadcaster,
		games:       games,
		now:         time.Now,
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create opens an empty room under a fresh code
func (r *Registry) Create(req CreateRequest) *domain.Room {
	maxPlayers := req.MaxPlayers
	if maxPlayers <= 0 || maxPlayers > domain.MaxRoomPlayers {
		maxPlayers = domain.MaxRoomPlayers
	}
	questions := req.QuestionCount
	if questions <= 0 {
		questions = defaultQuestionCount
	}
	name := strings.TrimSpace(req.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	code := uid.GenerateRoomCode(domain.RoomCodeLength)
	for r.rooms[code] != nil {
		code = uid.GenerateRoomCode(domain.RoomCodeLength)
	}
	if name == "" {
		name = "Room " + code
	}

	now := r.now()
	room := &domain.Room{
		ID:            code,
		Name:          name,
		Host:          strings.TrimSpace(req.Host),
		HostUserID:    req.HostUserID,
		Players:       []string{},
		MaxPlayers:    maxPlayers,
		QuestionCount: questions,
		Status:        domain.RoomWaiting,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.rooms[code] = room

	log.Printf("[ROOM] Created room %s (%s), max %d players", code, name, maxPlayers)
	return room.Clone()
}

// Join appends a player name. The room is left untouched when it is full.
func (r *Registry) Join(code, username string) (*domain.Room, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrInvalidUsername
	}

	r.mu.Lock()
	room, ok := r.rooms[normalizeCode(code)]
	if !ok {
		r.mu.Unlock()
		return nil, domain.ErrRoomNotFound
	}
	if room.IsFull() {
		r.mu.Unlock()
		return nil, domain.ErrRoomFull
	}
	room.Players = append(room.Players, username)
	room.UpdatedAt = r.now()
	snapshot := room.Clone()
	r.mu.Unlock()

	log.Printf("[ROOM] %s joined room %s (%d/%d)", username, snapshot.ID, len(snapshot.Players), snapshot.MaxPlayers)
	r.broadcast(domain.ServerMessage{Type: domain.MessageRoomUpdate, Room: snapshot})
	return snapshot, nil
}

// Leave removes the first player with that name
func (r *Registry) Leave(code, username string) (*domain.Room, error) {
	username = strings.TrimSpace(username)

	r.mu.Lock()
	room, ok := r.rooms[normalizeCode(code)]
	if !ok {
		r.mu.Unlock()
		return nil, domain.ErrRoomNotFound
	}
	idx := -1
	for i, p := range room.Players {
		if p == username {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return nil, domain.ErrPlayerNotInRoom
	}
	room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
	room.UpdatedAt = r.now()
	snapshot := room.Clone()
	r.mu.Unlock()

	log.Printf("[ROOM] %s left room %s", username, snapshot.ID)
	r.broadcast(domain.ServerMessage{Type: domain.MessageRoomUpdate, Room: snapshot})
	return snapshot, nil
}

// Start builds a multiplayer game from the host's catalog. Rooms created
// without a signed-in host can be started by anyone signed in.
func (r *Registry) Start(ctx context.Context, code string, userID int64, difficulty string) (*domain.Room, *game.Session, error) {
	code = normalizeCode(code)

	r.mu.Lock()
	room, ok := r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return nil, nil, domain.ErrRoomNotFound
	}
	hostID := room.HostUserID
	if hostID != 0 && hostID != userID {
		r.mu.Unlock()
		return nil, nil, domain.ErrNotRoomHost
	}
	if hostID == 0 {
		hostID = userID
	}
	r.mu.Unlock()

	session, err := r.games.StartMultiplayer(ctx, hostID, difficulty)
	if err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	room, ok = r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return nil, nil, domain.ErrRoomNotFound
	}
	room.Status = domain.RoomPlaying
	room.GameID = session.GameID
	room.UpdatedAt = r.now()
	snapshot := room.Clone()
	r.mu.Unlock()

	log.Printf("[ROOM] Room %s started game %s with %d players", code, session.GameID, len(snapshot.Players))
	r.broadcast(domain.ServerMessage{Type: domain.MessageRoomUpdate, Room: snapshot})
	r.broadcast(domain.ServerMessage{Type: domain.MessageGameStart, Room: snapshot, Game: session})
	return snapshot, session, nil
}

func (r *Registry) Get(code string) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[normalizeCode(code)]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room.Clone(), nil
}

// Count returns the number of open rooms
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// EvictIdle drops rooms untouched for longer than ttl
func (r *Registry) EvictIdle(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for code, room := range r.rooms {
		if room.UpdatedAt.Before(cutoff) {
			delete(r.rooms, code)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) broadcast(msg domain.ServerMessage) {
	if r.broadcaster != nil {
		r.broadcaster.BroadcastMessage(msg)
	}
}
