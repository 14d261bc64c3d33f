package domain

import "time"

type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomPlaying RoomStatus = "playing"
)

// Room lives only in process memory and is lost on restart.
type Room struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Host          string     `json:"host,omitempty"`
	HostUserID    int64      `json:"-"`
	Players       []string   `json:"players"`
	MaxPlayers    int        `json:"maxPlayers"`
	QuestionCount int        `json:"questionCount"`
	Status        RoomStatus `json:"status"`
	GameID        string     `json:"gameId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Clone returns a copy whose player slice can be handed out safely.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]string, len(r.Players))
	copy(c.Players, r.Players)
	return &c
}

func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}
