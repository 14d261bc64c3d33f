package domain

const (
	MessageRoomUpdate = "roomUpdate"
	MessageGameStart  = "gameStart"
	MessagePong       = "pong"
	MessageError      = "error"
)

// ServerMessage is pushed to websocket clients
type ServerMessage struct {
	Type    string      `json:"type"`
	Room    *Room       `json:"room,omitempty"`
	Game    interface{} `json:"game,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ClientMessage is the only frame clients send; rooms are driven over HTTP
type ClientMessage struct {
	Type string `json:"type"`
}
