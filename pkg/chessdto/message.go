package chessdto

import "github.com/park285/Cheese-chess-server/internal/chess"

// MessageType tags an outbound message.
type MessageType string

const (
	MessageLoadGame     MessageType = "LOAD_GAME"
	MessageNotification MessageType = "NOTIFICATION"
	MessageError        MessageType = "ERROR"
	MessageLegalMoves   MessageType = "LEGAL_MOVES"
)

// ServerMessage is what the server sends down a connection. Messages are
// shared between recipients and must not be modified after construction.
type ServerMessage struct {
	ServerMessageType MessageType `json:"serverMessageType"`

	Game        *chess.Game `json:"game,omitempty"`
	PlayerColor string      `json:"playerColor,omitempty"`

	Message      string `json:"message,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	// LegalMoves is set only on LEGAL_MOVES replies, where an empty list is
	// encoded as [].
	Square     string    `json:"square,omitempty"`
	LegalMoves *[]string `json:"legalMoves,omitempty"`
}

func LoadGame(g *chess.Game, role string) *ServerMessage {
	return &ServerMessage{ServerMessageType: MessageLoadGame, Game: g, PlayerColor: role}
}

func Notification(text string) *ServerMessage {
	return &ServerMessage{ServerMessageType: MessageNotification, Message: text}
}

func Error(text string) *ServerMessage {
	return &ServerMessage{ServerMessageType: MessageError, ErrorMessage: text}
}

func LegalMoves(square string, moves []string) *ServerMessage {
	if moves == nil {
		moves = []string{}
	}
	return &ServerMessage{ServerMessageType: MessageLegalMoves, Square: square, LegalMoves: &moves}
}

// Moves returns the legal-move targets of a LEGAL_MOVES reply.
func (m *ServerMessage) Moves() []string {
	if m.LegalMoves == nil {
		return nil
	}
	return *m.LegalMoves
}

// Text returns the human-readable payload of a notification or error.
func (m *ServerMessage) Text() string {
	if m.ServerMessageType == MessageError {
		return m.ErrorMessage
	}
	return m.Message
}
