package chessdto

import (
	"fmt"

	"github.com/park285/Cheese-chess-server/internal/chess"
)

// CommandType tags an inbound command.
type CommandType string

const (
	CommandConnect    CommandType = "CONNECT"
	CommandMakeMove   CommandType = "MAKE_MOVE"
	CommandResign     CommandType = "RESIGN"
	CommandLeave      CommandType = "LEAVE"
	CommandLegalMoves CommandType = "LEGAL_MOVES"
)

// Command is one client request. Move is set only for MAKE_MOVE and Square
// only for LEGAL_MOVES.
type Command struct {
	CommandType CommandType `json:"commandType"`
	AuthToken   string      `json:"authToken"`
	GameID      int         `json:"gameID"`
	Move        *chess.Move `json:"move,omitempty"`
	Square      string      `json:"square,omitempty"`
}

// Validate rejects frames that decode as JSON but are not commands.
func (c *Command) Validate() error {
	switch c.CommandType {
	case CommandConnect, CommandMakeMove, CommandResign, CommandLeave, CommandLegalMoves:
		return nil
	case "":
		return fmt.Errorf("missing commandType")
	default:
		return fmt.Errorf("unknown commandType %q", c.CommandType)
	}
}
