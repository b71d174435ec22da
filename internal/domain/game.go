package domain

import (
	"strings"

	"github.com/park285/Cheese-chess-server/internal/chess"
)

// GameRecord is the persisted form of a game: its identity, seat
// assignments and rules-engine state. An empty username means the seat is
// open.
type GameRecord struct {
	GameID        int         `json:"gameID"`
	WhiteUsername string      `json:"whiteUsername,omitempty"`
	BlackUsername string      `json:"blackUsername,omitempty"`
	Name          string      `json:"gameName"`
	State         *chess.Game `json:"game"`
}

// Role is a session's relationship to a game, derived from the seats.
type Role string

const (
	RoleWhite    Role = "WHITE"
	RoleBlack    Role = "BLACK"
	RoleObserver Role = "OBSERVER"
)

// RoleOf resolves username against the seats. White wins when a user holds
// both seats.
func (r *GameRecord) RoleOf(username string) Role {
	u := strings.TrimSpace(username)
	switch {
	case u == "":
		return RoleObserver
	case r.WhiteUsername == u:
		return RoleWhite
	case r.BlackUsername == u:
		return RoleBlack
	default:
		return RoleObserver
	}
}

// Color maps a seated role to its chess color; ok is false for observers.
func (role Role) Color() (chess.Color, bool) {
	switch role {
	case RoleWhite:
		return chess.White, true
	case RoleBlack:
		return chess.Black, true
	}
	return chess.White, false
}

// Vacate clears every seat held by username and reports whether any was.
func (r *GameRecord) Vacate(username string) bool {
	u := strings.TrimSpace(username)
	if u == "" {
		return false
	}
	cleared := false
	if r.WhiteUsername == u {
		r.WhiteUsername = ""
		cleared = true
	}
	if r.BlackUsername == u {
		r.BlackUsername = ""
		cleared = true
	}
	return cleared
}

// Clone copies the record and its game state.
func (r *GameRecord) Clone() *GameRecord {
	c := *r
	if r.State != nil {
		c.State = r.State.Clone()
	}
	return &c
}

// Claim seats username as color. It fails when the seat is already held by
// someone else; claiming one's own seat again is a no-op.
func (r *GameRecord) Claim(color chess.Color, username string) bool {
	u := strings.TrimSpace(username)
	if u == "" {
		return false
	}
	seat := &r.WhiteUsername
	if color == chess.Black {
		seat = &r.BlackUsername
	}
	if *seat != "" && *seat != u {
		return false
	}
	*seat = u
	return true
}
