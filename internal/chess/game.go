package chess

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIllegalMove is returned by MakeMove for any move the side to move may
// not make.
var ErrIllegalMove = errors.New("illegal move")

// Game is the authoritative state of a single game: the board, the side to
// move and whether the game has ended.
type Game struct {
	Board    Board `json:"board"`
	Turn     Color `json:"turn"`
	GameOver bool  `json:"gameOver"`
}

// NewGame returns a game in the standard starting position with White to move.
func NewGame() *Game {
	return &Game{Board: StartingBoard(), Turn: White}
}

// Clone returns an independent copy of g.
func (g *Game) Clone() *Game {
	c := *g
	return &c
}

// LegalMoves returns the moves of the piece on from that do not leave its own
// king in check. It returns nil when from is empty, and an empty non-nil slice
// when the piece has no legal move.
func (g *Game) LegalMoves(from Position) []Move {
	pc, ok := g.Board.Get(from)
	if !ok {
		return nil
	}
	candidates := CandidateMoves(&g.Board, from)
	legal := make([]Move, 0, len(candidates))
	for _, m := range candidates {
		scratch := g.Board
		apply(&scratch, m)
		if !inCheck(&scratch, pc.Color) {
			legal = append(legal, m)
		}
	}
	return legal
}

// IsInCheck reports whether color's king is attacked. A side without a king
// is treated as in check.
func (g *Game) IsInCheck(color Color) bool { return inCheck(&g.Board, color) }

// IsInCheckmate reports whether color is in check with no legal move.
func (g *Game) IsInCheckmate(color Color) bool {
	return g.IsInCheck(color) && !g.hasLegalMove(color)
}

// IsInStalemate reports whether color is to move, not in check, and has no
// legal move.
func (g *Game) IsInStalemate(color Color) bool {
	return color == g.Turn && !g.IsInCheck(color) && !g.hasLegalMove(color)
}

// MakeMove validates and applies m, then passes the turn.
func (g *Game) MakeMove(m Move) error {
	pc, ok := g.Board.Get(m.Start)
	if !ok || pc.Color != g.Turn {
		return fmt.Errorf("%w: no %s piece on %s", ErrIllegalMove, g.Turn, m.Start)
	}
	for _, lm := range g.LegalMoves(m.Start) {
		if lm == m {
			apply(&g.Board, m)
			g.Turn = g.Turn.Other()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI())
}

// Resign ends the game. It never reopens a finished game.
func (g *Game) Resign() { g.GameOver = true }

// FEN renders the position. Castling and en passant fields are always "-".
func (g *Game) FEN() string {
	side := "w"
	if g.Turn == Black {
		side = "b"
	}
	return g.Board.placement() + " " + side + " - - 0 1"
}

func (g *Game) hasLegalMove(color Color) bool {
	for row := 1; row <= 8; row++ {
		for col := 1; col <= 8; col++ {
			p := Pos(row, col)
			if pc, ok := g.Board.Get(p); ok && pc.Color == color && len(g.LegalMoves(p)) > 0 {
				return true
			}
		}
	}
	return false
}

func apply(b *Board, m Move) {
	pc, ok := b.Get(m.Start)
	if !ok {
		return
	}
	b.Clear(m.Start)
	if pc.Kind == Pawn && m.Promotion != NoKind {
		pc = Piece{Color: pc.Color, Kind: m.Promotion}
	}
	b.Set(m.End, pc)
}

func inCheck(b *Board, color Color) bool {
	king, ok := b.find(Piece{Color: color, Kind: King})
	if !ok {
		return true
	}
	return attacked(b, king, color.Other())
}

// attacked reports whether any piece of color by has a candidate move ending
// on target.
func attacked(b *Board, target Position, by Color) bool {
	for row := 1; row <= 8; row++ {
		for col := 1; col <= 8; col++ {
			from := Pos(row, col)
			pc, ok := b.Get(from)
			if !ok || pc.Color != by {
				continue
			}
			for _, m := range rules[pc.Kind](b, from, pc, nil) {
				if m.End == target {
					return true
				}
			}
		}
	}
	return false
}

// ParseFEN builds a game from the placement and side-to-move fields of a FEN
// string. Remaining fields are ignored.
func ParseFEN(fen string) (*Game, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return nil, fmt.Errorf("fen %q: want placement and side to move", fen)
	}
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("fen %q: want 8 ranks, got %d", fen, len(ranks))
	}
	rows := make([]string, 0, 8)
	for _, rank := range ranks {
		var sb strings.Builder
		for i := 0; i < len(rank); i++ {
			c := rank[i]
			if c >= '1' && c <= '8' {
				sb.WriteString(strings.Repeat(".", int(c-'0')))
				continue
			}
			sb.WriteByte(c)
		}
		rows = append(rows, sb.String())
	}
	b, err := ParseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("fen %q: %w", fen, err)
	}
	g := &Game{Board: b}
	switch fields[1] {
	case "w":
		g.Turn = White
	case "b":
		g.Turn = Black
	default:
		return nil, fmt.Errorf("fen %q: bad side %q", fen, fields[1])
	}
	return g, nil
}
