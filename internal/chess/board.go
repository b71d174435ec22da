package chess

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Board is an 8x8 grid of optional pieces. The zero value is an empty board;
// copying a Board copies every cell.
type Board struct {
	cells [64]Piece
}

const backRank = "RNBQKBNR"

// StartingBoard returns the standard initial setup.
func StartingBoard() Board {
	var b Board
	b.Reset()
	return b
}

// Reset clears the board and places both armies on their home ranks.
func (b *Board) Reset() {
	b.cells = [64]Piece{}
	for col := 1; col <= 8; col++ {
		k, _ := kindFromLetter(backRank[col-1])
		b.Set(Pos(1, col), Piece{Color: White, Kind: k})
		b.Set(Pos(2, col), Piece{Color: White, Kind: Pawn})
		b.Set(Pos(7, col), Piece{Color: Black, Kind: Pawn})
		b.Set(Pos(8, col), Piece{Color: Black, Kind: k})
	}
}

// Get returns the piece at p; ok is false for empty or off-board squares.
func (b *Board) Get(p Position) (Piece, bool) {
	if !p.Valid() {
		return Piece{}, false
	}
	pc := b.cells[p.index()]
	return pc, pc.Kind != NoKind
}

// Set places pc at p. Setting a piece with NoKind clears the square.
func (b *Board) Set(p Position, pc Piece) {
	if !p.Valid() {
		return
	}
	b.cells[p.index()] = pc
}

// Clear empties p.
func (b *Board) Clear(p Position) { b.Set(p, Piece{}) }

func (b *Board) empty(p Position) bool {
	_, ok := b.Get(p)
	return !ok
}

// find returns the first square holding pc, scanning from a1.
func (b *Board) find(pc Piece) (Position, bool) {
	for i, c := range b.cells {
		if c == pc {
			return Position{Row: i/8 + 1, Col: i%8 + 1}, true
		}
	}
	return Position{}, false
}

// Rows renders the board as eight strings, row 8 first, using FEN letters
// and '.' for empty squares.
func (b *Board) Rows() []string {
	rows := make([]string, 0, 8)
	for row := 8; row >= 1; row-- {
		var sb strings.Builder
		for col := 1; col <= 8; col++ {
			if pc, ok := b.Get(Pos(row, col)); ok {
				sb.WriteByte(pc.letter())
			} else {
				sb.WriteByte('.')
			}
		}
		rows = append(rows, sb.String())
	}
	return rows
}

// ParseRows is the inverse of Rows.
func ParseRows(rows []string) (Board, error) {
	var b Board
	if len(rows) != 8 {
		return b, fmt.Errorf("board needs 8 rows, got %d", len(rows))
	}
	for i, line := range rows {
		if len(line) != 8 {
			return b, fmt.Errorf("row %d: want 8 cells, got %d", 8-i, len(line))
		}
		for j := 0; j < 8; j++ {
			c := line[j]
			if c == '.' {
				continue
			}
			pc, ok := pieceFromLetter(c)
			if !ok {
				return b, fmt.Errorf("row %d: bad cell %q", 8-i, c)
			}
			b.Set(Pos(8-i, j+1), pc)
		}
	}
	return b, nil
}

func (b Board) MarshalJSON() ([]byte, error) { return json.Marshal(b.Rows()) }

func (b *Board) UnmarshalJSON(data []byte) error {
	var rows []string
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("decode board: %w", err)
	}
	parsed, err := ParseRows(rows)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// placement renders the piece-placement field of a FEN string.
func (b *Board) placement() string {
	var sb strings.Builder
	for row := 8; row >= 1; row-- {
		gap := 0
		for col := 1; col <= 8; col++ {
			pc, ok := b.Get(Pos(row, col))
			if !ok {
				gap++
				continue
			}
			if gap > 0 {
				sb.WriteByte(byte('0' + gap))
				gap = 0
			}
			sb.WriteByte(pc.letter())
		}
		if gap > 0 {
			sb.WriteByte(byte('0' + gap))
		}
		if row > 1 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}
