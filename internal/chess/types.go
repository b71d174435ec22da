package chess

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opposing color.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == Black {
		return "BLACK"
	}
	return "WHITE"
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "WHITE", "W":
		*c = White
	case "BLACK", "B":
		*c = Black
	default:
		return fmt.Errorf("unknown color %q", string(b))
	}
	return nil
}

// PieceKind is the type of a chess piece. NoKind marks an empty cell or an
// absent promotion.
type PieceKind uint8

const (
	NoKind PieceKind = iota
	King
	Queen
	Bishop
	Knight
	Rook
	Pawn
)

var kindNames = [...]string{
	NoKind: "",
	King:   "KING",
	Queen:  "QUEEN",
	Bishop: "BISHOP",
	Knight: "KNIGHT",
	Rook:   "ROOK",
	Pawn:   "PAWN",
}

var kindLetters = [...]byte{
	NoKind: 0,
	King:   'k',
	Queen:  'q',
	Bishop: 'b',
	Knight: 'n',
	Rook:   'r',
	Pawn:   'p',
}

func (k PieceKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("PieceKind(%d)", k)
}

func (k PieceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PieceKind) UnmarshalText(b []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	if s == "" {
		*k = NoKind
		return nil
	}
	for i, name := range kindNames {
		if name != "" && name == s {
			*k = PieceKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown piece kind %q", string(b))
}

func kindFromLetter(c byte) (PieceKind, bool) {
	lc := c | 0x20
	for i, l := range kindLetters {
		if l != 0 && l == lc {
			return PieceKind(i), true
		}
	}
	return NoKind, false
}

// Piece is an immutable occupant of a board cell.
type Piece struct {
	Color Color     `json:"color"`
	Kind  PieceKind `json:"kind"`
}

// letter returns the FEN letter: uppercase for white, lowercase for black.
func (p Piece) letter() byte {
	l := kindLetters[p.Kind]
	if p.Color == White {
		return l - 0x20
	}
	return l
}

func pieceFromLetter(c byte) (Piece, bool) {
	k, ok := kindFromLetter(c)
	if !ok {
		return Piece{}, false
	}
	color := Black
	if c >= 'A' && c <= 'Z' {
		color = White
	}
	return Piece{Color: color, Kind: k}, true
}

// Position is a 1-based (row, column) square. Row 1 is White's home rank.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Pos is shorthand for Position{Row: row, Col: col}.
func Pos(row, col int) Position { return Position{Row: row, Col: col} }

// Valid reports whether p lies on the board.
func (p Position) Valid() bool {
	return p.Row >= 1 && p.Row <= 8 && p.Col >= 1 && p.Col <= 8
}

func (p Position) index() int { return (p.Row-1)*8 + (p.Col - 1) }

func (p Position) shift(d delta) Position {
	return Position{Row: p.Row + d.row, Col: p.Col + d.col}
}

// String returns the algebraic name of the square, e.g. "e2".
func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
	}
	return string([]byte{byte('a' + p.Col - 1), byte('0' + p.Row)})
}

// ParseSquare parses algebraic notation ("e2") into a Position.
func ParseSquare(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Position{}, fmt.Errorf("invalid square %q", s)
	}
	p := Position{Row: int(s[1] - '0'), Col: int(s[0]-'a') + 1}
	if !p.Valid() {
		return Position{}, fmt.Errorf("invalid square %q", s)
	}
	return p, nil
}

// Move is a start/end pair with an optional promotion kind.
type Move struct {
	Start     Position  `json:"startPosition"`
	End       Position  `json:"endPosition"`
	Promotion PieceKind `json:"promotionPiece,omitempty"`
}

// UCI renders the move in long algebraic form, e.g. "e7e8q".
func (m Move) UCI() string {
	s := m.Start.String() + m.End.String()
	if m.Promotion != NoKind {
		s += string(kindLetters[m.Promotion])
	}
	return s
}

// ParseUCI parses "e2e4" or "e7e8q".
func ParseUCI(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("invalid move %q", s)
	}
	from, err := ParseSquare(s[:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, err
	}
	m := Move{Start: from, End: to}
	if len(s) == 5 {
		k, ok := kindFromLetter(s[4])
		if !ok || k == King || k == Pawn {
			return Move{}, fmt.Errorf("invalid promotion in %q", s)
		}
		m.Promotion = k
	}
	return m, nil
}
