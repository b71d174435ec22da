package chess

import (
	"sort"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func oracleMoves(t *testing.T, fen string) []string {
	t.Helper()
	opt, err := nchess.FEN(fen)
	if err != nil {
		t.Fatalf("oracle FEN %q: %v", fen, err)
	}
	game := nchess.NewGame(opt)
	var out []string
	for _, mv := range game.ValidMoves() {
		out = append(out, mv.String())
	}
	sort.Strings(out)
	return out
}

func ourMoves(g *Game) []string {
	var out []string
	for row := 1; row <= 8; row++ {
		for col := 1; col <= 8; col++ {
			p := Pos(row, col)
			if pc, ok := g.Board.Get(p); !ok || pc.Color != g.Turn {
				continue
			}
			for _, m := range g.LegalMoves(p) {
				out = append(out, m.UCI())
			}
		}
	}
	sort.Strings(out)
	return out
}

// Positions without castling rights or en passant targets, where both
// generators must agree exactly.
func TestLegalMovesAgainstReferenceGenerator(t *testing.T) {
	for _, fen := range corpus {
		g, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN: %v", err)
		}
		want := oracleMoves(t, fen)
		got := ourMoves(g)
		if len(got) != len(want) {
			t.Fatalf("%s: %d moves, reference has %d\n got: %v\nwant: %v", fen, len(got), len(want), got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("%s: move lists differ at %d: %s vs %s", fen, i, got[i], want[i])
			}
		}
	}
}

func TestRandomPlayoutsAgainstReferenceGenerator(t *testing.T) {
	g := NewGame()
	for ply := 0; ply < 60; ply++ {
		moves := ourMoves(g)
		want := oracleMoves(t, g.FEN())
		if len(moves) != len(want) {
			t.Fatalf("ply %d %s: %d moves, reference has %d", ply, g.FEN(), len(moves), len(want))
		}
		if len(moves) == 0 {
			return
		}
		// deterministic walk: rotate through the sorted list
		m, err := ParseUCI(moves[(ply*7)%len(moves)])
		if err != nil {
			t.Fatalf("ParseUCI: %v", err)
		}
		if err := g.MakeMove(m); err != nil {
			t.Fatalf("ply %d: %v", ply, err)
		}
	}
}
