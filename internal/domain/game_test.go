package domain

import (
	"testing"

	"github.com/park285/Cheese-chess-server/internal/chess"
)

func TestRoleAndSeats(t *testing.T) {
	r := &GameRecord{GameID: 1, Name: "g", State: chess.NewGame()}
	if !r.Claim(chess.White, "alice") || !r.Claim(chess.Black, "bob") {
		t.Fatalf("claim open seats failed")
	}
	if r.Claim(chess.Black, "carol") {
		t.Fatalf("taken seat was reassigned")
	}
	if got := r.RoleOf("bob"); got != RoleBlack {
		t.Fatalf("bob role = %s", got)
	}
	if got := r.RoleOf("carol"); got != RoleObserver {
		t.Fatalf("carol role = %s", got)
	}
	if !r.Vacate("bob") || r.BlackUsername != "" {
		t.Fatalf("vacate did not clear black seat: %+v", r)
	}
	if r.Vacate("bob") {
		t.Fatalf("second vacate reported a cleared seat")
	}
	if !r.Claim(chess.Black, "carol") || r.RoleOf("carol") != RoleBlack {
		t.Fatalf("reopened seat not claimable")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := &GameRecord{GameID: 2, State: chess.NewGame()}
	c := r.Clone()
	c.State.Resign()
	c.WhiteUsername = "x"
	if r.State.GameOver || r.WhiteUsername != "" {
		t.Fatalf("clone shares state with the source record")
	}
}
