package chessdto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/park285/Cheese-chess-server/internal/chess"
)

func TestCommandDecode(t *testing.T) {
	raw := `{"commandType":"MAKE_MOVE","authToken":"t","gameID":3,
		"move":{"startPosition":{"row":2,"col":5},"endPosition":{"row":4,"col":5},"promotionPiece":null}}`
	var c Command
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.GameID != 3 || c.Move == nil || c.Move.UCI() != "e2e4" {
		t.Fatalf("unexpected command: %+v", c)
	}

	for _, bad := range []string{`{}`, `{"commandType":"DANCE"}`} {
		var c Command
		if err := json.Unmarshal([]byte(bad), &c); err != nil {
			t.Fatalf("decode %s: %v", bad, err)
		}
		if c.Validate() == nil {
			t.Fatalf("%s validated", bad)
		}
	}
}

func TestServerMessageShapes(t *testing.T) {
	cases := []struct {
		msg  *ServerMessage
		want []string
		not  []string
	}{
		{LoadGame(chess.NewGame(), "WHITE"), []string{`"serverMessageType":"LOAD_GAME"`, `"playerColor":"WHITE"`, `"turn":"WHITE"`}, []string{`errorMessage`}},
		{Notification("hi"), []string{`"serverMessageType":"NOTIFICATION"`, `"message":"hi"`}, []string{`"game"`}},
		{Error("bad"), []string{`"serverMessageType":"ERROR"`, `"errorMessage":"bad"`}, []string{`"message"`}},
		{LegalMoves("e2", []string{"e3", "e4"}), []string{`"square":"e2"`, `"legalMoves":["e3","e4"]`}, nil},
		{LegalMoves("a1", nil), []string{`"square":"a1"`, `"legalMoves":[]`}, nil},
		{Notification("x"), nil, []string{`legalMoves`}},
	}
	for _, tc := range cases {
		raw, err := json.Marshal(tc.msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		for _, w := range tc.want {
			if !strings.Contains(string(raw), w) {
				t.Fatalf("%s missing %s", raw, w)
			}
		}
		for _, n := range tc.not {
			if strings.Contains(string(raw), n) {
				t.Fatalf("%s should not contain %s", raw, n)
			}
		}
	}
}

func TestEmptyLegalMovesSurviveDecode(t *testing.T) {
	raw, err := json.Marshal(LegalMoves("a1", nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ServerMessage
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.LegalMoves == nil || len(back.Moves()) != 0 {
		t.Fatalf("empty move list lost in %s", raw)
	}
	if (&ServerMessage{}).Moves() != nil {
		t.Fatalf("Moves on a non-LEGAL_MOVES message should be nil")
	}
}
