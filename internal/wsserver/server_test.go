package wsserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/park285/Cheese-chess-server/internal/auth"
	"github.com/park285/Cheese-chess-server/internal/chess"
	"github.com/park285/Cheese-chess-server/internal/gamestore"
	"github.com/park285/Cheese-chess-server/internal/msgcat"
	"github.com/park285/Cheese-chess-server/internal/pvpchan"
	"github.com/park285/Cheese-chess-server/internal/pvpchess"
	"github.com/park285/Cheese-chess-server/internal/wsclient"
	"github.com/park285/Cheese-chess-server/pkg/chessdto"
)

type testEnv struct {
	url    string
	gameID int
	mgr    *pvpchess.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	msgs, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	store := gamestore.NewMemoryStore()
	tokens := auth.NewMemoryStore()
	tokens.Add("tok-white", "white")
	tokens.Add("tok-black", "black")
	mgr, err := pvpchess.NewManager(store, tokens, pvpchan.NewRegistry(), msgs)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx := context.Background()
	rec, err := store.Create(ctx, "e2e")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mgr.Seat(ctx, rec.GameID, chess.White, "white"); err != nil {
		t.Fatalf("seat: %v", err)
	}
	if err := mgr.Seat(ctx, rec.GameID, chess.Black, "black"); err != nil {
		t.Fatalf("seat: %v", err)
	}

	srv := New(mgr, Options{SendBuffer: 16, WriteTimeout: time.Second, CommandTimeout: time.Second})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return &testEnv{url: "ws" + strings.TrimPrefix(ts.URL, "http"), gameID: rec.GameID, mgr: mgr}
}

type conn struct {
	*wsclient.Client
	inbox chan *chessdto.ServerMessage
}

func (e *testEnv) dial(t *testing.T) *conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := wsclient.Dial(ctx, e.url+"/ws")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	inbox := make(chan *chessdto.ServerMessage, 32)
	c.OnMessage(func(m *chessdto.ServerMessage) { inbox <- m })
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.Close(ctx)
	})
	return &conn{Client: c, inbox: inbox}
}

func (c *conn) send(t *testing.T, cmd *chessdto.Command) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Send(ctx, cmd); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func (c *conn) next(t *testing.T) *chessdto.ServerMessage {
	t.Helper()
	select {
	case m := <-c.inbox:
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a message")
		return nil
	}
}

func (c *conn) quiet(t *testing.T) {
	t.Helper()
	select {
	case m := <-c.inbox:
		t.Fatalf("unexpected message: %+v", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	resp, err := http.Get("http" + strings.TrimPrefix(e.url, "ws") + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}
}

func TestMoveOverWebSocket(t *testing.T) {
	e := newTestEnv(t)
	white, black := e.dial(t), e.dial(t)

	white.send(t, &chessdto.Command{CommandType: chessdto.CommandConnect, AuthToken: "tok-white", GameID: e.gameID})
	if m := white.next(t); m.ServerMessageType != chessdto.MessageLoadGame || m.PlayerColor != "WHITE" {
		t.Fatalf("white connect: %+v", m)
	}
	black.send(t, &chessdto.Command{CommandType: chessdto.CommandConnect, AuthToken: "tok-black", GameID: e.gameID})
	if m := black.next(t); m.ServerMessageType != chessdto.MessageLoadGame || m.PlayerColor != "BLACK" {
		t.Fatalf("black connect: %+v", m)
	}
	if m := white.next(t); m.Text() != "BLACK joined the game!" {
		t.Fatalf("white got %+v", m)
	}

	mv, _ := chess.ParseUCI("e2e4")
	white.send(t, &chessdto.Command{CommandType: chessdto.CommandMakeMove, AuthToken: "tok-white", GameID: e.gameID, Move: &mv})

	for _, c := range []*conn{white, black} {
		m := c.next(t)
		if m.ServerMessageType != chessdto.MessageLoadGame || m.Game == nil || m.Game.Turn != chess.Black {
			t.Fatalf("LOAD_GAME after move: %+v", m)
		}
		if pc, ok := m.Game.Board.Get(chess.Pos(4, 5)); !ok || pc.Kind != chess.Pawn {
			t.Fatalf("e4 empty after move: %s", m.Game.FEN())
		}
	}
	if m := black.next(t); m.Text() != "white moved from e2 to e4" {
		t.Fatalf("black got %+v", m)
	}
	white.quiet(t)

	// a rejected command is answered only to its sender
	black.send(t, &chessdto.Command{CommandType: chessdto.CommandMakeMove, AuthToken: "tok-black", GameID: e.gameID})
	if m := black.next(t); m.ServerMessageType != chessdto.MessageError || m.ErrorMessage != "move not provided" {
		t.Fatalf("black got %+v", m)
	}
	white.quiet(t)
}

func TestMalformedFrameClosesConnection(t *testing.T) {
	e := newTestEnv(t)
	for _, frame := range []string{`{"commandType":`, `{"commandType":"DANCE"}`} {
		c := e.dial(t)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := c.SendRaw(ctx, []byte(frame)); err != nil {
			cancel()
			t.Fatalf("send: %v", err)
		}
		cancel()
		select {
		case <-c.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("%s: connection not closed", frame)
		}
		if got := websocket.CloseStatus(c.Err()); got != websocket.StatusUnsupportedData {
			t.Fatalf("%s: close status = %v (%v)", frame, got, c.Err())
		}
	}
}

func TestDisconnectLeavesRegistry(t *testing.T) {
	e := newTestEnv(t)
	c := e.dial(t)
	c.send(t, &chessdto.Command{CommandType: chessdto.CommandConnect, AuthToken: "tok-white", GameID: e.gameID})
	c.next(t)
	if n := len(e.mgr.Registry().Sessions(e.gameID)); n != 1 {
		t.Fatalf("sessions = %d, want 1", n)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(e.mgr.Registry().Sessions(e.gameID)) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session still registered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{" https://chess.example.com ", "", "*.example.org"})
	if len(got) != 2 || got[0] != "chess.example.com" || got[1] != "*.example.org" {
		t.Fatalf("originPatterns = %v", got)
	}
}

func TestSessionSendNeverBlocks(t *testing.T) {
	s := newSession("test", 1)
	if err := s.Send(chessdto.Notification("a")); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := s.Send(chessdto.Notification("b")); err != pvpchan.ErrSessionClosed {
		t.Fatalf("full queue: %v", err)
	}
	if !s.overflowed() {
		t.Fatalf("full queue did not mark the session overflowed")
	}
	// draining does not reopen an overflowed session
	<-s.out
	if err := s.Send(chessdto.Notification("c")); err != pvpchan.ErrSessionClosed {
		t.Fatalf("send after overflow: %v", err)
	}
	s.close()
	s.close()
	if err := s.Send(chessdto.Notification("d")); err != pvpchan.ErrSessionClosed {
		t.Fatalf("closed session: %v", err)
	}
}

// floodHandler answers any command with notifications until the session
// refuses one.
type floodHandler struct{}

func (floodHandler) Handle(_ context.Context, s pvpchan.Session, _ *chessdto.Command) error {
	for i := 0; i < 100000; i++ {
		if err := s.Send(chessdto.Notification("flood")); err != nil {
			return nil
		}
	}
	return nil
}

func (floodHandler) Disconnect(pvpchan.Session) {}

func TestSendOverflowClosesConnection(t *testing.T) {
	srv := New(floodHandler{}, Options{SendBuffer: 1, WriteTimeout: time.Second})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := wsclient.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = c.Close(context.Background()) }()
	if err := c.Send(ctx, &chessdto.Command{CommandType: chessdto.CommandConnect, AuthToken: "x", GameID: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case <-c.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("connection not closed after overflow")
	}
	if got := websocket.CloseStatus(c.Err()); got != websocket.StatusPolicyViolation {
		t.Fatalf("close status = %v (%v)", got, c.Err())
	}
}
