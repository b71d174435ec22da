package main

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appcfg "github.com/park285/Cheese-chess-server/internal/config"
	"github.com/park285/Cheese-chess-server/internal/auth"
	"github.com/park285/Cheese-chess-server/internal/chess"
	"github.com/park285/Cheese-chess-server/internal/gamestore"
	"github.com/park285/Cheese-chess-server/internal/msgcat"
	"github.com/park285/Cheese-chess-server/internal/pvpchan"
	"github.com/park285/Cheese-chess-server/internal/pvpchess"
	"github.com/park285/Cheese-chess-server/internal/wsclient"
	"github.com/park285/Cheese-chess-server/internal/wsserver"
	"github.com/park285/Cheese-chess-server/pkg/chessdto"
)

func seatPlans(t *testing.T, s string) appcfg.SeatPlans {
	t.Helper()
	plans, err := appcfg.ParseSeatPlans(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return plans
}

func TestSeededSeatCanMove(t *testing.T) {
	store := gamestore.NewMemoryStore()
	if err := seedGames(store, 1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	tokens := auth.NewMemoryStore()
	tokens.Add("tok-alice", "alice")
	msgs, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	mgr, err := pvpchess.NewManager(store, tokens, pvpchan.NewRegistry(), msgs)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := applySeats(mgr, seatPlans(t, "1:white=alice,black=bob")); err != nil {
		t.Fatalf("applySeats: %v", err)
	}
	// a restart with a different plan keeps the seats already held
	if err := applySeats(mgr, seatPlans(t, "1:white=mallory")); err != nil {
		t.Fatalf("reapply: %v", err)
	}
	rec, err := store.Get(context.Background(), 1)
	if err != nil || rec == nil {
		t.Fatalf("get: %v", err)
	}
	if rec.WhiteUsername != "alice" || rec.BlackUsername != "bob" {
		t.Fatalf("seats = %q/%q", rec.WhiteUsername, rec.BlackUsername)
	}
	if err := applySeats(mgr, seatPlans(t, "7:white=alice")); !errors.Is(err, pvpchess.ErrNotFound) {
		t.Fatalf("missing game: %v", err)
	}

	srv := wsserver.New(mgr, wsserver.Options{})
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
	inbox := make(chan *chessdto.ServerMessage, 8)
	c.OnMessage(func(m *chessdto.ServerMessage) { inbox <- m })
	next := func() *chessdto.ServerMessage {
		t.Helper()
		select {
		case m := <-inbox:
			return m
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for a message")
			return nil
		}
	}

	if err := c.Send(ctx, &chessdto.Command{CommandType: chessdto.CommandConnect, AuthToken: "tok-alice", GameID: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if m := next(); m.ServerMessageType != chessdto.MessageLoadGame || m.PlayerColor != "WHITE" {
		t.Fatalf("connect: %+v", m)
	}
	mv, _ := chess.ParseUCI("e2e4")
	if err := c.Send(ctx, &chessdto.Command{CommandType: chessdto.CommandMakeMove, AuthToken: "tok-alice", GameID: 1, Move: &mv}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if m := next(); m.ServerMessageType != chessdto.MessageLoadGame || m.Game == nil || m.Game.Turn != chess.Black {
		t.Fatalf("move: %+v", m)
	}
}
