package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/Cheese-chess-server/internal/chess"
	"github.com/park285/Cheese-chess-server/internal/wsclient"
	"github.com/park285/Cheese-chess-server/pkg/chessdto"
)

// wscheck connects to a running server, joins a game and prints every
// message it receives. WSCHECK_MOVE optionally plays one move (UCI); the
// token's user needs a seat, e.g. a server started with SEED_GAMES=1
// SEED_SEATS=1:white=alice.
func main() {
	baseURL := strings.TrimRight(os.Getenv("WSCHECK_URL"), "/")
	token := os.Getenv("WSCHECK_TOKEN")
	move := os.Getenv("WSCHECK_MOVE")
	gameID, _ := strconv.Atoi(os.Getenv("WSCHECK_GAME_ID"))

	if baseURL == "" {
		log.Fatal("WSCHECK_URL is required")
	}
	if gameID == 0 {
		gameID = 1
	}

	httpURL := strings.Replace(strings.Replace(baseURL, "wss://", "https://", 1), "ws://", "http://", 1)
	hc := &http.Client{Timeout: 5 * time.Second}
	if resp, err := hc.Get(httpURL + "/healthz"); err != nil {
		log.Printf("/healthz error: %v", err)
	} else {
		_ = resp.Body.Close()
		log.Printf("/healthz status=%d", resp.StatusCode)
	}

	ws := wsclient.New(baseURL+"/ws", wsclient.WithPingInterval(15*time.Second))
	ws.OnStateChange(func(state wsclient.State) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(msg *chessdto.ServerMessage) {
		switch msg.ServerMessageType {
		case chessdto.MessageLoadGame:
			fmt.Printf("LOAD_GAME color=%s fen=%s over=%v\n", msg.PlayerColor, msg.Game.FEN(), msg.Game.GameOver)
		case chessdto.MessageLegalMoves:
			fmt.Printf("LEGAL_MOVES %s -> %v\n", msg.Square, msg.Moves())
		default:
			fmt.Printf("%s %q\n", msg.ServerMessageType, msg.Text())
		}
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	send := func(cmd *chessdto.Command) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ws.Send(ctx, cmd); err != nil {
			log.Printf("send %s: %v", cmd.CommandType, err)
		}
	}
	send(&chessdto.Command{CommandType: chessdto.CommandConnect, AuthToken: token, GameID: gameID})
	if move != "" {
		mv, err := chess.ParseUCI(move)
		if err != nil {
			log.Printf("bad WSCHECK_MOVE: %v", err)
		} else {
			send(&chessdto.Command{CommandType: chessdto.CommandLegalMoves, AuthToken: token, GameID: gameID, Square: mv.Start.String()})
			send(&chessdto.Command{CommandType: chessdto.CommandMakeMove, AuthToken: token, GameID: gameID, Move: &mv})
		}
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	select {
	case <-t.C:
	case <-ws.Done():
		log.Printf("WS closed: %v", ws.Err())
	}

	_ = ws.Close(context.Background())
}
