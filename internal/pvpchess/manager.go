package pvpchess

import (
    "context"
    "errors"
    "strings"

    "github.com/park285/Cheese-chess-server/internal/auth"
    "github.com/park285/Cheese-chess-server/internal/chess"
    "github.com/park285/Cheese-chess-server/internal/domain"
    "github.com/park285/Cheese-chess-server/internal/gamestore"
    "github.com/park285/Cheese-chess-server/internal/msgcat"
    "github.com/park285/Cheese-chess-server/internal/obslog"
    "github.com/park285/Cheese-chess-server/internal/pvpchan"
    "github.com/park285/Cheese-chess-server/pkg/chessdto"
    "go.uber.org/zap"
)

// Message keys used by the coordinator. All must exist in the catalog.
const (
    msgAuth           = "error.auth"
    msgGameID         = "error.game_id"
    msgMoveMissing    = "error.move_missing"
    msgGameOver       = "error.game_over"
    msgNotYourTurn    = "error.not_your_turn"
    msgInvalidMove    = "error.invalid_move"
    msgObserverResign = "error.observer_resign"
    msgInvalidSquare  = "error.invalid_square"
    msgStoreSave      = "error.store_save"
    msgStoreLoad      = "error.store_load"

    msgJoined    = "notify.joined"
    msgMoved     = "notify.moved"
    msgResigned  = "notify.resigned"
    msgLeft      = "notify.left"
    msgCheck     = "notify.check"
    msgCheckmate = "notify.checkmate"
    msgStalemate = "notify.stalemate"
)

var messageKeys = []string{
    msgAuth, msgGameID, msgMoveMissing, msgGameOver, msgNotYourTurn, msgInvalidMove,
    msgObserverResign, msgInvalidSquare, msgStoreSave, msgStoreLoad,
    msgJoined, msgMoved, msgResigned, msgLeft, msgCheck, msgCheckmate, msgStalemate,
}

// Manager turns client commands into game state changes and broadcasts.
// Commands on the same game are serialized; different games never share a
// lock.
type Manager struct {
    games gamestore.Store
    auth  auth.Store
    reg   *pvpchan.Registry
    msgs  *msgcat.Catalog
    locks *gameLocks
}

func NewManager(games gamestore.Store, authStore auth.Store, reg *pvpchan.Registry, msgs *msgcat.Catalog) (*Manager, error) {
    if games == nil || authStore == nil || reg == nil || msgs == nil {
        return nil, errors.New("pvpchess: missing dependency")
    }
    if err := msgs.Require(messageKeys...); err != nil { return nil, err }
    return &Manager{games: games, auth: authStore, reg: reg, msgs: msgs, locks: newGameLocks()}, nil
}

// Registry exposes the session registry the manager publishes through.
func (m *Manager) Registry() *pvpchan.Registry { return m.reg }

// Handle processes one command from s. A rejected command is answered with a
// single ERROR to s and returned as a *CommandError.
func (m *Manager) Handle(ctx context.Context, s pvpchan.Session, cmd *chessdto.Command) error {
    if cmd == nil { cmd = &chessdto.Command{} }
    err := m.dispatch(ctx, s, cmd)
    if err == nil { return nil }
    var ce *CommandError
    if !errors.As(err, &ce) {
        ce = &CommandError{Kind: ErrStore, Text: m.text(msgStoreLoad, nil), Cause: err}
    }
    _ = s.Send(chessdto.Error(ce.Text))
    fields := []zap.Field{
        zap.String("session", s.ID()),
        zap.String("command", string(cmd.CommandType)),
        zap.Int("game_id", cmd.GameID),
        zap.Error(ce),
    }
    if errors.Is(ce, ErrStore) {
        obslog.L().Error("command_failed", fields...)
    } else {
        obslog.L().Debug("command_rejected", fields...)
    }
    return ce
}

// Disconnect forgets a closed connection. Seats are left untouched.
func (m *Manager) Disconnect(s pvpchan.Session) {
    if gameID, ok := m.reg.Leave(s); ok {
        obslog.L().Info("session_closed", zap.String("session", s.ID()), zap.Int("game_id", gameID))
    }
}

// Seat assigns username to color on gameID. It is the hook the external
// lobby uses to fill open seats.
func (m *Manager) Seat(ctx context.Context, gameID int, color chess.Color, username string) error {
    unlock := m.locks.lock(gameID)
    defer unlock()
    rec, err := m.games.Get(ctx, gameID)
    if err != nil { return &CommandError{Kind: ErrStore, Text: m.text(msgStoreLoad, nil), Cause: err} }
    if rec == nil { return &CommandError{Kind: ErrNotFound, Text: m.text(msgGameID, nil)} }
    next := rec.Clone()
    if !next.Claim(color, username) { return ErrSeatTaken }
    if err := m.games.Update(ctx, next); err != nil {
        return &CommandError{Kind: ErrStore, Text: m.text(msgStoreSave, nil), Cause: err}
    }
    obslog.L().Info("seat_claimed", zap.Int("game_id", gameID), zap.String("color", color.String()), zap.String("user", username))
    return nil
}

func (m *Manager) dispatch(ctx context.Context, s pvpchan.Session, cmd *chessdto.Command) error {
    username, ok, err := m.auth.Lookup(ctx, cmd.AuthToken)
    if err != nil {
        return &CommandError{Kind: ErrAuth, Text: m.text(msgAuth, nil), Cause: err}
    }
    if !ok { return m.fail(ErrAuth, msgAuth, nil) }

    unlock := m.locks.lock(cmd.GameID)
    defer unlock()

    rec, err := m.games.Get(ctx, cmd.GameID)
    if err != nil {
        return &CommandError{Kind: ErrStore, Text: m.text(msgStoreLoad, nil), Cause: err}
    }
    if rec == nil || rec.State == nil { return m.fail(ErrNotFound, msgGameID, nil) }

    switch cmd.CommandType {
    case chessdto.CommandConnect:
        return m.connect(s, rec, username)
    case chessdto.CommandMakeMove:
        return m.makeMove(ctx, s, rec, username, cmd.Move)
    case chessdto.CommandResign:
        return m.resign(ctx, s, rec, username)
    case chessdto.CommandLeave:
        return m.leave(ctx, s, rec, username)
    case chessdto.CommandLegalMoves:
        return m.legalMoves(s, rec, cmd.Square)
    default:
        return &CommandError{Kind: ErrBadRequest, Text: "unknown command"}
    }
}

func (m *Manager) connect(s pvpchan.Session, rec *domain.GameRecord, username string) error {
    role := rec.RoleOf(username)
    fresh := m.reg.Join(rec.GameID, s)
    _ = s.Send(chessdto.LoadGame(rec.State.Clone(), string(role)))
    if fresh {
        m.reg.Publish(rec.GameID, chessdto.Notification(m.text(msgJoined, map[string]any{"Role": string(role)})), s)
    }
    obslog.L().Info("game_connect",
        zap.Int("game_id", rec.GameID),
        zap.String("user", username),
        zap.String("role", string(role)),
        zap.Bool("repeat", !fresh),
    )
    return nil
}

func (m *Manager) makeMove(ctx context.Context, s pvpchan.Session, rec *domain.GameRecord, username string, mv *chess.Move) error {
    if mv == nil { return m.fail(ErrBadRequest, msgMoveMissing, nil) }
    st := rec.State
    if st.GameOver { return m.fail(ErrTerminalState, msgGameOver, nil) }

    color, seated := rec.RoleOf(username).Color()
    if !seated { return m.fail(ErrRole, msgNotYourTurn, nil) }
    pc, occupied := st.Board.Get(mv.Start)
    if color != st.Turn || !occupied || pc.Color != color {
        return m.fail(ErrIllegalMove, msgNotYourTurn, nil)
    }

    next := rec.Clone()
    if err := next.State.MakeMove(*mv); err != nil {
        return &CommandError{Kind: ErrIllegalMove, Text: m.text(msgInvalidMove, nil), Cause: err}
    }

    opponent := color.Other()
    oppName := strings.ToLower(opponent.String())
    var status string
    switch {
    case next.State.IsInCheckmate(opponent):
        next.State.GameOver = true
        status = m.text(msgCheckmate, map[string]any{"Color": oppName})
    case next.State.IsInStalemate(opponent):
        next.State.GameOver = true
        status = m.text(msgStalemate, map[string]any{"Color": oppName})
    case next.State.IsInCheck(opponent):
        status = m.text(msgCheck, map[string]any{"Color": oppName})
    }

    if err := m.games.Update(ctx, next); err != nil {
        return &CommandError{Kind: ErrStore, Text: m.text(msgStoreSave, nil), Cause: err}
    }

    m.broadcastAll(s, next.GameID, chessdto.LoadGame(next.State.Clone(), ""))
    moved := m.text(msgMoved, map[string]any{
        "Color": strings.ToLower(color.String()),
        "From":  mv.Start.String(),
        "To":    mv.End.String(),
    })
    m.reg.Publish(next.GameID, chessdto.Notification(moved), s)
    if status != "" {
        m.broadcastAll(s, next.GameID, chessdto.Notification(status))
    }

    obslog.L().Info("game_move",
        zap.Int("game_id", next.GameID),
        zap.String("user", username),
        zap.String("uci", mv.UCI()),
        zap.String("turn", next.State.Turn.String()),
        zap.Bool("game_over", next.State.GameOver),
        zap.String("fen", next.State.FEN()),
    )
    return nil
}

func (m *Manager) resign(ctx context.Context, s pvpchan.Session, rec *domain.GameRecord, username string) error {
    if rec.State.GameOver { return m.fail(ErrTerminalState, msgGameOver, nil) }
    color, seated := rec.RoleOf(username).Color()
    if !seated { return m.fail(ErrRole, msgObserverResign, nil) }

    next := rec.Clone()
    next.State.Resign()
    if err := m.games.Update(ctx, next); err != nil {
        return &CommandError{Kind: ErrStore, Text: m.text(msgStoreSave, nil), Cause: err}
    }
    m.broadcastAll(s, next.GameID, chessdto.Notification(m.text(msgResigned, map[string]any{"Color": color.String()})))
    obslog.L().Info("game_resign", zap.Int("game_id", next.GameID), zap.String("user", username), zap.String("color", color.String()))
    return nil
}

func (m *Manager) leave(ctx context.Context, s pvpchan.Session, rec *domain.GameRecord, username string) error {
    next := rec.Clone()
    if next.Vacate(username) {
        if err := m.games.Update(ctx, next); err != nil {
            return &CommandError{Kind: ErrStore, Text: m.text(msgStoreSave, nil), Cause: err}
        }
    }
    if gameID, ok := m.reg.GameOf(s); ok && gameID == rec.GameID {
        m.reg.Leave(s)
    }
    m.reg.Publish(rec.GameID, chessdto.Notification(m.text(msgLeft, map[string]any{"Username": username})), s)
    obslog.L().Info("game_leave", zap.Int("game_id", rec.GameID), zap.String("user", username))
    return nil
}

func (m *Manager) legalMoves(s pvpchan.Session, rec *domain.GameRecord, square string) error {
    from, err := chess.ParseSquare(square)
    if err != nil { return &CommandError{Kind: ErrBadRequest, Text: m.text(msgInvalidSquare, nil), Cause: err} }
    targets := []string{}
    seen := make(map[chess.Position]bool)
    for _, mv := range rec.State.LegalMoves(from) {
        if seen[mv.End] { continue } // promotions share a target square
        seen[mv.End] = true
        targets = append(targets, mv.End.String())
    }
    _ = s.Send(chessdto.LegalMoves(from.String(), targets))
    return nil
}

// broadcastAll publishes to every session on gameID and also reaches s when
// it issued the command without having connected.
func (m *Manager) broadcastAll(s pvpchan.Session, gameID int, msg *chessdto.ServerMessage) {
    m.reg.Publish(gameID, msg)
    if g, ok := m.reg.GameOf(s); !ok || g != gameID {
        _ = s.Send(msg)
    }
}

func (m *Manager) fail(kind error, key string, data any) *CommandError {
    return &CommandError{Kind: kind, Text: m.text(key, data)}
}

func (m *Manager) text(key string, data any) string { return m.msgs.Text(key, data) }
