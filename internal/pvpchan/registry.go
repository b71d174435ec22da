package pvpchan

import (
    "sync"

    "github.com/park285/Cheese-chess-server/internal/obslog"
    "github.com/park285/Cheese-chess-server/pkg/chessdto"
    "go.uber.org/zap"
)

// Registry tracks which sessions watch which game. One session belongs to at
// most one game at a time. Safe for concurrent use.
type Registry struct {
    mu     sync.RWMutex
    games  map[int]map[string]Session // gameID -> session id -> session
    gameOf map[string]int             // session id -> gameID
}

func NewRegistry() *Registry {
    return &Registry{games: make(map[int]map[string]Session), gameOf: make(map[string]int)}
}

// Join adds s under gameID. A session already on another game is moved.
// It reports whether s was newly added to gameID.
func (r *Registry) Join(gameID int, s Session) bool {
    r.mu.Lock()
    defer r.mu.Unlock()
    id := s.ID()
    if prev, ok := r.gameOf[id]; ok {
        if prev == gameID {
            r.games[gameID][id] = s
            return false
        }
        r.removeLocked(prev, id)
    }
    set := r.games[gameID]
    if set == nil {
        set = make(map[string]Session)
        r.games[gameID] = set
    }
    set[id] = s
    r.gameOf[id] = gameID
    return true
}

// Leave removes s from its game. ok is false when s was not registered.
func (r *Registry) Leave(s Session) (gameID int, ok bool) {
    r.mu.Lock()
    defer r.mu.Unlock()
    id := s.ID()
    gameID, ok = r.gameOf[id]
    if !ok { return 0, false }
    r.removeLocked(gameID, id)
    return gameID, true
}

func (r *Registry) removeLocked(gameID int, id string) {
    delete(r.gameOf, id)
    set := r.games[gameID]
    delete(set, id)
    if len(set) == 0 { delete(r.games, gameID) }
}

// GameOf returns the game s is registered on.
func (r *Registry) GameOf(s Session) (int, bool) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    g, ok := r.gameOf[s.ID()]
    return g, ok
}

// Sessions returns a snapshot of the sessions on gameID.
func (r *Registry) Sessions(gameID int) []Session {
    r.mu.RLock()
    defer r.mu.RUnlock()
    set := r.games[gameID]
    out := make([]Session, 0, len(set))
    for _, s := range set { out = append(out, s) }
    return out
}

// Publish delivers msg to every session on gameID except those listed.
// Closed or full sessions are skipped; the transport reaps them on close.
func (r *Registry) Publish(gameID int, msg *chessdto.ServerMessage, except ...Session) int {
    delivered := 0
    for _, s := range r.Sessions(gameID) {
        if excluded(s, except) { continue }
        if err := s.Send(msg); err != nil {
            obslog.L().Debug("publish_skip", zap.Int("game_id", gameID), zap.String("session", s.ID()), zap.Error(err))
            continue
        }
        delivered++
    }
    return delivered
}

func excluded(s Session, except []Session) bool {
    for _, e := range except {
        if e != nil && e.ID() == s.ID() { return true }
    }
    return false
}
