package pvpchess

import "sync"

// gameLocks hands out one mutex per game ID. Entries are reference counted
// and dropped when no command holds or waits on them.
type gameLocks struct {
    mu    sync.Mutex
    locks map[int]*gameLock
}

type gameLock struct {
    sync.Mutex
    refs int
}

func newGameLocks() *gameLocks { return &gameLocks{locks: make(map[int]*gameLock)} }

// lock blocks until gameID is free and returns its unlock func.
func (g *gameLocks) lock(gameID int) func() {
    g.mu.Lock()
    l := g.locks[gameID]
    if l == nil {
        l = &gameLock{}
        g.locks[gameID] = l
    }
    l.refs++
    g.mu.Unlock()

    l.Lock()
    return func() {
        l.Unlock()
        g.mu.Lock()
        l.refs--
        if l.refs == 0 { delete(g.locks, gameID) }
        g.mu.Unlock()
    }
}
