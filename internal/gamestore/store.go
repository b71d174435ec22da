// Package gamestore persists game records. Every backend satisfies Store;
// the coordinator only ever sees that interface.
package gamestore

import (
	"context"
	"strings"

	"github.com/park285/Cheese-chess-server/internal/chess"
	"github.com/park285/Cheese-chess-server/internal/domain"
)

// Store is durable lookup and update of game records keyed by game ID.
type Store interface {
	// Get returns nil, nil when no game has that ID.
	Get(ctx context.Context, gameID int) (*domain.GameRecord, error)
	// Update replaces an existing record and fails with ErrNotFound otherwise.
	Update(ctx context.Context, rec *domain.GameRecord) error
	Exists(ctx context.Context, gameID int) (bool, error)
	// Create allocates a new ID and stores a fresh game under name.
	Create(ctx context.Context, name string) (*domain.GameRecord, error)
}

var (
	ErrNotFound      = errf("game not found")
	ErrInvalidRecord = errf("invalid game record")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

func newRecord(id int, name string) *domain.GameRecord {
	return &domain.GameRecord{GameID: id, Name: strings.TrimSpace(name), State: chess.NewGame()}
}

func validate(rec *domain.GameRecord) error {
	if rec == nil || rec.GameID <= 0 || rec.State == nil {
		return ErrInvalidRecord
	}
	return nil
}
