package gamestore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/Cheese-chess-server/internal/chess"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, 0)
}

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  newRedisStore(t),
		"sqlite": newSQLiteStore(t),
	}
}

func TestStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			rec, err := s.Create(ctx, " casual ")
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if rec.GameID <= 0 || rec.Name != "casual" || rec.State == nil || rec.State.Turn != chess.White {
				t.Fatalf("unexpected new record: %+v", rec)
			}
			second, err := s.Create(ctx, "other")
			if err != nil {
				t.Fatalf("create second: %v", err)
			}
			if second.GameID == rec.GameID {
				t.Fatalf("duplicate id %d", rec.GameID)
			}

			ok, err := s.Exists(ctx, rec.GameID)
			if err != nil || !ok {
				t.Fatalf("exists = %v, %v", ok, err)
			}
			ok, err = s.Exists(ctx, 9999)
			if err != nil || ok {
				t.Fatalf("exists(unknown) = %v, %v", ok, err)
			}
			missing, err := s.Get(ctx, 9999)
			if err != nil || missing != nil {
				t.Fatalf("get(unknown) = %+v, %v", missing, err)
			}

			rec.WhiteUsername = "alice"
			rec.BlackUsername = "bob"
			if err := rec.State.MakeMove(chess.Move{Start: chess.Pos(2, 5), End: chess.Pos(4, 5)}); err != nil {
				t.Fatalf("move: %v", err)
			}
			if err := s.Update(ctx, rec); err != nil {
				t.Fatalf("update: %v", err)
			}
			got, err := s.Get(ctx, rec.GameID)
			if err != nil || got == nil {
				t.Fatalf("get: %+v, %v", got, err)
			}
			if got.WhiteUsername != "alice" || got.BlackUsername != "bob" {
				t.Fatalf("seats not persisted: %+v", got)
			}
			if *got.State != *rec.State {
				t.Fatalf("state mismatch: %s vs %s", got.State.FEN(), rec.State.FEN())
			}

			got.Vacate("bob")
			if err := s.Update(ctx, got); err != nil {
				t.Fatalf("update vacate: %v", err)
			}
			again, _ := s.Get(ctx, rec.GameID)
			if again.BlackUsername != "" || again.WhiteUsername != "alice" {
				t.Fatalf("seat not cleared: %+v", again)
			}

			ghost := rec.Clone()
			ghost.GameID = 4242
			if err := s.Update(ctx, ghost); !errors.Is(err, ErrNotFound) {
				t.Fatalf("update unknown: want ErrNotFound, got %v", err)
			}
			if err := s.Update(ctx, nil); !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("update nil: want ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	rec, _ := s.Create(ctx, "g")
	rec.State.Resign()
	got, _ := s.Get(ctx, rec.GameID)
	if got.State.GameOver {
		t.Fatalf("caller mutation leaked into the store")
	}
}

func TestParseRedisURL(t *testing.T) {
	opt, err := ParseRedisURL("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.Addr != "localhost:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Fatalf("unexpected options: %+v", opt)
	}
	if _, err := ParseRedisURL("http://localhost"); err == nil {
		t.Fatalf("want scheme error")
	}
	if _, err := ParseRedisURL("redis://localhost/x"); err == nil {
		t.Fatalf("want db error")
	}
}

func TestSQLiteRebind(t *testing.T) {
	got := sqlite.rebind("a = $1 AND b = $12")
	if got != "a = ?1 AND b = ?12" {
		t.Fatalf("rebind = %q", got)
	}
}
