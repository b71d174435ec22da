package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcfg "github.com/park285/Cheese-chess-server/internal/config"
	"github.com/park285/Cheese-chess-server/internal/auth"
	"github.com/park285/Cheese-chess-server/internal/chess"
	"github.com/park285/Cheese-chess-server/internal/gamestore"
	"github.com/park285/Cheese-chess-server/internal/msgcat"
	"github.com/park285/Cheese-chess-server/internal/obslog"
	"github.com/park285/Cheese-chess-server/internal/pvpchan"
	"github.com/park285/Cheese-chess-server/internal/pvpchess"
	"github.com/park285/Cheese-chess-server/internal/wsserver"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, err := obslog.Init(cfg.Log)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Redis is shared by the redis game store and the redis auth backend.
	var rdb *redis.Client
	if cfg.GameStore == appcfg.StoreRedis || cfg.AuthBackend == appcfg.AuthRedis {
		rdb, err = openRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
		defer func() { _ = rdb.Close() }()
	}

	games, closeGames, err := openGameStore(cfg, rdb)
	if err != nil {
		log.Fatalf("game store init error: %v", err)
	}
	defer closeGames()

	tokens, err := openAuth(cfg, rdb)
	if err != nil {
		log.Fatalf("auth init error: %v", err)
	}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages init error: %v", err)
	}

	mgr, err := pvpchess.NewManager(games, tokens, pvpchan.NewRegistry(), msgs)
	if err != nil {
		log.Fatalf("manager init error: %v", err)
	}

	if err := seedGames(games, cfg.SeedGames); err != nil {
		log.Fatalf("seed error: %v", err)
	}
	if err := applySeats(mgr, cfg.Seats()); err != nil {
		log.Fatalf("seat error: %v", err)
	}

	srv := wsserver.New(mgr, wsserver.Options{
		SendBuffer:     cfg.WSSendBuffer,
		PingInterval:   cfg.WSPingInterval,
		WriteTimeout:   cfg.WSWriteTimeout,
		CommandTimeout: cfg.CommandTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.ListenAddr) }()
	obslog.L().Info("server_start",
		zap.String("addr", cfg.ListenAddr),
		zap.String("game_store", cfg.GameStore),
		zap.String("auth_backend", cfg.AuthBackend),
	)

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		obslog.L().Info("server_stop", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			obslog.L().Error("server_error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		obslog.L().Warn("server_shutdown", zap.Error(err))
	}
}

func openRedis(rawURL string) (*redis.Client, error) {
	opt, err := gamestore.ParseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return rdb, nil
}

func openGameStore(cfg *appcfg.AppConfig, rdb *redis.Client) (gamestore.Store, func(), error) {
	switch cfg.GameStore {
	case appcfg.StoreRedis:
		return gamestore.NewRedisStore(rdb, cfg.GameTTL), func() {}, nil
	case appcfg.StorePostgres:
		s, err := gamestore.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case appcfg.StoreSQLite:
		s, err := gamestore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return gamestore.NewMemoryStore(), func() {}, nil
	}
}

func openAuth(cfg *appcfg.AppConfig, rdb *redis.Client) (auth.Store, error) {
	switch cfg.AuthBackend {
	case appcfg.AuthRedis:
		return auth.NewRedisStore(rdb), nil
	case appcfg.AuthJWT:
		return auth.NewJWTStore(cfg.JWTSecret)
	case appcfg.AuthRemote:
		headers := func() map[string]string {
			h := map[string]string{}
			if cfg.AuthServiceKey != "" {
				h["X-Service-Key"] = cfg.AuthServiceKey
			}
			return h
		}
		return auth.NewRemoteStore(cfg.AuthServiceURL,
			auth.WithHeaderProvider(headers),
			auth.WithTimeout(cfg.AuthServiceTimeout),
		), nil
	default:
		m := auth.NewMemoryStore()
		for token, username := range cfg.AuthTokens {
			m.Add(token, username)
		}
		if len(cfg.AuthTokens) == 0 {
			obslog.L().Warn("auth_no_tokens", zap.String("backend", appcfg.AuthMemory))
		}
		return m, nil
	}
}

// seedGames creates n empty games when the store has none yet.
func seedGames(games gamestore.Store, n int) error {
	if n <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := games.Exists(ctx, 1)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	for i := 1; i <= n; i++ {
		rec, err := games.Create(ctx, fmt.Sprintf("game %d", i))
		if err != nil {
			return err
		}
		obslog.L().Info("game_seeded", zap.Int("game_id", rec.GameID), zap.String("name", rec.Name))
	}
	return nil
}

// applySeats claims the configured seats. A seat already held by someone
// else is kept, so restarts against a persistent store are harmless.
func applySeats(mgr *pvpchess.Manager, plans appcfg.SeatPlans) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, p := range plans {
		for _, seat := range []struct {
			color chess.Color
			user  string
		}{{chess.White, p.White}, {chess.Black, p.Black}} {
			if seat.user == "" {
				continue
			}
			err := mgr.Seat(ctx, p.GameID, seat.color, seat.user)
			switch {
			case errors.Is(err, pvpchess.ErrSeatTaken):
				obslog.L().Warn("seat_kept",
					zap.Int("game_id", p.GameID),
					zap.String("color", seat.color.String()),
					zap.String("wanted", seat.user),
				)
			case err != nil:
				return fmt.Errorf("game %d %s: %w", p.GameID, seat.color, err)
			}
		}
	}
	return nil
}
