// Package wsserver exposes the game coordinator over WebSocket.
package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/Cheese-chess-server/internal/obslog"
	"github.com/park285/Cheese-chess-server/internal/pvpchan"
	"github.com/park285/Cheese-chess-server/pkg/chessdto"
)

// Handler processes decoded commands. *pvpchess.Manager implements it.
type Handler interface {
	Handle(ctx context.Context, s pvpchan.Session, cmd *chessdto.Command) error
	Disconnect(s pvpchan.Session)
}

type Options struct {
	SendBuffer     int
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	CommandTimeout time.Duration
	// AllowedOrigins lists extra browser origins; same-host requests are
	// always accepted.
	AllowedOrigins []string
}

func (o *Options) defaults() {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 5 * time.Second
	}
}

type Server struct {
	echo    *echo.Echo
	handler Handler
	opts    Options
	origins []string

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
}

func New(h Handler, opts Options) *Server {
	opts.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		echo:       echo.New(),
		handler:    h,
		opts:       opts,
		origins:    originPatterns(opts.AllowedOrigins),
		rootCtx:    ctx,
		rootCancel: cancel,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			obslog.L().Debug("http_request",
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote", v.RemoteIP),
				zap.Error(v.Error),
			)
			return nil
		},
	}))
	s.echo.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	s.echo.GET("/ws", s.serveWS)
	return s
}

// Handler returns the HTTP handler, for mounting under httptest.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	obslog.L().Info("server_listen", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every open connection and
// waits for the connection goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rootCancel()
	err := s.echo.Shutdown(ctx)
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) serveWS(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		// Accept has already written the HTTP error.
		obslog.L().Debug("ws_accept_failed", zap.String("remote", c.RealIP()), zap.Error(err))
		return nil
	}
	s.wg.Add(1)
	defer s.wg.Done()

	sess := newSession(c.RealIP(), s.opts.SendBuffer)
	ctx, cancel := context.WithCancel(s.rootCtx)
	defer cancel()
	obslog.L().Info("ws_connect", zap.String("session", sess.id), zap.String("remote", sess.remote))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, conn, sess)
	}()

	code, reason := s.readLoop(ctx, conn, sess)

	s.handler.Disconnect(sess)
	sess.close()
	cancel()
	<-writerDone
	_ = conn.Close(code, reason)
	obslog.L().Info("ws_close",
		zap.String("session", sess.id),
		zap.Int("code", int(code)),
		zap.String("reason", reason),
	)
	return nil
}

// readLoop handles commands in arrival order until the connection ends and
// returns the close code to send.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *session) (websocket.StatusCode, string) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if sess.overflowed() {
				return websocket.StatusPolicyViolation, overflowReason
			}
			if ctx.Err() != nil {
				return websocket.StatusGoingAway, "server shutdown"
			}
			return websocket.StatusNormalClosure, ""
		}
		if typ != websocket.MessageText {
			return websocket.StatusUnsupportedData, "expected text frame"
		}
		var cmd chessdto.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			obslog.L().Debug("ws_bad_frame", zap.String("session", sess.id), zap.Error(err))
			return websocket.StatusUnsupportedData, "malformed command"
		}
		if err := cmd.Validate(); err != nil {
			obslog.L().Debug("ws_bad_frame", zap.String("session", sess.id), zap.Error(err))
			return websocket.StatusUnsupportedData, err.Error()
		}

		cmdCtx, cancel := context.WithTimeout(ctx, s.opts.CommandTimeout)
		// rejected commands were already answered with an ERROR message
		_ = s.handler.Handle(cmdCtx, sess, &cmd)
		cancel()
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, sess *session) {
	var ping <-chan time.Time
	if s.opts.PingInterval > 0 {
		t := time.NewTicker(s.opts.PingInterval)
		defer t.Stop()
		ping = t.C
	}
	for {
		if sess.overflowed() {
			s.closeOverflowed(conn, sess)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-sess.overflow:
			s.closeOverflowed(conn, sess)
			return
		case msg, ok := <-sess.out:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := wsjson.Write(wctx, conn, msg)
			cancel()
			if err != nil {
				obslog.L().Debug("ws_write_failed", zap.String("session", sess.id), zap.Error(err))
				_ = conn.CloseNow()
				return
			}
		case <-ping:
			pctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				obslog.L().Debug("ws_ping_failed", zap.String("session", sess.id), zap.Error(err))
				_ = conn.CloseNow()
				return
			}
		}
	}
}

const overflowReason = "send queue full"

// closeOverflowed ends a connection whose client fell too far behind. The
// blocked reader sees the close and serveWS finishes the teardown.
func (s *Server) closeOverflowed(conn *websocket.Conn, sess *session) {
	obslog.L().Warn("ws_send_overflow", zap.String("session", sess.id), zap.Int("buffer", cap(sess.out)))
	_ = conn.Close(websocket.StatusPolicyViolation, overflowReason)
}

// originPatterns reduces configured origins to the host patterns the
// websocket package matches against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if strings.Contains(o, "://") {
			if u, err := url.Parse(o); err == nil && u.Host != "" {
				o = u.Host
			}
		}
		out = append(out, o)
	}
	return out
}
