// Package server exposes the room directory over HTTP: the websocket
// endpoint clients play on and a small ops surface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TylerMG2/card-games/internal/config"
	"github.com/TylerMG2/card-games/internal/room"
	"github.com/TylerMG2/card-games/internal/session"
)

type Server struct {
	cfg  config.Config
	dir  *room.Directory
	log  logrus.FieldLogger
	sess session.Options
}

func New(cfg config.Config, dir *room.Directory, log logrus.FieldLogger) *Server {
	return &Server{
		cfg: cfg,
		dir: dir,
		log: log,
		sess: session.Options{
			NameTimeout:     cfg.NameTimeout,
			OutboxSize:      cfg.OutboxSize,
			MaxDecodeErrors: cfg.MaxDecodeErrors,
			Log:             log,
		},
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handleWS)
	r.Group(func(r chi.Router) {
		r.Use(s.logRequests)
		r.Get("/healthz", s.handleHealth)
		r.Group(func(r chi.Router) {
			if s.cfg.AdminJWTSecret != "" {
				r.Use(requireAdmin([]byte(s.cfg.AdminJWTSecret)))
			}
			r.Get("/rooms", s.handleRooms)
		})
	})
	return r
}

// Run serves until ctx is done, then shuts down within the configured grace.
// Open websockets see ctx canceled and close with StatusGoingAway.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.HTTPAddr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Websocket
// ---------------------------------------------------------------------------

type wsTransport struct {
	c *websocket.Conn
}

func (t wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.c.Read(ctx)
	return data, err
}

func (t wsTransport) Write(ctx context.Context, msg []byte) error {
	return t.c.Write(ctx, websocket.MessageBinary, msg)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		s.log.WithError(err).Debug("websocket accept")
		return
	}

	code := r.URL.Query().Get("code")
	if !s.dir.ValidCode(code) {
		c.Close(StatusInvalidRoomCode, "invalid room code")
		return
	}
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil || id == uuid.Nil {
		c.Close(StatusInvalidPlayerID, "invalid player id")
		return
	}
	c.SetReadLimit(s.cfg.ReadLimit)

	err = session.Serve(r.Context(), s.dir, code, id, wsTransport{c}, s.sess)
	if websocket.CloseStatus(err) != -1 {
		// The client closed the socket itself.
		c.CloseNow()
		return
	}
	status, reason := closeStatus(err)
	s.log.WithFields(logrus.Fields{"room": code, "player": id, "status": status}).
		WithError(err).Debug("closing websocket")
	c.Close(status, reason)
}

// ---------------------------------------------------------------------------
// Ops
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.dir.Summaries()); err != nil {
		s.log.WithError(err).Error("encode room summaries")
	}
}

// requireAdmin accepts requests carrying an HS256 bearer token signed with
// secret and holding an expiry.
func requireAdmin(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return secret, nil },
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
				jwt.WithExpirationRequired(),
			)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}
