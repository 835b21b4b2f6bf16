package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thruflo/plantree/internal/auth"
	"github.com/thruflo/plantree/internal/config"
	"github.com/thruflo/plantree/internal/logging"
	"github.com/thruflo/plantree/internal/workspace"
)

// tokenExpiry is how long bearer tokens stay valid.
const tokenExpiry = 24 * time.Hour

// Server serves one workspace over HTTP.
type Server struct {
	port         int
	passwordHash string
	ws           *workspace.Workspace
	assets       fs.FS
	limiter      *authLimiter
	log          *logging.Logger

	server   *http.Server
	listener net.Listener

	mu      sync.RWMutex
	tokens  map[string]time.Time // token -> expiry
	started bool
}

// Config holds server configuration options.
type Config struct {
	Port int
	// PasswordHash is an argon2id hash; empty disables authentication.
	PasswordHash string
	// Assets is served at /. Optional.
	Assets fs.FS
	// Logger defaults to the package-level logger.
	Logger *logging.Logger
}

// NewServer creates a Server for ws.
func NewServer(ws *workspace.Workspace, cfg *Config) (*Server, error) {
	if ws == nil {
		return nil, errors.New("workspace is required")
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}

	return &Server{
		port:         cfg.Port,
		passwordHash: cfg.PasswordHash,
		ws:           ws,
		assets:       cfg.Assets,
		limiter:      newAuthLimiter(defaultMaxFailures, defaultBlockTime),
		log:          log.With("component", "server"),
		tokens:       make(map[string]time.Time),
	}, nil
}

// NewServerFromConfig creates a Server from the server section of the
// config file.
func NewServerFromConfig(ws *workspace.Workspace, cfg *config.ServerConfig, assets fs.FS) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is required")
	}
	return NewServer(ws, &Config{
		Port:         cfg.Port,
		PasswordHash: cfg.PasswordHash,
		Assets:       assets,
	})
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// AuthEnabled reports whether requests need a bearer token.
func (s *Server) AuthEnabled() bool {
	return s.passwordHash != ""
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.setupRoutes(mux)
	return mux
}

// Start listens on the configured port and serves until Stop is called.
// Expired tokens are swept until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.started = true
	s.mu.Unlock()

	s.log.Info("listening", "addr", listener.Addr().String(), "auth", s.AuthEnabled())

	go s.cleanupExpiredTokens(ctx)

	err = s.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.started = false
	return nil
}

// ListenAddr returns the address the server is listening on, or "" if it
// has not started. Useful with port 0.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth", s.handleAuth)

	mux.HandleFunc("GET /plan", s.withAuth(s.handleGetPlan))
	mux.HandleFunc("POST /plan", s.withAuth(s.handleCreatePlan))
	mux.HandleFunc("PUT /plan/state", s.withAuth(s.handleRestoreState))
	mux.HandleFunc("POST /plan/tasks", s.withAuth(s.handleAddTask))
	mux.HandleFunc("PATCH /plan/tasks/{id}", s.withAuth(s.handleUpdateTask))

	mux.HandleFunc("GET /checkpoints", s.withAuth(s.handleListCheckpoints))
	mux.HandleFunc("POST /checkpoints", s.withAuth(s.handleCreateCheckpoint))
	mux.HandleFunc("DELETE /checkpoints", s.withAuth(s.handleClearCheckpoints))
	mux.HandleFunc("GET /checkpoints/{id}", s.withAuth(s.handleGetCheckpoint))
	mux.HandleFunc("POST /checkpoints/restore", s.withAuth(s.handleRestoreCheckpoint))

	if s.assets != nil {
		mux.Handle("GET /", http.FileServerFS(s.assets))
	}
}

// withAuth requires a valid bearer token when a password is configured.
func (s *Server) withAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.AuthEnabled() {
			handler(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(header, bearerPrefix) {
			writeError(w, http.StatusUnauthorized, "invalid authorization format")
			return
		}
		if !s.ValidateToken(strings.TrimPrefix(header, bearerPrefix)) {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		handler(w, r)
	}
}

// handleAuth handles POST /auth.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if !s.AuthEnabled() {
		writeError(w, http.StatusNotFound, "authentication is disabled")
		return
	}

	ip := clientIP(r)
	if wait := s.limiter.blockedFor(ip); wait > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(wait.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, "too many failed attempts")
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	ok, err := auth.Verify(req.Password, s.passwordHash)
	if err != nil {
		s.log.Error("password hash is unusable", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		s.limiter.fail(ip)
		s.log.Warn("auth failed", "ip", ip)
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	s.limiter.succeed(ip)

	token := s.GenerateToken()
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// GenerateToken issues a new bearer token.
func (s *Server) GenerateToken() string {
	token := uuid.NewString()

	s.mu.Lock()
	s.tokens[token] = time.Now().Add(tokenExpiry)
	s.mu.Unlock()

	return token
}

// ValidateToken reports whether token was issued and has not expired.
func (s *Server) ValidateToken(token string) bool {
	if token == "" {
		return false
	}

	s.mu.RLock()
	expiry, ok := s.tokens[token]
	s.mu.RUnlock()

	return ok && time.Now().Before(expiry)
}

// RevokeToken invalidates token.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// cleanupExpiredTokens periodically removes expired tokens.
func (s *Server) cleanupExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for token, expiry := range s.tokens {
				if now.After(expiry) {
					delete(s.tokens, token)
				}
			}
			s.mu.Unlock()
			s.limiter.sweep(now)
		}
	}
}
