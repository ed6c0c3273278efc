package webhook

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the webhook HTTP server and controller. It owns the request
// lifecycle from raw bytes to the per-message pipeline; all collaborators
// are injected, there is no hidden global state.
type Server struct {
	config Config
	ledger Ledger
	sender ReplySender
	logger *slog.Logger
	server *http.Server
}

// New creates a new webhook server instance.
func New(config Config, ledger Ledger, sender ReplySender, logger *slog.Logger) *Server {
	if config.MaxBodySize == 0 {
		config.MaxBodySize = 1048576
	}
	if config.MaxTextLength == 0 {
		config.MaxTextLength = 1000
	}
	return &Server{
		config: config,
		ledger: ledger,
		sender: sender,
		logger: logger,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "path", s.config.Path)

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get(s.config.Path, s.handleVerify)
	r.Post(s.config.Path, s.handleMessages)

	return r
}

// loggingMiddleware logs HTTP requests (excludes payloads and identities).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// handleVerify answers the provider's subscribe handshake: the challenge is
// echoed iff the mode is "subscribe" and the supplied token matches the
// configured verify token.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || token == "" || challenge == "" {
		s.respondText(w, http.StatusBadRequest, "Bad Request")
		return
	}

	if s.config.VerifyToken == "" || !constantTimeEqual(token, s.config.VerifyToken) {
		s.logger.Warn("webhook verification handshake rejected")
		s.respondText(w, http.StatusForbidden, "Forbidden")
		return
	}

	s.logger.Info("webhook verification handshake accepted")
	s.respondText(w, http.StatusOK, challenge)
}

// handleMessages is the POST intake. The request body is read exactly once,
// signature-checked before any JSON parsing, and acknowledged with 200
// regardless of internal outcome - the only terminal rejection is a failed
// signature. The provider retries non-200 responses, so every recoverable
// problem is logged and swallowed here.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.logger.Error("failed to read request body", "error", err)
		s.respondText(w, http.StatusOK, ackBody)
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.logger.Warn("webhook payload exceeds size limit", "limit", s.config.MaxBodySize)
		s.respondText(w, http.StatusOK, ackBody)
		return
	}

	if s.config.AppSecret == "" {
		if !s.config.AllowUnsigned {
			s.logger.Warn("webhook rejected: no app secret configured")
			s.respondText(w, http.StatusForbidden, "Forbidden")
			return
		}
		// Degraded/dev mode. Never silent.
		s.logger.Warn("signature verification skipped: degraded mode (allow_unsigned)")
	} else {
		signature := r.Header.Get(s.config.SignatureHeader)
		if err := verifyHMACSignature(body, signature, s.config.AppSecret); err != nil {
			s.logger.Warn("webhook signature verification failed",
				"header", s.config.SignatureHeader,
			)
			s.respondText(w, http.StatusForbidden, "Forbidden")
			return
		}
	}

	s.processEnvelope(ctx, body)
	s.respondText(w, http.StatusOK, ackBody)
}

func (s *Server) respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func constantTimeEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
