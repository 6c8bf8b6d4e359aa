package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	gatedvoting "slothsafe/contexts/governance/gated-voting"
	votingerrors "slothsafe/contexts/governance/gated-voting/domain/errors"
	votinghttp "slothsafe/contexts/governance/gated-voting/transport/http"

	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "slothsafe/internal/platform/httpserver/docs"
)

const maxRequestBodyBytes = 64 << 10

// SessionCounter reports how many conversations are mid-flow.
type SessionCounter interface {
	ActiveSessions() int
}

type Server struct {
	mux            *http.ServeMux
	logger         *slog.Logger
	addr           string
	voting         gatedvoting.Module
	sessions       SessionCounter
	allowedOrigins []string
	httpServer     *http.Server
}

func New(
	voting gatedvoting.Module,
	sessions SessionCounter,
	allowedOrigins []string,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:            http.NewServeMux(),
		logger:         logger,
		addr:           addr,
		voting:         voting,
		sessions:       sessions,
		allowedOrigins: allowedOrigins,
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed mux, wrapped in CORS handling when origins are
// configured.
func (s *Server) Handler() http.Handler {
	if len(s.allowedOrigins) == 0 {
		return s.mux
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.mux)
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /v1/polls", s.handleListPolls)
	s.mux.HandleFunc("POST /v1/sessions/{user_id}/vote", s.handleInitiateVote)
	s.mux.HandleFunc("POST /v1/sessions/{user_id}/messages", s.handleSubmitMessage)
	s.mux.HandleFunc("GET /v1/users/{user_id}/votes", s.handleUserVotes)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := votinghttp.HealthResponse{Status: "ok"}
	if s.sessions != nil {
		resp.ActiveSessions = s.sessions.ActiveSessions()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.voting.Handler.ListPollsHandler(r.Context()))
}

func (s *Server) handleInitiateVote(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.InitiateVoteHandler(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.SubmitMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.voting.Handler.SubmitMessageHandler(r.Context(), r.PathValue("user_id"), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUserVotes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.UserVotesHandler(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeVotingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, votingerrors.ErrInvalidInput):
		writeVotingError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, votingerrors.ErrPollNotFound):
		writeVotingError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrSessionNotActive):
		writeVotingError(w, http.StatusConflict, "session_not_active", err.Error())
	case errors.Is(err, votingerrors.ErrAlreadyVoted),
		errors.Is(err, votingerrors.ErrConflict):
		writeVotingError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, votingerrors.ErrStorageCorrupt):
		writeVotingError(w, http.StatusInternalServerError, "storage_corrupt", "vote ledger is unreadable")
	default:
		writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeVotingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
