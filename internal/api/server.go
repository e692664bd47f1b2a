// Package api exposes the decision pipeline over HTTP: event tracking,
// campaign snapshot reads and campaign refresh.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/gopaywall/internal/presentation"
	"github.com/TimurManjosov/gopaywall/internal/snapshot"
	"github.com/TimurManjosov/gopaywall/internal/telemetry"
)

type Server struct {
	pipeline     *presentation.Pipeline
	provider     *snapshot.Provider
	campaignFile string
	clientAPIKey string
	logger       zerolog.Logger
}

func NewServer(pipeline *presentation.Pipeline, provider *snapshot.Provider, campaignFile, clientAPIKey string, logger zerolog.Logger) *Server {
	return &Server{
		pipeline:     pipeline,
		provider:     provider,
		campaignFile: campaignFile,
		clientAPIKey: clientAPIKey,
		logger:       logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// public: campaign snapshot (ETag)
	r.Get("/v1/campaign/snapshot", s.handleSnapshot)

	r.Post("/v1/track", s.authClient(s.handleTrack))
	r.Post("/v1/refresh", s.authClient(s.handleRefresh))

	return r
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.provider.Current()
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == snap.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", snap.ETag)
	_ = json.NewEncoder(w).Encode(snap)
}

type refreshResponse struct {
	OK   bool   `json:"ok"`
	ETag string `json:"etag"`
}

// handleRefresh reloads the campaign file, swaps the snapshot and drops the
// artifact cache so the next presentation builds against the new campaign.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := snapshot.LoadFile(s.campaignFile)
	if err != nil {
		s.logger.Error().Err(err).Str("file", s.campaignFile).Msg("campaign reload failed")
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "campaign reload failed")
		return
	}
	s.provider.Update(snap)
	s.pipeline.InvalidateArtifacts()

	s.logger.Info().Str("etag", snap.ETag).Int("triggers", len(snap.Triggers)).Msg("campaign reloaded")
	writeJSON(w, http.StatusOK, refreshResponse{OK: true, ETag: snap.ETag})
}

// ---- middleware ----

func (s *Server) authClient(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const scheme = "Bearer "
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, scheme) {
			writeError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
			return
		}
		got := strings.TrimSpace(strings.TrimPrefix(auth, scheme))
		if got == "" {
			writeError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.clientAPIKey)) != 1 {
			writeError(w, r, http.StatusForbidden, ErrCodeForbidden, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	}
}
