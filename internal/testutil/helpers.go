// Package testutil provides helpers for wiring a full server against an
// in-memory assignment store in tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/gopaywall/internal/api"
	"github.com/TimurManjosov/gopaywall/internal/assign"
	"github.com/TimurManjosov/gopaywall/internal/presentation"
	"github.com/TimurManjosov/gopaywall/internal/rules"
	"github.com/TimurManjosov/gopaywall/internal/snapshot"
	"github.com/TimurManjosov/gopaywall/internal/store"
	"github.com/TimurManjosov/gopaywall/internal/trigger"
)

// NewTestServer wires a server with an in-memory store around the given
// campaign YAML. draw fixes variant selection; nil uses the default random
// draw.
func NewTestServer(t *testing.T, campaignYAML, clientKey string, draw assign.Draw) (*api.Server, *store.MemoryStore) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "campaign.yaml")
	if err := os.WriteFile(path, []byte(campaignYAML), 0o600); err != nil {
		t.Fatalf("write campaign: %v", err)
	}
	snap, err := snapshot.LoadFile(path)
	if err != nil {
		t.Fatalf("load campaign: %v", err)
	}
	provider := snapshot.NewProvider()
	provider.Update(snap)

	memStore := store.NewMemoryStore()
	pipeline, err := presentation.New(presentation.Deps{
		Config:        provider,
		Assignments:   memStore,
		Identity:      api.ImmediateIdentity{},
		Builder:       api.SnapshotBuilder{Provider: provider},
		Subscriptions: api.RequestSubscriptions{},
		Sink:          api.LogSink{Logger: zerolog.Nop()},
		Engine:        trigger.New(draw, zerolog.Nop()),
		Logger:        zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("wire pipeline: %v", err)
	}

	return api.NewServer(pipeline, provider, path, clientKey, zerolog.Nop()), memStore
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// SeedAssignments populates the store with confirmed assignments.
func SeedAssignments(ctx context.Context, st store.AssignmentStorage, assignments []rules.Assignment) error {
	for _, a := range assignments {
		if err := st.Put(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
