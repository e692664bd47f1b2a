package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/TimurManjosov/gopaywall/internal/presentation"
	"github.com/TimurManjosov/gopaywall/internal/rules"
)

type trackRequest struct {
	Event      string         `json:"event,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`

	// PaywallID requests a paywall directly, bypassing rule evaluation.
	// Exactly one of Event and PaywallID must be set.
	PaywallID string `json:"paywallId,omitempty"`

	User   map[string]any `json:"user,omitempty"`
	Device map[string]any `json:"device,omitempty"`

	Locale                   string `json:"locale,omitempty"`
	IgnoreSubscriptionStatus bool   `json:"ignoreSubscriptionStatus,omitempty"`
	Debug                    bool   `json:"debug,omitempty"`

	// SubscriptionStatus is the caller-reported status: ACTIVE, INACTIVE or
	// UNKNOWN. Empty means UNKNOWN.
	SubscriptionStatus string `json:"subscriptionStatus,omitempty"`
}

type trackResponse struct {
	Disposition string                 `json:"disposition"`
	Reason      string                 `json:"reason,omitempty"`
	Artifact    *presentation.Artifact `json:"artifact,omitempty"`
	Experiment  *rules.Experiment      `json:"experiment,omitempty"`
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "invalid JSON")
		return
	}

	req.Event = strings.TrimSpace(req.Event)
	req.PaywallID = strings.TrimSpace(req.PaywallID)
	if req.Event == "" && req.PaywallID == "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeMissingField, "either event or paywallId is required")
		return
	}
	if req.Event != "" && req.PaywallID != "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeValidation, "event and paywallId are mutually exclusive")
		return
	}

	presReq := presentation.Request{
		Identifier:       req.PaywallID,
		UserAttributes:   req.User,
		DeviceAttributes: req.Device,
		Overrides: presentation.Overrides{
			Locale:                   req.Locale,
			IgnoreSubscriptionStatus: req.IgnoreSubscriptionStatus,
		},
		IsDebug: req.Debug,
	}
	if req.Event != "" {
		event := rules.NewEvent(req.Event, req.Parameters)
		presReq.Event = &event
	}

	ctx := r.Context()
	if state, ok := parseSubscriptionState(req.SubscriptionStatus); ok {
		ctx = WithSubscription(ctx, presentation.Subscription{State: state})
	} else {
		writeError(w, r, http.StatusBadRequest, ErrCodeValidation, "subscriptionStatus must be ACTIVE, INACTIVE or UNKNOWN")
		return
	}

	d := s.pipeline.Present(ctx, presReq)
	switch d.Kind {
	case presentation.DispositionPresented:
		writeJSON(w, http.StatusOK, trackResponse{
			Disposition: string(d.Kind),
			Artifact:    d.Artifact,
			Experiment:  d.Experiment,
		})
	case presentation.DispositionSkipped:
		writeJSON(w, http.StatusOK, trackResponse{
			Disposition: string(d.Kind),
			Reason:      string(d.Reason),
			Experiment:  d.Experiment,
		})
	default:
		writeError(w, r, http.StatusBadGateway, ErrCodePresentation, d.Err.Error())
	}
}

func parseSubscriptionState(raw string) (presentation.SubscriptionState, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return presentation.SubscriptionUnknown, true
	case string(presentation.SubscriptionActive):
		return presentation.SubscriptionActive, true
	case string(presentation.SubscriptionInactive):
		return presentation.SubscriptionInactive, true
	case string(presentation.SubscriptionUnknown):
		return presentation.SubscriptionUnknown, true
	default:
		return "", false
	}
}
