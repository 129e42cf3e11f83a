package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appLifecycle "github.com/negotiation-hub/negotiation-hub/internal/application/lifecycle"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

type lifecycleEventRequest struct {
	Message       string `json:"message,omitempty"`
	ExpectedState string `json:"expected_state,omitempty"`
}

// expectedState returns the source state the caller acted on, taken from the
// If-Match header or the expected_state body field. The header wins when both
// are present.
func expectedState(r *http.Request, req lifecycleEventRequest) string {
	if h := strings.TrimSpace(r.Header.Get("If-Match")); h != "" && h != "*" {
		h = strings.TrimPrefix(h, "W/")
		return strings.ToUpper(strings.Trim(h, `"`))
	}
	return strings.ToUpper(strings.TrimSpace(req.ExpectedState))
}

func submitOptions(r *http.Request, req lifecycleEventRequest) []appLifecycle.SubmitOption {
	if state := expectedState(r, req); state != "" {
		return []appLifecycle.SubmitOption{appLifecycle.FromState(state)}
	}
	return nil
}

func stateTag(state string) string {
	return `"` + state + `"`
}

type lifecycleResponse struct {
	NegotiationID  string      `json:"negotiation_id"`
	ResourceID     string      `json:"resource_id,omitempty"`
	State          string      `json:"state"`
	Role           string      `json:"role,omitempty"`
	PossibleEvents interface{} `json:"possible_events"`
	Warnings       []string    `json:"warnings,omitempty"`
}

// lifecycleActor resolves the role the caller acts in on the negotiation, or
// on one of its resources when resourceID is set.
func (s *Server) lifecycleActor(r *http.Request, negotiationID, resourceID string) (appLifecycle.Actor, error) {
	auth := authUserFromContext(r.Context())
	if auth == nil {
		return appLifecycle.Actor{}, errors.New("missing auth")
	}
	role, err := s.negotiationSvc.ResolveRole(contextFromRequest(r), auth.Account(), negotiationID, resourceID)
	if err != nil {
		return appLifecycle.Actor{}, err
	}
	return appLifecycle.Actor{ID: auth.ActorID(), Role: role}, nil
}

func (s *Server) getLifecycle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "negotiationId")
	actor, err := s.lifecycleActor(r, id, "")
	if err != nil {
		respondServiceError(w, err)
		return
	}
	ctx := contextFromRequest(r)
	state, err := s.lifecycleSvc.CurrentState(ctx, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	events, err := s.lifecycleSvc.PossibleEventsForRole(ctx, id, actor.Role)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("ETag", stateTag(string(state)))
	respondJSON(w, http.StatusOK, lifecycleResponse{
		NegotiationID:  id,
		State:          string(state),
		Role:           string(actor.Role),
		PossibleEvents: events,
	})
}

func (s *Server) submitNegotiationEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "negotiationId")
	event := negotiation.Event(strings.ToUpper(chi.URLParam(r, "event")))
	var req lifecycleEventRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	actor, err := s.lifecycleActor(r, id, "")
	if err != nil {
		respondServiceError(w, err)
		return
	}
	ctx := contextFromRequest(r)
	state, err := s.lifecycleSvc.SubmitNegotiationEvent(ctx, id, event, actor, req.Message, submitOptions(r, req)...)
	warnings, committed := listenerWarnings(err)
	if err != nil && !committed {
		respondServiceError(w, err)
		return
	}
	if committed {
		s.logger.Warn().Err(err).Str("negotiationId", id).Str("event", string(event)).Msg("transition committed with listener failures")
	}
	events, _ := s.lifecycleSvc.PossibleEventsForRole(ctx, id, actor.Role)
	respondJSON(w, http.StatusOK, lifecycleResponse{
		NegotiationID:  id,
		State:          string(state),
		Role:           string(actor.Role),
		PossibleEvents: events,
		Warnings:       warnings,
	})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	ctx := contextFromRequest(r)
	n, err := s.negotiationSvc.GetFor(ctx, auth.Account(), chi.URLParam(r, "negotiationId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	entries, err := s.lifecycleSvc.History(ctx, n.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) getResourceStates(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	ctx := contextFromRequest(r)
	n, err := s.negotiationSvc.GetFor(ctx, auth.Account(), chi.URLParam(r, "negotiationId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	states, err := s.lifecycleSvc.CurrentStatePerResource(ctx, n.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"negotiation_id": n.ID,
		"resources":      states,
	})
}

func (s *Server) getResourceLifecycle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "negotiationId")
	resourceID := chi.URLParam(r, "resourceId")
	actor, err := s.lifecycleActor(r, id, resourceID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	ctx := contextFromRequest(r)
	state, err := s.lifecycleSvc.CurrentResourceState(ctx, id, resourceID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	events, err := s.lifecycleSvc.PossibleResourceEventsForRole(ctx, id, resourceID, actor.Role)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("ETag", stateTag(string(state)))
	respondJSON(w, http.StatusOK, lifecycleResponse{
		NegotiationID:  id,
		ResourceID:     resourceID,
		State:          string(state),
		Role:           string(actor.Role),
		PossibleEvents: events,
	})
}

func (s *Server) submitResourceEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "negotiationId")
	resourceID := chi.URLParam(r, "resourceId")
	event := negotiation.ResourceEvent(strings.ToUpper(chi.URLParam(r, "event")))
	var req lifecycleEventRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	actor, err := s.lifecycleActor(r, id, resourceID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	ctx := contextFromRequest(r)
	state, err := s.lifecycleSvc.SubmitResourceEvent(ctx, id, resourceID, event, actor, req.Message, submitOptions(r, req)...)
	warnings, committed := listenerWarnings(err)
	if err != nil && !committed {
		respondServiceError(w, err)
		return
	}
	if committed {
		s.logger.Warn().Err(err).
			Str("negotiationId", id).
			Str("resourceId", resourceID).
			Str("event", string(event)).
			Msg("transition committed with listener failures")
	}
	events, _ := s.lifecycleSvc.PossibleResourceEventsForRole(ctx, id, resourceID, actor.Role)
	respondJSON(w, http.StatusOK, lifecycleResponse{
		NegotiationID:  id,
		ResourceID:     resourceID,
		State:          string(state),
		Role:           string(actor.Role),
		PossibleEvents: events,
		Warnings:       warnings,
	})
}

func (s *Server) initializeResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "negotiationId")
	resourceID := chi.URLParam(r, "resourceId")
	state, err := s.lifecycleSvc.InitializeResource(contextFromRequest(r), id, resourceID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lifecycleResponse{
		NegotiationID:  id,
		ResourceID:     resourceID,
		State:          string(state),
		PossibleEvents: s.lifecycleSvc.ResourceRules().Events(state),
	})
}
