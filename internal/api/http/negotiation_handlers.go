package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appNegotiation "github.com/negotiation-hub/negotiation-hub/internal/application/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

type negotiationCreateRequest struct {
	Payload      json.RawMessage `json:"payload,omitempty"`
	ResourceIDs  []string        `json:"resource_ids"`
	PostsEnabled bool            `json:"posts_enabled,omitempty"`
}

type attachResourcesRequest struct {
	ResourceIDs []string `json:"resource_ids"`
}

type postsEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) createNegotiation(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	var req negotiationCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	n, err := s.negotiationSvc.Create(contextFromRequest(r), auth.Account(), appNegotiation.CreateInput{
		Payload:      req.Payload,
		ResourceIDs:  req.ResourceIDs,
		PostsEnabled: req.PostsEnabled,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) listNegotiations(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	limit, offset := parseLimitOffset(r, 100, 200)
	filter := negotiation.Filter{}
	if v := r.URL.Query().Get("state"); v != "" {
		st := negotiation.State(strings.ToUpper(v))
		filter.State = &st
	}
	if v := r.URL.Query().Get("creator_id"); v != "" {
		filter.CreatorID = &v
	}
	if v := r.URL.Query().Get("resource_ids"); v != "" {
		filter.ResourceIDs = splitCSV(v)
	}
	ns, err := s.negotiationSvc.List(contextFromRequest(r), auth.Account(), filter, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"negotiations": ns})
}

func (s *Server) getNegotiation(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	n, err := s.negotiationSvc.GetFor(contextFromRequest(r), auth.Account(), chi.URLParam(r, "negotiationId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) attachResources(w http.ResponseWriter, r *http.Request) {
	var req attachResourcesRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if len(req.ResourceIDs) == 0 {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "resource_ids required")
		return
	}
	n, seeded, err := s.negotiationSvc.AttachResources(contextFromRequest(r), chi.URLParam(r, "negotiationId"), req.ResourceIDs)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"negotiation": n,
		"seeded":      seeded,
	})
}

func (s *Server) setPostsEnabled(w http.ResponseWriter, r *http.Request) {
	var req postsEnabledRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	n, err := s.negotiationSvc.SetPostsEnabled(contextFromRequest(r), chi.URLParam(r, "negotiationId"), req.Enabled)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	posts, err := s.negotiationSvc.ListPosts(contextFromRequest(r), auth.Account(), chi.URLParam(r, "negotiationId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}
