package httpapi

import (
	"net/http"
	"strconv"
	"time"

	appAudit "github.com/negotiation-hub/negotiation-hub/internal/application/audit"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

type ruleView struct {
	From  string      `json:"from"`
	Event string      `json:"event"`
	Roles []user.Role `json:"roles"`
	To    string      `json:"to"`
}

func rulesView[S, E ~string](t *negotiation.RuleTable[S, E]) []ruleView {
	rules := t.Rules()
	out := make([]ruleView, 0, len(rules))
	for _, r := range rules {
		out = append(out, ruleView{
			From:  string(r.From),
			Event: string(r.Event),
			Roles: r.Roles,
			To:    string(r.To),
		})
	}
	return out
}

// Audit handlers
func (s *Server) queryAudit(w http.ResponseWriter, r *http.Request) {
	params := appAudit.QueryParams{
		Limit: 50,
	}
	q := r.URL.Query()
	if v := q.Get("entityType"); v != "" {
		params.EntityType = &v
	}
	if v := q.Get("entityId"); v != "" {
		params.EntityID = &v
	}
	if v := q.Get("action"); v != "" {
		params.Action = &v
	}
	if v := q.Get("actor"); v != "" {
		params.Actor = &v
	}
	if v := q.Get("riskLevel"); v != "" {
		params.RiskLevel = &v
	}
	if v := q.Get("tags"); v != "" {
		params.Tags = splitCSV(v)
	}
	for key, dst := range map[string]**time.Time{"from": &params.StartTime, "to": &params.EndTime} {
		if v := q.Get(key); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid "+key)
				return
			}
			*dst = &t
		}
	}
	if v := q.Get("cursor"); v != "" {
		params.Cursor = &v
	}
	if v := q.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			params.Limit = l
		}
	}
	res, err := s.auditSvc.Query(contextFromRequest(r), params)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "auditId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid auditId")
		return
	}
	log, err := s.auditSvc.GetByID(contextFromRequest(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, log)
}

func (s *Server) verifyAudit(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "auditId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid auditId")
		return
	}
	res, err := s.auditSvc.VerifyIntegrity(contextFromRequest(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "metrics disabled")
		return
	}
	points, err := s.metrics.Snapshot(contextFromRequest(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	resp := map[string]interface{}{"metrics": points}
	if s.sseHub != nil {
		resp["sse_clients"] = s.sseHub.GetClientCount()
		resp["sse_dropped"] = s.sseHub.Dropped()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) getRules(w http.ResponseWriter, r *http.Request) {
	policy := s.lifecycleSvc.Policy()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"negotiation": rulesView(s.lifecycleSvc.NegotiationRules()),
		"resource":    rulesView(s.lifecycleSvc.ResourceRules()),
		"policy":      policy,
	})
}
