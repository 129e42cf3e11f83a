package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	appUser "github.com/negotiation-hub/negotiation-hub/internal/application/user"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/audit"
	domainUser "github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

type userCreateRequest struct {
	Username  string   `json:"username"`
	Email     string   `json:"email,omitempty"`
	Password  string   `json:"password"`
	Role      string   `json:"role"`
	Resources []string `json:"resources,omitempty"`
}

type userUpdateRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	Status   *string `json:"status,omitempty"`
}

type userResourcesRequest struct {
	Resources []string `json:"resources"`
}

type passwordUpdateRequest struct {
	Password string `json:"password"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	role, err := parseRole(req.Role)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	u, err := s.userSvc.CreateUser(r.Context(), appUser.CreateInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Role:      role,
		Resources: req.Resources,
		Status:    domainUser.StatusActive,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	s.auditUser(r, u, audit.ActionCreate, "user created")
	respondJSON(w, http.StatusOK, u)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 100, 200)
	filter := domainUser.Filter{}
	if v := r.URL.Query().Get("role"); v != "" {
		role, err := parseRole(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
			return
		}
		filter.Role = &role
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st := domainUser.Status(strings.ToUpper(v))
		filter.Status = &st
	}
	if v := r.URL.Query().Get("resource"); v != "" {
		filter.Resource = &v
	}
	users, err := s.userSvc.ListUsers(r.Context(), filter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid userId")
		return
	}
	u, err := s.userSvc.GetUser(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if u == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid userId")
		return
	}
	var req userUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	var role *domainUser.Role
	if req.Role != nil {
		parsed, err := parseRole(*req.Role)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
			return
		}
		role = &parsed
	}
	var status *domainUser.Status
	if req.Status != nil {
		st := domainUser.Status(strings.ToUpper(*req.Status))
		if err := domainUser.ValidateStatus(st); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
			return
		}
		status = &st
	}
	u, err := s.userSvc.UpdateUser(r.Context(), id, appUser.UpdateInput{
		Username: req.Username,
		Email:    req.Email,
		Role:     role,
		Status:   status,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if role != nil || status != nil {
		s.revokeSessions(r, u.UserID)
	}
	s.auditUser(r, u, audit.ActionUpdate, "user updated")
	respondJSON(w, http.StatusOK, u)
}

func (s *Server) setUserResources(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid userId")
		return
	}
	var req userResourcesRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	u, err := s.userSvc.SetResources(r.Context(), id, req.Resources)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	s.revokeSessions(r, u.UserID)
	s.auditUser(r, u, audit.ActionUpdate, "represented resources changed")
	respondJSON(w, http.StatusOK, u)
}

// revokeSessions signs a user out after an access change. Sessions that
// survive a failed revoke are still rejected on their next request because
// their grant no longer matches.
func (s *Server) revokeSessions(r *http.Request, userID uuid.UUID) {
	if _, err := s.authSvc.RevokeUser(r.Context(), userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("session revoke failed")
	}
}

func (s *Server) setUserPassword(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid userId")
		return
	}
	var req passwordUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if err := s.userSvc.SetPassword(r.Context(), id, req.Password); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "OK"})
}

func (s *Server) auditUser(r *http.Request, u *domainUser.User, action audit.Action, reason string) {
	auth := authUserFromContext(r.Context())
	if auth == nil || u == nil {
		return
	}
	s.auditSvc.Log(r.Context(), &audit.AuditEntry{
		EntityType: audit.EntityTypeUser,
		EntityID:   u.UserID.String(),
		Action:     action,
		Actor:      auth.ActorString(),
		ActorRole:  string(auth.Role),
		NewValues: map[string]interface{}{
			"username":  u.Username,
			"role":      u.Role,
			"status":    u.Status,
			"resources": u.Resources,
		},
		Reason: reason,
	})
}

func parseRole(role string) (domainUser.Role, error) {
	r := domainUser.Role(strings.ToUpper(role))
	if err := domainUser.ValidateRole(r); err != nil {
		return "", err
	}
	return r, nil
}
