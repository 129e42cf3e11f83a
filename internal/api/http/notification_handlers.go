package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	appNotification "github.com/negotiation-hub/negotiation-hub/internal/application/notification"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/notification"
)

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	limit, offset := parseLimitOffset(r, 100, 200)
	ns, err := s.notificationSvc.ListForUser(contextFromRequest(r), auth.Account(), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"notifications": ns})
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	id, err := parseUUIDParam(r, "notificationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid notificationId")
		return
	}
	n, err := s.notificationSvc.MarkRead(contextFromRequest(r), auth.Account(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// sseGroups lists the groups a stream joins: the caller's own groups plus
// the lifecycle group of every requested negotiation the caller may see.
func (s *Server) sseGroups(r *http.Request, auth *AuthUser) ([]string, error) {
	account := auth.Account()
	groups := appNotification.GroupsFor(account)
	for _, id := range splitCSV(r.URL.Query().Get("negotiation")) {
		n, err := s.negotiationSvc.GetFor(contextFromRequest(r), account, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, notification.NegotiationGroup(n.ID))
	}
	return groups, nil
}

func (s *Server) sseEndpoint(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	groups, err := s.sseGroups(r, auth)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	userID := auth.UserID.String()
	client := notification.NewSSEClient(clientID, &userID, groups)
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(clientID)

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg, open := <-client.MessageChan:
			if !open || msg == nil {
				return
			}
			payload, _ := json.Marshal(msg)
			_, _ = w.Write([]byte("event: " + msg.Event + "\n"))
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
