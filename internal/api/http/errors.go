package httpapi

import (
	"errors"
	"net/http"

	appNegotiation "github.com/negotiation-hub/negotiation-hub/internal/application/negotiation"
	appNotification "github.com/negotiation-hub/negotiation-hub/internal/application/notification"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
	domainNotification "github.com/negotiation-hub/negotiation-hub/internal/domain/notification"
)

// statusForCode maps lifecycle error codes to HTTP statuses.
var statusForCode = map[negotiation.ErrorCode]int{
	negotiation.CodeNotFound:           http.StatusNotFound,
	negotiation.CodeNotApplicable:      http.StatusConflict,
	negotiation.CodeNotAllowed:         http.StatusForbidden,
	negotiation.CodePreconditionFailed: http.StatusUnprocessableEntity,
	negotiation.CodeConflict:           http.StatusConflict,
	negotiation.CodeAlreadyInitialized: http.StatusConflict,
	negotiation.CodeInternal:           http.StatusInternalServerError,
}

// respondServiceError writes err with the status its code maps to.
// Listener failures are not errors for the caller and must be handled
// before reaching here.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appNegotiation.ErrForbidden):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
		return
	case errors.Is(err, appNegotiation.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	case errors.Is(err, appNotification.ErrNotFound):
		respondError(w, http.StatusNotFound, string(negotiation.CodeNotFound), err.Error())
		return
	case errors.Is(err, domainNotification.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "INVALID_STATE", err.Error())
		return
	}
	code := negotiation.Code(err)
	status, ok := statusForCode[code]
	if !ok {
		status = http.StatusInternalServerError
		code = negotiation.CodeInternal
	}
	respondError(w, status, string(code), err.Error())
}

// listenerWarnings splits a committed-with-warnings result from a real
// failure. It returns the warnings and whether err was a listener failure.
func listenerWarnings(err error) ([]string, bool) {
	if !errors.Is(err, negotiation.ErrListenerFailure) {
		return nil, false
	}
	var le *negotiation.ListenerError
	if !errors.As(err, &le) {
		return []string{err.Error()}, true
	}
	out := make([]string, 0, len(le.Failures))
	for _, f := range le.Failures {
		out = append(out, f.Listener+": "+f.Err.Error())
	}
	return out, true
}
