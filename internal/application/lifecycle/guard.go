package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

type guardSet map[negotiation.Event]*govaluate.EvaluableExpression

func compileGuards(exprs map[negotiation.Event]string) (guardSet, error) {
	guards := guardSet{}
	for event, raw := range exprs {
		cond := strings.TrimSpace(raw)
		if cond == "" || strings.EqualFold(cond, "true") {
			continue
		}
		expr, err := govaluate.NewEvaluableExpression(cond)
		if err != nil {
			return nil, fmt.Errorf("lifecycle policy: guard for %s: %w", event, err)
		}
		guards[event] = expr
	}
	return guards, nil
}

// check evaluates the guard registered for the event, if any. A false result
// becomes a *TransitionError of kind ErrGuardRejected.
func (g guardSet) check(event negotiation.Event, from negotiation.State, n *negotiation.Negotiation, actor Actor) error {
	expr, ok := g[event]
	if !ok {
		return nil
	}
	ok, err := evaluateGuard(expr, guardParams(from, n, actor))
	if err != nil {
		return fmt.Errorf("evaluate guard for %s: %w", event, err)
	}
	if !ok {
		return &negotiation.TransitionError{
			Scope:  "negotiation",
			From:   string(from),
			Event:  string(event),
			Role:   actor.Role,
			Kind:   negotiation.ErrGuardRejected,
			Detail: expr.String(),
		}
	}
	return nil
}

func evaluateGuard(expr *govaluate.EvaluableExpression, params map[string]interface{}) (bool, error) {
	result, err := expr.Evaluate(params)
	if err != nil {
		return false, err
	}
	switch v := result.(type) {
	case bool:
		return v, nil
	default:
		return false, errors.New("guard did not evaluate to boolean")
	}
}

// guardParams exposes the negotiation to guard expressions. Payload fields
// are available under their dotted path prefixed with "payload." and must be
// bracketed in expressions, e.g. [payload.project.title] != "".
func guardParams(from negotiation.State, n *negotiation.Negotiation, actor Actor) map[string]interface{} {
	params := map[string]interface{}{
		"state":          string(from),
		"role":           string(actor.Role),
		"resource_count": float64(len(n.ResourceIDs)),
		"posts_enabled":  n.PostsEnabled,
	}
	if len(n.Payload) == 0 {
		return params
	}
	var raw interface{}
	if err := json.Unmarshal(n.Payload, &raw); err != nil {
		return params
	}
	if m, ok := raw.(map[string]interface{}); ok {
		flattenPayload("payload", m, params)
	}
	return params
}

func flattenPayload(prefix string, m map[string]interface{}, out map[string]interface{}) {
	for k, v := range m {
		key := prefix + "." + k
		switch vv := v.(type) {
		case map[string]interface{}:
			flattenPayload(key, vv, out)
		default:
			out[key] = vv
		}
	}
}
