package negotiation

import (
	"fmt"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

// Rule is a single legal transition: From --Event--> To, allowed for Roles.
type Rule[S, E ~string] struct {
	From  S
	Event E
	Roles []user.Role
	To    S
}

type ruleKey[S, E ~string] struct {
	from  S
	event E
	role  user.Role
}

type eventKey[S, E ~string] struct {
	from  S
	event E
}

// RuleTable resolves (state, event, role) to the next state. It is built once
// and never mutated, so it is safe for concurrent use without locking.
type RuleTable[S, E ~string] struct {
	scope   string
	rules   []Rule[S, E]
	next    map[ruleKey[S, E]]S
	known   map[eventKey[S, E]]struct{}
	byState map[S][]E
}

// NegotiationRules is the rule table for negotiation-level events.
type NegotiationRules = RuleTable[State, Event]

// ResourceRules is the rule table for resource-level events.
type ResourceRules = RuleTable[ResourceState, ResourceEvent]

// NewRuleTable indexes rules. A (from, event, role) triple may appear only once.
func NewRuleTable[S, E ~string](scope string, rules ...Rule[S, E]) (*RuleTable[S, E], error) {
	t := &RuleTable[S, E]{
		scope:   scope,
		rules:   make([]Rule[S, E], 0, len(rules)),
		next:    make(map[ruleKey[S, E]]S),
		known:   make(map[eventKey[S, E]]struct{}),
		byState: make(map[S][]E),
	}
	for _, r := range rules {
		if r.From == "" || r.Event == "" || r.To == "" {
			return nil, fmt.Errorf("%s rule has empty field: %+v", scope, r)
		}
		if len(r.Roles) == 0 {
			return nil, fmt.Errorf("%s rule %s --%s--> %s has no roles", scope, r.From, r.Event, r.To)
		}
		for _, role := range r.Roles {
			k := ruleKey[S, E]{from: r.From, event: r.Event, role: role}
			if _, dup := t.next[k]; dup {
				return nil, fmt.Errorf("%s rule %s --%s--> defined twice for role %s", scope, r.From, r.Event, role)
			}
			t.next[k] = r.To
		}
		ek := eventKey[S, E]{from: r.From, event: r.Event}
		if _, seen := t.known[ek]; !seen {
			t.known[ek] = struct{}{}
			t.byState[r.From] = append(t.byState[r.From], r.Event)
		}
		t.rules = append(t.rules, r)
	}
	return t, nil
}

// MustRuleTable is NewRuleTable that panics on an invalid table.
func MustRuleTable[S, E ~string](scope string, rules ...Rule[S, E]) *RuleTable[S, E] {
	t, err := NewRuleTable(scope, rules...)
	if err != nil {
		panic(err)
	}
	return t
}

// Scope names the machine kind the table belongs to.
func (t *RuleTable[S, E]) Scope() string {
	return t.scope
}

// Next returns the destination state or a *TransitionError whose kind is
// ErrNoSuchEvent or ErrRoleNotAllowed.
func (t *RuleTable[S, E]) Next(from S, event E, role user.Role) (S, error) {
	if to, ok := t.next[ruleKey[S, E]{from: from, event: event, role: role}]; ok {
		return to, nil
	}
	kind := ErrNoSuchEvent
	if _, ok := t.known[eventKey[S, E]{from: from, event: event}]; ok {
		kind = ErrRoleNotAllowed
	}
	var zero S
	return zero, &TransitionError{
		Scope: t.scope,
		From:  string(from),
		Event: string(event),
		Role:  role,
		Kind:  kind,
	}
}

// Has reports whether any rule exists for event from state from.
func (t *RuleTable[S, E]) Has(from S, event E) bool {
	_, ok := t.known[eventKey[S, E]{from: from, event: event}]
	return ok
}

// Events lists every event with a rule leaving from, whatever the role.
func (t *RuleTable[S, E]) Events(from S) []E {
	events := t.byState[from]
	out := make([]E, len(events))
	copy(out, events)
	return out
}

// EventsForRole lists the events role may trigger from state from.
func (t *RuleTable[S, E]) EventsForRole(from S, role user.Role) []E {
	out := []E{}
	for _, e := range t.byState[from] {
		if _, ok := t.next[ruleKey[S, E]{from: from, event: e, role: role}]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Rules returns a copy of the rules in registration order.
func (t *RuleTable[S, E]) Rules() []Rule[S, E] {
	out := make([]Rule[S, E], len(t.rules))
	copy(out, t.rules)
	return out
}

var (
	researcherOrAdmin     = []user.Role{user.RoleResearcher, user.RoleAdmin}
	representativeOrAdmin = []user.Role{user.RoleRepresentative, user.RoleAdmin}
	adminOnly             = []user.Role{user.RoleAdmin}
	researcherOnly        = []user.Role{user.RoleResearcher}
)

// DefaultNegotiationRules returns the negotiation lifecycle.
func DefaultNegotiationRules() *NegotiationRules {
	return MustRuleTable("negotiation",
		Rule[State, Event]{From: StateSubmitted, Event: EventApprove, Roles: adminOnly, To: StateInProgress},
		Rule[State, Event]{From: StateSubmitted, Event: EventDecline, Roles: adminOnly, To: StateDeclined},
		Rule[State, Event]{From: StateSubmitted, Event: EventAbandon, Roles: researcherOrAdmin, To: StateAbandoned},
		Rule[State, Event]{From: StateInProgress, Event: EventPause, Roles: researcherOrAdmin, To: StatePaused},
		Rule[State, Event]{From: StateInProgress, Event: EventAbandon, Roles: researcherOrAdmin, To: StateAbandoned},
		Rule[State, Event]{From: StateInProgress, Event: EventConclude, Roles: researcherOrAdmin, To: StateConcluded},
		Rule[State, Event]{From: StatePaused, Event: EventUnpause, Roles: researcherOrAdmin, To: StateInProgress},
		Rule[State, Event]{From: StatePaused, Event: EventAbandon, Roles: researcherOrAdmin, To: StateAbandoned},
	)
}

// DefaultResourceRules returns the per-resource lifecycle.
func DefaultResourceRules() *ResourceRules {
	type r = Rule[ResourceState, ResourceEvent]
	return MustRuleTable("resource",
		r{From: ResourceSubmitted, Event: ResourceEventContact, Roles: representativeOrAdmin, To: ResourceRepresentativeContacted},
		r{From: ResourceSubmitted, Event: ResourceEventMarkAsUnreachable, Roles: adminOnly, To: ResourceRepresentativeUnreachable},
		r{From: ResourceRepresentativeUnreachable, Event: ResourceEventContact, Roles: representativeOrAdmin, To: ResourceRepresentativeContacted},
		r{From: ResourceRepresentativeContacted, Event: ResourceEventReturnForResubmission, Roles: representativeOrAdmin, To: ResourceReturnedForResubmission},
		r{From: ResourceReturnedForResubmission, Event: ResourceEventResubmit, Roles: researcherOnly, To: ResourceRepresentativeContacted},
		r{From: ResourceRepresentativeContacted, Event: ResourceEventMarkAsCheckingAvailability, Roles: representativeOrAdmin, To: ResourceCheckingAvailability},
		r{From: ResourceRepresentativeContacted, Event: ResourceEventMarkAsUnavailable, Roles: representativeOrAdmin, To: ResourceUnavailable},
		r{From: ResourceCheckingAvailability, Event: ResourceEventMarkAsAvailable, Roles: representativeOrAdmin, To: ResourceAvailable},
		r{From: ResourceCheckingAvailability, Event: ResourceEventMarkAsUnavailable, Roles: representativeOrAdmin, To: ResourceUnavailable},
		r{From: ResourceCheckingAvailability, Event: ResourceEventMarkAsUnavailableButWillingToCollaborate, Roles: representativeOrAdmin, To: ResourceUnavailableWillingToCollaborate},
		r{From: ResourceAvailable, Event: ResourceEventIndicateAccessConditions, Roles: representativeOrAdmin, To: ResourceAccessConditionsIndicated},
		r{From: ResourceAvailable, Event: ResourceEventStepAway, Roles: representativeOrAdmin, To: ResourceNotMadeAvailable},
		r{From: ResourceAccessConditionsIndicated, Event: ResourceEventAcceptAccessConditions, Roles: researcherOnly, To: ResourceAccessConditionsMet},
		r{From: ResourceAccessConditionsIndicated, Event: ResourceEventDeclineAccessConditions, Roles: researcherOnly, To: ResourceNotMadeAvailable},
		r{From: ResourceAccessConditionsMet, Event: ResourceEventGrantAccessToResource, Roles: representativeOrAdmin, To: ResourceMadeAvailable},
		r{From: ResourceAccessConditionsMet, Event: ResourceEventStepAway, Roles: representativeOrAdmin, To: ResourceNotMadeAvailable},
	)
}
