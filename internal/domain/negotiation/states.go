package negotiation

// State is the lifecycle state of a whole negotiation.
type State string

const (
	StateSubmitted  State = "SUBMITTED"
	StateInProgress State = "IN_PROGRESS"
	StatePaused     State = "PAUSED"
	StateConcluded  State = "CONCLUDED"
	StateAbandoned  State = "ABANDONED"
	StateDeclined   State = "DECLINED"
)

// Event triggers a negotiation-level transition.
type Event string

const (
	EventApprove  Event = "APPROVE"
	EventDecline  Event = "DECLINE"
	EventPause    Event = "PAUSE"
	EventUnpause  Event = "UNPAUSE"
	EventAbandon  Event = "ABANDON"
	EventConclude Event = "CONCLUDE"
)

// ResourceState is the sub-state of one resource inside a negotiation.
type ResourceState string

const (
	ResourceSubmitted                       ResourceState = "SUBMITTED"
	ResourceRepresentativeContacted         ResourceState = "REPRESENTATIVE_CONTACTED"
	ResourceRepresentativeUnreachable       ResourceState = "REPRESENTATIVE_UNREACHABLE"
	ResourceReturnedForResubmission         ResourceState = "RETURNED_FOR_RESUBMISSION"
	ResourceCheckingAvailability            ResourceState = "CHECKING_AVAILABILITY"
	ResourceAvailable                       ResourceState = "RESOURCE_AVAILABLE"
	ResourceUnavailable                     ResourceState = "RESOURCE_UNAVAILABLE"
	ResourceUnavailableWillingToCollaborate ResourceState = "RESOURCE_UNAVAILABLE_WILLING_TO_COLLABORATE"
	ResourceAccessConditionsIndicated       ResourceState = "ACCESS_CONDITIONS_INDICATED"
	ResourceAccessConditionsMet             ResourceState = "ACCESS_CONDITIONS_MET"
	ResourceNotMadeAvailable                ResourceState = "RESOURCE_NOT_MADE_AVAILABLE"
	ResourceMadeAvailable                   ResourceState = "RESOURCE_MADE_AVAILABLE"
)

// ResourceEvent triggers a resource-level transition.
type ResourceEvent string

const (
	ResourceEventContact                                  ResourceEvent = "CONTACT"
	ResourceEventMarkAsUnreachable                        ResourceEvent = "MARK_AS_UNREACHABLE"
	ResourceEventReturnForResubmission                    ResourceEvent = "RETURN_FOR_RESUBMISSION"
	ResourceEventResubmit                                 ResourceEvent = "RESUBMIT"
	ResourceEventMarkAsCheckingAvailability               ResourceEvent = "MARK_AS_CHECKING_AVAILABILITY"
	ResourceEventMarkAsAvailable                          ResourceEvent = "MARK_AS_AVAILABLE"
	ResourceEventMarkAsUnavailable                        ResourceEvent = "MARK_AS_UNAVAILABLE"
	ResourceEventMarkAsUnavailableButWillingToCollaborate ResourceEvent = "MARK_AS_UNAVAILABLE_BUT_WILLING_TO_COLLABORATE"
	ResourceEventIndicateAccessConditions                 ResourceEvent = "INDICATE_ACCESS_CONDITIONS"
	ResourceEventAcceptAccessConditions                   ResourceEvent = "ACCEPT_ACCESS_CONDITIONS"
	ResourceEventDeclineAccessConditions                  ResourceEvent = "DECLINE_ACCESS_CONDITIONS"
	ResourceEventGrantAccessToResource                    ResourceEvent = "GRANT_ACCESS_TO_RESOURCE"
	ResourceEventStepAway                                 ResourceEvent = "STEP_AWAY"
)

// InitialState is the state every negotiation is created in.
const InitialState = StateSubmitted

// InitialResourceState is the state a resource sub-machine is seeded in.
const InitialResourceState = ResourceSubmitted

// IsTerminal reports whether no negotiation rule leaves s.
func (s State) IsTerminal() bool {
	return s == StateConcluded || s == StateAbandoned || s == StateDeclined
}
