package lifecycle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

// Transition is what listeners see after a transition was committed.
type Transition struct {
	negotiation.TransitionOccurred
	// Negotiation is the aggregate as loaded by the machine.
	Negotiation *negotiation.Negotiation
}

// Listener runs synchronously after a transition is committed.
type Listener interface {
	Name() string
	OnTransition(ctx context.Context, t Transition) error
}

// Pipeline runs listeners in registration order. A failing listener does not
// stop the ones after it.
type Pipeline struct {
	listeners []Listener
	logger    zerolog.Logger
}

func NewPipeline(logger zerolog.Logger, listeners ...Listener) *Pipeline {
	return &Pipeline{
		listeners: listeners,
		logger:    logger.With().Str("service", "lifecycle-pipeline").Logger(),
	}
}

// Use appends a listener.
func (p *Pipeline) Use(l Listener) {
	p.listeners = append(p.listeners, l)
}

// Run returns nil or a *negotiation.ListenerError naming every failure.
func (p *Pipeline) Run(ctx context.Context, t Transition) error {
	var failures []negotiation.ListenerFailure
	for _, l := range p.listeners {
		if err := p.invoke(ctx, l, t); err != nil {
			p.logger.Error().Err(err).
				Str("listener", l.Name()).
				Str("negotiationId", t.NegotiationID).
				Str("event", t.Event).
				Int64("sequence", t.Sequence).
				Msg("transition listener failed")
			failures = append(failures, negotiation.ListenerFailure{Listener: l.Name(), Err: err})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &negotiation.ListenerError{Failures: failures}
}

func (p *Pipeline) invoke(ctx context.Context, l Listener, t Transition) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return l.OnTransition(ctx, t)
}
