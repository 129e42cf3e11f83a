package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

// DefaultPublisherBuffer is the queue size used when none is configured.
const DefaultPublisherBuffer = 256

// Subscriber consumes committed transitions asynchronously.
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, event negotiation.TransitionOccurred) error
}

type subscription struct {
	sub   Subscriber
	inbox chan negotiation.TransitionOccurred
}

// Publisher fans committed transitions out to subscribers. Publish never
// blocks: when a queue is full the event is dropped and counted.
type Publisher struct {
	queue  chan negotiation.TransitionOccurred
	subs   []*subscription
	buffer int
	logger zerolog.Logger

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup

	dropped atomic.Int64
	onDrop  []func(subscriber string)
}

func NewPublisher(logger zerolog.Logger, buffer int, subs ...Subscriber) *Publisher {
	if buffer <= 0 {
		buffer = DefaultPublisherBuffer
	}
	p := &Publisher{
		queue:  make(chan negotiation.TransitionOccurred, buffer),
		buffer: buffer,
		logger: logger.With().Str("service", "lifecycle-publisher").Logger(),
	}
	for _, s := range subs {
		p.Subscribe(s)
	}
	return p
}

// Subscribe registers a subscriber. It has no effect once Start was called.
func (p *Publisher) Subscribe(s Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		p.logger.Warn().Str("subscriber", s.Name()).Msg("subscribe after start ignored")
		return
	}
	p.subs = append(p.subs, &subscription{
		sub:   s,
		inbox: make(chan negotiation.TransitionOccurred, p.buffer),
	})
}

// OnDrop registers a hook called for every dropped event. The subscriber
// name is empty when the publisher queue itself was full. Like Subscribe,
// it must be called before Start.
func (p *Publisher) OnDrop(fn func(subscriber string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.onDrop = append(p.onDrop, fn)
}

// Publish enqueues the event and reports whether it was accepted.
func (p *Publisher) Publish(event negotiation.TransitionOccurred) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop(event, "", "publisher stopped")
		return false
	}
	select {
	case p.queue <- event:
		return true
	default:
		p.drop(event, "", "publisher queue full")
		return false
	}
}

// Start launches the dispatcher and one worker per subscriber. Handlers run
// with ctx.
func (p *Publisher) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for _, s := range p.subs {
		p.wg.Add(1)
		go p.work(ctx, s)
	}
	p.wg.Add(1)
	go p.dispatch()
}

// Stop stops accepting events and waits until queued events were handled.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	started := p.started
	close(p.queue)
	p.mu.Unlock()

	if !started {
		for range p.queue {
			p.dropped.Add(1)
		}
		return
	}
	p.wg.Wait()
}

// Dropped returns the number of events dropped so far.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) dispatch() {
	defer p.wg.Done()
	for event := range p.queue {
		for _, s := range p.subs {
			select {
			case s.inbox <- event:
			default:
				p.drop(event, s.sub.Name(), "subscriber inbox full")
			}
		}
	}
	for _, s := range p.subs {
		close(s.inbox)
	}
}

func (p *Publisher) work(ctx context.Context, s *subscription) {
	defer p.wg.Done()
	for event := range s.inbox {
		p.handle(ctx, s.sub, event)
	}
}

func (p *Publisher) handle(ctx context.Context, sub Subscriber, event negotiation.TransitionOccurred) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("subscriber", sub.Name()).
				Interface("panic", r).
				Msg("subscriber panicked")
		}
	}()
	if err := sub.Handle(ctx, event); err != nil {
		p.logger.Error().Err(err).
			Str("subscriber", sub.Name()).
			Str("negotiationId", event.NegotiationID).
			Str("event", event.Event).
			Int64("sequence", event.Sequence).
			Msg("subscriber failed")
	}
}

func (p *Publisher) drop(event negotiation.TransitionOccurred, subscriber, reason string) {
	p.dropped.Add(1)
	p.logger.Warn().
		Str("subscriber", subscriber).
		Str("negotiationId", event.NegotiationID).
		Str("event", event.Event).
		Int64("sequence", event.Sequence).
		Msg(reason)
	for _, fn := range p.onDrop {
		fn(subscriber)
	}
}
