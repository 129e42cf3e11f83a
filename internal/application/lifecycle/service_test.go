package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/memory"
)

var (
	admin          = Actor{ID: "admin-1", Role: user.RoleAdmin}
	researcher     = Actor{ID: "researcher-1", Role: user.RoleResearcher}
	representative = Actor{ID: "rep-1", Role: user.RoleRepresentative}
)

type fixture struct {
	repo   *memory.NegotiationRepository
	posts  *memory.PostRepository
	ledger *memory.Ledger
	svc    *Service
	seen   *recordingListener
}

type recordingListener struct {
	mu          sync.Mutex
	transitions []Transition
	err         error
}

func (l *recordingListener) Name() string { return "recorder" }

func (l *recordingListener) OnTransition(ctx context.Context, t Transition) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transitions = append(l.transitions, t)
	return l.err
}

func (l *recordingListener) all() []Transition {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transition{}, l.transitions...)
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()
	f := &fixture{
		repo:   memory.NewNegotiationRepository(),
		posts:  memory.NewPostRepository(),
		ledger: memory.NewLedger(),
		seen:   &recordingListener{},
	}
	pipeline := NewPipeline(zerolog.Nop(),
		NewStateCacheListener(f.repo),
		NewPostListener(f.posts),
		f.seen,
	)
	svc, err := NewService(f.repo, f.ledger, pipeline, policy, zerolog.Nop())
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) create(t *testing.T, resources ...string) *negotiation.Negotiation {
	t.Helper()
	ctx := context.Background()
	n := negotiation.New(researcher.ID, []byte(`{"project":{"title":"Biobank study"}}`), resources)
	n.PostsEnabled = true
	require.NoError(t, f.repo.Create(ctx, n))
	state, err := f.svc.InitializeNegotiation(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, negotiation.StateSubmitted, state)
	return n
}

func (f *fixture) attach(t *testing.T, n *negotiation.Negotiation, resources ...string) {
	t.Helper()
	require.NoError(t, f.repo.AttachResources(context.Background(), n.ID, resources, n.CreatedAt))
}

func TestApproveSeedsAttachedResources(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	n := f.create(t)
	f.attach(t, n, "R1", "R2")
	before := f.ledger.Len()

	state, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.NoError(t, err)
	assert.Equal(t, negotiation.StateInProgress, state)
	assert.Equal(t, before+3, f.ledger.Len())

	per, err := f.svc.CurrentStatePerResource(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]negotiation.ResourceState{
		"R1": negotiation.ResourceSubmitted,
		"R2": negotiation.ResourceSubmitted,
	}, per)

	stored, err := f.repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, negotiation.StateInProgress, stored.State)

	seen := f.seen.all()
	require.Len(t, seen, 1)
	assert.Equal(t, []string{"R1", "R2"}, seen[0].SeededResources)
	assert.Equal(t, string(negotiation.StateSubmitted), seen[0].FromState)
}

func TestApproveTwiceIsRejectedWithoutNewEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	n := f.create(t, "R1", "R2")

	_, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.NoError(t, err)
	count := f.ledger.Len()

	_, err = f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, negotiation.ErrInvalidTransition)
	assert.ErrorIs(t, err, negotiation.ErrNoSuchEvent)
	assert.Equal(t, count, f.ledger.Len())

	state, err := f.svc.CurrentState(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, negotiation.StateInProgress, state)
}

func TestContactMovesOnlyThatResource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	n := f.create(t, "R1", "R2")
	_, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.NoError(t, err)

	state, err := f.svc.SubmitResourceEvent(ctx, n.ID, "R1", negotiation.ResourceEventContact, representative, "")
	require.NoError(t, err)
	assert.Equal(t, negotiation.ResourceRepresentativeContacted, state)

	per, err := f.svc.CurrentStatePerResource(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]negotiation.ResourceState{
		"R1": negotiation.ResourceRepresentativeContacted,
		"R2": negotiation.ResourceSubmitted,
	}, per)

	stored, err := f.repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, negotiation.StateInProgress, stored.State, "resource events leave the negotiation cache alone")
}

func TestRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown negotiation", func(t *testing.T) {
		f := newFixture(t, DefaultPolicy())
		_, err := f.svc.SubmitNegotiationEvent(ctx, "missing", negotiation.EventApprove, admin, "")
		assert.ErrorIs(t, err, negotiation.ErrNotFound)
		_, err = f.svc.CurrentState(ctx, "missing")
		assert.ErrorIs(t, err, negotiation.ErrNotFound)
		_, err = f.svc.History(ctx, "missing")
		assert.ErrorIs(t, err, negotiation.ErrNotFound)
	})

	t.Run("wrong role", func(t *testing.T) {
		f := newFixture(t, DefaultPolicy())
		n := f.create(t, "R1")
		count := f.ledger.Len()
		_, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, researcher, "")
		assert.ErrorIs(t, err, negotiation.ErrRoleNotAllowed)
		assert.Equal(t, negotiation.CodeNotAllowed, negotiation.Code(err))
		assert.Equal(t, count, f.ledger.Len())
	})

	t.Run("unseeded resource", func(t *testing.T) {
		f := newFixture(t, DefaultPolicy())
		n := f.create(t, "R1")
		_, err := f.svc.SubmitResourceEvent(ctx, n.ID, "R1", negotiation.ResourceEventContact, representative, "")
		assert.ErrorIs(t, err, negotiation.ErrNotFound)
	})

	t.Run("resource event while paused", func(t *testing.T) {
		f := newFixture(t, DefaultPolicy())
		n := f.create(t, "R1")
		_, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
		require.NoError(t, err)
		_, err = f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventPause, researcher, "")
		require.NoError(t, err)

		count := f.ledger.Len()
		_, err = f.svc.SubmitResourceEvent(ctx, n.ID, "R1", negotiation.ResourceEventContact, representative, "")
		assert.ErrorIs(t, err, negotiation.ErrNoSuchEvent)
		assert.Equal(t, count, f.ledger.Len())

		events, err := f.svc.PossibleResourceEvents(ctx, n.ID, "R1")
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestPossibleEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	n := f.create(t, "R1")

	events, err := f.svc.PossibleEvents(ctx, n.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []negotiation.Event{
		negotiation.EventApprove, negotiation.EventDecline, negotiation.EventAbandon,
	}, events)

	events, err = f.svc.PossibleEventsForRole(ctx, n.ID, user.RoleResearcher)
	require.NoError(t, err)
	assert.Equal(t, []negotiation.Event{negotiation.EventAbandon}, events)

	_, err = f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.NoError(t, err)

	resEvents, err := f.svc.PossibleResourceEvents(ctx, n.ID, "R1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []negotiation.ResourceEvent{
		negotiation.ResourceEventContact, negotiation.ResourceEventMarkAsUnreachable,
	}, resEvents)

	resEvents, err = f.svc.PossibleResourceEventsForRole(ctx, n.ID, "R1", user.RoleResearcher)
	require.NoError(t, err)
	assert.Empty(t, resEvents)
}

func TestAttachingToInProgressSeedsOnlyNewResources(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	n := f.create(t, "R1")
	_, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.NoError(t, err)
	_, err = f.svc.SubmitResourceEvent(ctx, n.ID, "R1", negotiation.ResourceEventContact, representative, "")
	require.NoError(t, err)

	f.attach(t, n, "R1", "R2")
	count := f.ledger.Len()
	seeded, err := f.svc.SeedResources(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"R2"}, seeded)
	assert.Equal(t, count+1, f.ledger.Len())

	seeded, err = f.svc.SeedResources(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, seeded)
	assert.Equal(t, count+1, f.ledger.Len())

	per, err := f.svc.CurrentStatePerResource(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, negotiation.ResourceRepresentativeContacted, per["R1"])
	assert.Equal(t, negotiation.ResourceSubmitted, per["R2"])
}

func TestSeedResourcesOutsideSeedingStateIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	n := f.create(t)
	f.attach(t, n, "R1")

	seeded, err := f.svc.SeedResources(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, seeded)

	per, err := f.svc.CurrentStatePerResource(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, per)
}

func TestUnpauseSeedsResourcesAttachedWhilePaused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	n := f.create(t, "R1")
	_, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.NoError(t, err)
	_, err = f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventPause, admin, "")
	require.NoError(t, err)
	f.attach(t, n, "R2")

	seeded, err := f.svc.SeedResources(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, seeded)

	_, err = f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventUnpause, researcher, "")
	require.NoError(t, err)
	state, err := f.svc.CurrentResourceState(ctx, n.ID, "R2")
	require.NoError(t, err)
	assert.Equal(t, negotiation.ResourceSubmitted, state)
}

func TestExplicitInitialize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	n := f.create(t, "R1")

	_, err := f.svc.InitializeNegotiation(ctx, n.ID)
	assert.ErrorIs(t, err, negotiation.ErrAlreadyInitialized)

	state, err := f.svc.InitializeResource(ctx, n.ID, "R1")
	require.NoError(t, err)
	assert.Equal(t, negotiation.ResourceSubmitted, state)

	count := f.ledger.Len()
	_, err = f.svc.InitializeResource(ctx, n.ID, "R1")
	assert.ErrorIs(t, err, negotiation.ErrAlreadyInitialized)
	assert.Equal(t, count, f.ledger.Len())

	_, err = f.svc.InitializeResource(ctx, n.ID, "R9")
	assert.ErrorIs(t, err, negotiation.ErrNotFound)

	// seeding after an explicit initialize leaves the pair alone
	_, err = f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.NoError(t, err)
	assert.Equal(t, count+1, f.ledger.Len())
}

func TestMessageBecomesPost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	n := f.create(t, "R1")

	_, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "Looks good")
	require.NoError(t, err)
	_, err = f.svc.SubmitResourceEvent(ctx, n.ID, "R1", negotiation.ResourceEventContact, representative, "We are on it")
	require.NoError(t, err)
	_, err = f.svc.SubmitResourceEvent(ctx, n.ID, "R1", negotiation.ResourceEventMarkAsCheckingAvailability, representative, "")
	require.NoError(t, err)

	posts, err := f.posts.ListByNegotiation(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, admin.ID, posts[0].AuthorID)
	assert.Nil(t, posts[0].ResourceID)
	assert.Equal(t, "R1", *posts[1].ResourceID)
	assert.Equal(t, "We are on it", posts[1].Body)
}

func TestListenerFailureStillCommits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	f.seen.err = errors.New("mailbox unavailable")
	n := f.create(t, "R1")

	state, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.Error(t, err)
	assert.Equal(t, negotiation.StateInProgress, state)
	assert.ErrorIs(t, err, negotiation.ErrListenerFailure)
	assert.True(t, negotiation.IsCommitted(err))
	assert.Equal(t, negotiation.CodeListenerFailure, negotiation.Code(err))

	var lerr *negotiation.ListenerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, []string{"recorder failed: mailbox unavailable"}, lerr.Warnings())

	current, err := f.svc.CurrentState(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, negotiation.StateInProgress, current)
}

func TestGuardRejectsEvent(t *testing.T) {
	ctx := context.Background()
	policy := DefaultPolicy()
	policy.Guards = map[negotiation.Event]string{negotiation.EventApprove: "resource_count > 0"}
	f := newFixture(t, policy)
	n := f.create(t)

	_, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	assert.ErrorIs(t, err, negotiation.ErrGuardRejected)
	assert.Equal(t, negotiation.CodePreconditionFailed, negotiation.Code(err))
	assert.Equal(t, 1, f.ledger.Len())

	f.attach(t, n, "R1")
	state, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.NoError(t, err)
	assert.Equal(t, negotiation.StateInProgress, state)
}

func TestConcurrentEventsFromSameStateNeverFork(t *testing.T) {
	tests := []struct {
		name   string
		events []negotiation.Event
		opts   []SubmitOption
		// kinds every losing submission may fail with
		rejectedWith []error
	}{
		{
			// neither event is legal from IN_PROGRESS or DECLINED
			name:         "mutually exclusive events",
			events:       []negotiation.Event{negotiation.EventApprove, negotiation.EventDecline},
			rejectedWith: []error{negotiation.ErrInvalidTransition, negotiation.ErrConflict},
		},
		{
			// ABANDON is also legal from IN_PROGRESS, only the source state keeps them apart
			name:         "chaining events pinned to SUBMITTED",
			events:       []negotiation.Event{negotiation.EventApprove, negotiation.EventAbandon},
			opts:         []SubmitOption{FromState(negotiation.StateSubmitted)},
			rejectedWith: []error{negotiation.ErrConflict},
		},
		{
			name:         "mutually exclusive events with source state",
			events:       []negotiation.Event{negotiation.EventApprove, negotiation.EventDecline},
			opts:         []SubmitOption{FromState(negotiation.StateSubmitted)},
			rejectedWith: []error{negotiation.ErrConflict},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, DefaultPolicy())
			n := f.create(t, "R1", "R2")

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				accepted []negotiation.State
				rejected int
			)
			const rounds = 3
			for i := 0; i < rounds; i++ {
				for _, event := range tt.events {
					wg.Add(1)
					go func(event negotiation.Event) {
						defer wg.Done()
						state, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, event, admin, "", tt.opts...)
						mu.Lock()
						defer mu.Unlock()
						if err != nil {
							assert.True(t, isAnyOf(err, tt.rejectedWith), err)
							rejected++
							return
						}
						accepted = append(accepted, state)
					}(event)
				}
			}
			wg.Wait()

			require.Len(t, accepted, 1, "accepted %v", accepted)
			assert.Equal(t, rounds*len(tt.events)-1, rejected)

			history, err := f.svc.History(ctx, n.ID)
			require.NoError(t, err)
			var negotiationLevel int
			for _, e := range history {
				if !e.IsResourceScoped() {
					negotiationLevel++
				}
			}
			assert.Equal(t, 2, negotiationLevel)

			current, err := f.svc.CurrentState(ctx, n.ID)
			require.NoError(t, err)
			assert.Equal(t, accepted[0], current)
		})
	}
}

func TestConcurrentResourceEventsFromSameStateNeverFork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	n := f.create(t, "R1")
	_, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.NoError(t, err)
	_, err = f.svc.SubmitResourceEvent(ctx, n.ID, "R1", negotiation.ResourceEventContact, representative, "")
	require.NoError(t, err)

	// MARK_AS_UNAVAILABLE is also legal from CHECKING_AVAILABILITY
	events := []negotiation.ResourceEvent{
		negotiation.ResourceEventMarkAsCheckingAvailability,
		negotiation.ResourceEventMarkAsUnavailable,
	}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []negotiation.ResourceState
	)
	for i := 0; i < 3; i++ {
		for _, event := range events {
			wg.Add(1)
			go func(event negotiation.ResourceEvent) {
				defer wg.Done()
				state, err := f.svc.SubmitResourceEvent(ctx, n.ID, "R1", event, representative, "",
					FromState(negotiation.ResourceRepresentativeContacted))
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					assert.ErrorIs(t, err, negotiation.ErrConflict)
					return
				}
				accepted = append(accepted, state)
			}(event)
		}
	}
	wg.Wait()

	require.Len(t, accepted, 1, "accepted %v", accepted)
	current, err := f.svc.CurrentResourceState(ctx, n.ID, "R1")
	require.NoError(t, err)
	assert.Equal(t, accepted[0], current)
}

func TestStaleSourceStateIsRejectedWithoutEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	n := f.create(t, "R1")
	_, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.NoError(t, err)
	before := f.ledger.Len()

	_, err = f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventAbandon, researcher, "", FromState(negotiation.StateSubmitted))
	require.Error(t, err)
	assert.ErrorIs(t, err, negotiation.ErrConflict)
	assert.Equal(t, negotiation.CodeConflict, negotiation.Code(err))
	assert.Contains(t, err.Error(), "expected SUBMITTED")
	assert.Equal(t, before, f.ledger.Len())

	state, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventAbandon, researcher, "", FromState(negotiation.StateInProgress))
	require.NoError(t, err)
	assert.Equal(t, negotiation.StateAbandoned, state)
}

func isAnyOf(err error, kinds []error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

func TestConcurrentResourceEventsAcrossResources(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	resources := []string{"R1", "R2", "R3", "R4", "R5"}
	n := f.create(t, resources...)
	_, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, negotiation.EventApprove, admin, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, r := range resources {
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(r string) {
				defer wg.Done()
				_, _ = f.svc.SubmitResourceEvent(ctx, n.ID, r, negotiation.ResourceEventContact, representative, "")
			}(r)
		}
	}
	wg.Wait()

	per, err := f.svc.CurrentStatePerResource(ctx, n.ID)
	require.NoError(t, err)
	for _, r := range resources {
		assert.Equal(t, negotiation.ResourceRepresentativeContacted, per[r], r)
	}
	// initial + approve + 5 seeds + 5 contacts
	assert.Equal(t, 12, f.ledger.Len())
}

func TestTwoProcessesSharingOneLedger(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewNegotiationRepository()
	ledger := memory.NewLedger()

	first, err := NewService(repo, ledger, nil, DefaultPolicy(), zerolog.Nop())
	require.NoError(t, err)
	second, err := NewService(repo, ledger, nil, DefaultPolicy(), zerolog.Nop())
	require.NoError(t, err)

	n := negotiation.New(researcher.ID, nil, []string{"R1"})
	require.NoError(t, repo.Create(ctx, n))
	_, err = first.InitializeNegotiation(ctx, n.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, svc := range []*Service{first, second} {
		wg.Add(1)
		go func(i int, svc *Service) {
			defer wg.Done()
			event := negotiation.EventApprove
			if i == 1 {
				event = negotiation.EventDecline
			}
			_, results[i] = svc.SubmitNegotiationEvent(ctx, n.ID, event, admin, "")
		}(i, svc)
	}
	wg.Wait()

	var ok int
	for _, err := range results {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)

	history, err := first.History(ctx, n.ID)
	require.NoError(t, err)
	var negotiationLevel int
	for _, e := range history {
		if !e.IsResourceScoped() {
			negotiationLevel++
		}
	}
	assert.Equal(t, 2, negotiationLevel)
}

func TestCurrentStateFollowsHighestSequence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultPolicy())
	n := f.create(t, "R1")

	steps := []struct {
		event negotiation.Event
		actor Actor
	}{
		{negotiation.EventApprove, admin},
		{negotiation.EventPause, researcher},
		{negotiation.EventUnpause, researcher},
		{negotiation.EventConclude, researcher},
	}
	for _, step := range steps {
		_, err := f.svc.SubmitNegotiationEvent(ctx, n.ID, step.event, step.actor, "")
		require.NoError(t, err)
	}

	history, err := f.svc.History(ctx, n.ID)
	require.NoError(t, err)
	var last *negotiation.LedgerEntry
	for _, e := range history {
		if !e.IsResourceScoped() && (last == nil || e.Sequence > last.Sequence) {
			last = e
		}
	}
	current, err := f.svc.CurrentState(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, last.State(), current)
	assert.Equal(t, negotiation.StateConcluded, current)
	assert.True(t, current.IsTerminal())
}
