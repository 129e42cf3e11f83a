package lifecycle

import (
	"context"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

// StateCacheListener keeps the negotiation's denormalized state in step with
// the ledger.
type StateCacheListener struct {
	repo negotiation.Repository
}

func NewStateCacheListener(repo negotiation.Repository) *StateCacheListener {
	return &StateCacheListener{repo: repo}
}

func (l *StateCacheListener) Name() string { return "state-cache" }

func (l *StateCacheListener) OnTransition(ctx context.Context, t Transition) error {
	if t.Level() != negotiation.LevelNegotiation {
		return nil
	}
	return l.repo.UpdateState(ctx, t.NegotiationID, negotiation.State(t.ToState), t.Timestamp)
}

// PostListener stores the message that accompanied a transition as a public
// post on the negotiation.
type PostListener struct {
	posts negotiation.PostRepository
}

func NewPostListener(posts negotiation.PostRepository) *PostListener {
	return &PostListener{posts: posts}
}

func (l *PostListener) Name() string { return "post" }

func (l *PostListener) OnTransition(ctx context.Context, t Transition) error {
	if t.Message == "" || t.Negotiation == nil || !t.Negotiation.PostsEnabled {
		return nil
	}
	post := negotiation.NewPost(t.NegotiationID, t.ResourceID, t.Actor, t.Message)
	post.CreatedAt = t.Timestamp
	return l.posts.Create(ctx, post)
}

// PublishListener hands the transition to the asynchronous publisher. It
// never fails: a full queue drops the event and the publisher records it.
type PublishListener struct {
	publisher *Publisher
}

func NewPublishListener(publisher *Publisher) *PublishListener {
	return &PublishListener{publisher: publisher}
}

func (l *PublishListener) Name() string { return "publish" }

func (l *PublishListener) OnTransition(ctx context.Context, t Transition) error {
	l.publisher.Publish(t.TransitionOccurred)
	return nil
}
