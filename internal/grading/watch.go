package grading

import (
	"context"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/pubsub"
)

// Invalidator drops cached standings of a contest.
type Invalidator interface {
	Invalidate(ctx context.Context, contestID uint)
}

// WatchScores invalidates a contest's cached standings whenever one of its
// scores changes, including changes whose events overflowed the
// subscription. It blocks until ctx is done.
func WatchScores(ctx context.Context, broker *pubsub.Broker, inv Invalidator) {
	sub, unsubscribe := broker.Subscribe(pubsub.TopicScores)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.Events:
			if ev.Changed {
				inv.Invalidate(ctx, ev.ContestID)
			}
		case <-sub.Lagged:
			for _, contestID := range sub.Dropped() {
				inv.Invalidate(ctx, contestID)
			}
		}
	}
}
