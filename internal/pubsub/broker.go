package pubsub

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// TopicScores carries every ScoreEvent regardless of contest.
const TopicScores = "scores"

const (
	// historySize bounds how many past events a topic replays to new subscribers.
	historySize = 64
	bufferSize  = 128
)

// ScoreEvent announces that a graded submission may have changed a contest score.
type ScoreEvent struct {
	ContestID    uint `json:"contest_id"`
	UserID       uint `json:"user_id"`
	ProblemID    uint `json:"problem_id"`
	SubmissionID uint `json:"submission_id"`
	Score        int  `json:"score"`
	// Changed is true when the stored best score moved.
	Changed bool `json:"changed"`
}

// ContestTopic is the per-contest topic name.
func ContestTopic(contestID uint) string {
	return fmt.Sprintf("contest:%d", contestID)
}

type subscriber struct {
	ch chan ScoreEvent
	// dropped holds the contests of changed events that did not fit in ch.
	// Guarded by Broker.mu.
	dropped map[uint]struct{}
	lagged  chan struct{}
}

// Subscription delivers a topic's events and tells which contests it missed
// changed events for.
type Subscription struct {
	Events <-chan ScoreEvent
	// Lagged fires once per burst of dropped events; call Dropped to
	// collect them.
	Lagged <-chan struct{}

	broker *Broker
	sub    *subscriber
}

// Dropped returns, in ascending order, the contests whose changed events
// were dropped since the last call, and clears the set.
func (s *Subscription) Dropped() []uint {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()

	ids := make([]uint, 0, len(s.sub.dropped))
	for id := range s.sub.dropped {
		ids = append(ids, id)
	}
	s.sub.dropped = make(map[uint]struct{})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Broker a simple in-memory pub/sub system.
type Broker struct {
	mu          sync.Mutex
	subscribers map[string][]*subscriber
	history     map[string][]ScoreEvent
}

var (
	once   sync.Once
	broker *Broker
)

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string][]*subscriber),
		history:     make(map[string][]ScoreEvent),
	}
}

// GetBroker returns the process-wide Broker.
func GetBroker() *Broker {
	once.Do(func() {
		broker = NewBroker()
	})
	return broker
}

// Subscribe subscribes to a topic. Recent events are replayed first, then
// live events follow.
func (b *Broker) Subscribe(topic string) (*Subscription, func()) {
	sub, unsubscribe := b.subscribe(topic)
	return &Subscription{Events: sub.ch, Lagged: sub.lagged, broker: b, sub: sub}, unsubscribe
}

func (b *Broker) subscribe(topic string) (*subscriber, func()) {
	b.mu.Lock()

	sub := &subscriber{
		ch:      make(chan ScoreEvent, bufferSize),
		dropped: make(map[uint]struct{}),
		lagged:  make(chan struct{}, 1),
	}
	history := append([]ScoreEvent(nil), b.history[topic]...)
	go func() {
		for _, ev := range history {
			sub.ch <- ev
		}
	}()

	b.subscribers[topic] = append(b.subscribers[topic], sub)
	b.mu.Unlock()

	var closeOnce sync.Once
	unsubscribe := func() {
		closeOnce.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subscribers := b.subscribers[topic]
			for i, s := range subscribers {
				if s == sub {
					b.subscribers[topic] = append(subscribers[:i], subscribers[i+1:]...)
					break
				}
			}
			zap.S().Debugf("unsubscribed from topic %s", topic)
		})
	}

	zap.S().Debugf("new subscription to topic %s, replaying %d events", topic, len(history))
	return sub, unsubscribe
}

// Publish delivers ev to TopicScores and to the contest's own topic.
// Slow subscribers miss events rather than block the publisher; a missed
// changed event is remembered and the subscriber's lag signal fires.
func (b *Broker) Publish(ev ScoreEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, topic := range []string{TopicScores, ContestTopic(ev.ContestID)} {
		h := append(b.history[topic], ev)
		if len(h) > historySize {
			h = h[len(h)-historySize:]
		}
		b.history[topic] = h

		for _, sub := range b.subscribers[topic] {
			select {
			case sub.ch <- ev:
				continue
			default:
			}
			zap.S().Warnf("dropping score event for slow subscriber on %s", topic)
			if !ev.Changed {
				continue
			}
			sub.dropped[ev.ContestID] = struct{}{}
			select {
			case sub.lagged <- struct{}{}:
			default:
			}
		}
	}
}
