package event

import (
	"log/slog"

	"github.com/google/uuid"
)

// Subscription is a handle returned by the Bus On* methods.
type Subscription struct {
	id     string
	cancel func()
}

// ID returns the unique subscription id.
func (s *Subscription) ID() string { return s.id }

// Cancel stops delivery to the handler. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s != nil && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

type subscriber[T any] struct {
	id     string
	fn     func(T)
	active bool
}

type topic[T any] struct {
	subs []*subscriber[T]
}

func (t *topic[T]) add(fn func(T)) *Subscription {
	s := &subscriber[T]{id: uuid.NewString(), fn: fn, active: true}
	t.subs = append(t.subs, s)
	return &Subscription{
		id: s.id,
		cancel: func() {
			s.active = false
			for i, cur := range t.subs {
				if cur == s {
					t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
					break
				}
			}
		},
	}
}

// Bus delivers puck notifications synchronously, in subscription order.
// One Bus belongs to one match; there is no global state.
//
// Handlers must not mutate the puck inline. Mutations requested while a
// delivery is in progress are queued with Defer and run on the next Flush.
type Bus struct {
	possession topic[PossessionChanged]
	shot       topic[PuckShot]
	passed     topic[PuckPassed]
	goal       topic[GoalScored]
	impact     topic[Impact]

	depth   int
	pending []func()
	log     *slog.Logger
}

// NewBus creates an empty bus. A nil logger uses slog.Default().
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log}
}

// OnPossessionChanged subscribes fn to possession changes.
func (b *Bus) OnPossessionChanged(fn func(PossessionChanged)) *Subscription {
	return b.possession.add(fn)
}

// OnPuckShot subscribes fn to shots.
func (b *Bus) OnPuckShot(fn func(PuckShot)) *Subscription {
	return b.shot.add(fn)
}

// OnPuckPassed subscribes fn to passes and clears.
func (b *Bus) OnPuckPassed(fn func(PuckPassed)) *Subscription {
	return b.passed.add(fn)
}

// OnGoalScored subscribes fn to goals.
func (b *Bus) OnGoalScored(fn func(GoalScored)) *Subscription {
	return b.goal.add(fn)
}

// OnImpact subscribes fn to boundary impacts.
func (b *Bus) OnImpact(fn func(Impact)) *Subscription {
	return b.impact.add(fn)
}

// PublishPossessionChanged delivers e to possession subscribers.
func (b *Bus) PublishPossessionChanged(e PossessionChanged) { publish(b, &b.possession, e) }

// PublishPuckShot delivers e to shot subscribers.
func (b *Bus) PublishPuckShot(e PuckShot) { publish(b, &b.shot, e) }

// PublishPuckPassed delivers e to pass subscribers.
func (b *Bus) PublishPuckPassed(e PuckPassed) { publish(b, &b.passed, e) }

// PublishGoalScored delivers e to goal subscribers.
func (b *Bus) PublishGoalScored(e GoalScored) { publish(b, &b.goal, e) }

// PublishImpact delivers e to impact subscribers.
func (b *Bus) PublishImpact(e Impact) { publish(b, &b.impact, e) }

func publish[T any](b *Bus, t *topic[T], e T) {
	if len(t.subs) == 0 {
		return
	}
	b.depth++
	defer func() { b.depth-- }()

	// Handlers may cancel subscriptions mid-delivery
	subs := make([]*subscriber[T], len(t.subs))
	copy(subs, t.subs)
	for _, s := range subs {
		if s.active {
			s.fn(e)
		}
	}
}

// Dispatching reports whether a notification is currently being delivered.
func (b *Bus) Dispatching() bool {
	return b.depth > 0
}

// Defer queues fn to run on the next Flush.
func (b *Bus) Defer(fn func()) {
	b.pending = append(b.pending, fn)
}

// Pending returns the number of queued actions.
func (b *Bus) Pending() int {
	return len(b.pending)
}

// Flush runs the actions queued before this call. Actions queued while
// flushing wait for the following Flush.
func (b *Bus) Flush() {
	if len(b.pending) == 0 {
		return
	}
	actions := b.pending
	b.pending = nil
	b.log.Debug("running deferred puck actions", "count", len(actions))
	for _, fn := range actions {
		fn()
	}
}
