package hooks

import (
	"context"
	"sync"

	"goa.design/skillsruntime/telemetry"
)

type (
	// Subscriber observes events published on a Bus.
	Subscriber interface {
		HandleEvent(ctx context.Context, evt Event) error
	}

	// Subscription is returned by Register and closes the subscription
	// when no longer needed. Close is idempotent.
	Subscription interface {
		Close() error
	}

	// Bus fans a published event out to every registered subscriber in
	// registration order. Unlike a typical pub/sub bus, Publish is
	// fail-open: a subscriber error is logged and does not stop fan-out
	// to the remaining subscribers or fail the publish, since observer
	// hooks must never be able to abort a run.
	Bus interface {
		Publish(ctx context.Context, evt Event) error
		Register(sub Subscriber) (Subscription, error)
	}
)

type bus struct {
	mu     sync.RWMutex
	order  []*subscription
	logger telemetry.Logger
}

type subscription struct {
	once sync.Once
	bus  *bus
	sub  Subscriber
}

// NewBus returns an in-process event Bus.
func NewBus(logger telemetry.Logger) Bus {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &bus{logger: logger}
}

func (b *bus) Register(sub Subscriber) (Subscription, error) {
	s := &subscription{bus: b, sub: sub}
	b.mu.Lock()
	b.order = append(b.order, s)
	b.mu.Unlock()
	return s, nil
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		for i, o := range s.bus.order {
			if o == s {
				s.bus.order = append(s.bus.order[:i], s.bus.order[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (b *bus) Publish(ctx context.Context, evt Event) error {
	b.mu.RLock()
	subs := make([]*subscription, len(b.order))
	copy(subs, b.order)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.sub.HandleEvent(ctx, evt); err != nil {
			b.logger.Warn(ctx, "hook subscriber failed", "event_type", evt.Type(), "error", err)
		}
	}
	return nil
}
