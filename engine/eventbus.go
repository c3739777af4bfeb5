package engine

import (
	"strings"
	"sync"
	"time"
)

// EventType names an engine event. The dotted values group events by
// domain (order, config, messaging) and the suffix after the last dot
// doubles as the payload discriminator on the SSE feed.
type EventType string

type SubscriberID int

// Handler receives matching events synchronously on the emitting
// goroutine, so handlers must not block.
type Handler func(Event)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

// Kind returns the suffix after the last dot of the event type, e.g.
// "order.delivered" yields "delivered".
func (e Event) Kind() string {
	s := string(e.Type)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

type subscription struct {
	fn    Handler
	types map[EventType]bool // nil matches every type
}

// EventBus fans engine events out to in-process subscribers.
type EventBus struct {
	mu   sync.RWMutex
	next SubscriberID
	subs map[SubscriberID]subscription
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[SubscriberID]subscription)}
}

// Subscribe registers a handler for every event type.
func (eb *EventBus) Subscribe(fn Handler) SubscriberID {
	return eb.add(subscription{fn: fn})
}

// SubscribeTypes registers a handler for the listed event types only.
func (eb *EventBus) SubscribeTypes(fn Handler, types ...EventType) SubscriberID {
	set := make(map[EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return eb.add(subscription{fn: fn, types: set})
}

func (eb *EventBus) add(sub subscription) SubscriberID {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.next++
	eb.subs[eb.next] = sub
	return eb.next
}

// Unsubscribe removes a subscriber. Unknown ids are a no-op.
func (eb *EventBus) Unsubscribe(id SubscriberID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	delete(eb.subs, id)
}

// Emit stamps the event and delivers it to every matching subscriber.
func (eb *EventBus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	eb.mu.RLock()
	matched := make([]Handler, 0, len(eb.subs))
	for _, sub := range eb.subs {
		if sub.types == nil || sub.types[evt.Type] {
			matched = append(matched, sub.fn)
		}
	}
	eb.mu.RUnlock()

	for _, fn := range matched {
		fn(evt)
	}
}
