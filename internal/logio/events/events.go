// Package events provides the type-safe publish/subscribe broker the Log
// Manager uses to announce its own state transitions — recovery resolving,
// the membership renewer rejoining or going fatal — to anything that wants
// to observe them (diagnostics, tests) without coupling the Manager to a
// concrete listener. It generalizes internal/pubsub.PubSubClient's
// type-erasure trick (homogeneous closures over heterogeneous Event[T]
// channels) from Raft's vote/heartbeat events to this façade's own event
// catalogue below.
package events

import (
	"sync"
	"sync/atomic"

	"distlog/internal/logio/logging"
)

// Type identifies a kind of event the Bus carries.
type Type int

const (
	// RecoverySucceeded carries logio.Position as its payload (boxed by the
	// caller's own type argument): recovery resolved successfully.
	RecoverySucceeded Type = iota
	// RecoveryFailed carries the error message: recovery resolved with a
	// failure.
	RecoveryFailed
	// MembershipRejoined carries the new incarnation number: the renewer
	// observed its token missing and rejoined.
	MembershipRejoined
	// MembershipFatal carries the error message: the renewer loop failed
	// fatally and exited.
	MembershipFatal
	// Elected carries the newly won Position: a Writer Session's Coordinator
	// won an election.
	Elected
)

func (t Type) String() string {
	switch t {
	case RecoverySucceeded:
		return "RecoverySucceeded"
	case RecoveryFailed:
		return "RecoveryFailed"
	case MembershipRejoined:
		return "MembershipRejoined"
	case MembershipFatal:
		return "MembershipFatal"
	case Elected:
		return "Elected"
	default:
		return "Unknown"
	}
}

// SubscriberID identifies one subscription, returned by Subscribe and
// required to Unsubscribe.
type SubscriberID uint64

var nextSubscriberID uint64

// Event pairs a Type with its strongly-typed payload.
type Event[T any] struct {
	Type    Type
	Payload T
}

type subscriber struct {
	send  func(Type, any) bool
	close func()
}

// Bus is a thread-safe, non-blocking publish/subscribe broker. A Publish
// call that finds a subscriber's channel full drops the event for that
// subscriber rather than stalling every other one.
type Bus struct {
	mu       sync.RWMutex
	wg       sync.WaitGroup
	registry map[Type]map[SubscriberID]*subscriber
	queue    chan published
	closing  atomic.Bool
	logger   logging.Logger
}

type published struct {
	typ     Type
	payload any
}

// NewBus starts a Bus backed by a buffered queue of depth, so Publish never
// blocks on a slow subscriber.
func NewBus(depth int, logger logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Noop{}
	}
	b := &Bus{
		registry: make(map[Type]map[SubscriberID]*subscriber),
		queue:    make(chan published, depth),
		logger:   logger,
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// Subscribe registers ch to receive every event of typ published after this
// call returns. The caller owns ch's buffering; a full channel causes that
// event to be dropped for this subscriber only.
//
// A free function, not a method: Go does not allow a method to introduce
// its own type parameter, so Subscribe takes the Bus explicitly, the same
// shape as slices.Sort(s).
func Subscribe[T any](b *Bus, typ Type, ch chan Event[T]) SubscriberID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := SubscriberID(atomic.AddUint64(&nextSubscriberID, 1))
	sub := &subscriber{
		send: func(t Type, payload any) bool {
			typed, ok := payload.(T)
			if !ok {
				return false
			}
			select {
			case ch <- Event[T]{Type: t, Payload: typed}:
				return true
			default:
				return false
			}
		},
		close: func() { close(ch) },
	}

	if _, ok := b.registry[typ]; !ok {
		b.registry[typ] = make(map[SubscriberID]*subscriber)
	}
	b.registry[typ][id] = sub
	return id
}

// Unsubscribe removes id's subscription to typ and closes its channel.
func (b *Bus) Unsubscribe(typ Type, id SubscriberID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.registry[typ]
	if !ok {
		return
	}
	sub, ok := subs[id]
	if !ok {
		return
	}
	delete(subs, id)
	sub.close()
	if len(subs) == 0 {
		delete(b.registry, typ)
	}
}

// Publish broadcasts an event of typ carrying payload to every subscriber
// registered for typ. A free function for the same reason as Subscribe.
func Publish[T any](b *Bus, typ Type, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closing.Load() {
		return
	}
	b.queue <- published{typ: typ, payload: payload}
}

func (b *Bus) run() {
	defer b.wg.Done()
	for msg := range b.queue {
		b.mu.RLock()
		for _, sub := range b.registry[msg.typ] {
			if !sub.send(msg.typ, msg.payload) {
				b.logger.Warnf("events: dropped %s for a full subscriber", msg.typ)
			}
		}
		b.mu.RUnlock()
	}
}

// Close stops accepting new publishes and waits for the queue to drain.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closing.Load() {
		b.mu.Unlock()
		b.wg.Wait()
		return
	}
	b.closing.Store(true)
	close(b.queue)
	b.mu.Unlock()

	b.wg.Wait()
}
