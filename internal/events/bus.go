// Package events is the in-process publish/subscribe transport connecting
// the sync engine, the scheduler, and the resilience monitor. Topics are
// typed constants and delivery is synchronous: Publish runs every handler
// before returning, which keeps cycle ordering deterministic.
package events

import (
	"sync"
)

// Topic names a publish/subscribe channel.
type Topic string

// Well-known topics. Category-scoped retry topics are derived with
// [RetryTopic].
const (
	// TopicSyncStarted fires when a sync cycle acquires the single-flight
	// lock. Payload: int64 cycle start in Unix milliseconds.
	TopicSyncStarted Topic = "sync:started"
	// TopicSyncCompleted fires after a successful cycle.
	// Payload: CompletedEvent.
	TopicSyncCompleted Topic = "sync:completed"
	// TopicSyncError fires when a cycle fails. Payload: ErrorEvent.
	TopicSyncError Topic = "sync:error"

	// TopicMutationCaptured fires once per locally captured mutation.
	// Payload: models.PendingChange.
	TopicMutationCaptured Topic = "capture:mutation"
	// TopicLoginCompleted fires after the host signals a completed login.
	TopicLoginCompleted Topic = "auth:login"
	// TopicConfigChanged fires after a sync config patch is applied.
	// Payload: config.Sync (the effective config).
	TopicConfigChanged Topic = "config:changed"
	// TopicConnectivityRestored fires when the host reports the device
	// back online.
	TopicConnectivityRestored Topic = "net:online"

	// TopicFailure carries category-tagged failures into the resilience
	// monitor. Payload: FailureEvent.
	TopicFailure Topic = "monitor:failure"
	// TopicRetry is the generic observability signal for a scheduled
	// retry. Payload: RetryEvent.
	TopicRetry Topic = "monitor:retry"
	// TopicRetryExhausted is the terminal give-up signal for a category.
	// Payload: RetryEvent with the final attempt count.
	TopicRetryExhausted Topic = "monitor:retryFailed"
)

// RetryTopic returns the category-specific retry topic the owning component
// subscribes to in order to redo its failed operation.
func RetryTopic(category string) Topic {
	return Topic(category + ":retry")
}

// SyncTopic returns the namespaced lifecycle topic for a named sub-resource
// exchange, e.g. "settings:sync:completed".
func SyncTopic(resourceKind, phase string) Topic {
	return Topic(resourceKind + ":sync:" + phase)
}

// CompletedEvent is the payload of TopicSyncCompleted.
type CompletedEvent struct {
	ItemCount int
	Failed    int
}

// ErrorEvent is the payload of TopicSyncError and the namespaced error
// topics.
type ErrorEvent struct {
	Message string
}

// FailureEvent is the payload of TopicFailure.
type FailureEvent struct {
	Category string
	Err      error
}

// RetryEvent is the payload of TopicRetry and TopicRetryExhausted.
type RetryEvent struct {
	Category string
	Attempt  int
}

// Handler consumes one published payload.
type Handler func(payload any)

// Bus is the transport contract consumed by all sync components.
type Bus interface {
	// Subscribe registers handler for topic and returns an unsubscribe
	// func. Handlers run synchronously in Publish order.
	Subscribe(topic Topic, handler Handler) (unsubscribe func())
	// Publish delivers payload to every current subscriber of topic.
	Publish(topic Topic, payload any)
}

type subscription struct {
	id      uint64
	handler Handler
}

type bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic][]subscription
}

// NewBus returns an empty in-process bus.
func NewBus() Bus {
	return &bus{subs: make(map[Topic][]subscription)}
}

func (b *bus) Subscribe(topic Topic, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[topic]
		for i, s := range list {
			if s.id == id {
				b.subs[topic] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (b *bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	list := b.subs[topic]
	handlers := make([]Handler, len(list))
	for i, s := range list {
		handlers[i] = s.handler
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}
