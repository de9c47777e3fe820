// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"math"
	"net"
	"sync"
	"time"

	"github.com/reqledger/go-req-ledger/internal/adapter"
	"github.com/reqledger/go-req-ledger/internal/auth"
	"github.com/reqledger/go-req-ledger/internal/config"
	"github.com/reqledger/go-req-ledger/internal/crypto"
	"github.com/reqledger/go-req-ledger/internal/events"
	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/models"
)

// Failure kinds assigned by the monitor's error classifier. Strategies are
// keyed by (category, kind); KindAny matches every kind within a category.
const (
	KindAuth       = "auth"
	KindTransport  = "transport"
	KindEncryption = "encryption"
	KindGeneric    = "generic"
	KindAny        = "*"
)

type monitor struct {
	bus    events.Bus
	logger *logger.Logger

	mu         sync.Mutex
	strategies map[string]RetryStrategy
	attempts   map[string]int
	timers     map[string]*time.Timer
	ring       []models.ErrorRecord
	ringSize   int
	maxAge     time.Duration

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer

	unsubscribe func()
}

// NewMonitor builds the resilience monitor and subscribes it to the failure
// topic. Components report failures by publishing [events.FailureEvent];
// the monitor classifies them, records them in the bounded error log, and
// schedules category-scoped retries.
func NewMonitor(bus events.Bus, cfg config.Monitor, logger *logger.Logger) Monitor {
	m := &monitor{
		bus:        bus,
		logger:     logger,
		strategies: make(map[string]RetryStrategy),
		attempts:   make(map[string]int),
		timers:     make(map[string]*time.Timer),
		ringSize:   cfg.ErrorLogSize,
		maxAge:     cfg.RecordMaxAge,
		now:        time.Now,
		afterFunc:  time.AfterFunc,
	}

	m.unsubscribe = bus.Subscribe(events.TopicFailure, func(payload any) {
		if fe, ok := payload.(events.FailureEvent); ok {
			m.Failure(fe.Category, fe.Err)
		}
	})

	return m
}

// RegisterStrategy implements [Monitor].
func (m *monitor) RegisterStrategy(category, kind string, s RetryStrategy) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.strategies[category+":"+kind] = s
}

// Failure implements [Monitor]. The delay before attempt n is
// BackoffMs * Multiplier^n; once MaxRetries attempts are exhausted the
// monitor publishes the terminal give-up signal and resets the counter.
func (m *monitor) Failure(category string, err error) {
	if err == nil {
		return
	}
	kind := classifyError(err)

	m.mu.Lock()

	m.record(models.ErrorRecord{
		Category:  category,
		Kind:      kind,
		Message:   err.Error(),
		Timestamp: m.now().UnixMilli(),
	})

	strategy, ok := m.strategies[category+":"+kind]
	if !ok {
		strategy, ok = m.strategies[category+":"+KindAny]
	}
	if !ok {
		m.mu.Unlock()
		m.logger.Debug().Str("category", category).Str("kind", kind).
			Msg("no retry strategy registered, failure recorded only")
		return
	}

	attempt := m.attempts[category]
	if attempt >= strategy.MaxRetries {
		delete(m.attempts, category)
		m.stopTimerLocked(category)
		m.mu.Unlock()

		m.logger.Warn().Str("category", category).Int("attempts", attempt).
			Msg("retry budget exhausted, giving up")
		m.bus.Publish(events.TopicRetryExhausted, events.RetryEvent{Category: category, Attempt: attempt})
		return
	}

	delay := time.Duration(float64(strategy.BackoffMs)*math.Pow(strategy.Multiplier, float64(attempt))) * time.Millisecond
	m.attempts[category] = attempt + 1

	m.stopTimerLocked(category)
	m.timers[category] = m.afterFunc(delay, func() {
		m.bus.Publish(events.TopicRetry, events.RetryEvent{Category: category, Attempt: attempt + 1})
		m.bus.Publish(events.RetryTopic(category), events.RetryEvent{Category: category, Attempt: attempt + 1})
	})
	m.mu.Unlock()

	m.logger.Info().Str("category", category).Str("kind", kind).
		Int("attempt", attempt+1).Dur("delay", delay).Err(err).
		Msg("retry scheduled")
}

// Success implements [Monitor].
func (m *monitor) Success(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.attempts, category)
	m.stopTimerLocked(category)
}

// Errors implements [Monitor].
func (m *monitor) Errors() []models.ErrorRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ErrorRecord, len(m.ring))
	copy(out, m.ring)
	return out
}

// Sweep implements [Monitor]. It runs on the periodic maintenance cadence:
// aged error records are purged and all attempt counters reset, so an old
// failure streak never poisons a fresh one.
func (m *monitor) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.maxAge).UnixMilli()
	kept := m.ring[:0]
	for _, r := range m.ring {
		if r.Timestamp >= cutoff {
			kept = append(kept, r)
		}
	}
	purged := len(m.ring) - len(kept)
	m.ring = kept

	for category := range m.attempts {
		delete(m.attempts, category)
	}

	if purged > 0 {
		m.logger.Debug().Int("purged", purged).Msg("swept aged error records")
	}
}

// Close implements [Monitor].
func (m *monitor) Close() {
	m.mu.Lock()
	for category, t := range m.timers {
		t.Stop()
		delete(m.timers, category)
	}
	m.mu.Unlock()

	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// record appends to the bounded ring, evicting the oldest entry when full.
// Caller holds m.mu.
func (m *monitor) record(r models.ErrorRecord) {
	if m.ringSize <= 0 {
		return
	}
	if len(m.ring) >= m.ringSize {
		m.ring = m.ring[1:]
	}
	m.ring = append(m.ring, r)
}

// stopTimerLocked cancels a pending retry timer. Caller holds m.mu.
func (m *monitor) stopTimerLocked(category string) {
	if t, ok := m.timers[category]; ok {
		t.Stop()
		delete(m.timers, category)
	}
}

// classifyError maps an error to a failure kind using the sentinel values of
// the packages involved in a sync exchange.
func classifyError(err error) string {
	switch {
	case errors.Is(err, adapter.ErrUnauthorized),
		errors.Is(err, adapter.ErrForbidden),
		errors.Is(err, auth.ErrNoToken),
		errors.Is(err, ErrNotAuthenticated):
		return KindAuth

	case errors.Is(err, crypto.ErrCryptorDisabled):
		return KindEncryption

	case errors.Is(err, adapter.ErrBadGateway),
		errors.Is(err, adapter.ErrInternalServerError),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrOffline),
		isNetError(err):
		return KindTransport

	default:
		return KindGeneric
	}
}

func isNetError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
