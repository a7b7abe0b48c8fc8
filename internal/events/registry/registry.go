package registry

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/corvusHold/sentinel/internal/events/domain"
	"github.com/corvusHold/sentinel/internal/metrics"
)

// Registry holds the ordered set of active event brokers and fans published
// events out to each of them, subject to per-broker topic filters.
//
// It is an explicitly constructed object: empty at creation, populated by
// Register (typically from configuration at startup), torn down with Close.
// All methods are safe for concurrent use; Publish iterates a snapshot of
// the broker list, so concurrent Register/Deregister never tear a pass.
type Registry struct {
	mu      sync.RWMutex
	brokers []domain.Broker
	log     zerolog.Logger

	// timeout bounds a single sink delivery; zero means no bound.
	timeout time.Duration
}

// DispatchResult summarizes a single fan-out pass.
type DispatchResult struct {
	// Delivered counts brokers whose Publish returned nil.
	Delivered int `json:"delivered"`
	// Failed counts brokers whose Publish returned an error. Failures are
	// isolated per broker: one failing sink never blocks the others.
	Failed int `json:"failed"`
	// Skipped counts brokers whose topic filter rejected the topic.
	Skipped int `json:"skipped"`
}

// New returns an empty registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{log: log}
}

// SetPublishTimeout bounds each sink delivery during fan-out. A slow remote
// sink then times out instead of stalling the whole pass.
func (r *Registry) SetPublishTimeout(d time.Duration) { r.timeout = d }

// Register appends a broker to the dispatch list. Registering a broker that
// is already present (same instance) is a no-op and logs a warning.
func (r *Registry) Register(b domain.Broker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.brokers {
		if existing == b {
			r.log.Warn().Str("broker", b.Name()).Msg("register:duplicate")
			return
		}
	}
	r.brokers = append(r.brokers, b)
	r.log.Info().Str("broker", b.Name()).Int("count", len(r.brokers)).Msg("register:added")
}

// Deregister removes a broker from the dispatch list. Deregistering a broker
// that is not present is a no-op and logs a warning.
func (r *Registry) Deregister(b domain.Broker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.brokers {
		if existing == b {
			r.brokers = append(r.brokers[:i], r.brokers[i+1:]...)
			r.log.Info().Str("broker", b.Name()).Int("count", len(r.brokers)).Msg("deregister:removed")
			return
		}
	}
	r.log.Warn().Str("broker", b.Name()).Msg("deregister:not_registered")
}

// Brokers returns a snapshot of the registered brokers in dispatch order.
func (r *Registry) Brokers() []domain.Broker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Broker, len(r.brokers))
	copy(out, r.brokers)
	return out
}

// Publish dispatches one event to every registered broker, in registration
// order, whose topic filter allows the topic. Delivery is sequential and
// best-effort: a per-broker failure is logged and counted, never raised, so
// one failing sink cannot prevent delivery to the rest. There is no
// deduplication; publishing the same event twice performs two passes.
func (r *Registry) Publish(ctx context.Context, topic string, payload any) DispatchResult {
	metrics.IncEventPublished()
	var res DispatchResult
	for _, b := range r.Brokers() {
		if !b.Topics().Allows(topic) {
			metrics.IncEventFiltered(b.Name())
			res.Skipped++
			continue
		}
		if err := r.deliver(ctx, b, topic, payload); err != nil {
			metrics.IncEventFailed(b.Name())
			res.Failed++
			r.log.Error().Err(err).Str("broker", b.Name()).Str("topic", topic).Msg("publish:broker_failed")
			continue
		}
		metrics.IncEventDelivered(b.Name())
		res.Delivered++
	}
	r.log.Debug().
		Str("topic", topic).
		Int("delivered", res.Delivered).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Msg("publish:done")
	return res
}

func (r *Registry) deliver(ctx context.Context, b domain.Broker, topic string, payload any) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return b.Publish(ctx, topic, payload)
}

// Close deregisters every broker and closes the ones holding external
// connections (those implementing io.Closer).
func (r *Registry) Close() error {
	r.mu.Lock()
	brokers := r.brokers
	r.brokers = nil
	r.mu.Unlock()

	var errs []error
	for _, b := range brokers {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil {
				r.log.Error().Err(err).Str("broker", b.Name()).Msg("close:broker_failed")
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
