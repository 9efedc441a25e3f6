// Package channel keeps track of the chat platforms the bot is connected to.
package channel

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/logging"
)

// PresenceSetter is implemented by channels that can show a status line.
type PresenceSetter interface {
	SetPresence(text string) error
}

// Registry manages a set of messaging channels.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]domain.Channel
	log      *logging.Logger
}

// NewRegistry creates a channel registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		channels: make(map[string]domain.Channel),
		log:      log.Sub("channels"),
	}
}

// Register adds a channel to the registry, replacing any with the same ID.
func (r *Registry) Register(ch domain.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID()] = ch
	r.log.Info().Str("channel", ch.ID()).Msg("channel registered")
}

// Get returns a channel by ID.
func (r *Registry) Get(id string) (domain.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// List returns all channel IDs in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// sorted returns the registered channels ordered by ID.
func (r *Registry) sorted() []domain.Channel {
	ids := r.List()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Channel, 0, len(ids))
	for _, id := range ids {
		if ch, ok := r.channels[id]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// Status returns the status of all registered channels.
func (r *Registry) Status() []domain.ChannelStatus {
	channels := r.sorted()
	statuses := make([]domain.ChannelStatus, 0, len(channels))
	for _, ch := range channels {
		statuses = append(statuses, ch.Status())
	}
	return statuses
}

// Presence returns the channels that can display a status line.
func (r *Registry) Presence() []PresenceSetter {
	var out []PresenceSetter
	for _, ch := range r.sorted() {
		if ps, ok := ch.(PresenceSetter); ok {
			out = append(out, ps)
		}
	}
	return out
}

// StartAll starts every registered channel. A failing channel does not
// prevent the others from starting; all failures are returned joined.
func (r *Registry) StartAll(ctx context.Context) error {
	var errs []error
	for _, ch := range r.sorted() {
		r.log.Info().Str("channel", ch.ID()).Msg("starting channel")
		if err := ch.Start(ctx); err != nil {
			r.log.Error().Err(err).Str("channel", ch.ID()).Msg("channel failed to start")
			errs = append(errs, fmt.Errorf("start %s: %w", ch.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// StopAll stops all registered channels.
func (r *Registry) StopAll(ctx context.Context) {
	for _, ch := range r.sorted() {
		r.log.Info().Str("channel", ch.ID()).Msg("stopping channel")
		if err := ch.Stop(ctx); err != nil {
			r.log.Error().Err(err).Str("channel", ch.ID()).Msg("failed to stop channel")
		}
	}
}

// Count returns the number of registered channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
