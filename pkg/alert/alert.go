package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elonfeng/signalradar/pkg/trend"
)

// Notification summarizes one pipeline run for alert destinations.
type Notification struct {
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	RunID   string         `json:"run_id"`
	Counts  map[string]int `json:"counts"`
	Signals []trend.Signal `json:"signals"`
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return m != nil && len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Summarize builds a run notification listing up to topN mainstream signals.
func Summarize(batch *trend.Batch, failedFeeds, topN int) *Notification {
	counts := batch.Counts()
	n := &Notification{
		Title:  fmt.Sprintf("%d signals classified", len(batch.Signals)),
		RunID:  batch.RunID,
		Counts: make(map[string]int, 3),
	}

	parts := make([]string, 0, 3)
	for _, tier := range trend.AllTiers() {
		n.Counts[string(tier)] = counts[tier]
		parts = append(parts, fmt.Sprintf("%s: %d", tier, counts[tier]))
	}
	n.Body = strings.Join(parts, ", ")
	if failedFeeds > 0 {
		n.Body += fmt.Sprintf(" (%d feeds failed)", failedFeeds)
	}

	for _, s := range batch.Signals {
		if len(n.Signals) >= topN {
			break
		}
		if s.Tier == trend.TierMainstream {
			n.Signals = append(n.Signals, s)
		}
	}
	return n
}
