package retention

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethpandaops/robotdb/pkg/store"
	"github.com/sirupsen/logrus"
)

// Summary describes the outcome of a purge.
type Summary struct {
	Period  Period
	Cutoff  time.Time
	Deleted store.RowCounts
	Skipped bool
}

// Purger deletes run trees older than a retention period.
type Purger struct {
	log   logrus.FieldLogger
	store store.Store
	now   func() time.Time
}

// Option configures a Purger.
type Option func(*Purger)

// WithClock overrides the time source used to compute the cutoff.
func WithClock(now func() time.Time) Option {
	return func(p *Purger) {
		p.now = now
	}
}

// NewPurger returns a Purger deleting from s.
func NewPurger(log logrus.FieldLogger, s store.Store, opts ...Option) *Purger {
	p := &Purger{
		log:   log.WithField("component", "retention"),
		store: s,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Purge removes every run started at or before now minus period, together
// with its suites, tests and test details. An empty period does nothing.
func (p *Purger) Purge(ctx context.Context, period string) (*Summary, error) {
	if strings.TrimSpace(period) == "" {
		p.log.Debug("No retention period set, skipping purge")

		return &Summary{Skipped: true}, nil
	}

	parsed, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	cutoff := parsed.Cutoff(p.now())

	p.log.WithField("cutoff", cutoff.UTC().Format(time.RFC3339)).
		Infof("Removing data older than %s", parsed)

	deleted, err := p.store.DeleteRunsStartedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("purging runs older than %s: %w", parsed, err)
	}

	p.log.WithFields(logrus.Fields{
		"runs":    deleted.Runs,
		"suites":  deleted.Suites,
		"tests":   deleted.Tests,
		"details": deleted.Details,
	}).Info("Purge completed")

	return &Summary{
		Period:  parsed,
		Cutoff:  cutoff,
		Deleted: *deleted,
	}, nil
}
