package scheduler

import (
	"context"
	"time"

	log "github.com/go-pkgz/lgr"
)

// BuildRunner runs one pipeline build.
type BuildRunner interface {
	Build(ctx context.Context) (*BuildResult, error)
}

// Scheduler rebuilds the output periodically.
type Scheduler struct {
	builder  BuildRunner
	interval time.Duration
}

// New creates a new scheduler. A zero interval defaults to 6h.
func New(builder BuildRunner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Scheduler{builder: builder, interval: interval}
}

// Run builds immediately, then on every tick. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[INFO] scheduler: initial build")
	s.build(ctx)
	log.Printf("[INFO] scheduler: running (build every %s)", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			s.build(ctx)
		}
	}
}

func (s *Scheduler) build(ctx context.Context) {
	if _, err := s.builder.Build(ctx); err != nil && ctx.Err() == nil {
		log.Printf("[ERROR] scheduled build failed: %v", err)
	}
}
