package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lox/sgweather/internal/models"
)

// Scheduler polls every feed on a fixed interval so the archive keeps a
// history of upstream payloads independent of dashboard traffic.
type Scheduler struct {
	gateway       *Gateway
	interval      time.Duration
	timeout       time.Duration
	pruner        Pruner
	retentionDays int
}

// Pruner deletes archived payloads past their retention.
type Pruner interface {
	CleanupOldRawPayloads(retentionDays int) (int64, error)
}

func NewScheduler(g *Gateway, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{
		gateway:  g,
		interval: interval,
		timeout:  30 * time.Second,
	}
}

// SetRetention configures daily deletion of payloads older than days.
func (s *Scheduler) SetRetention(p Pruner, days int) {
	s.pruner = p
	s.retentionDays = days
}

func (s *Scheduler) Run(ctx context.Context) {
	if err := s.IngestOnce(ctx); err != nil {
		log.Printf("scheduler: %v", err)
	}

	s.prune()

	ticker := time.NewTicker(s.interval)
	pruneTicker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-ticker.C:
			if err := s.IngestOnce(ctx); err != nil {
				log.Printf("scheduler: %v", err)
			}
		case <-pruneTicker.C:
			s.prune()
		}
	}
}

func (s *Scheduler) prune() {
	if s.pruner == nil || s.retentionDays <= 0 {
		return
	}
	n, err := s.pruner.CleanupOldRawPayloads(s.retentionDays)
	if err != nil {
		log.Printf("scheduler: cleanup raw payloads: %v", err)
		return
	}
	if n > 0 {
		log.Printf("scheduler: deleted %d raw payloads older than %d days", n, s.retentionDays)
	}
}

// IngestOnce fetches every feed once. Failures are collected rather
// than stopping the round.
func (s *Scheduler) IngestOnce(ctx context.Context) error {
	var errs []error
	for _, h := range models.Feeds {
		fctx, cancel := context.WithTimeout(ctx, s.timeout)
		_, err := s.gateway.Fetch(fctx, h)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("ingest %s: %w", h, err))
			continue
		}
		log.Printf("scheduler: archived %s", h)
	}
	return errors.Join(errs...)
}
