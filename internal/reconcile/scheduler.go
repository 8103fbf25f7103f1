package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler drives the engine on a fixed interval. Manual triggers go
// straight to the engine; its single-flight guard keeps the two sources
// from overlapping.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewScheduler(engine *Engine, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		interval: interval,
		log:      log.With().Str("component", "sync_scheduler").Logger(),
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), s.tick); err != nil {
		return fmt.Errorf("schedule sync job: %w", err)
	}
	c.Start()
	s.cron = c
	s.running = true
	s.log.Info().Dur("interval", s.interval).Msg("sync scheduler started")
	return nil
}

// Stop halts the timer and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.log.Info().Msg("sync scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) tick() {
	if _, err := s.engine.SyncOnce(context.Background()); err != nil {
		s.log.Warn().Err(err).Msg("scheduled sync failed")
	}
}
