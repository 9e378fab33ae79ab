// Package scheduler fires persisted message jobs across a pool of
// independently authenticated accounts.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scamwatch/reportbot/internal/logger"
	"github.com/scamwatch/reportbot/internal/models"
)

// Sender delivers one message through the next pooled account.
// This allows mocking in tests.
type Sender interface {
	Send(ctx context.Context, recipient, text string) error
}

// JobStore is the slice of the jobs repository the scheduler needs.
type JobStore interface {
	Create(ctx context.Context, job *models.ScheduledJob) error
	DueOneShots(ctx context.Context, now time.Time) ([]models.ScheduledJob, error)
	Recurring(ctx context.Context) ([]models.ScheduledJob, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Scheduler polls for due one-shot jobs and keeps an in-process ticker
// per recurring job. Recurring jobs lose phase on restart: only the
// interval is persisted, so each start begins a fresh period.
type Scheduler struct {
	jobs   JobStore
	sender Sender
	poll   time.Duration
	log    *logger.Logger

	// injectable for tests
	now func() time.Time

	mu      sync.Mutex
	tickers map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler around a job store and a sender.
func New(jobs JobStore, sender Sender, poll time.Duration) *Scheduler {
	return &Scheduler{
		jobs:    jobs,
		sender:  sender,
		poll:    poll,
		log:     logger.Get(),
		now:     time.Now,
		tickers: make(map[uuid.UUID]context.CancelFunc),
	}
}

// Run registers recurring jobs, then polls for due one-shots until the
// context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Dur("poll", s.poll).Msg("scheduler: started")

	if err := s.registerRecurring(ctx); err != nil {
		s.log.Error().Err(err).Msg("scheduler: recurring registration failed")
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stopTickers()
			s.wg.Wait()
			s.log.Info().Msg("scheduler: stopped")
			return
		case <-ticker.C:
			if err := s.fireDue(ctx); err != nil {
				s.log.Error().Err(err).Msg("scheduler: poll failed")
			}
		}
	}
}

// Schedule validates and persists a job. Recurring jobs start ticking
// immediately.
func (s *Scheduler) Schedule(ctx context.Context, job *models.ScheduledJob) error {
	if err := s.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}
	if job.Kind == models.JobRecurring {
		s.startTicker(ctx, *job)
	}
	s.log.Info().Str("job_id", job.ID.String()).Str("kind", string(job.Kind)).
		Str("recipient", job.Recipient).Msg("scheduler: job scheduled")
	return nil
}

// SendNow delivers a message immediately through the pool, bypassing
// persistence.
func (s *Scheduler) SendNow(ctx context.Context, recipient, text string) error {
	return s.sender.Send(ctx, recipient, text)
}

// fireDue sends every due one-shot job, deleting each on success.
// A failed send keeps the row, so the next poll retries it.
func (s *Scheduler) fireDue(ctx context.Context) error {
	due, err := s.jobs.DueOneShots(ctx, s.now())
	if err != nil {
		return fmt.Errorf("list due jobs: %w", err)
	}

	for i := range due {
		job := due[i]
		if err := s.sender.Send(ctx, job.Recipient, job.Body); err != nil {
			s.log.Warn().Err(err).Str("job_id", job.ID.String()).
				Msg("scheduler: send failed, keeping job")
			continue
		}
		if err := s.jobs.Delete(ctx, job.ID); err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID.String()).
				Msg("scheduler: delete after fire failed")
			continue
		}
		s.log.Info().Str("job_id", job.ID.String()).Str("recipient", job.Recipient).
			Msg("scheduler: one-shot fired")
	}
	return nil
}

// registerRecurring starts a ticker per stored recurring job.
func (s *Scheduler) registerRecurring(ctx context.Context) error {
	jobs, err := s.jobs.Recurring(ctx)
	if err != nil {
		return err
	}
	for i := range jobs {
		s.startTicker(ctx, jobs[i])
	}
	s.log.Info().Int("count", len(jobs)).Msg("scheduler: recurring jobs registered")
	return nil
}

func (s *Scheduler) startTicker(ctx context.Context, job models.ScheduledJob) {
	interval := job.Interval.Duration()
	if interval == 0 {
		s.log.Warn().Str("job_id", job.ID.String()).Str("interval", string(job.Interval)).
			Msg("scheduler: skipping job with unknown interval")
		return
	}
	s.startTickerWithInterval(ctx, job, interval)
}

func (s *Scheduler) startTickerWithInterval(ctx context.Context, job models.ScheduledJob, interval time.Duration) {
	s.mu.Lock()
	if cancel, ok := s.tickers[job.ID]; ok {
		cancel()
	}
	tickCtx, cancel := context.WithCancel(ctx)
	s.tickers[job.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				if err := s.sender.Send(tickCtx, job.Recipient, job.Body); err != nil {
					s.log.Warn().Err(err).Str("job_id", job.ID.String()).
						Msg("scheduler: recurring send failed")
				}
			}
		}
	}()
}

// Unschedule removes a job and stops its ticker if it had one.
func (s *Scheduler) Unschedule(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	if cancel, ok := s.tickers[id]; ok {
		cancel()
		delete(s.tickers, id)
	}
	s.mu.Unlock()

	if err := s.jobs.Delete(ctx, id); err != nil {
		return fmt.Errorf("unschedule job: %w", err)
	}
	return nil
}

func (s *Scheduler) stopTickers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cancel := range s.tickers {
		cancel()
		delete(s.tickers, id)
	}
}
