package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deepgram/relay/internal/services/assistant/models"
	"github.com/deepgram/relay/pkg/logger"
)

var (
	// ErrRunTimeout is returned when a run is still transient after the poll deadline or attempt limit
	ErrRunTimeout = errors.New("run did not finish in time")

	// ErrRunNotCompleted is returned when a run reaches a terminal state other than completed
	ErrRunNotCompleted = errors.New("run did not complete")
)

// RunFetcher retrieves the current state of a run
type RunFetcher interface {
	RetrieveRun(ctx context.Context, threadID, runID string) (models.Run, error)
}

// Observer is notified of every run state the poller fetches
type Observer func(run models.Run)

type PollerConfig struct {
	// Interval is the fixed wait between fetches
	Interval time.Duration
	// Timeout bounds the total time spent polling. Zero disables it.
	Timeout time.Duration
	// MaxAttempts bounds the number of fetches. Zero disables it.
	MaxAttempts int
}

func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval: 500 * time.Millisecond,
		Timeout:  120 * time.Second,
	}
}

// Poller blocks until a run leaves the queued/in_progress states
type Poller struct {
	fetcher RunFetcher
	config  PollerConfig
	wait    func(ctx context.Context, d time.Duration) error
}

func NewPoller(fetcher RunFetcher, config PollerConfig) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultPollerConfig().Interval
	}

	return &Poller{
		fetcher: fetcher,
		config:  config,
		wait:    sleepContext,
	}
}

// WaitForRun fetches the run until it is terminal and returns the last fetched state.
// A run that is already terminal is returned as is. There is no wait after the terminal fetch.
func (p *Poller) WaitForRun(ctx context.Context, threadID string, run models.Run, observe Observer) (models.Run, error) {
	if run.Status.IsTerminal() {
		return run, nil
	}

	pollCtx := ctx
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		current, err := p.fetcher.RetrieveRun(pollCtx, threadID, run.ID)
		if err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				return run, p.timeoutError(run, attempt-1)
			}
			return run, fmt.Errorf("failed to retrieve run: %w", err)
		}
		if current.ThreadID == "" {
			current.ThreadID = threadID
		}
		run = current

		logger.Debug(logger.ASSISTANT, "Run %s is %s (attempt %d)", run.ID, run.Status, attempt)

		if observe != nil {
			observe(run)
		}

		if run.Status.IsTerminal() {
			return run, nil
		}

		if p.config.MaxAttempts > 0 && attempt >= p.config.MaxAttempts {
			return run, p.timeoutError(run, attempt)
		}

		if err := p.wait(pollCtx, p.config.Interval); err != nil {
			if ctx.Err() != nil {
				return run, fmt.Errorf("run polling cancelled: %w", ctx.Err())
			}
			return run, p.timeoutError(run, attempt)
		}
	}
}

func (p *Poller) timeoutError(run models.Run, attempts int) error {
	logger.Warn(logger.ASSISTANT, "Run %s still %s after %d fetches", run.ID, run.Status, attempts)
	return fmt.Errorf("%w: run %s still %s after %d fetches", ErrRunTimeout, run.ID, run.Status, attempts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
