// Package poller drives the fetch and process cycle on a time-of-day schedule.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-grade-notifier/config"
	"github.com/aluiziolira/go-grade-notifier/metrics"
	"github.com/aluiziolira/go-grade-notifier/pipeline"
	"github.com/aluiziolira/go-grade-notifier/scraper"
)

// Fetcher downloads the grades page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Processor handles a downloaded page.
type Processor interface {
	Prepare() error
	Process(ctx context.Context, html string) *pipeline.Result
}

// Poller runs cycles forever, one at a time.
type Poller struct {
	cfg       *config.Config
	fetcher   Fetcher
	processor Processor
	metrics   *metrics.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a poller using the wall clock.
func New(cfg *config.Config, fetcher Fetcher, processor Processor, m *metrics.Metrics) *Poller {
	return &Poller{
		cfg:       cfg,
		fetcher:   fetcher,
		processor: processor,
		metrics:   m,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Run prepares the snapshot files and loops until ctx is done. Only context
// cancellation ends the loop.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.processor.Prepare(); err != nil {
		slog.Error("preparing snapshot files failed", slog.Any("error", err))
	}

	window := Window{Start: p.cfg.WindowStart, End: p.cfg.WindowEnd}
	mode := ModeProd
	if p.cfg.Debug() {
		mode = ModeDebug
	}

	slog.Info("starting the grades watch",
		slog.String("url", p.cfg.GradesURL),
		slog.Int("window_start", window.Start),
		slog.Int("window_end", window.End),
		slog.String("mode", p.cfg.Mode),
	)

	for {
		hour := p.now().Hour()
		state, wait := IntervalFor(hour, window, mode, p.cfg.PollInterval)
		p.metrics.SetActive(state == StateActive)

		if state == StateActive {
			p.RunOnce(ctx)
		}

		slog.Info("waiting before the next check",
			slog.Int("hour", hour),
			slog.String("state", state.String()),
			slog.Duration("wait", wait),
		)
		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// RunOnce fetches and processes the page once. A fetch failure abandons the
// cycle and is returned for the caller's information.
func (p *Poller) RunOnce(ctx context.Context) (*pipeline.Result, error) {
	html, err := p.fetcher.Fetch(ctx, p.cfg.GradesURL)
	if err != nil {
		p.metrics.IncCycle("fetch_error")
		slog.Error("fetching grades page failed",
			slog.String("category", scraper.ErrorType(err)),
			slog.Any("error", err),
		)
		return nil, err
	}
	return p.processor.Process(ctx, html), nil
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
