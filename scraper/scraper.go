// Package scraper fetches the grades page.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-grade-notifier/config"
	"github.com/aluiziolira/go-grade-notifier/metrics"
)

const (
	ctxStart  = "start"
	ctxBody   = "body"
	ctxStatus = "status"
)

// Scraper wraps a synchronous colly collector that revisits one page.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *metrics.Metrics
}

// NewScraper builds a scraper configured from cfg.
func NewScraper(cfg *config.Config, m *metrics.Metrics) (*Scraper, error) {
	parsed, err := url.Parse(cfg.GradesURL)
	if err != nil {
		return nil, fmt.Errorf("parse grades url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("grades url must include a host")
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.DetectCharset = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	})

	s := &Scraper{
		cfg:       cfg,
		collector: collector,
		Metrics:   m,
	}
	s.configureHandlers()
	return s, nil
}

// Fetch downloads url and returns the page body decoded to UTF-8.
func (s *Scraper) Fetch(ctx context.Context, target string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reqCtx := colly.NewContext()
	if err := s.collector.Request(http.MethodGet, target, nil, reqCtx, nil); err != nil {
		status, _ := reqCtx.GetAny(ctxStatus).(int)
		classified := classifyError(err, status)
		category := ErrorType(classified)
		s.Metrics.IncError(category)
		slog.Debug("fetch failed",
			slog.String("url", target),
			slog.Int("status", status),
			slog.String("category", category),
		)
		return "", fmt.Errorf("fetch %s: %w", target, classified)
	}

	body, ok := reqCtx.GetAny(ctxBody).(string)
	if !ok {
		return "", fmt.Errorf("fetch %s: no response body", target)
	}
	return body, nil
}

func (s *Scraper) configureHandlers() {
	s.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxStart, time.Now())
		s.Metrics.IncRequest("started")
		slog.Debug("fetching grades page", slog.String("url", r.URL.String()))
	})

	s.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxStatus, r.StatusCode)
		r.Ctx.Put(ctxBody, string(r.Body))
		s.Metrics.IncRequest("completed")
		if start, ok := r.Ctx.GetAny(ctxStart).(time.Time); ok {
			s.Metrics.ObserveDuration(time.Since(start))
		}
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		r.Ctx.Put(ctxStatus, r.StatusCode)
		if start, ok := r.Ctx.GetAny(ctxStart).(time.Time); ok {
			s.Metrics.ObserveDuration(time.Since(start))
		}
	})
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		if statusCode >= http.StatusMultipleChoices {
			return ErrHTTPStatus{StatusCode: statusCode, Err: wrapped}
		}
	}

	return err
}
