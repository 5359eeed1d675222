// Package pipeline runs one poll cycle: extract, persist, diff and notify.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-grade-notifier/config"
	"github.com/aluiziolira/go-grade-notifier/differ"
	"github.com/aluiziolira/go-grade-notifier/metrics"
	"github.com/aluiziolira/go-grade-notifier/models"
	"github.com/aluiziolira/go-grade-notifier/notify"
	"github.com/aluiziolira/go-grade-notifier/parser"
)

// SnapshotStore persists snapshots.
type SnapshotStore interface {
	Load(path string) (models.Snapshot, error)
	Save(path string, snapshot models.Snapshot) error
	EnsureExists(path string) (bool, error)
}

// Notifier delivers push notifications.
type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

// Result summarizes one processed page.
type Result struct {
	Snapshot  models.Snapshot
	NewGrades []models.NewGrade
	Skipped   int
	Notified  int
	ParseErr  error
}

// Pipeline holds the state carried between cycles: the parse failure streak
// and the grades delivered while the old snapshot could not be written.
type Pipeline struct {
	cfg      *config.Config
	store    SnapshotStore
	notifier Notifier
	metrics  *metrics.Metrics

	delivered *lru.Cache[string, struct{}]

	parseFailures int
	alerted       bool
}

// NewPipeline wires a pipeline.
func NewPipeline(cfg *config.Config, store SnapshotStore, notifier Notifier, m *metrics.Metrics) (*Pipeline, error) {
	delivered, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create delivered cache: %w", err)
	}
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		notifier:  notifier,
		metrics:   m,
		delivered: delivered,
	}, nil
}

// Prepare creates empty snapshot files when they are missing.
func (p *Pipeline) Prepare() error {
	for _, path := range []string{p.cfg.NewSnapshotPath(), p.cfg.OldSnapshotPath()} {
		created, err := p.store.EnsureExists(path)
		if err != nil {
			return err
		}
		if created {
			slog.Info("created snapshot file", slog.String("path", path))
		}
	}
	return nil
}

// Process handles one fetched page. Nothing here is fatal: failures are logged
// and counted, and the cycle does as much as it can.
func (p *Pipeline) Process(ctx context.Context, html string) *Result {
	result := &Result{}

	oldPath, newPath := p.cfg.OldSnapshotPath(), p.cfg.NewSnapshotPath()

	rows, err := parser.ExtractRows(html, p.cfg.TableSelector)
	if err != nil {
		rows = nil
	}
	snapshot := parser.ParseRows(rows)
	result.Snapshot = snapshot
	p.metrics.SetExtracted(snapshot.Len())

	// A table that suddenly holds nothing is usually a login or error page.
	if err == nil && snapshot.Len() == 0 && p.hadGrades(oldPath) {
		err = &parser.ParseError{Selector: p.cfg.TableSelector, Err: parser.ErrNoGrades}
	}
	if err != nil {
		result.ParseErr = err
		p.recordParseFailure(ctx, err)
	} else {
		p.resetParseFailures()
	}

	var added []models.NewGrade
	if err := p.store.Save(newPath, snapshot); err != nil {
		p.metrics.IncPersistError("save_new")
		slog.Error("saving new snapshot failed, diffing in memory", slog.Any("error", err))
		previous, loadErr := p.store.Load(oldPath)
		if loadErr != nil {
			previous = models.Snapshot{}
		}
		added = differ.Diff(previous, snapshot)
	} else {
		slog.Info("grades extracted", slog.Int("records", snapshot.Len()), slog.String("path", newPath))
		added = differ.NewGradesBetween(p.store, oldPath, newPath)
	}

	if len(added) == 0 {
		slog.Info("no new grades")
		p.metrics.IncCycle(cycleOutcome(result))
		return result
	}

	pending := make([]models.NewGrade, 0, len(added))
	for _, grade := range added {
		if p.delivered.Contains(grade.Key()) {
			result.Skipped++
			continue
		}
		pending = append(pending, grade)
	}
	result.NewGrades = pending
	p.metrics.AddNewGrades(len(pending))
	slog.Info("new grades found",
		slog.Int("new", len(pending)),
		slog.Int("already_delivered", result.Skipped),
	)

	saveErr := p.store.Save(oldPath, snapshot)
	if saveErr != nil {
		p.metrics.IncPersistError("save_old")
		slog.Error("updating old snapshot failed", slog.Any("error", saveErr))
	} else {
		slog.Info("old snapshot updated", slog.String("path", oldPath))
	}

	sent := make([]models.NewGrade, 0, len(pending))
	for _, grade := range pending {
		if err := p.notifier.Send(ctx, p.gradeMessage(grade)); err != nil {
			p.metrics.IncNotification("failed")
			slog.Error("notification failed",
				slog.String("subject", grade.Record.Subject),
				slog.Any("error", err),
			)
			continue
		}
		p.metrics.IncNotification("sent")
		sent = append(sent, grade)
	}
	result.Notified = len(sent)

	if saveErr == nil {
		p.delivered.Purge()
	} else {
		for _, grade := range sent {
			p.delivered.Add(grade.Key(), struct{}{})
		}
	}

	p.metrics.IncCycle(cycleOutcome(result))
	return result
}

func (p *Pipeline) gradeMessage(grade models.NewGrade) notify.Message {
	return notify.Message{
		Title: grade.Title(),
		Body:  grade.Message(),
		Click: p.cfg.GradesURL,
		Tags:  []string{"mortar_board"},
	}
}

func (p *Pipeline) recordParseFailure(ctx context.Context, err error) {
	p.parseFailures++
	p.metrics.SetParseFailureStreak(p.parseFailures)
	slog.Error("grades page could not be parsed",
		slog.Int("consecutive", p.parseFailures),
		slog.Any("error", err),
	)

	threshold := p.cfg.ParseFailureAlertThreshold
	if threshold <= 0 || p.parseFailures < threshold || p.alerted {
		return
	}

	alert := notify.Message{
		Title: "Grade watcher needs attention",
		Body: fmt.Sprintf("No grades could be read for %d consecutive checks. "+
			"New grades are not detected until the page parses again.", p.parseFailures),
		Click:    p.cfg.GradesURL,
		Tags:     []string{"warning"},
		Priority: 4,
	}
	if err := p.notifier.Send(ctx, alert); err != nil {
		p.metrics.IncNotification("failed")
		slog.Error("parse failure alert failed", slog.Any("error", err))
		return
	}
	p.metrics.IncNotification("alert")
	p.alerted = true
}

// hadGrades reports whether the last known snapshot holds any record. The old
// snapshot is only rewritten when grades were added, so an empty page never
// clears it.
func (p *Pipeline) hadGrades(oldPath string) bool {
	previous, err := p.store.Load(oldPath)
	return err == nil && previous.Len() > 0
}

func (p *Pipeline) resetParseFailures() {
	if p.parseFailures > 0 {
		slog.Info("grades page parsed again", slog.Int("after_failures", p.parseFailures))
	}
	p.parseFailures = 0
	p.alerted = false
	p.metrics.SetParseFailureStreak(0)
}

func cycleOutcome(r *Result) string {
	if r.ParseErr != nil {
		return "parse_error"
	}
	return "ok"
}
