// Package differ finds the grades added between two snapshots.
package differ

import (
	"errors"
	"log/slog"

	"github.com/aluiziolira/go-grade-notifier/models"
	"github.com/aluiziolira/go-grade-notifier/store"
)

// Loader reads a snapshot from a path.
type Loader interface {
	Load(path string) (models.Snapshot, error)
}

// Diff returns the set difference current - previous, in current's document
// order. Records are compared by value, ignoring year and period. A record
// repeated in current is reported once, at its first position.
func Diff(previous, current models.Snapshot) []models.NewGrade {
	seen := make(map[models.GradeRecord]struct{}, previous.Len())
	for _, year := range previous {
		for _, period := range year.Periods {
			for _, record := range period.Grades {
				seen[record] = struct{}{}
			}
		}
	}

	added := make([]models.NewGrade, 0)
	for _, grade := range current.Flatten() {
		if _, ok := seen[grade.Record]; ok {
			continue
		}
		seen[grade.Record] = struct{}{}
		added = append(added, grade)
	}
	return added
}

// NewGradesBetween loads both snapshot files and diffs them. A file that
// cannot be loaded counts as an empty snapshot.
func NewGradesBetween(loader Loader, oldPath, newPath string) []models.NewGrade {
	return Diff(loadOrEmpty(loader, oldPath), loadOrEmpty(loader, newPath))
}

// FindNewGrades returns one human-readable message per new grade.
func FindNewGrades(loader Loader, oldPath, newPath string) []string {
	grades := NewGradesBetween(loader, oldPath, newPath)
	messages := make([]string, len(grades))
	for i, grade := range grades {
		messages[i] = grade.Message()
	}
	return messages
}

func loadOrEmpty(loader Loader, path string) models.Snapshot {
	snapshot, err := loader.Load(path)
	if err == nil {
		return snapshot
	}
	if errors.Is(err, store.ErrSnapshotNotFound) {
		slog.Debug("snapshot missing, treating as empty", slog.String("path", path))
	} else {
		slog.Warn("snapshot unreadable, treating as empty",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}
	return models.Snapshot{}
}
