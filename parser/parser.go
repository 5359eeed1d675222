// Package parser turns the grades page markup into a Snapshot.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aluiziolira/go-grade-notifier/models"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeCell collapses runs of whitespace, including non-breaking spaces,
// and trims the result.
func NormalizeCell(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// ValidateRecord ensures a grade row produced the required fields.
func ValidateRecord(r models.GradeRecord) error {
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("grade record missing subject")
	}
	if strings.TrimSpace(r.Grade) == "" {
		return fmt.Errorf("grade record missing grade for %s", r.Subject)
	}
	return nil
}

// RecordFromRow maps positional cells to a record: subject, grade, date, then
// the non-blank remaining cells as the description. Leading blank cells are
// spacer columns and are skipped; any other blank cell leaves its field empty.
// A cell spanning several columns counts as one position.
func RecordFromRow(row models.Row) models.GradeRecord {
	cells := trimLeadingBlank(row.Cells)
	var record models.GradeRecord
	if len(cells) > 0 {
		record.Subject = cells[0]
	}
	if len(cells) > 1 {
		record.Grade = cells[1]
	}
	if len(cells) > 2 {
		record.Date = cells[2]
	}
	if len(cells) > 3 {
		rest := models.Row{Cells: cells[3:]}.NonBlank()
		record.Description = strings.Join(rest, " | ")
	}
	return record
}

func trimLeadingBlank(cells []string) []string {
	for len(cells) > 0 && strings.TrimSpace(cells[0]) == "" {
		cells = cells[1:]
	}
	return cells
}
