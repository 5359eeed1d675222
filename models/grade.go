// Package models defines data structures for the grade watcher.
package models

import (
	"fmt"
	"strings"
)

// Row is one table row from the grades page, as ordered cell texts.
type Row struct {
	Cells []string
}

// NonBlank returns the cells that carry text, in order.
func (r Row) NonBlank() []string {
	out := make([]string, 0, len(r.Cells))
	for _, cell := range r.Cells {
		if strings.TrimSpace(cell) != "" {
			out = append(out, cell)
		}
	}
	return out
}

// GradeRecord is one gradable item. All fields together form its identity,
// so the struct is usable as a map key.
type GradeRecord struct {
	Subject     string `json:"subject"`
	Grade       string `json:"grade"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

// Period groups the grades of one term.
type Period struct {
	Name   string        `json:"period"`
	Grades []GradeRecord `json:"grades"`
}

// Year groups the periods of one school year.
type Year struct {
	Name    string   `json:"year"`
	Periods []Period `json:"periods"`
}

// Snapshot is the full grade tree extracted at one point in time.
type Snapshot []Year

// Len returns the number of grade records in the snapshot.
func (s Snapshot) Len() int {
	total := 0
	for _, year := range s {
		for _, period := range year.Periods {
			total += len(period.Grades)
		}
	}
	return total
}

// Flatten walks the snapshot in document order and returns every record with
// its group context.
func (s Snapshot) Flatten() []NewGrade {
	out := make([]NewGrade, 0, s.Len())
	for _, year := range s {
		for _, period := range year.Periods {
			for _, record := range period.Grades {
				out = append(out, NewGrade{Year: year.Name, Period: period.Name, Record: record})
			}
		}
	}
	return out
}

// NewGrade is a grade present in the latest snapshot but not in the previous one.
type NewGrade struct {
	Year   string
	Period string
	Record GradeRecord
}

// Title is the short notification headline.
func (g NewGrade) Title() string {
	return "New grade: " + g.Record.Subject
}

// Message renders the human-readable notification text.
func (g NewGrade) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", g.Record.Subject, g.Record.Grade)

	where := make([]string, 0, 3)
	for _, part := range []string{g.Year, g.Period, g.Record.Date} {
		if part != "" {
			where = append(where, part)
		}
	}
	if len(where) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(where, ", "))
	}
	if g.Record.Description != "" {
		fmt.Fprintf(&b, " - %s", g.Record.Description)
	}
	return b.String()
}

// Key identifies the grade across cycles for delivery bookkeeping.
func (g NewGrade) Key() string {
	return strings.Join([]string{
		g.Year,
		g.Period,
		g.Record.Subject,
		g.Record.Grade,
		g.Record.Date,
		g.Record.Description,
	}, "\x1f")
}
