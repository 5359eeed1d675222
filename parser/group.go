package parser

import (
	"regexp"

	"github.com/aluiziolira/go-grade-notifier/models"
)

// RowKind is the role a row plays in the grade hierarchy.
type RowKind int

const (
	RowIgnored RowKind = iota
	RowYear
	RowPeriod
	RowGrade
)

func (k RowKind) String() string {
	switch k {
	case RowYear:
		return "year"
	case RowPeriod:
		return "period"
	case RowGrade:
		return "grade"
	default:
		return "ignored"
	}
}

// State is the position of the grouper inside the hierarchy.
type State int

const (
	StateNoYear State = iota
	StateInYear
	StateInPeriod
)

func (s State) String() string {
	switch s {
	case StateInYear:
		return "in_year"
	case StateInPeriod:
		return "in_period"
	default:
		return "no_year"
	}
}

var (
	yearRegex   = regexp.MustCompile(`(?i)^(?:year|ano|año|année)?\s*:?\s*\d{4}(?:\s*[/-]\s*\d{2,4})?$`)
	periodRegex = regexp.MustCompile(`(?i)^(?:[tpsqb]\d{1,2}|(?:\d{1,2}\s*(?:º|°|ª|o|st|nd|rd|th)?\s*)?(?:period|período|periodo|trimestre|semestre|bimestre|term|quarter)\b.*)$`)
)

// Classify decides the role of a row. Markers carry exactly one non-blank
// cell; grade rows carry a subject and a grade at least.
func Classify(row models.Row) RowKind {
	cells := row.NonBlank()
	switch {
	case len(cells) == 1 && yearRegex.MatchString(cells[0]):
		return RowYear
	case len(cells) == 1 && periodRegex.MatchString(cells[0]):
		return RowPeriod
	case len(cells) >= 2 && ValidateRecord(RecordFromRow(row)) == nil:
		return RowGrade
	default:
		return RowIgnored
	}
}

// Grouper builds a Snapshot from rows in a single left-to-right pass. A row can
// only continue the current group or open a new one; missing parents are
// opened unnamed.
type Grouper struct {
	state    State
	snapshot models.Snapshot
}

// NewGrouper returns a grouper in the NoYear state.
func NewGrouper() *Grouper {
	return &Grouper{snapshot: models.Snapshot{}}
}

// Feed consumes one row and returns how it was classified.
func (g *Grouper) Feed(row models.Row) RowKind {
	kind := Classify(row)
	switch kind {
	case RowYear:
		g.openYear(row.NonBlank()[0])
	case RowPeriod:
		if g.state == StateNoYear {
			g.openYear("")
		}
		g.openPeriod(row.NonBlank()[0])
	case RowGrade:
		if g.state == StateNoYear {
			g.openYear("")
		}
		if g.state == StateInYear {
			g.openPeriod("")
		}
		g.appendGrade(RecordFromRow(row))
	}
	return kind
}

// State returns the current grouping state.
func (g *Grouper) State() State {
	return g.state
}

// Snapshot returns the hierarchy built so far.
func (g *Grouper) Snapshot() models.Snapshot {
	return g.snapshot
}

func (g *Grouper) openYear(name string) {
	g.snapshot = append(g.snapshot, models.Year{Name: name, Periods: []models.Period{}})
	g.state = StateInYear
}

func (g *Grouper) openPeriod(name string) {
	year := &g.snapshot[len(g.snapshot)-1]
	year.Periods = append(year.Periods, models.Period{Name: name, Grades: []models.GradeRecord{}})
	g.state = StateInPeriod
}

func (g *Grouper) appendGrade(record models.GradeRecord) {
	year := &g.snapshot[len(g.snapshot)-1]
	period := &year.Periods[len(year.Periods)-1]
	period.Grades = append(period.Grades, record)
}

// ParseRows groups rows into the Year, Period, GradeRecord hierarchy,
// preserving document order.
func ParseRows(rows []models.Row) models.Snapshot {
	g := NewGrouper()
	for _, row := range rows {
		g.Feed(row)
	}
	return g.Snapshot()
}
