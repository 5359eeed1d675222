package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-grade-notifier/models"
)

// DefaultTableSelector matches every table on the page.
const DefaultTableSelector = "table"

// ExtractRows returns the data rows of the tables matching selector, in
// document order. Rows made only of header cells are dropped unless they hold a
// single label, which is how the page marks years and periods.
func ExtractRows(html, selector string) ([]models.Row, error) {
	if selector == "" {
		selector = DefaultTableSelector
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{Selector: selector, Err: err}
	}

	tables := doc.Find(selector)
	if tables.Length() == 0 {
		return nil, &ParseError{Selector: selector, Err: ErrTableNotFound}
	}

	rows := make([]models.Row, 0)
	tables.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		row, ok := extractRow(tr)
		if ok {
			rows = append(rows, row)
		}
	})
	return rows, nil
}

func extractRow(tr *goquery.Selection) (models.Row, bool) {
	cells := tr.ChildrenFiltered("td, th")
	if cells.Length() == 0 {
		return models.Row{}, false
	}

	row := models.Row{Cells: make([]string, 0, cells.Length())}
	cells.Each(func(_ int, cell *goquery.Selection) {
		row.Cells = append(row.Cells, NormalizeCell(cell.Text()))
	})

	filled := len(row.NonBlank())
	if filled == 0 {
		return models.Row{}, false
	}
	headerOnly := tr.ChildrenFiltered("td").Length() == 0
	if headerOnly && filled > 1 {
		return models.Row{}, false
	}
	return row, true
}
