package html

import (
	"math"
	"sort"

	"github.com/jenkins-x-apps/jacoco-go/internal/coverage"
	"github.com/pkg/errors"
	"golang.org/x/text/message"
)

// barWidth is the width in pixels of a full coverage bar.
const barWidth = 120

// Item is one row of a coverage table.
type Item struct {
	Name     string
	Link     string
	Style    string
	Counters coverage.Counters
}

// Cell is a rendered table cell.
type Cell struct {
	Text  string
	Style string
	Link  string
	Title string
	Bar   *Bar
}

// Bar is the graphical part of a bar cell, widths in pixels.
type Bar struct {
	Missed  int
	Covered int
}

// TableView is the rendered form of a table handed to the page templates.
type TableView struct {
	Headers []Cell
	Rows    [][]Cell
	Footer  []Cell
}

type columnKind int

const (
	labelColumn columnKind = iota
	barColumn
	percentageColumn
	missedColumn
	totalColumn
)

// Column describes one column of a coverage table.
type Column struct {
	Header      string
	Style       string
	Entity      coverage.Entity
	DefaultSort bool
	kind        columnKind
}

// LabelColumn shows the item name and link.
func LabelColumn(header string) Column {
	return Column{Header: header, Style: "el", kind: labelColumn}
}

// BarColumn shows missed and covered items of entity as a bar.
func BarColumn(header string, entity coverage.Entity) Column {
	return Column{Header: header, Style: "bar", Entity: entity, kind: barColumn}
}

// PercentageColumn shows the covered ratio of entity.
func PercentageColumn(header string, entity coverage.Entity) Column {
	return Column{Header: header, Style: "ctr2", Entity: entity, kind: percentageColumn}
}

// MissedColumn shows the number of missed items of entity.
func MissedColumn(header string, entity coverage.Entity) Column {
	return Column{Header: header, Style: "ctr1", Entity: entity, kind: missedColumn}
}

// TotalColumn shows the total number of items of entity.
func TotalColumn(header string, entity coverage.Entity) Column {
	return Column{Header: header, Style: "ctr2", Entity: entity, kind: totalColumn}
}

// Sorted marks the column as the default sort column.
func (c Column) Sorted() Column {
	c.DefaultSort = true
	return c
}

// Table is an ordered list of columns with exactly one default sort column.
type Table struct {
	columns []Column
	sortBy  int
}

// NewTable creates a table. Exactly one column must be marked as default sort.
func NewTable(columns ...Column) (*Table, error) {
	sortBy := -1
	for i, c := range columns {
		if !c.DefaultSort {
			continue
		}
		if sortBy >= 0 {
			return nil, errors.Errorf("columns %q and %q are both default sort columns", columns[sortBy].Header, c.Header)
		}
		sortBy = i
	}
	if sortBy < 0 {
		return nil, errors.New("table has no default sort column")
	}
	return &Table{columns: columns, sortBy: sortBy}, nil
}

// DefaultTable returns the columns of the standard coverage report.
func DefaultTable() *Table {
	t, err := NewTable(
		LabelColumn("Element"),
		BarColumn("Missed Instructions", coverage.Instruction).Sorted(),
		PercentageColumn("Cov.", coverage.Instruction),
		BarColumn("Missed Branches", coverage.Branch),
		PercentageColumn("Cov.", coverage.Branch),
		MissedColumn("Missed", coverage.Complexity),
		TotalColumn("Cxty", coverage.Complexity),
		MissedColumn("Missed", coverage.Line),
		TotalColumn("Lines", coverage.Line),
		MissedColumn("Missed", coverage.Method),
		TotalColumn("Methods", coverage.Method),
		MissedColumn("Missed", coverage.Class),
		TotalColumn("Classes", coverage.Class),
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Render sorts items by the default column, ties broken by name, and renders
// rows plus a footer holding the totals. Counter columns whose total is zero
// for all items are left out.
func (t *Table) Render(p *message.Printer, items []Item) TableView {
	var total coverage.Counters
	maxTotal := map[coverage.Entity]int{}
	for _, item := range items {
		total = total.Add(item.Counters)
		for _, e := range coverage.Entities {
			if n := item.Counters.Get(e).Total(); n > maxTotal[e] {
				maxTotal[e] = n
			}
		}
	}

	var visible []Column
	for _, c := range t.columns {
		if c.kind == labelColumn || total.Get(c.Entity).Total() > 0 {
			visible = append(visible, c)
		}
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sortColumn := t.columns[t.sortBy]
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sortColumn.compare(sorted[i], sorted[j]); c != 0 {
			return c < 0
		}
		return sorted[i].Name < sorted[j].Name
	})

	view := TableView{}
	for _, c := range visible {
		view.Headers = append(view.Headers, Cell{Text: c.Header, Style: c.Style})
	}
	for _, item := range sorted {
		row := make([]Cell, 0, len(visible))
		for _, c := range visible {
			row = append(row, c.cell(p, item, maxTotal[c.Entity]))
		}
		view.Rows = append(view.Rows, row)
	}
	totalItem := Item{Name: "Total", Counters: total}
	for _, c := range visible {
		view.Footer = append(view.Footer, c.footer(p, totalItem))
	}
	return view
}

// compare orders items descending by what is missing.
func (c Column) compare(a, b Item) int {
	ca, cb := a.Counters.Get(c.Entity), b.Counters.Get(c.Entity)
	switch c.kind {
	case labelColumn:
		return 0
	case barColumn, missedColumn:
		if d := cb.Missed() - ca.Missed(); d != 0 {
			return d
		}
		return cb.Total() - ca.Total()
	case percentageColumn:
		ra, rb := ca.MissedRatio(), cb.MissedRatio()
		switch {
		case math.IsNaN(ra) && math.IsNaN(rb):
			return 0
		case math.IsNaN(ra):
			return 1
		case math.IsNaN(rb):
			return -1
		case ra > rb:
			return -1
		case ra < rb:
			return 1
		}
		return 0
	default:
		return cb.Total() - ca.Total()
	}
}

func (c Column) cell(p *message.Printer, item Item, max int) Cell {
	counter := item.Counters.Get(c.Entity)
	switch c.kind {
	case labelColumn:
		return Cell{Text: item.Name, Style: "el_" + item.Style, Link: item.Link}
	case barColumn:
		cell := Cell{Style: c.Style, Title: p.Sprintf("%d of %d", counter.Missed(), counter.Total())}
		if max > 0 {
			cell.Bar = &Bar{Missed: counter.Missed() * barWidth / max, Covered: counter.Covered() * barWidth / max}
		}
		return cell
	case percentageColumn:
		return Cell{Text: percentage(p, counter), Style: c.Style}
	case missedColumn:
		return Cell{Text: p.Sprintf("%d", counter.Missed()), Style: c.Style}
	default:
		return Cell{Text: p.Sprintf("%d", counter.Total()), Style: c.Style}
	}
}

func (c Column) footer(p *message.Printer, total Item) Cell {
	counter := total.Counters.Get(c.Entity)
	switch c.kind {
	case labelColumn:
		return Cell{Text: total.Name}
	case barColumn:
		return Cell{Text: p.Sprintf("%d of %d", counter.Missed(), counter.Total()), Style: c.Style}
	default:
		return c.cell(p, total, 0)
	}
}

// percentage renders the covered ratio rounded down, so 99.9% never shows as 100%.
func percentage(p *message.Printer, c coverage.Counter) string {
	r := c.Ratio()
	if math.IsNaN(r) {
		return "n/a"
	}
	return p.Sprintf("%d%%", int(math.Floor(r*100)))
}
