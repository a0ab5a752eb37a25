package console

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jenkins-x-apps/jacoco-go/internal/coverage"
	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/jenkins-x-apps/jacoco-go/internal/report"
	"github.com/mattn/go-runewidth"
	"github.com/pkg/errors"
)

const (
	nameWidth = 48
	barWidth  = 20
)

// Option configures a Visitor.
type Option func(*Visitor)

// WithLines also prints the status of every line of every class.
func WithLines() Option {
	return func(v *Visitor) {
		v.lines = true
	}
}

// WithLanguageNames sets how class names are displayed.
func WithLanguageNames(names report.LanguageNames) Option {
	return func(v *Visitor) {
		v.names = names
	}
}

// Visitor prints a coverage summary to a terminal. Colours are only used when
// the writer is a terminal supporting them.
type Visitor struct {
	w       io.Writer
	names   report.LanguageNames
	lines   bool
	total   coverage.Counters
	visited bool

	plain   lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	styles  map[coverage.Status]lipgloss.Style
}

// NewVisitor creates a visitor printing to w.
func NewVisitor(w io.Writer, opts ...Option) *Visitor {
	r := lipgloss.NewRenderer(w)
	v := &Visitor{
		w:       w,
		names:   report.JavaNames{},
		plain:   r.NewStyle(),
		heading: r.NewStyle().Bold(true),
		muted:   r.NewStyle().Faint(true),
		styles: map[coverage.Status]lipgloss.Style{
			coverage.NotCovered:    r.NewStyle().Foreground(lipgloss.Color("1")),
			coverage.PartlyCovered: r.NewStyle().Foreground(lipgloss.Color("3")),
			coverage.FullyCovered:  r.NewStyle().Foreground(lipgloss.Color("2")),
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VisitInfo implements report.Visitor.
func (v *Visitor) VisitInfo(sessions []data.SessionInfo, records []data.ExecutionRecord) error {
	_, err := fmt.Fprintln(v.w, v.muted.Render(fmt.Sprintf("%d sessions, %d execution records", len(sessions), len(records))))
	return err
}

// VisitBundle implements report.GroupVisitor.
func (v *Visitor) VisitBundle(bundle *coverage.Node, locator report.SourceLocator) error {
	if err := v.enter(); err != nil {
		return err
	}
	v.total = bundle.Counters()
	return (&printer{v: v}).bundle(bundle)
}

// VisitGroup implements report.GroupVisitor.
func (v *Visitor) VisitGroup(name string, fn func(report.GroupVisitor) error) error {
	if err := v.enter(); err != nil {
		return err
	}
	p := &printer{v: v}
	if err := p.open(name); err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	v.total = p.total
	return nil
}

// VisitEnd implements report.Visitor.
func (v *Visitor) VisitEnd() error {
	_, err := fmt.Fprintf(v.w, "%s %s\n", v.heading.Render(runewidth.FillRight("Total", nameWidth)), v.summary(v.total))
	return err
}

func (v *Visitor) enter() error {
	if v.visited {
		return errors.New("a report has exactly one root bundle or group")
	}
	v.visited = true
	return nil
}

// summary renders the instruction bar and the main counters of c.
func (v *Visitor) summary(c coverage.Counters) string {
	instructions := c.Get(coverage.Instruction)
	return fmt.Sprintf("%s %s  branches %s  lines %d/%d  methods %d/%d",
		v.bar(instructions),
		v.styles[instructions.Status()].Render(ratio(instructions)),
		ratio(c.Get(coverage.Branch)),
		c.Get(coverage.Line).Covered(), c.Get(coverage.Line).Total(),
		c.Get(coverage.Method).Covered(), c.Get(coverage.Method).Total())
}

func (v *Visitor) bar(c coverage.Counter) string {
	if c.Total() == 0 {
		return strings.Repeat(" ", barWidth)
	}
	covered := c.Covered() * barWidth / c.Total()
	return v.styles[coverage.FullyCovered].Render(strings.Repeat("█", covered)) +
		v.styles[coverage.NotCovered].Render(strings.Repeat("░", barWidth-covered))
}

func ratio(c coverage.Counter) string {
	r := c.Ratio()
	if math.IsNaN(r) {
		return " n/a"
	}
	return fmt.Sprintf("%3d%%", int(math.Floor(r*100)))
}

// printer prints the content of one group, indented by its depth.
type printer struct {
	v      *Visitor
	indent string
	total  coverage.Counters
}

func (p *printer) open(name string) error {
	_, err := fmt.Fprintln(p.v.w, p.indent+p.v.heading.Render(name))
	return err
}

func (p *printer) VisitBundle(bundle *coverage.Node, locator report.SourceLocator) error {
	p.total = p.total.Add(bundle.Counters())
	return p.bundle(bundle)
}

func (p *printer) VisitGroup(name string, fn func(report.GroupVisitor) error) error {
	child := &printer{v: p.v, indent: p.indent + "  "}
	if err := child.open(name); err != nil {
		return err
	}
	if err := fn(child); err != nil {
		return err
	}
	p.total = p.total.Add(child.total)
	return nil
}

func (p *printer) bundle(bundle *coverage.Node) error {
	if err := p.row(p.v.heading, bundle.Name(), bundle.Counters()); err != nil {
		return err
	}
	for _, pkg := range bundle.Children() {
		for _, class := range pkg.Children() {
			name := p.v.names.QualifiedClassName(class.Name())
			if err := p.row(p.v.plain, "  "+name, class.Counters()); err != nil {
				return err
			}
			if p.v.lines {
				if err := p.lines(class); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *printer) row(style lipgloss.Style, name string, c coverage.Counters) error {
	width := nameWidth - runewidth.StringWidth(p.indent)
	label := runewidth.FillRight(runewidth.Truncate(name, width, "…"), width)
	_, err := fmt.Fprintf(p.v.w, "%s%s %s\n", p.indent, style.Render(label), p.v.summary(c))
	return err
}

func (p *printer) lines(class *coverage.Node) error {
	lines := class.Lines()
	nrs := make([]int, 0, len(lines))
	for nr := range lines {
		nrs = append(nrs, nr)
	}
	sort.Ints(nrs)
	for _, nr := range nrs {
		l := lines[nr]
		status := l.Status()
		text := fmt.Sprintf("%s    %5d %s", p.indent, nr, status)
		if l.Branches.Total() > 0 {
			text += fmt.Sprintf(" (%d of %d branches missed)", l.Branches.Missed(), l.Branches.Total())
		}
		if _, err := fmt.Fprintln(p.v.w, p.v.styles[status].Render(text)); err != nil {
			return err
		}
	}
	return nil
}
