package html

import (
	"fmt"
	"path"
	"strings"

	"github.com/jenkins-x-apps/jacoco-go/internal/coverage"
	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/jenkins-x-apps/jacoco-go/internal/logging"
	"github.com/jenkins-x-apps/jacoco-go/internal/report"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// SessionsPage is the path of the page listing sessions and execution records.
	SessionsPage = "jacoco-sessions.html"
	indexPage    = "index.html"
	timeLayout   = "Jan 2, 2006 3:04:05 PM"
)

var logger = logging.AppLogger().WithFields(log.Fields{"component": "html"})

// Formatter creates visitors rendering a coverage tree as linked HTML pages.
type Formatter struct {
	names    report.LanguageNames
	locale   language.Tag
	footer   string
	encoding encoding.Encoding
	charset  string
	table    *Table
}

// Option configures a Formatter.
type Option func(*Formatter) error

// WithLanguageNames sets how VM names are displayed.
func WithLanguageNames(names report.LanguageNames) Option {
	return func(f *Formatter) error {
		f.names = names
		return nil
	}
}

// WithLocale sets the locale used to format numbers, for example "de-CH".
func WithLocale(locale string) Option {
	return func(f *Formatter) error {
		if locale == "" {
			return nil
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return errors.Wrapf(err, "invalid locale %q", locale)
		}
		f.locale = tag
		return nil
	}
}

// WithFooter sets a text shown at the bottom of every page.
func WithFooter(footer string) Option {
	return func(f *Formatter) error {
		f.footer = footer
		return nil
	}
}

// WithOutputEncoding sets the character encoding of the written pages.
func WithOutputEncoding(name string) Option {
	return func(f *Formatter) error {
		if name == "" {
			return nil
		}
		enc, err := htmlindex.Get(name)
		if err != nil {
			return errors.Wrapf(err, "unsupported output encoding %q", name)
		}
		charset, err := htmlindex.Name(enc)
		if err != nil {
			return errors.Wrapf(err, "unsupported output encoding %q", name)
		}
		f.encoding = enc
		f.charset = charset
		return nil
	}
}

// WithTable replaces the default coverage table columns.
func WithTable(t *Table) Option {
	return func(f *Formatter) error {
		f.table = t
		return nil
	}
}

// NewFormatter creates a formatter. Without options pages are UTF-8 encoded,
// numbers formatted for English and names shown as in Java.
func NewFormatter(opts ...Option) (*Formatter, error) {
	f := &Formatter{names: report.JavaNames{}, locale: language.English, charset: "utf-8", table: DefaultTable()}
	enc, err := htmlindex.Get(f.charset)
	if err != nil {
		return nil, err
	}
	f.encoding = enc
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// CreateVisitor returns a visitor writing the report pages to out.
func (f *Formatter) CreateVisitor(out report.Output) report.Visitor {
	return &rootVisitor{
		ctx: &renderContext{
			Formatter: f,
			out:       out,
			printer:   message.NewPrinter(f.locale),
			index:     NewElementIndex(),
		},
	}
}

type renderContext struct {
	*Formatter
	out     report.Output
	printer *message.Printer
	index   *ElementIndex
}

func (c *renderContext) write(pg *page) error {
	pg.Charset = c.charset
	pg.Footer = c.footer
	for i := range pg.Breadcrumb {
		if pg.Breadcrumb[i].Link != "" {
			pg.Breadcrumb[i].Link = relative(pg.path, pg.Breadcrumb[i].Link)
		}
	}
	content, err := pg.render(c.encoding)
	if err != nil {
		return err
	}
	logger.Tracef("writing %s", pg.path)
	return c.out.Write(pg.path, content)
}

// tablePage renders items, whose links are relative to the report root, as a table page.
func (c *renderContext) tablePage(pagePath, title, style string, crumbs []Crumb, items []Item) error {
	linked := make([]Item, len(items))
	for i, item := range items {
		linked[i] = item
		if item.Link != "" {
			linked[i].Link = relative(pagePath, item.Link)
		}
	}
	view := c.table.Render(c.printer, linked)
	return c.write(&page{
		path:       pagePath,
		Title:      title,
		Style:      style,
		Breadcrumb: append(copyCrumbs(crumbs), Crumb{Label: title, Style: style}),
		Table:      &view,
	})
}

func (c *renderContext) renderBundle(dir string, bundle *coverage.Node, locator report.SourceLocator, crumbs []Crumb) (Item, error) {
	pagePath := path.Join(dir, indexPage)
	self := append(copyCrumbs(crumbs), Crumb{Label: bundle.Name(), Link: pagePath, Style: "report"})
	var items []Item
	for _, pkg := range bundle.Children() {
		item, err := c.renderPackage(path.Join(dir, folderName(c.names.PackageName(pkg.Name()))), pkg, locator, self)
		if err != nil {
			return Item{}, err
		}
		items = append(items, item)
	}
	if err := c.tablePage(pagePath, bundle.Name(), "report", crumbs, items); err != nil {
		return Item{}, err
	}
	return Item{Name: bundle.Name(), Link: pagePath, Style: "bundle", Counters: bundle.Counters()}, nil
}

func (c *renderContext) renderPackage(dir string, pkg *coverage.Node, locator report.SourceLocator, crumbs []Crumb) (Item, error) {
	pagePath := path.Join(dir, indexPage)
	title := c.names.PackageName(pkg.Name())
	self := append(copyCrumbs(crumbs), Crumb{Label: title, Link: pagePath, Style: "package"})

	sources, err := c.renderSources(dir, pkg, locator, self)
	if err != nil {
		return Item{}, err
	}

	var items []Item
	for _, class := range pkg.Children() {
		item, err := c.renderClass(dir, class, sources[class.SourceFile()], self)
		if err != nil {
			return Item{}, err
		}
		items = append(items, item)
	}
	if err := c.tablePage(pagePath, title, "package", crumbs, items); err != nil {
		return Item{}, err
	}
	return Item{Name: title, Link: pagePath, Style: "package", Counters: pkg.Counters()}, nil
}

// renderSources writes one page per source file of the package and returns
// the page paths by file name. Files the locator does not have are skipped.
func (c *renderContext) renderSources(dir string, pkg *coverage.Node, locator report.SourceLocator, crumbs []Crumb) (map[string]string, error) {
	lines := map[string]map[int]coverage.LineCounters{}
	var files []string
	for _, class := range pkg.Children() {
		file := class.SourceFile()
		if file == "" {
			continue
		}
		if lines[file] == nil {
			lines[file] = map[int]coverage.LineCounters{}
			files = append(files, file)
		}
		for nr, l := range class.Lines() {
			lines[file][nr] = lines[file][nr].Add(l)
		}
	}

	tabWidth := locator.TabWidth()
	if tabWidth <= 0 {
		tabWidth = report.DefaultTabWidth
	}
	pages := map[string]string{}
	for _, file := range files {
		text, err := locator.Source(coverage.DeclaredPackage(pkg.Name()), file)
		if errors.Cause(err) == report.ErrMissingSource {
			logger.Debugf("rendering %s without source: %s", file, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		pagePath := path.Join(dir, folderName(file)+".html")
		view := highlight(c.printer, text, lines[file], tabWidth)
		err = c.write(&page{
			path:       pagePath,
			Title:      file,
			Style:      "source",
			Breadcrumb: append(copyCrumbs(crumbs), Crumb{Label: file, Style: "source"}),
			Source:     &view,
		})
		if err != nil {
			return nil, err
		}
		pages[file] = pagePath
	}
	return pages, nil
}

func (c *renderContext) renderClass(dir string, class *coverage.Node, sourcePage string, crumbs []Crumb) (Item, error) {
	simple := class.Name()
	if i := strings.LastIndex(simple, "/"); i >= 0 {
		simple = simple[i+1:]
	}
	pagePath := path.Join(dir, classPage(simple))
	title := c.names.ClassName(class.Name())

	var items []Item
	for _, m := range class.Children() {
		item := Item{Name: c.names.MethodName(class.Name(), m.Name(), m.Desc()), Style: "method", Counters: m.Counters()}
		if sourcePage != "" && m.FirstLine() > 0 {
			item.Link = fmt.Sprintf("%s#L%d", sourcePage, m.FirstLine())
		}
		items = append(items, item)
	}
	if err := c.tablePage(pagePath, title, "class", crumbs, items); err != nil {
		return Item{}, err
	}
	c.index.Add(data.ID{ClassID: class.ID(), Name: class.Name()}, pagePath)
	return Item{Name: title, Link: pagePath, Style: "class", Counters: class.Counters()}, nil
}

func (c *renderContext) sessionsPage(sessions []data.SessionInfo, records []data.ExecutionRecord) error {
	pg := &page{
		path:       SessionsPage,
		Title:      "Sessions",
		Style:      "session",
		Breadcrumb: []Crumb{{Label: "Sessions", Style: "session"}},
	}
	for _, s := range sessions {
		pg.Sessions = append(pg.Sessions, SessionRow{ID: s.ID, Start: s.Start.Format(timeLayout), Dump: s.Dump.Format(timeLayout)})
	}
	for _, r := range records {
		row := RecordRow{Name: c.names.QualifiedClassName(r.ID.Name), ID: fmt.Sprintf("%016x", r.ID.ClassID)}
		if link, ok := c.index.Link(r.ID); ok {
			row.Link = relative(SessionsPage, link)
		}
		pg.Records = append(pg.Records, row)
	}
	return c.write(pg)
}

func copyCrumbs(crumbs []Crumb) []Crumb {
	return append([]Crumb(nil), crumbs...)
}

// classPage returns the page name of a class. A class named like the package
// index gets a suffix which no Java class name can carry.
func classPage(simpleName string) string {
	name := folderName(simpleName)
	if name+".html" == indexPage {
		name += ".class"
	}
	return name + ".html"
}

func folderName(name string) string {
	if name == "" {
		return "_"
	}
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_").Replace(name)
}

type rootVisitor struct {
	ctx      *renderContext
	sessions []data.SessionInfo
	records  []data.ExecutionRecord
	visited  bool
}

func (v *rootVisitor) VisitInfo(sessions []data.SessionInfo, records []data.ExecutionRecord) error {
	v.sessions = sessions
	v.records = records
	return v.ctx.out.Write(resourcesDir+"/report.css", []byte(styleSheet))
}

func (v *rootVisitor) enter() error {
	if v.visited {
		return errors.New("a report has exactly one root bundle or group")
	}
	v.visited = true
	return nil
}

func (v *rootVisitor) VisitBundle(bundle *coverage.Node, locator report.SourceLocator) error {
	if err := v.enter(); err != nil {
		return err
	}
	_, err := v.ctx.renderBundle("", bundle, locator, nil)
	return err
}

func (v *rootVisitor) VisitGroup(name string, fn func(report.GroupVisitor) error) error {
	if err := v.enter(); err != nil {
		return err
	}
	g := &groupVisitor{ctx: v.ctx, name: name}
	if err := fn(g); err != nil {
		return err
	}
	_, err := g.finish()
	return err
}

func (v *rootVisitor) VisitEnd() error {
	if err := v.ctx.sessionsPage(v.sessions, v.records); err != nil {
		return err
	}
	logger.Debugf("html report written, %d classes indexed", v.ctx.index.Len())
	return nil
}

// groupVisitor collects the rows of a group page while its children are visited.
type groupVisitor struct {
	ctx    *renderContext
	dir    string
	name   string
	crumbs []Crumb
	items  []Item
}

func (g *groupVisitor) pagePath() string {
	return path.Join(g.dir, indexPage)
}

func (g *groupVisitor) self() []Crumb {
	return append(copyCrumbs(g.crumbs), Crumb{Label: g.name, Link: g.pagePath(), Style: "group"})
}

func (g *groupVisitor) VisitBundle(bundle *coverage.Node, locator report.SourceLocator) error {
	item, err := g.ctx.renderBundle(path.Join(g.dir, folderName(bundle.Name())), bundle, locator, g.self())
	if err != nil {
		return err
	}
	g.items = append(g.items, item)
	return nil
}

func (g *groupVisitor) VisitGroup(name string, fn func(report.GroupVisitor) error) error {
	child := &groupVisitor{ctx: g.ctx, dir: path.Join(g.dir, folderName(name)), name: name, crumbs: g.self()}
	if err := fn(child); err != nil {
		return err
	}
	item, err := child.finish()
	if err != nil {
		return err
	}
	g.items = append(g.items, item)
	return nil
}

func (g *groupVisitor) finish() (Item, error) {
	var total coverage.Counters
	for _, item := range g.items {
		total = total.Add(item.Counters)
	}
	if err := g.ctx.tablePage(g.pagePath(), g.name, "group", g.crumbs, g.items); err != nil {
		return Item{}, err
	}
	return Item{Name: g.name, Link: g.pagePath(), Style: "group", Counters: total}, nil
}
