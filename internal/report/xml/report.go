package xml

import (
	"bytes"
	encxml "encoding/xml"
	"io"
	"sort"

	"github.com/jenkins-x-apps/jacoco-go/internal/coverage"
	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/jenkins-x-apps/jacoco-go/internal/logging"
	"github.com/jenkins-x-apps/jacoco-go/internal/report"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// FileName is the name of the written report.
const FileName = "jacoco.xml"

const docType = `<!DOCTYPE report PUBLIC "-//JACOCO//DTD Report 1.1//EN" "report.dtd">` + "\n"

var (
	logger = logging.AppLogger().WithFields(log.Fields{"component": "xml"})

	counterOrder = []coverage.Entity{
		coverage.Instruction,
		coverage.Branch,
		coverage.Line,
		coverage.Complexity,
		coverage.Method,
		coverage.Class,
	}
)

// Counters converts a counter set. Counters with a total of zero are left out.
func Counters(c coverage.Counters) []Counter {
	var result []Counter
	for _, e := range counterOrder {
		counter := c.Get(e)
		if counter.Total() == 0 {
			continue
		}
		result = append(result, Counter{Type: e.String(), Missed: counter.Missed(), Covered: counter.Covered()})
	}
	return result
}

// Sessions converts session infos.
func Sessions(sessions []data.SessionInfo) []SessionInfo {
	var result []SessionInfo
	for _, s := range sessions {
		result = append(result, SessionInfo{
			ID:    s.ID,
			Start: s.Start.UnixNano() / 1e6,
			Dump:  s.Dump.UnixNano() / 1e6,
		})
	}
	return result
}

// BuildPackage converts a package node including its classes and source files.
func BuildPackage(pkg *coverage.Node) Package {
	p := Package{Name: coverage.DeclaredPackage(pkg.Name()), Counters: Counters(pkg.Counters())}

	var sourceNames []string
	lines := map[string]map[int]coverage.LineCounters{}
	totals := map[string]coverage.Counters{}
	for _, class := range pkg.Children() {
		p.Classes = append(p.Classes, buildClass(class))
		name := class.SourceFile()
		if name == "" {
			continue
		}
		if _, ok := lines[name]; !ok {
			sourceNames = append(sourceNames, name)
			lines[name] = map[int]coverage.LineCounters{}
		}
		for nr, l := range class.Lines() {
			lines[name][nr] = lines[name][nr].Add(l)
		}
		totals[name] = totals[name].Add(class.Counters())
	}

	sort.Strings(sourceNames)
	for _, name := range sourceNames {
		sf := SourceFile{Name: name, Counters: Counters(totals[name])}
		nrs := make([]int, 0, len(lines[name]))
		for nr := range lines[name] {
			nrs = append(nrs, nr)
		}
		sort.Ints(nrs)
		for _, nr := range nrs {
			l := lines[name][nr]
			sf.Lines = append(sf.Lines, Line{
				Nr: nr,
				Mi: l.Instructions.Missed(),
				Ci: l.Instructions.Covered(),
				Mb: l.Branches.Missed(),
				Cb: l.Branches.Covered(),
			})
		}
		p.SourceFiles = append(p.SourceFiles, sf)
	}
	return p
}

func buildClass(class *coverage.Node) Class {
	c := Class{Name: class.Name(), Sourcefilename: class.SourceFile(), Counters: Counters(class.Counters())}
	for _, m := range class.Children() {
		c.Methods = append(c.Methods, Method{
			Name:     m.Name(),
			Desc:     m.Desc(),
			Line:     m.FirstLine(),
			Counters: Counters(m.Counters()),
		})
	}
	return c
}

func buildPackages(bundle *coverage.Node) []Package {
	var packages []Package
	for _, pkg := range bundle.Children() {
		packages = append(packages, BuildPackage(pkg))
	}
	return packages
}

// Build converts a bundle or group tree into a report.
func Build(root *coverage.Node, sessions []data.SessionInfo) (Report, error) {
	r := Report{Name: root.Name(), SessionInfo: Sessions(sessions), Counters: Counters(root.Counters())}
	switch root.Kind() {
	case coverage.KindBundle:
		r.Packages = buildPackages(root)
	case coverage.KindGroup:
		for _, child := range root.Children() {
			g, err := buildGroup(child)
			if err != nil {
				return Report{}, err
			}
			r.Groups = append(r.Groups, g)
		}
	default:
		return Report{}, errors.Errorf("%s is neither a bundle nor a group", root)
	}
	return r, nil
}

func buildGroup(n *coverage.Node) (Group, error) {
	g := Group{Name: n.Name(), Counters: Counters(n.Counters())}
	switch n.Kind() {
	case coverage.KindBundle:
		g.Packages = buildPackages(n)
	case coverage.KindGroup:
		for _, child := range n.Children() {
			cg, err := buildGroup(child)
			if err != nil {
				return Group{}, err
			}
			g.Groups = append(g.Groups, cg)
		}
	default:
		return Group{}, errors.Errorf("%s is neither a bundle nor a group", n)
	}
	return g, nil
}

// Write encodes the report with the JaCoCo document type.
func Write(w io.Writer, r Report) error {
	if _, err := io.WriteString(w, encxml.Header+docType); err != nil {
		return err
	}
	enc := encxml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "unable to encode report")
	}
	return enc.Flush()
}

// Read decodes a JaCoCo XML report.
func Read(r io.Reader) (Report, error) {
	report := Report{}
	if err := encxml.NewDecoder(r).Decode(&report); err != nil {
		return Report{}, errors.Wrap(err, "unable to decode report")
	}
	return report, nil
}

// Visitor builds the XML report during a traversal and writes it on VisitEnd.
type Visitor struct {
	out      report.Output
	name     string
	sessions []data.SessionInfo
	report   *Report
}

// NewVisitor creates a visitor writing FileName to out.
func NewVisitor(out report.Output) *Visitor {
	return &Visitor{out: out, name: FileName}
}

// Report returns the report built so far.
func (v *Visitor) Report() (Report, bool) {
	if v.report == nil {
		return Report{}, false
	}
	return *v.report, true
}

// VisitInfo implements report.Visitor.
func (v *Visitor) VisitInfo(sessions []data.SessionInfo, records []data.ExecutionRecord) error {
	v.sessions = sessions
	return nil
}

// VisitBundle implements report.GroupVisitor.
func (v *Visitor) VisitBundle(bundle *coverage.Node, locator report.SourceLocator) error {
	if v.report != nil {
		return errors.New("a report has exactly one root bundle or group")
	}
	r, err := Build(bundle, v.sessions)
	if err != nil {
		return err
	}
	v.report = &r
	return nil
}

// VisitGroup implements report.GroupVisitor.
func (v *Visitor) VisitGroup(name string, fn func(report.GroupVisitor) error) error {
	if v.report != nil {
		return errors.New("a report has exactly one root bundle or group")
	}
	g := &groupVisitor{}
	if err := fn(g); err != nil {
		return err
	}
	v.report = &Report{
		Name:        name,
		SessionInfo: Sessions(v.sessions),
		Groups:      g.groups,
		Counters:    Counters(g.total),
	}
	return nil
}

// VisitEnd implements report.Visitor.
func (v *Visitor) VisitEnd() error {
	if v.report == nil {
		return errors.New("no bundle or group visited")
	}
	var buf bytes.Buffer
	if err := Write(&buf, *v.report); err != nil {
		return err
	}
	logger.Debugf("writing %s", v.name)
	return v.out.Write(v.name, buf.Bytes())
}

type groupVisitor struct {
	groups []Group
	total  coverage.Counters
}

func (g *groupVisitor) VisitBundle(bundle *coverage.Node, locator report.SourceLocator) error {
	g.groups = append(g.groups, Group{Name: bundle.Name(), Packages: buildPackages(bundle), Counters: Counters(bundle.Counters())})
	g.total = g.total.Add(bundle.Counters())
	return nil
}

func (g *groupVisitor) VisitGroup(name string, fn func(report.GroupVisitor) error) error {
	child := &groupVisitor{}
	if err := fn(child); err != nil {
		return err
	}
	g.groups = append(g.groups, Group{Name: name, Groups: child.groups, Counters: Counters(child.total)})
	g.total = g.total.Add(child.total)
	return nil
}
