package html

import (
	"bytes"
	"html/template"
	"path"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
)

// resourcesDir holds the style sheet shared by all pages.
const resourcesDir = "jacoco-resources"

// Crumb is one step of the breadcrumb on top of a page.
type Crumb struct {
	Label string
	Link  string
	Style string
}

// SessionRow is one line of the sessions page.
type SessionRow struct {
	ID    string
	Start string
	Dump  string
}

// RecordRow is one execution record listed on the sessions page.
type RecordRow struct {
	Name string
	ID   string
	Link string
}

// page holds everything the templates need to render one HTML page.
type page struct {
	path       string
	Title      string
	Style      string
	Charset    string
	Resources  string
	Breadcrumb []Crumb
	Table      *TableView
	Source     *SourceView
	Sessions   []SessionRow
	Records    []RecordRow
	Footer     string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en"><head><meta charset="{{.Charset}}"/><link rel="stylesheet" href="{{.Resources}}/report.css" type="text/css"/><title>{{.Title}}</title></head><body>
<div class="breadcrumb">{{range .Breadcrumb}}{{if .Link}}<a href="{{.Link}}" class="el_{{.Style}}">{{.Label}}</a> &gt; {{else}}<span class="el_{{.Style}}">{{.Label}}</span>{{end}}{{end}}</div>
<h1>{{.Title}}</h1>
{{with .Table}}<table class="coverage" cellspacing="0">
<thead><tr>{{range .Headers}}<td class="{{.Style}}">{{.Text}}</td>{{end}}</tr></thead>
<tfoot><tr>{{range .Footer}}<td class="{{.Style}}">{{.Text}}</td>{{end}}</tr></tfoot>
<tbody>{{range .Rows}}<tr>{{range .}}<td class="{{.Style}}"{{if .Title}} title="{{.Title}}"{{end}}>{{if .Bar}}<span class="red" style="width:{{.Bar.Missed}}px"></span><span class="green" style="width:{{.Bar.Covered}}px"></span>{{else if .Link}}<a href="{{.Link}}">{{.Text}}</a>{{else}}{{.Text}}{{end}}</td>{{end}}</tr>
{{end}}</tbody></table>{{end}}
{{with .Source}}<pre class="source linenums">{{range .Lines}}<span id="L{{.Nr}}"{{if .Style}} class="{{.Style}}"{{end}}{{if .Title}} title="{{.Title}}"{{end}}>{{.Text}}</span>
{{end}}</pre>{{end}}
{{if .Sessions}}<table class="coverage" cellspacing="0"><thead><tr><td>Session</td><td>Start Time</td><td>Dump Time</td></tr></thead><tbody>
{{range .Sessions}}<tr><td><span class="el_session">{{.ID}}</span></td><td>{{.Start}}</td><td>{{.Dump}}</td></tr>
{{end}}</tbody></table>{{end}}
{{if .Records}}<p>Execution data for the following classes is considered in this report:</p><table class="coverage" cellspacing="0"><thead><tr><td>Class</td><td>Id</td></tr></thead><tbody>
{{range .Records}}<tr><td>{{if .Link}}<a href="{{.Link}}" class="el_class">{{.Name}}</a>{{else}}<span class="el_class">{{.Name}}</span>{{end}}</td><td><code>{{.ID}}</code></td></tr>
{{end}}</tbody></table>{{end}}
<div class="footer"><span class="right">Created with jacoco-go</span>{{.Footer}}</div></body></html>
`))

// render executes the page template and encodes the result. Characters the
// encoding cannot represent are written as HTML character references.
func (pg *page) render(enc encoding.Encoding) ([]byte, error) {
	pg.Resources = relative(pg.path, resourcesDir)
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pg); err != nil {
		return nil, errors.Wrapf(err, "unable to render %s", pg.path)
	}
	out, err := encoding.HTMLEscapeUnsupported(enc.NewEncoder()).Bytes(buf.Bytes())
	if err != nil {
		return nil, errors.Wrapf(err, "unable to encode %s", pg.path)
	}
	return out, nil
}

// relative returns the link from page from to target, both relative to the report root.
func relative(from, target string) string {
	fromDir := strings.Split(path.Dir(from), "/")
	if fromDir[0] == "." {
		fromDir = nil
	}
	parts := strings.Split(target, "/")
	common := 0
	for common < len(fromDir) && common < len(parts)-1 && fromDir[common] == parts[common] {
		common++
	}
	return strings.Repeat("../", len(fromDir)-common) + strings.Join(parts[common:], "/")
}
