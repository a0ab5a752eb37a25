package html

import (
	"strings"

	"github.com/jenkins-x-apps/jacoco-go/internal/coverage"
	"golang.org/x/text/message"
)

// SourceLine is one rendered line of a source page.
type SourceLine struct {
	Nr    int
	Text  string
	Style string
	Title string
}

// SourceView is the rendered form of a source file.
type SourceView struct {
	Lines []SourceLine
}

var statusStyles = map[coverage.Status]string{
	coverage.NotCovered:    "nc",
	coverage.PartlyCovered: "pc",
	coverage.FullyCovered:  "fc",
}

// highlight tints each line of text by the status of its counters and adds
// branch hints. Lines without counters stay plain. Tabs are expanded to tabWidth.
func highlight(p *message.Printer, text string, lines map[int]coverage.LineCounters, tabWidth int) SourceView {
	view := SourceView{}
	for i, raw := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		nr := i + 1
		line := SourceLine{Nr: nr, Text: expandTabs(strings.TrimSuffix(raw, "\r"), tabWidth)}
		if counters, ok := lines[nr]; ok && counters.Instructions.Total() > 0 {
			line.Style = statusStyles[counters.Status()]
			if b := counters.Branches; b.Total() > 0 {
				line.Style += " b" + statusStyles[b.Status()]
				line.Title = branchHint(p, b)
			}
		}
		view.Lines = append(view.Lines, line)
	}
	return view
}

func branchHint(p *message.Printer, b coverage.Counter) string {
	switch b.Status() {
	case coverage.FullyCovered:
		return p.Sprintf("All %d branches covered.", b.Total())
	case coverage.NotCovered:
		return p.Sprintf("All %d branches missed.", b.Total())
	default:
		return p.Sprintf("%d of %d branches missed.", b.Missed(), b.Total())
	}
}

func expandTabs(s string, tabWidth int) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}
