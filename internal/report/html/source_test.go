package html

import (
	"testing"

	"github.com/jenkins-x-apps/jacoco-go/internal/coverage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func TestHighlight(t *testing.T) {
	text := "class Foo {\n\tint x;\n\tif (a) {}\r\n}\n"
	lines := map[int]coverage.LineCounters{
		2: {Instructions: coverage.NewCounter(0, 2)},
		3: {Instructions: coverage.NewCounter(0, 1), Branches: coverage.NewCounter(1, 1)},
		4: {Instructions: coverage.NewCounter(1, 0)},
	}

	view := highlight(message.NewPrinter(language.English), text, lines, 4)
	require.Len(t, view.Lines, 4)

	assert.Equal(t, SourceLine{Nr: 1, Text: "class Foo {"}, view.Lines[0])
	assert.Equal(t, SourceLine{Nr: 2, Text: "    int x;", Style: "fc"}, view.Lines[1])
	assert.Equal(t, SourceLine{Nr: 3, Text: "    if (a) {}", Style: "pc bpc", Title: "1 of 2 branches missed."}, view.Lines[2])
	assert.Equal(t, SourceLine{Nr: 4, Text: "}", Style: "nc"}, view.Lines[3])
}

func TestExpandTabs(t *testing.T) {
	assert.Equal(t, "ab  c", expandTabs("ab\tc", 4))
	assert.Equal(t, "    x", expandTabs("\tx", 4))
	assert.Equal(t, "  x", expandTabs("\tx", 2))
	assert.Equal(t, "plain", expandTabs("plain", 8))
}

func TestBranchHints(t *testing.T) {
	p := message.NewPrinter(language.English)
	assert.Equal(t, "All 2 branches covered.", branchHint(p, coverage.NewCounter(0, 2)))
	assert.Equal(t, "All 4 branches missed.", branchHint(p, coverage.NewCounter(4, 0)))
}

func TestRelative(t *testing.T) {
	var testCases = []struct {
		from     string
		target   string
		expected string
	}{
		{"index.html", "org.example/index.html", "org.example/index.html"},
		{"org.example/index.html", "index.html", "../index.html"},
		{"org.example/index.html", "org.example/Foo.html", "Foo.html"},
		{"a/org.example/Foo.html", "jacoco-resources", "../../jacoco-resources"},
		{"jacoco-sessions.html", "a/org.example/Foo.html", "a/org.example/Foo.html"},
		{"a/b/index.html", "a/c/index.html", "../c/index.html"},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, relative(testCase.from, testCase.target), testCase.from+" -> "+testCase.target)
	}
}
