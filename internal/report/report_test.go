package report

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jenkins-x-apps/jacoco-go/internal/coverage"
	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder logs the calls it receives as strings.
type recorder struct {
	prefix string
	calls  *[]string
	fail   string
}

func newRecorder(prefix string) *recorder {
	return &recorder{prefix: prefix, calls: &[]string{}}
}

func (r *recorder) record(call string) error {
	*r.calls = append(*r.calls, r.prefix+call)
	if call == r.fail {
		return errors.New("failed " + call)
	}
	return nil
}

func (r *recorder) VisitInfo(sessions []data.SessionInfo, records []data.ExecutionRecord) error {
	return r.record("info")
}

func (r *recorder) VisitBundle(bundle *coverage.Node, locator SourceLocator) error {
	return r.record("bundle " + bundle.Name())
}

func (r *recorder) VisitGroup(name string, fn func(GroupVisitor) error) error {
	if err := r.record("group " + name); err != nil {
		return err
	}
	if err := fn(r); err != nil {
		return err
	}
	return r.record("end " + name)
}

func (r *recorder) VisitEnd() error {
	return r.record("end")
}

func bundle(name string) *coverage.Node {
	line := coverage.NewLine(1, coverage.Increment(1, 1), coverage.Empty)
	method := coverage.NewMethod("m", "()V", "", coverage.Counters{}.With(coverage.Method, coverage.Increment(1, 1)), []*coverage.Node{line})
	class := coverage.NewClass(coverage.ClassInfo{ID: 1, Name: "p/" + name, Package: "p"}, []*coverage.Node{method})
	return coverage.NewBundle(name, []*coverage.Node{coverage.NewPackage("p", []*coverage.Node{class})})
}

func TestRenderVisitsGroupsDepthFirst(t *testing.T) {
	root := coverage.NewGroup("all", bundle("a"), coverage.NewGroup("nested", bundle("b")), bundle("c"))
	r := newRecorder("")

	require.NoError(t, Render(context.Background(), r, nil, nil, root, NoSources{}))
	assert.Equal(t, []string{
		"info", "group all", "bundle a", "group nested", "bundle b", "end nested", "bundle c", "end all", "end",
	}, *r.calls)
}

func TestRenderSkipsEndOnFailure(t *testing.T) {
	r := newRecorder("")
	r.fail = "bundle b"
	root := coverage.NewGroup("all", bundle("a"), bundle("b"), bundle("c"))

	err := Render(context.Background(), r, nil, nil, root, NoSources{})
	require.Error(t, err)
	assert.NotContains(t, *r.calls, "end")
	assert.NotContains(t, *r.calls, "bundle c")
}

func TestRenderIsCancelledBetweenGroups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &cancellingRecorder{recorder: newRecorder(""), cancel: cancel}
	root := coverage.NewGroup("all", bundle("a"), bundle("b"))

	err := Render(ctx, r, nil, nil, root, NoSources{})
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, []string{"info", "group all", "bundle a"}, *r.calls)
}

type cancellingRecorder struct {
	*recorder
	cancel context.CancelFunc
}

func (c *cancellingRecorder) VisitBundle(bundle *coverage.Node, locator SourceLocator) error {
	c.cancel()
	return c.recorder.VisitBundle(bundle, locator)
}

func (c *cancellingRecorder) VisitGroup(name string, fn func(GroupVisitor) error) error {
	if err := c.record("group " + name); err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return c.record("end " + name)
}

func TestRenderRejectsClasses(t *testing.T) {
	class := bundle("a").Classes()[0]
	err := Render(context.Background(), newRecorder(""), nil, nil, class, NoSources{})
	assert.Error(t, err)
}

func TestMultiVisitor(t *testing.T) {
	a := newRecorder("a:")
	b := &recorder{prefix: "b:", calls: a.calls}
	root := coverage.NewGroup("all", bundle("x"))

	require.NoError(t, Render(context.Background(), NewMultiVisitor(a, b), nil, nil, root, NoSources{}))
	assert.Equal(t, []string{
		"a:info", "b:info",
		"a:group all", "b:group all",
		"a:bundle x", "b:bundle x",
		"b:end all", "a:end all",
		"a:end", "b:end",
	}, *a.calls)
}

func TestJavaNames(t *testing.T) {
	names := JavaNames{}
	assert.Equal(t, "org.example", names.PackageName("org/example"))
	assert.Equal(t, "default", names.PackageName(""))
	assert.Equal(t, "Foo.Inner", names.ClassName("org/example/Foo$Inner"))
	assert.Equal(t, "Foo.{...}", names.ClassName("org/example/Foo$1"))
	assert.Equal(t, "org.example.Foo", names.QualifiedClassName("org/example/Foo"))
	assert.Equal(t, "Main", names.QualifiedClassName("Main"))

	var testCases = []struct {
		method   string
		desc     string
		expected string
	}{
		{"<init>", "()V", "Inner()"},
		{"<clinit>", "()V", "static {...}"},
		{"lambda$run$0", "()V", "{...}"},
		{"run", "(I[Ljava/lang/String;)Z", "run(int, String[])"},
		{"grid", "([[JLjava/util/Map$Entry;)V", "grid(long[][], Map.Entry)"},
		{"broken", "(Ljava/lang", "broken()"},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, names.MethodName("org/example/Foo$Inner", testCase.method, testCase.desc), testCase.method)
	}
}

func TestMemoryOutputKeepsWriteOrder(t *testing.T) {
	out := NewMemoryOutput()
	require.NoError(t, out.Write("b/index.html", []byte("b")))
	require.NoError(t, out.Write("a.html", []byte("a")))
	require.NoError(t, out.Write("b/index.html", []byte("b2")))
	assert.Error(t, out.Write("../escape.html", nil))

	assert.Equal(t, []string{"b/index.html", "a.html"}, out.Paths())
	content, ok := out.Content("b/index.html")
	require.True(t, ok)
	assert.Equal(t, "b2", string(content))

	require.NoError(t, out.Close())
	assert.Error(t, out.Write("c.html", nil))
}

func TestDirectoryOutput(t *testing.T) {
	dir, err := ioutil.TempDir("", "report")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	out, err := NewDirectoryOutput(filepath.Join(dir, "html"))
	require.NoError(t, err)
	require.NoError(t, out.Write("org.example/Foo.html", []byte("<html/>")))

	content, err := ioutil.ReadFile(filepath.Join(dir, "html", "org.example", "Foo.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html/>", string(content))
}

func TestDirectorySourceLocator(t *testing.T) {
	first, err := ioutil.TempDir("", "src1")
	require.NoError(t, err)
	defer os.RemoveAll(first)
	second, err := ioutil.TempDir("", "src2")
	require.NoError(t, err)
	defer os.RemoveAll(second)

	require.NoError(t, os.MkdirAll(filepath.Join(second, "org", "example"), 0755))
	source := filepath.Join(second, "org", "example", "Foo.java")
	require.NoError(t, ioutil.WriteFile(source, []byte("class Foo {\n}\n"), 0644))

	locator, err := NewDirectorySourceLocator([]string{first, second}, "", 0)
	require.NoError(t, err)
	defer locator.Close()
	assert.Equal(t, DefaultTabWidth, locator.TabWidth())

	text, err := locator.Source("org/example", "Foo.java")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "class Foo"))

	_, err = locator.Source("org/example", "Bar.java")
	assert.Equal(t, ErrMissingSource, errors.Cause(err))
}

func TestDirectorySourceLocatorDecodesLatin1(t *testing.T) {
	dir, err := ioutil.TempDir("", "latin1")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "A.java"), []byte{'/', '/', ' ', 0xe9}, 0644))

	locator, err := NewDirectorySourceLocator([]string{dir}, "iso-8859-1", 2)
	require.NoError(t, err)
	text, err := locator.Source("", "A.java")
	require.NoError(t, err)
	assert.Equal(t, "// é", text)
	assert.Equal(t, 2, locator.TabWidth())

	_, err = NewDirectorySourceLocator(nil, "no-such-encoding", 0)
	assert.Error(t, err)
}
