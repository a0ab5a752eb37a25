package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func method(name string, covered bool, lines ...*Node) *Node {
	var own Counters
	own[Method] = Increment(1, 0)
	own[Complexity] = Increment(1, 0)
	if covered {
		own[Method] = Increment(1, 1)
		own[Complexity] = Increment(1, 1)
	}
	return NewMethod(name, "()V", "", own, lines)
}

func sampleClass() *Node {
	run := method("run", true,
		NewLine(4, NewCounter(0, 3), NewCounter(1, 1)),
		NewLine(3, NewCounter(0, 2), Empty),
	)
	idle := method("idle", false, NewLine(9, NewCounter(2, 0), Empty))
	return NewClass(ClassInfo{ID: 42, Name: "org/example/Foo", Package: "org/example", SourceFile: "Foo.java"}, []*Node{run, idle})
}

func TestDeclaredPackage(t *testing.T) {
	assert.Equal(t, "", DeclaredPackage(DefaultPackage))
	assert.Equal(t, "org/example", DeclaredPackage("org/example"))
}

func TestLineCounters(t *testing.T) {
	line := NewLine(7, NewCounter(1, 1), NewCounter(1, 1))
	assert.Equal(t, KindLine, line.Kind())
	assert.Equal(t, 7, line.Nr())
	assert.Equal(t, "7", line.Name())
	assert.Equal(t, NewCounter(0, 1), line.Counter(Line))
	assert.Equal(t, PartlyCovered, line.Status())

	missed := NewLine(8, NewCounter(2, 0), Empty)
	assert.Equal(t, NewCounter(1, 0), missed.Counter(Line))
	assert.Equal(t, NotCovered, missed.Status())
}

func TestLineWithoutInstructionsPanics(t *testing.T) {
	assert.Panics(t, func() { NewLine(1, Empty, Empty) })
}

func TestClassAggregation(t *testing.T) {
	class := sampleClass()

	assert.Equal(t, NewCounter(2, 5), class.Counter(Instruction))
	assert.Equal(t, NewCounter(1, 1), class.Counter(Branch))
	assert.Equal(t, NewCounter(1, 2), class.Counter(Line))
	assert.Equal(t, NewCounter(1, 1), class.Counter(Method))
	assert.Equal(t, NewCounter(0, 1), class.Counter(Class))
	assert.Equal(t, 3, class.FirstLine())
	assert.Equal(t, 9, class.LastLine())
	assert.Equal(t, "org/example", class.PackageName())
	require.NoError(t, Verify(class))

	methods := class.Children()
	require.Len(t, methods, 2)
	lines := methods[0].Children()
	require.Len(t, lines, 2)
	assert.Equal(t, 3, lines[0].Nr(), "lines are ordered by number")
}

func TestUncoveredMethodsLeaveClassUncovered(t *testing.T) {
	class := NewClass(ClassInfo{ID: 1, Name: "a/B"}, []*Node{method("x", false, NewLine(1, NewCounter(1, 0), Empty))})
	assert.Equal(t, NewCounter(1, 0), class.Counter(Method))
	assert.Equal(t, NewCounter(1, 0), class.Counter(Class))
}

func TestTreeAggregationInvariant(t *testing.T) {
	other := NewClass(ClassInfo{ID: 2, Name: "org/example/Bar", Package: "org/example"}, []*Node{method("x", false, NewLine(1, NewCounter(4, 0), Empty))})
	pkg := NewPackage("org/example", []*Node{sampleClass(), other})
	bundle := NewBundle("app", []*Node{pkg})
	group := NewGroup("all", bundle, NewBundle("empty", nil))

	require.NoError(t, Verify(group))
	assert.Equal(t, NewCounter(6, 5), group.Counter(Instruction))
	assert.Equal(t, NewCounter(1, 1), group.Counter(Class))
	assert.Equal(t, "org/example/Bar", pkg.Children()[0].Name(), "classes are sorted by name")
	assert.Len(t, group.Classes(), 2)
}

func TestMergeClassSumsCounters(t *testing.T) {
	a := sampleClass()
	b := sampleClass()

	merged := MergeClass(a, b)
	require.NoError(t, Verify(merged))
	assert.Equal(t, a.Counters().Add(b.Counters()), merged.Counters())
	assert.Len(t, merged.Children(), 2, "methods are merged, not duplicated")
	assert.Equal(t, LineCounters{Instructions: NewCounter(0, 6), Branches: NewCounter(2, 2)}, merged.Lines()[4])
}

func TestMergeClassKeepsMethodsOfBothSides(t *testing.T) {
	a := NewClass(ClassInfo{ID: 1, Name: "a/B"}, []*Node{method("x", true, NewLine(1, NewCounter(0, 1), Empty))})
	b := NewClass(ClassInfo{ID: 1, Name: "a/B"}, []*Node{method("y", false, NewLine(2, NewCounter(1, 0), Empty))})

	merged := MergeClass(a, b)
	require.NoError(t, Verify(merged))
	assert.Len(t, merged.Children(), 2)
	assert.Equal(t, NewCounter(1, 1), merged.Counter(Method))
}

func TestVerifyDetectsOwnCountersOnAggregates(t *testing.T) {
	pkg := NewPackage("p", nil)
	pkg.own = Counters{}.With(Class, NewCounter(1, 0))
	pkg.counters = pkg.own
	assert.Error(t, Verify(pkg))
}
