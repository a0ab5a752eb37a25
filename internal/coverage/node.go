package coverage

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// Kind tags the variant of a Node.
type Kind int

const (
	// KindLine is a single source line of a method.
	KindLine Kind = iota
	// KindMethod is a method of a class.
	KindMethod
	// KindClass is a class.
	KindClass
	// KindPackage groups the classes of one package path.
	KindPackage
	// KindBundle groups packages of one analyzed artifact.
	KindBundle
	// KindGroup groups bundles and nested groups.
	KindGroup
)

var kindNames = []string{"LINE", "METHOD", "CLASS", "PACKAGE", "BUNDLE", "GROUP"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Node is one element of the coverage tree. All variants share the counter set;
// the variant specific fields are only populated for the matching Kind.
//
// A node's counters are the sum of its children's counters plus its own
// contribution: a line contributes its instruction, branch and line counters, a
// method its METHOD and COMPLEXITY counters plus instructions without line
// information, a class its CLASS counter. Nodes are immutable once constructed.
type Node struct {
	kind     Kind
	name     string
	own      Counters
	counters Counters
	children []*Node

	// line
	nr int

	// method
	desc      string
	signature string

	// class
	id         uint64
	pkg        string
	sourceFile string
	noMatch    bool
}

func newNode(kind Kind, name string, own Counters, children []*Node) *Node {
	n := &Node{kind: kind, name: name, own: own, children: children}
	n.counters = own
	for _, c := range children {
		n.counters = n.counters.Add(c.counters)
	}
	return n
}

// Kind returns the variant tag.
func (n *Node) Kind() Kind { return n.kind }

// Name returns the node name. Lines are named after their number.
func (n *Node) Name() string { return n.name }

// Counters returns all counters of the node.
func (n *Node) Counters() Counters { return n.counters }

// Counter returns the counter for a single entity.
func (n *Node) Counter(e Entity) Counter { return n.counters[e] }

// Own returns the contribution of the node itself, excluding its children.
func (n *Node) Own() Counters { return n.own }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	children := make([]*Node, len(n.children))
	copy(children, n.children)
	return children
}

// Nr returns the source line number of a line node.
func (n *Node) Nr() int { return n.nr }

// Desc returns the descriptor of a method node.
func (n *Node) Desc() string { return n.desc }

// Signature returns the generic signature of a method node, if any.
func (n *Node) Signature() string { return n.signature }

// ID returns the content fingerprint of a class node.
func (n *Node) ID() uint64 { return n.id }

// PackageName returns the package path of a class node.
func (n *Node) PackageName() string { return n.pkg }

// SourceFile returns the source file name of a class node.
func (n *Node) SourceFile() string { return n.sourceFile }

// NoMatch reports whether execution data exists for the class name but with a different fingerprint.
func (n *Node) NoMatch() bool { return n.noMatch }

// LineCounters is the per-line evidence used to derive line status.
type LineCounters struct {
	Instructions Counter
	Branches     Counter
}

// Status derives the line status from instructions and branches taken together.
func (l LineCounters) Status() Status {
	return statusOf(l.Instructions.missed+l.Branches.missed, l.Instructions.covered+l.Branches.covered)
}

// Add returns the sum of l and o.
func (l LineCounters) Add(o LineCounters) LineCounters {
	return LineCounters{Instructions: l.Instructions.Add(o.Instructions), Branches: l.Branches.Add(o.Branches)}
}

// NewLine creates a line node. A line without instructions carries nothing and
// must not be created; NewLine panics in that case.
func NewLine(nr int, instructions, branches Counter) *Node {
	if instructions.Total() == 0 {
		panic(errors.Wrapf(ErrInvalidCounter, "line %d has no instructions", nr))
	}
	lineCounter := Increment(1, 0)
	if instructions.Covered() > 0 {
		lineCounter = Increment(1, 1)
	}
	var own Counters
	own[Instruction] = instructions
	own[Branch] = branches
	own[Line] = lineCounter
	n := newNode(KindLine, strconv.Itoa(nr), own, nil)
	n.nr = nr
	return n
}

// LineCounters returns the instruction and branch counters of a line node.
func (n *Node) LineCounters() LineCounters {
	return LineCounters{Instructions: n.counters[Instruction], Branches: n.counters[Branch]}
}

// Status returns the status of a line node, or of the instruction counter for other kinds.
func (n *Node) Status() Status {
	if n.kind == KindLine {
		return n.LineCounters().Status()
	}
	return n.counters[Instruction].Status()
}

// NewMethod creates a method node. own holds the counters the method
// contributes itself; lines are sorted by number.
func NewMethod(name, desc, signature string, own Counters, lines []*Node) *Node {
	sorted := make([]*Node, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].nr < sorted[j].nr })
	n := newNode(KindMethod, name, own, sorted)
	n.desc = desc
	n.signature = signature
	return n
}

// ClassInfo carries the identity and metadata of a class node.
type ClassInfo struct {
	ID         uint64
	Name       string
	Package    string
	SourceFile string
	NoMatch    bool
}

// NewClass creates a class node from its methods. The CLASS counter is covered
// if at least one method is covered.
func NewClass(info ClassInfo, methods []*Node) *Node {
	classCounter := Increment(1, 0)
	for _, m := range methods {
		if m.counters[Method].Covered() > 0 {
			classCounter = Increment(1, 1)
			break
		}
	}
	var own Counters
	own[Class] = classCounter
	return newClass(info, own, methods)
}

func newClass(info ClassInfo, own Counters, methods []*Node) *Node {
	n := newNode(KindClass, info.Name, own, methods)
	n.id = info.ID
	n.pkg = info.Package
	n.sourceFile = info.SourceFile
	n.noMatch = info.NoMatch
	return n
}

// Info returns the identity and metadata of a class node.
func (n *Node) Info() ClassInfo {
	return ClassInfo{ID: n.id, Name: n.name, Package: n.pkg, SourceFile: n.sourceFile, NoMatch: n.noMatch}
}

// DefaultPackage names the package node of classes without a valid package
// path. It is not a valid Java package name.
const DefaultPackage = "default"

// DeclaredPackage returns the VM package path a package node stands for; the
// unnamed package "" for DefaultPackage.
func DeclaredPackage(name string) string {
	if name == DefaultPackage {
		return ""
	}
	return name
}

// NewPackage creates a package node from classes, sorted by name.
func NewPackage(name string, classes []*Node) *Node {
	return newNode(KindPackage, name, Counters{}, sortedByName(classes))
}

// NewBundle creates a bundle node from packages, sorted by name.
func NewBundle(name string, packages []*Node) *Node {
	return newNode(KindBundle, name, Counters{}, sortedByName(packages))
}

// NewGroup creates a group of bundles and nested groups, keeping the given order.
func NewGroup(name string, children ...*Node) *Node {
	c := make([]*Node, len(children))
	copy(c, children)
	return newNode(KindGroup, name, Counters{}, c)
}

func sortedByName(nodes []*Node) []*Node {
	sorted := make([]*Node, len(nodes))
	copy(sorted, nodes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })
	return sorted
}

// FirstLine returns the smallest line number below the node, or 0 if there is no line information.
func (n *Node) FirstLine() int {
	first := 0
	n.eachLine(func(l *Node) {
		if first == 0 || l.nr < first {
			first = l.nr
		}
	})
	return first
}

// LastLine returns the largest line number below the node, or 0 if there is no line information.
func (n *Node) LastLine() int {
	last := 0
	n.eachLine(func(l *Node) {
		if l.nr > last {
			last = l.nr
		}
	})
	return last
}

// Lines returns the line counters below the node keyed by line number.
// Lines shared by several methods are summed.
func (n *Node) Lines() map[int]LineCounters {
	lines := map[int]LineCounters{}
	n.eachLine(func(l *Node) {
		lines[l.nr] = lines[l.nr].Add(l.LineCounters())
	})
	return lines
}

func (n *Node) eachLine(f func(*Node)) {
	if n.kind == KindLine {
		f(n)
		return
	}
	for _, c := range n.children {
		c.eachLine(f)
	}
}

// Classes returns all class nodes below n in tree order.
func (n *Node) Classes() []*Node {
	var classes []*Node
	var walk func(*Node)
	walk = func(x *Node) {
		if x.kind == KindClass {
			classes = append(classes, x)
			return
		}
		if x.kind == KindMethod || x.kind == KindLine {
			return
		}
		for _, c := range x.children {
			walk(c)
		}
	}
	walk(n)
	return classes
}

func (n *Node) String() string {
	return fmt.Sprintf("%s[%s]", n.kind, n.name)
}
