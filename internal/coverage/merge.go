package coverage

import (
	"github.com/pkg/errors"
)

// MergeClass folds two analyses of the same class into one node. Counters are
// summed at every level: methods are matched by name and descriptor, lines by
// number. The result keeps the method order of a followed by methods only b has.
func MergeClass(a, b *Node) *Node {
	info := a.Info()
	info.NoMatch = a.noMatch && b.noMatch
	if info.SourceFile == "" {
		info.SourceFile = b.sourceFile
	}
	return newClass(info, a.own.Add(b.own), mergeChildren(a.children, b.children, methodKey, mergeMethod))
}

func methodKey(m *Node) string {
	return m.name + m.desc
}

func lineKey(l *Node) string {
	return l.name
}

func mergeMethod(a, b *Node) *Node {
	return NewMethod(a.name, a.desc, a.signature, a.own.Add(b.own), mergeChildren(a.children, b.children, lineKey, mergeLine))
}

func mergeLine(a, b *Node) *Node {
	n := newNode(KindLine, a.name, a.own.Add(b.own), nil)
	n.nr = a.nr
	return n
}

func mergeChildren(a, b []*Node, key func(*Node) string, merge func(x, y *Node) *Node) []*Node {
	index := make(map[string]int, len(a))
	merged := make([]*Node, 0, len(a)+len(b))
	for _, n := range a {
		index[key(n)] = len(merged)
		merged = append(merged, n)
	}
	for _, n := range b {
		if i, ok := index[key(n)]; ok {
			merged[i] = merge(merged[i], n)
			continue
		}
		index[key(n)] = len(merged)
		merged = append(merged, n)
	}
	return merged
}

// Verify checks the aggregation invariant recursively: every node's counters
// must equal its own contribution plus the sum of its children's counters, and
// only lines, methods and classes may contribute themselves.
func Verify(n *Node) error {
	sum := n.own
	for _, c := range n.children {
		if err := Verify(c); err != nil {
			return err
		}
		sum = sum.Add(c.counters)
	}
	if sum != n.counters {
		return errors.Errorf("%s: counters %v do not match aggregated %v", n, n.counters, sum)
	}
	switch n.kind {
	case KindPackage, KindBundle, KindGroup:
		if n.own != (Counters{}) {
			return errors.Errorf("%s: aggregate node carries own counters %v", n, n.own)
		}
	}
	return nil
}
