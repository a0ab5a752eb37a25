package report

import (
	"context"

	"github.com/jenkins-x-apps/jacoco-go/internal/coverage"
	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/jenkins-x-apps/jacoco-go/internal/logging"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var logger = logging.AppLogger().WithFields(log.Fields{"component": "report"})

// GroupVisitor receives the bundles and nested groups of one group.
type GroupVisitor interface {
	// VisitBundle is called for a bundle below the group.
	VisitBundle(bundle *coverage.Node, locator SourceLocator) error
	// VisitGroup opens a nested group. The returned child visitor is only
	// valid during fn; the group is finished when fn returns.
	VisitGroup(name string, fn func(GroupVisitor) error) error
}

// Visitor is the entry point of a report. VisitInfo is called first, then
// exactly one bundle or group is visited, then VisitEnd.
type Visitor interface {
	GroupVisitor
	VisitInfo(sessions []data.SessionInfo, records []data.ExecutionRecord) error
	VisitEnd() error
}

// Render drives root through v. Root must be a bundle or a group of bundles
// and groups. Cancellation of ctx is checked between the children of
// groups; VisitEnd is only called when everything else succeeded.
func Render(ctx context.Context, v Visitor, sessions []data.SessionInfo, records []data.ExecutionRecord, root *coverage.Node, locator SourceLocator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := v.VisitInfo(sessions, records); err != nil {
		return errors.Wrap(err, "unable to visit session info")
	}
	if err := renderNode(ctx, v, root, locator); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.VisitEnd()
}

func renderNode(ctx context.Context, v GroupVisitor, n *coverage.Node, locator SourceLocator) error {
	switch n.Kind() {
	case coverage.KindBundle:
		logger.Debugf("rendering bundle %s", n.Name())
		return v.VisitBundle(n, locator)
	case coverage.KindGroup:
		return v.VisitGroup(n.Name(), func(child GroupVisitor) error {
			for _, c := range n.Children() {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := renderNode(ctx, child, c, locator); err != nil {
					return err
				}
			}
			return nil
		})
	default:
		return errors.Errorf("%s cannot be rendered, expected a bundle or a group", n)
	}
}

// MultiVisitor forwards a single traversal to several visitors.
type MultiVisitor struct {
	visitors []Visitor
}

// NewMultiVisitor creates a visitor fanning out to visitors in order.
func NewMultiVisitor(visitors ...Visitor) *MultiVisitor {
	return &MultiVisitor{visitors: visitors}
}

// VisitInfo implements Visitor.
func (m *MultiVisitor) VisitInfo(sessions []data.SessionInfo, records []data.ExecutionRecord) error {
	for _, v := range m.visitors {
		if err := v.VisitInfo(sessions, records); err != nil {
			return err
		}
	}
	return nil
}

// VisitBundle implements GroupVisitor.
func (m *MultiVisitor) VisitBundle(bundle *coverage.Node, locator SourceLocator) error {
	return multiGroup(groupVisitors(m.visitors)).VisitBundle(bundle, locator)
}

// VisitGroup implements GroupVisitor.
func (m *MultiVisitor) VisitGroup(name string, fn func(GroupVisitor) error) error {
	return multiGroup(groupVisitors(m.visitors)).VisitGroup(name, fn)
}

// VisitEnd implements Visitor.
func (m *MultiVisitor) VisitEnd() error {
	for _, v := range m.visitors {
		if err := v.VisitEnd(); err != nil {
			return err
		}
	}
	return nil
}

func groupVisitors(visitors []Visitor) []GroupVisitor {
	groups := make([]GroupVisitor, len(visitors))
	for i, v := range visitors {
		groups[i] = v
	}
	return groups
}

type multiGroup []GroupVisitor

func (m multiGroup) VisitBundle(bundle *coverage.Node, locator SourceLocator) error {
	for _, v := range m {
		if err := v.VisitBundle(bundle, locator); err != nil {
			return err
		}
	}
	return nil
}

// VisitGroup opens the group on every visitor by nesting their callbacks, so
// fn runs once with all child visitors alive.
func (m multiGroup) VisitGroup(name string, fn func(GroupVisitor) error) error {
	children := make(multiGroup, 0, len(m))
	var open func(i int) error
	open = func(i int) error {
		if i == len(m) {
			return fn(children)
		}
		return m[i].VisitGroup(name, func(child GroupVisitor) error {
			children = append(children, child)
			return open(i + 1)
		})
	}
	return open(0)
}
