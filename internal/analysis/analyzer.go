package analysis

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/jenkins-x-apps/jacoco-go/internal/coverage"
	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/jenkins-x-apps/jacoco-go/internal/logging"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	logger = logging.AppLogger().WithFields(log.Fields{"component": "analysis"})

	// ErrIncompatibleExecutionData is returned when a class definition references
	// probes its execution record does not have. Definition and record belong to
	// different versions of the class.
	ErrIncompatibleExecutionData = errors.New("incompatible execution data")

	// ErrMalformedDefinition is returned when a class definition is inconsistent in itself.
	ErrMalformedDefinition = errors.New("malformed class definition")
)

// ExecutionDataLookup gives read access to merged execution records.
type ExecutionDataLookup interface {
	Get(id data.ID) (data.ExecutionRecord, bool)
	ContainsName(name string) bool
}

// Failure records why a single unit could not be analyzed.
type Failure struct {
	ID  data.ID
	Err error
}

func (f Failure) Error() string {
	return f.ID.String() + ": " + f.Err.Error()
}

// Analyzer turns class definitions plus execution records into class coverage nodes.
// It holds no state besides the lookup and may be used from several goroutines.
type Analyzer struct {
	executionData ExecutionDataLookup
	filter        *Filter
	workers       int
	progress      func(id data.ID)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithFilter restricts AnalyzeAll to the classes accepted by f.
func WithFilter(f *Filter) Option {
	return func(a *Analyzer) {
		a.filter = f
	}
}

// WithWorkers sets the number of classes analyzed in parallel by AnalyzeAll.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithProgress registers a callback invoked by AnalyzeAll after each analyzed
// class, failed or not. It may be called from several goroutines.
func WithProgress(fn func(id data.ID)) Option {
	return func(a *Analyzer) {
		a.progress = fn
	}
}

// NewAnalyzer creates an analyzer reading execution records from lookup.
func NewAnalyzer(lookup ExecutionDataLookup, opts ...Option) *Analyzer {
	a := &Analyzer{executionData: lookup, workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeClass computes the coverage node of one class. A class without an
// execution record is analyzed as never executed.
func (a *Analyzer) AnalyzeClass(def ClassDefinition) (*coverage.Node, error) {
	probes, noMatch, err := a.probesFor(def)
	if err != nil {
		return nil, err
	}

	methods := make([]*coverage.Node, 0, len(def.Methods))
	for _, m := range def.Methods {
		method, err := analyzeMethod(m, probes)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s%s", def.Name, m.Name, m.Desc)
		}
		methods = append(methods, method)
	}

	info := coverage.ClassInfo{
		ID:         def.ID,
		Name:       def.Name,
		Package:    def.Package,
		SourceFile: def.SourceFile,
		NoMatch:    noMatch,
	}
	return coverage.NewClass(info, methods), nil
}

func (a *Analyzer) probesFor(def ClassDefinition) ([]bool, bool, error) {
	if def.ProbeCount < 0 {
		return nil, false, errors.Wrapf(ErrMalformedDefinition, "%s: negative probe count %d", def.Name, def.ProbeCount)
	}
	record, ok := a.executionData.Get(def.Identity())
	if !ok {
		return make([]bool, def.ProbeCount), a.executionData.ContainsName(def.Name), nil
	}
	if len(record.Probes) != def.ProbeCount {
		return nil, false, errors.Wrapf(ErrIncompatibleExecutionData, "%s: definition declares %d probes, execution record has %d",
			def.Identity(), def.ProbeCount, len(record.Probes))
	}
	return record.Probes, false, nil
}

type lineAccumulator struct {
	instructions coverage.Counter
	branches     coverage.Counter
}

func analyzeMethod(def MethodDefinition, probes []bool) (*coverage.Node, error) {
	hit := func(index int) (bool, error) {
		if index < 0 || index >= len(probes) {
			return false, errors.Wrapf(ErrIncompatibleExecutionData, "probe %d out of range [0, %d)", index, len(probes))
		}
		return probes[index], nil
	}

	owned := make(map[int][]Decision, len(def.Decisions))
	for _, d := range def.Decisions {
		if d.Instruction < 0 || d.Instruction >= len(def.Instructions) {
			return nil, errors.Wrapf(ErrMalformedDefinition, "decision refers to instruction %d of %d", d.Instruction, len(def.Instructions))
		}
		owned[d.Instruction] = append(owned[d.Instruction], d)
	}

	lines := map[int]*lineAccumulator{}
	var orphan lineAccumulator
	complexity := 1
	for i, ins := range def.Instructions {
		covered := false
		for _, p := range ins.Probes {
			h, err := hit(p)
			if err != nil {
				return nil, err
			}
			covered = covered || h
		}

		branches := coverage.Empty
		for _, d := range owned[i] {
			outcomes := 0
			for _, p := range d.Probes {
				h, err := hit(p)
				if err != nil {
					return nil, err
				}
				if h {
					outcomes++
				}
			}
			covered = covered || outcomes > 0
			if len(d.Probes) > 1 {
				branches = branches.Add(coverage.Increment(len(d.Probes), outcomes))
				complexity += len(d.Probes) - 1
			}
		}

		acc := &orphan
		if ins.Line > 0 {
			if lines[ins.Line] == nil {
				lines[ins.Line] = &lineAccumulator{}
			}
			acc = lines[ins.Line]
		}
		if covered {
			acc.instructions = acc.instructions.Add(coverage.Increment(1, 1))
		} else {
			acc.instructions = acc.instructions.Add(coverage.Increment(1, 0))
		}
		acc.branches = acc.branches.Add(branches)
	}

	lineNodes := make([]*coverage.Node, 0, len(lines))
	instructions := orphan.instructions
	for nr, acc := range lines {
		lineNodes = append(lineNodes, coverage.NewLine(nr, acc.instructions, acc.branches))
		instructions = instructions.Add(acc.instructions)
	}

	var own coverage.Counters
	own = own.With(coverage.Instruction, orphan.instructions).With(coverage.Branch, orphan.branches)
	if instructions.Covered() > 0 {
		own = own.With(coverage.Method, coverage.Increment(1, 1)).With(coverage.Complexity, coverage.Increment(complexity, complexity))
	} else {
		own = own.With(coverage.Method, coverage.Increment(1, 0)).With(coverage.Complexity, coverage.Increment(complexity, 0))
	}
	return coverage.NewMethod(def.Name, def.Desc, def.Signature, own, lineNodes), nil
}

// IsUnitFailure reports whether err only concerns a single unit and must not abort a whole run.
func IsUnitFailure(err error) bool {
	switch errors.Cause(err) {
	case ErrIncompatibleExecutionData, ErrMalformedDefinition, ErrDuplicateClass, data.ErrStructureMismatch:
		return true
	}
	return false
}

// AnalyzeAll analyzes all accepted definitions in parallel and adds the
// resulting class nodes to builder. Units failing with a per-unit error are
// returned as failures while the remaining units are still analyzed. Any other
// error, including cancellation of ctx, aborts the run.
func (a *Analyzer) AnalyzeAll(ctx context.Context, defs []ClassDefinition, builder *CoverageBuilder) ([]Failure, error) {
	var (
		mu       sync.Mutex
		failures []Failure
	)
	fail := func(id data.ID, err error) {
		logger.Warnf("skipping %s: %s", id, err)
		mu.Lock()
		failures = append(failures, Failure{ID: id, Err: err})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for _, def := range defs {
		if a.filter != nil && !a.filter.Accept(def.Name) {
			logger.Tracef("class %s excluded", def.Name)
			continue
		}
		if gctx.Err() != nil {
			break
		}
		def := def
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if a.progress != nil {
				defer a.progress(def.Identity())
			}
			class, err := a.AnalyzeClass(def)
			if err == nil {
				err = builder.AddClass(class)
			}
			if err != nil {
				if IsUnitFailure(err) {
					fail(def.Identity(), err)
					return nil
				}
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	sort.Slice(failures, func(i, j int) bool { return failures[i].ID.Name < failures[j].ID.Name })
	if err != nil {
		return failures, err
	}
	if err := ctx.Err(); err != nil {
		return failures, err
	}
	logger.Debugf("analyzed %d class definitions, %d failed", len(defs), len(failures))
	return failures, nil
}
