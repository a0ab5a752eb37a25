package coverage

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidCounter is the panic value cause when a counter is constructed from impossible counts.
// It signals a defect in the caller, never bad input.
var ErrInvalidCounter = errors.New("invalid counter")

// Status classifies how much of an element was exercised.
type Status int

const (
	// NotCovered means no evidence of execution.
	NotCovered Status = iota
	// PartlyCovered means some but not all items were executed.
	PartlyCovered
	// FullyCovered means every item was executed.
	FullyCovered
)

func (s Status) String() string {
	switch s {
	case NotCovered:
		return "NOT_COVERED"
	case PartlyCovered:
		return "PARTLY_COVERED"
	case FullyCovered:
		return "FULLY_COVERED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Counter is an immutable pair of missed and covered item counts.
type Counter struct {
	missed  int
	covered int
}

// Empty is the identity of Add.
var Empty = Counter{}

// NewCounter creates a counter from missed and covered counts. Negative counts panic.
func NewCounter(missed, covered int) Counter {
	if missed < 0 || covered < 0 {
		panic(errors.Wrapf(ErrInvalidCounter, "missed=%d covered=%d", missed, covered))
	}
	return Counter{missed: missed, covered: covered}
}

// Increment creates a counter for total items of which covered were executed.
// covered > total panics.
func Increment(total, covered int) Counter {
	if covered > total {
		panic(errors.Wrapf(ErrInvalidCounter, "covered %d exceeds total %d", covered, total))
	}
	return NewCounter(total-covered, covered)
}

// Add returns the pairwise sum of a and b.
func Add(a, b Counter) Counter {
	return Counter{missed: a.missed + b.missed, covered: a.covered + b.covered}
}

// Add returns the pairwise sum of c and o.
func (c Counter) Add(o Counter) Counter {
	return Add(c, o)
}

// Missed returns the number of items not executed.
func (c Counter) Missed() int {
	return c.missed
}

// Covered returns the number of executed items.
func (c Counter) Covered() int {
	return c.covered
}

// Total returns missed plus covered.
func (c Counter) Total() int {
	return c.missed + c.covered
}

// Ratio returns covered/total, or NaN for an empty counter.
func (c Counter) Ratio() float64 {
	if c.Total() == 0 {
		return math.NaN()
	}
	return float64(c.covered) / float64(c.Total())
}

// MissedRatio returns missed/total, or NaN for an empty counter.
func (c Counter) MissedRatio() float64 {
	if c.Total() == 0 {
		return math.NaN()
	}
	return float64(c.missed) / float64(c.Total())
}

// Status derives the coverage status of the counter.
func (c Counter) Status() Status {
	return statusOf(c.missed, c.covered)
}

func statusOf(missed, covered int) Status {
	switch {
	case covered == 0:
		return NotCovered
	case missed == 0:
		return FullyCovered
	default:
		return PartlyCovered
	}
}

func (c Counter) String() string {
	return fmt.Sprintf("Counter[%d/%d]", c.missed, c.covered)
}

// Entity is one independent axis of measurement.
type Entity int

const (
	// Instruction counts executable instructions.
	Instruction Entity = iota
	// Branch counts decision outcomes.
	Branch
	// Line counts source lines carrying instructions.
	Line
	// Method counts methods.
	Method
	// Class counts classes.
	Class
	// Complexity counts cyclomatic paths.
	Complexity

	numEntities
)

// Entities lists all entities in report order.
var Entities = []Entity{Instruction, Branch, Line, Method, Class, Complexity}

var entityNames = [numEntities]string{"INSTRUCTION", "BRANCH", "LINE", "METHOD", "CLASS", "COMPLEXITY"}

func (e Entity) String() string {
	if e < 0 || e >= numEntities {
		return fmt.Sprintf("Entity(%d)", int(e))
	}
	return entityNames[e]
}

// ParseEntity returns the entity with the given upper case name.
func ParseEntity(name string) (Entity, error) {
	for i, n := range entityNames {
		if n == name {
			return Entity(i), nil
		}
	}
	return 0, errors.Errorf("unknown counter entity '%s'", name)
}

// Counters holds one counter per entity.
type Counters [numEntities]Counter

// Get returns the counter for e.
func (c Counters) Get(e Entity) Counter {
	return c[e]
}

// With returns a copy of c with the counter for e replaced.
func (c Counters) With(e Entity, counter Counter) Counters {
	c[e] = counter
	return c
}

// Add returns the entity-wise sum of c and o.
func (c Counters) Add(o Counters) Counters {
	var sum Counters
	for i := range c {
		sum[i] = Add(c[i], o[i])
	}
	return sum
}

// Sum folds Add over all given counter sets.
func Sum(sets ...Counters) Counters {
	var total Counters
	for _, s := range sets {
		total = total.Add(s)
	}
	return total
}
