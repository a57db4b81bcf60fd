package unit

import "fmt"

// ----- Constraint ----- //

// ConstraintKind selects the subset of partials a node transformation may touch.
type ConstraintKind int

const (
	ConstraintNone ConstraintKind = iota
	ConstraintFundamental
	ConstraintEven
	ConstraintOdd
	ConstraintThirds
	ConstraintInterval
	ConstraintFirst
	ConstraintDynamic
)

var constraintNames = []string{"none", "fundamental", "even", "odd", "thirds", "interval", "first", "dynamic"}

func (k ConstraintKind) String() string {
	if k < 0 || int(k) >= len(constraintNames) {
		return fmt.Sprintf("constraint(%d)", int(k))
	}
	return constraintNames[k]
}

// ConstraintKindFromString parses a constraint name.
func ConstraintKindFromString(s string) (ConstraintKind, error) {
	for i, name := range constraintNames {
		if name == s {
			return ConstraintKind(i), nil
		}
	}
	return ConstraintNone, fmt.Errorf("unknown constraint %q", s)
}

// Constraint describes the active subset. Param is the interval or count for
// ConstraintInterval and ConstraintFirst.
type Constraint struct {
	Kind   ConstraintKind
	Param  int
	Invert bool
}

// Harmonic subset tables, indexed by partial position (harmonic number - 1).
// Built once and never written afterwards.
var (
	fundamentalSubset [NumPartials]bool
	evenSubset        [NumPartials]bool
	oddSubset         [NumPartials]bool
	thirdsSubset      [NumPartials]bool
	intervalSubsets   [NumPartials + 1][NumPartials]bool
	firstSubsets      [NumPartials + 1][NumPartials]bool
)

func init() {
	for i := 0; i < NumPartials; i++ {
		h := i + 1
		fundamentalSubset[i] = h == 1
		evenSubset[i] = h%2 == 0
		oddSubset[i] = h%2 == 1
		thirdsSubset[i] = h%3 == 0
		for k := 1; k <= NumPartials; k++ {
			intervalSubsets[k][i] = h%k == 0
			firstSubsets[k][i] = i < k
		}
	}
}

func clampParam(k int) int {
	if k < 1 {
		return 1
	}
	if k > NumPartials {
		return NumPartials
	}
	return k
}

// DeclareConstraint enables the constraint ports of a unit: the "constraint"
// options and the input read by dynamic constraints.
func (u *Unit) DeclareConstraint() {
	u.DeclareOption("constraint", 0, 0, float64(ConstraintDynamic))
	u.DeclareOption("constraintParam", 1, 1, NumPartials)
	u.DeclareOption("constraintInvert", 0, 0, 1)
	u.dynamic = &UnitInput{Name: "constraint"}
	u.dynamic.Unbind()
}

// Constrained reports whether the unit declares constraint ports.
func (u *Unit) Constrained() bool { return u.dynamic != nil }

// Constraint returns the active constraint.
func (u *Unit) Constraint() Constraint {
	if u.dynamic == nil {
		return Constraint{}
	}
	return Constraint{
		Kind:   ConstraintKind(u.Option("constraint").Int()),
		Param:  u.Option("constraintParam").Int(),
		Invert: u.Option("constraintInvert").Bool(),
	}
}

// SetConstraint changes the active constraint.
func (u *Unit) SetConstraint(c Constraint) {
	if u.dynamic == nil {
		u.DeclareConstraint()
	}
	u.Option("constraint").Set(float64(c.Kind))
	u.Option("constraintParam").Set(float64(c.Param))
	invert := 0.0
	if c.Invert {
		invert = 1
	}
	u.Option("constraintInvert").Set(invert)
}

// ConstraintInput returns the input a dynamic constraint reads.
func (u *Unit) ConstraintInput() *UnitInput { return u.dynamic }

// Active reports whether partial index i belongs to the active subset.
func (u *Unit) Active(c Constraint, i int) bool {
	var in bool
	switch c.Kind {
	case ConstraintNone:
		in = true
	case ConstraintFundamental:
		in = fundamentalSubset[i]
	case ConstraintEven:
		in = evenSubset[i]
	case ConstraintOdd:
		in = oddSubset[i]
	case ConstraintThirds:
		in = thirdsSubset[i]
	case ConstraintInterval:
		in = intervalSubsets[clampParam(c.Param)][i]
	case ConstraintFirst:
		in = firstSubsets[clampParam(c.Param)][i]
	case ConstraintDynamic:
		in = u.dynamic.Partials().Amp[i] > 0
	}
	if c.Invert {
		return !in
	}
	return in
}

// Constrain resets every index outside the active subset to the partial found
// at the same index of input port 0. It must run before the output is sorted.
func (u *Unit) Constrain(out *Partials) {
	c := u.Constraint()
	if c.Kind == ConstraintNone && !c.Invert {
		return
	}
	src := nilPartials
	if len(u.uins) > 0 {
		src = u.uins[0].Partials()
	}
	for i := 0; i < NumPartials; i++ {
		if !u.Active(c, i) {
			out.CopyIndex(src, i)
		}
	}
}
