package unit

import (
	"math"
	"testing"
)

func flatHarmonics(t *testing.T, host Host) UnitNode {
	t.Helper()
	h := mustNew(t, "harmonics", host).(UnitNode)
	h.Mod().Option("slope").Set(0)
	return h
}

func TestConstraintEven(t *testing.T) {
	host := newTestHost()
	h := flatHarmonics(t, host)
	a := mustNew(t, "amplifier", host).(UnitNode)
	expectNoError(t, a.AsUnit().UnitInput("in").Bind(h, 0))
	a.Mod().Input("gain").Constant(0.5)
	a.AsUnit().SetConstraint(Constraint{Kind: ConstraintEven})

	h.Go()
	a.Go()
	p := a.AsUnit().Output(0)
	for i := 0; i < NumPartials; i++ {
		if (i+1)%2 == 0 {
			expectEqual(t, p.Amp[i], 0.5)
		} else {
			expectEqual(t, p.Amp[i], 1.0)
		}
	}

	a.AsUnit().SetConstraint(Constraint{Kind: ConstraintEven, Invert: true})
	a.Go()
	p = a.AsUnit().Output(0)
	expectEqual(t, p.Amp[0], 0.5)
	expectEqual(t, p.Amp[1], 1.0)
}

func TestConstraintSubsets(t *testing.T) {
	u := &Unit{}
	u.DeclareConstraint()
	cases := []struct {
		c      Constraint
		active []int
	}{
		{Constraint{Kind: ConstraintFundamental}, []int{0}},
		{Constraint{Kind: ConstraintOdd}, []int{0, 2, 4}},
		{Constraint{Kind: ConstraintThirds}, []int{2, 5}},
		{Constraint{Kind: ConstraintInterval, Param: 4}, []int{3}},
		{Constraint{Kind: ConstraintFirst, Param: 3}, []int{0, 1, 2}},
	}
	for _, c := range cases {
		count := 0
		for i := 0; i < 6; i++ {
			if u.Active(c.c, i) {
				count++
			}
		}
		expectEqual(t, count, len(c.active))
		for _, i := range c.active {
			if !u.Active(c.c, i) {
				t.Errorf("%v: expected %d to be active", c.c.Kind, i)
			}
		}
	}
}

func TestConstrainPassesThroughInactive(t *testing.T) {
	host := newTestHost()
	h := flatHarmonics(t, host)
	s := mustNew(t, "stretch", host).(UnitNode)
	expectNoError(t, s.AsUnit().UnitInput("in").Bind(h, 0))
	s.Mod().Input("amount").Constant(1)
	s.AsUnit().SetConstraint(Constraint{Kind: ConstraintFirst, Param: 4})

	h.Go()
	s.Go()
	p := s.AsUnit().Output(0)
	expectNearlyEqual(t, p.Freq[0], math.Sqrt(1+maxInharmonicity))
	expectNearlyEqual(t, p.Freq[3], 4*math.Sqrt(1+maxInharmonicity*16))
	for i := 4; i < NumPartials; i++ {
		expectEqual(t, p.Freq[i], float64(i+1))
	}
	expectEqual(t, p.Sorted(), true)
	expectEqual(t, p.IsPermutation(), true)
}

func TestDynamicConstraint(t *testing.T) {
	host := newTestHost()
	h := flatHarmonics(t, host)
	mask := mustNew(t, "harmonics", host).(UnitNode)
	mask.Mod().Option("count").Set(2)
	a := mustNew(t, "amplifier", host).(UnitNode)
	expectNoError(t, a.AsUnit().UnitInput("in").Bind(h, 0))
	a.Mod().Input("gain").Constant(0)
	a.AsUnit().SetConstraint(Constraint{Kind: ConstraintDynamic})
	expectNoError(t, a.AsUnit().ConstraintInput().Bind(mask, 0))

	h.Go()
	mask.Go()
	a.Go()
	p := a.AsUnit().Output(0)
	expectEqual(t, p.Amp[0], 0.0)
	expectEqual(t, p.Amp[1], 0.0)
	expectEqual(t, p.Amp[2], 1.0)
}

func TestConstraintKindNames(t *testing.T) {
	k, err := ConstraintKindFromString("thirds")
	expectNoError(t, err)
	expectEqual(t, k, ConstraintThirds)
	expectEqual(t, ConstraintInterval.String(), "interval")
	_, err = ConstraintKindFromString("fifths")
	if err == nil {
		t.Errorf("expected an error")
	}
}
