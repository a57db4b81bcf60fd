package unit

import (
	"math"
	"testing"
)

func TestBiquadResponse(t *testing.T) {
	w0 := 2 * math.Pi * 1000 / 44100
	lp := newBiquad(filterLowPass, w0, 0.7071, 0)
	expectNearlyEqual(t, lp.response(1e-6), 1)
	expectNearlyEqual(t, lp.response(w0), 0.7071)
	if lp.response(w0*8) > 0.05 {
		t.Errorf("expected low pass to attenuate, got %v", lp.response(w0*8))
	}

	hp := newBiquad(filterHighPass, w0, 0.7071, 0)
	expectNearlyEqual(t, hp.response(w0), 0.7071)
	expectNearlyEqual(t, hp.response(math.Pi-1e-6), 1)

	bp := newBiquad(filterBandPass, w0, 2, 0)
	expectNearlyEqual(t, bp.response(w0), 1)

	notch := newBiquad(filterNotch, w0, 2, 0)
	expectNearlyEqual(t, notch.response(w0), 0)
	expectNearlyEqual(t, notch.response(1e-6), 1)

	peak := newBiquad(filterPeaking, w0, 1, 12)
	expectNearlyEqual(t, peak.response(w0), math.Pow(10, 12.0/20))
}
