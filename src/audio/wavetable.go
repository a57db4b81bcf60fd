package audio

import (
	"math"
	"math/rand"

	"github.com/jinjor/partials/src/unit"
)

// ----- Sine table ----- //

const sineTableSize = 4096

type wavetable struct {
	values []float64
}

func newWavetable(samples int, phaseToValue func(phase float64) float64) *wavetable {
	// one extra sample so interpolation never wraps
	values := make([]float64, samples+1)
	for i := range values {
		values[i] = phaseToValue(2.0 * math.Pi / float64(samples) * float64(i))
	}
	return &wavetable{values: values}
}

// at reads the table at a phase in cycles. Any real phase is accepted.
func (wt *wavetable) at(phase float64) float64 {
	phase -= math.Floor(phase)
	length := len(wt.values) - 1
	pos := phase * float64(length)
	index := int(pos)
	if index >= length {
		index = 0
		pos = 0
	}
	mod := pos - float64(index)
	return wt.values[index]*(1-mod) + wt.values[index+1]*mod
}

var sineTable = newWavetable(sineTableSize, math.Sin)

func sine(phase float64) float64 {
	return sineTable.at(phase)
}

// ----- Window table ----- //

// hannTable is a periodic Hann window over the spectrum monitor.
var hannTable = func() []float64 {
	t := make([]float64, spectrumSize)
	for i := range t {
		t[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/spectrumSize)
	}
	return t
}()

// ----- Dephase table ----- //

// dephaseTable holds a fixed phase offset in cycles per partial order.
var dephaseTable = func() [unit.NumPartials]float64 {
	var t [unit.NumPartials]float64
	r := rand.New(rand.NewSource(0x5eed))
	for i := 1; i < len(t); i++ {
		t[i] = r.Float64()
	}
	return t
}()

// ----- Denormals ----- //

const denormal = 1e-200

// flush snaps values too small to matter to zero.
func flush(x float64) float64 {
	if x <= denormal && x >= -denormal {
		return 0
	}
	return x
}
