package unit

// NumPartials is the fixed length of every partial set.
const NumPartials = 128

// ----- Partials ----- //

// Partials holds three parallel arrays describing the sinusoidal components of one
// unit output. Freq is a multiple of the voice pitch, Order is the stable identity
// of each partial and survives re-sorting.
type Partials struct {
	Freq  []float64
	Amp   []float64
	Order []uint8
}

// NewPartials returns a set in the canonical state.
func NewPartials() *Partials {
	p := &Partials{
		Freq:  make([]float64, NumPartials),
		Amp:   make([]float64, NumPartials),
		Order: make([]uint8, NumPartials),
	}
	p.Reset()
	return p
}

// Reset restores zero amplitude and the ascending 1..N frequency ladder.
func (p *Partials) Reset() {
	for i := 0; i < NumPartials; i++ {
		p.Freq[i] = float64(i + 1)
		p.Amp[i] = 0
		p.Order[i] = uint8(i)
	}
}

// CopyFrom duplicates src into p.
func (p *Partials) CopyFrom(src *Partials) {
	copy(p.Freq, src.Freq)
	copy(p.Amp, src.Amp)
	copy(p.Order, src.Order)
}

// CopyIndex copies a single partial at index i.
func (p *Partials) CopyIndex(src *Partials, i int) {
	p.Freq[i] = src.Freq[i]
	p.Amp[i] = src.Amp[i]
	p.Order[i] = src.Order[i]
}

// Sorted reports whether Freq is ascending.
func (p *Partials) Sorted() bool {
	for i := 1; i < len(p.Freq); i++ {
		if p.Freq[i-1] > p.Freq[i] {
			return false
		}
	}
	return true
}

// IsPermutation reports whether Order holds every identity 0..N-1 exactly once.
func (p *Partials) IsPermutation() bool {
	var seen [256]bool
	for _, o := range p.Order {
		if int(o) >= len(p.Order) || seen[o] {
			return false
		}
		seen[o] = true
	}
	return true
}

// Sort restores frequency order. Near-sorted sets should pass big=false.
func (p *Partials) Sort(big bool) bool {
	if big {
		return BigSort(p.Freq, p.Amp, p.Order)
	}
	return SimpleSort(p.Freq, p.Amp, p.Order)
}

var nilPartials = NewPartials()
