package unit

import (
	"math/rand"
	"testing"
)

func shuffled(r *rand.Rand, n int) *Partials {
	p := NewPartials()
	for i := range p.Amp {
		p.Amp[i] = r.Float64()
	}
	r.Shuffle(n, func(i, j int) {
		p.Freq[i], p.Freq[j] = p.Freq[j], p.Freq[i]
		p.Amp[i], p.Amp[j] = p.Amp[j], p.Amp[i]
		p.Order[i], p.Order[j] = p.Order[j], p.Order[i]
	})
	for i := range p.Freq {
		p.Freq[i] += r.Float64() * 0.5
	}
	return p
}

func expectSameSet(t *testing.T, a, b *Partials) {
	t.Helper()
	for i := 0; i < NumPartials; i++ {
		if a.Freq[i] != b.Freq[i] || a.Amp[i] != b.Amp[i] || a.Order[i] != b.Order[i] {
			t.Fatalf("sets differ at %d: (%v %v %v) != (%v %v %v)", i,
				a.Freq[i], a.Amp[i], a.Order[i], b.Freq[i], b.Amp[i], b.Order[i])
		}
	}
}

func TestSortEquivalence(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for n := 0; n < 50; n++ {
		big := shuffled(r, NumPartials)
		simple := NewPartials()
		simple.CopyFrom(big)

		expectEqual(t, BigSort(big.Freq, big.Amp, big.Order), true)
		expectEqual(t, SimpleSort(simple.Freq, simple.Amp, simple.Order), true)
		expectEqual(t, big.Sorted(), true)
		expectEqual(t, big.IsPermutation(), true)
		expectSameSet(t, big, simple)
	}
}

func TestSortWithoutAmplitude(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	p := shuffled(r, NumPartials)
	amp := append([]float64(nil), p.Amp...)
	BigSort(p.Freq, nil, p.Order)
	expectEqual(t, p.Sorted(), true)
	for i := range amp {
		expectEqual(t, p.Amp[i], amp[i])
	}
}

func TestSortReportsNoSwap(t *testing.T) {
	p := NewPartials()
	expectEqual(t, BigSort(p.Freq, p.Amp, p.Order), false)
	expectEqual(t, SimpleSort(p.Freq, p.Amp, p.Order), false)

	r := rand.New(rand.NewSource(3))
	q := shuffled(r, NumPartials)
	expectEqual(t, BigSort(q.Freq, q.Amp, q.Order), true)
	expectEqual(t, BigSort(q.Freq, q.Amp, q.Order), false)
	expectEqual(t, SimpleSort(q.Freq, q.Amp, q.Order), false)
}

func TestSortEquivalenceWithTies(t *testing.T) {
	big := NewPartials()
	for i := 0; i < NumPartials; i++ {
		// groups of four equal frequencies, identities reversed
		big.Freq[i] = float64(NumPartials/4 - i/4)
		big.Order[i] = uint8(NumPartials - 1 - i)
		big.Amp[i] = float64(i) / NumPartials
	}
	simple := NewPartials()
	simple.CopyFrom(big)

	expectEqual(t, BigSort(big.Freq, big.Amp, big.Order), true)
	expectEqual(t, SimpleSort(simple.Freq, simple.Amp, simple.Order), true)
	expectEqual(t, big.Sorted(), true)
	expectEqual(t, big.IsPermutation(), true)
	expectSameSet(t, big, simple)
	for i := 1; i < NumPartials; i++ {
		if big.Freq[i] == big.Freq[i-1] && big.Order[i] < big.Order[i-1] {
			t.Fatalf("equal frequencies out of identity order at %d", i)
		}
	}
}

func TestSimpleSortNearlySorted(t *testing.T) {
	p := NewPartials()
	p.Freq[10], p.Freq[11] = p.Freq[11], p.Freq[10]
	p.Order[10], p.Order[11] = p.Order[11], p.Order[10]
	p.Freq[100] = 3.5
	expectEqual(t, p.Sort(false), true)
	expectEqual(t, p.Sorted(), true)
	expectEqual(t, p.IsPermutation(), true)
	expectEqual(t, p.Freq[3], 3.5)
	expectEqual(t, p.Order[3], uint8(100))
}
