package audio

import (
	"fmt"
	"math"
	"math/cmplx"
)

// FFT is a radix-2 transform of a fixed length.
type FFT struct {
	bitReverseTable []int
	wTable          []complex128
	work            []complex128
}

// NewFFT prepares the tables. length must be a power of two.
func NewFFT(length int) (*FFT, error) {
	if length <= 0 || length&(length-1) != 0 {
		return nil, fmt.Errorf("FFT length %d is not a power of two", length)
	}
	return &FFT{
		bitReverseTable: makeBitReverseTable(length),
		wTable:          makeWTable(length),
		work:            make([]complex128, length),
	}, nil
}

func makeBitReverseTable(n int) []int {
	array := make([]int, n)
	for i := 0; i < n; i++ {
		array[i] = bitReverse(i, n)
	}
	return array
}

func bitReverse(k, n int) int {
	m := 0
	for ; n > 1; n = n >> 1 {
		m = m<<1 + k&1
		k = k >> 1
	}
	return m
}

func makeWTable(n int) []complex128 {
	array := make([]complex128, n)
	w := -2.0 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		array[i] = cmplx.Exp(complex(0, w*float64(i)))
	}
	return array
}

// Len returns the transform length.
func (fft *FFT) Len() int { return len(fft.bitReverseTable) }

// Calc transforms x in place.
func (fft *FFT) Calc(x []complex128) error {
	n := len(x)
	if n != len(fft.bitReverseTable) {
		return fmt.Errorf("length should be %v", len(fft.bitReverseTable))
	}
	for i := 0; i < n; i++ {
		rev := fft.bitReverseTable[i]
		if i < rev {
			x[i], x[rev] = x[rev], x[i]
		}
	}
	for m := 1; m < n; m = m << 1 {
		step := m << 1
		for k := 0; k < m; k++ {
			w := fft.wTable[n/step*k]
			for i := k; i < n; i += step {
				j := i + m
				tmp := x[j] * w
				x[j] = x[i] - tmp
				x[i] = x[i] + tmp
			}
		}
	}
	return nil
}

// CalcAbs replaces the real signal x with the magnitude of its transform.
func (fft *FFT) CalcAbs(x []float64) error {
	if len(x) != len(fft.work) {
		return fmt.Errorf("length should be %v", len(fft.work))
	}
	for i, v := range x {
		fft.work[i] = complex(v, 0)
	}
	if err := fft.Calc(fft.work); err != nil {
		return err
	}
	for i := range x {
		x[i] = cmplx.Abs(fft.work[i])
	}
	return nil
}
