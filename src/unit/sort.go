package unit

// ----- Sorting ----- //

// below this size BigSort finishes a partition with insertion passes
const smallPartition = 8

// before orders partials by frequency, then by order for equal frequencies, so both
// sorts agree on every input.
func before(freq []float64, order []uint8, i, j int) bool {
	if freq[i] != freq[j] {
		return freq[i] < freq[j]
	}
	return order[i] < order[j]
}

func inOrder(freq []float64, order []uint8) bool {
	for i := 1; i < len(freq); i++ {
		if before(freq, order, i, i-1) {
			return false
		}
	}
	return true
}

// BigSort sorts freq ascending with an iterative quicksort. Order and, when not nil,
// amp are permuted together with freq. It reports whether anything moved.
func BigSort(freq, amp []float64, order []uint8) bool {
	n := len(freq)
	if n < 2 || inOrder(freq, order) {
		return false
	}
	swap := func(i, j int) {
		freq[i], freq[j] = freq[j], freq[i]
		order[i], order[j] = order[j], order[i]
		if amp != nil {
			amp[i], amp[j] = amp[j], amp[i]
		}
	}
	// every partition pushes the larger pending range and keeps working on the smaller,
	// so the stack stays within log2(n) entries
	var stack [2 * 64]int
	top := 0
	stack[top], stack[top+1] = 0, n-1
	top += 2
	for top > 0 {
		top -= 2
		lo, hi := stack[top], stack[top+1]
		for hi-lo > smallPartition {
			mid := lo + (hi-lo)/2
			// median of three lands in hi
			if before(freq, order, mid, lo) {
				swap(mid, lo)
			}
			if before(freq, order, hi, lo) {
				swap(hi, lo)
			}
			if before(freq, order, mid, hi) {
				swap(mid, hi)
			}
			i := lo
			for j := lo; j < hi; j++ {
				if before(freq, order, j, hi) {
					if i != j {
						swap(i, j)
					}
					i++
				}
			}
			if i != hi {
				swap(i, hi)
			}
			if i-lo < hi-i {
				stack[top], stack[top+1] = i+1, hi
				top += 2
				hi = i - 1
			} else {
				stack[top], stack[top+1] = lo, i-1
				top += 2
				lo = i + 1
			}
		}
		for i := lo + 1; i <= hi; i++ {
			for j := i; j > lo && before(freq, order, j, j-1); j-- {
				swap(j, j-1)
			}
		}
	}
	return true
}

// SimpleSort is a cocktail sort for sets where only a few partials moved.
// It touches the same arrays as BigSort and reports whether anything moved.
func SimpleSort(freq, amp []float64, order []uint8) bool {
	swapped := false
	lo, hi := 0, len(freq)-1
	for lo < hi {
		moved := false
		last := lo
		for i := lo; i < hi; i++ {
			if before(freq, order, i+1, i) {
				swapAt(freq, amp, order, i)
				last = i
				moved = true
			}
		}
		if !moved {
			break
		}
		swapped = true
		hi = last
		moved = false
		first := hi
		for i := hi; i > lo; i-- {
			if before(freq, order, i, i-1) {
				swapAt(freq, amp, order, i-1)
				first = i
				moved = true
			}
		}
		if !moved {
			break
		}
		lo = first
	}
	return swapped
}

func swapAt(freq, amp []float64, order []uint8, i int) {
	freq[i], freq[i+1] = freq[i+1], freq[i]
	order[i], order[i+1] = order[i+1], order[i]
	if amp != nil {
		amp[i], amp[i+1] = amp[i+1], amp[i]
	}
}
