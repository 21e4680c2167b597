package pipeline

// reportProgress drains counts sent by workers and calls fn from this
// goroutine only. Counts may arrive out of order, so the highest value seen
// is what gets reported, which keeps reported values non-decreasing. It
// reports every `every` completions, on reaching total, and once more on
// close if the last value was never reported.
func reportProgress(counts <-chan int64, total int64, every int64, fn func(int)) {
	var seen, reported int64
	for n := range counts {
		if n <= seen {
			continue
		}
		seen = n
		if fn == nil {
			continue
		}
		if seen-reported >= every || seen == total {
			fn(int(seen))
			reported = seen
		}
	}
	if fn != nil && seen > reported {
		fn(int(seen))
	}
}
