package pipeline

import "sync/atomic"

// BatchState is the shared bookkeeping of one ConvertFolder call.
type BatchState struct {
	total     int
	completed atomic.Int64
	cancelled atomic.Bool
}

func newBatchState(total int) *BatchState {
	return &BatchState{total: total}
}

// complete records one finished document and returns the new count.
func (s *BatchState) complete() int64 {
	return s.completed.Add(1)
}

func (s *BatchState) Completed() int {
	return int(s.completed.Load())
}

func (s *BatchState) Total() int {
	return s.total
}

func (s *BatchState) cancel() {
	s.cancelled.Store(true)
}

func (s *BatchState) Cancelled() bool {
	return s.cancelled.Load()
}
