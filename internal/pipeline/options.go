package pipeline

// Option adjusts one ConvertFolder call, or the pipeline defaults when
// passed to New.
type Option func(*settings)

type settings struct {
	workers       int
	progressEvery int
	progress      func(int)
}

func defaultSettings() settings {
	return settings{workers: 4, progressEvery: 5}
}

// WithWorkers sets how many documents are processed at once.
func WithWorkers(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithProgressEvery sets how many completions pass between progress calls.
// The final completion is always reported.
func WithProgressEvery(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.progressEvery = n
		}
	}
}

// WithProgress registers a callback receiving the number of completed
// documents. It is called from a single goroutine, never concurrently.
func WithProgress(fn func(completed int)) Option {
	return func(s *settings) {
		s.progress = fn
	}
}
