package types

// SizeObserver receives the cache size published after every janitor sweep.
// ReportSize runs on the janitor goroutine and must not block.
type SizeObserver interface {
	ReportSize(size int)
}

// SizeObserverFunc adapts a function to SizeObserver.
type SizeObserverFunc func(size int)

func (f SizeObserverFunc) ReportSize(size int) { f(size) }
