// Package future provides a minimal blocking future used to compose
// concurrent store reads.
package future

// Future is a value that becomes available later. Get blocks until the
// value is resolved. There is no cancellation at this layer: a future
// whose work never finishes blocks Get forever.
type Future[T any] struct {
	done     chan struct{}
	value    T
	err      error
	delegate func() (T, error)
}

// Go runs fn in a new goroutine and returns a future for its result.
// The work starts immediately and progresses without anyone calling Get.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn()
	}()
	return f
}

// Value returns an already resolved future.
func Value[T any](v T) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: v}
	close(f.done)
	return f
}

// Fail returns a future already resolved with err.
func Fail[T any](err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Delegate returns a future whose Get calls fn. fn runs on every Get,
// so it should only block on other futures and merge their results.
func Delegate[T any](fn func() (T, error)) *Future[T] {
	return &Future[T]{delegate: fn}
}

// Get blocks until the future is resolved and returns its result.
func (f *Future[T]) Get() (T, error) {
	if f.delegate != nil {
		return f.delegate()
	}
	<-f.done
	return f.value, f.err
}
