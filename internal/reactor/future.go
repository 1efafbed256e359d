package reactor

// Future holds the eventual result of an operation resolved on the reactor goroutine.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Ready returns an already resolved future.
func Ready[T any](value T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(value, err)
	return f
}

// Spawn runs fn on a new goroutine and resolves the returned future from a reactor callback once fn returns.
//
// If the reactor is closed before the result can be posted the future never resolves; [Run] reports
// the closed reactor instead.
func Spawn[T any](r *Reactor, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		value, err := fn()
		r.Post(func() { f.resolve(value, err) })
	}()
	return f
}

// Then returns a future resolved with fn applied to f's value on the reactor goroutine.
// Errors from f are passed through without calling fn.
func Then[T, U any](r *Reactor, f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := newFuture[U]()
	go func() {
		<-f.done
		r.Post(func() {
			value, err := f.Result()
			if err != nil {
				var zero U
				out.resolve(zero, err)
				return
			}
			out.resolve(fn(value))
		})
	}()
	return out
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done reports whether the future has resolved.
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the resolved value. Calling it before Done reports true returns the zero value.
func (f *Future[T]) Result() (T, error) {
	if !f.Done() {
		var zero T
		return zero, nil
	}
	return f.value, f.err
}
