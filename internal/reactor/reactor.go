package reactor

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/trackdl/internal/shared"
)

// DefaultTick bounds how long a single [Reactor.Turn] waits for work.
const DefaultTick = 100 * time.Millisecond

// Reactor is a callback queue serviced by a single owner goroutine.
type Reactor struct {
	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Reactor whose queue holds up to buffer callbacks before [Reactor.Post] blocks.
func New(buffer int) *Reactor {
	if buffer <= 0 {
		buffer = 64
	}
	return &Reactor{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Post schedules fn to run on the next Turn. It reports false when the reactor is closed.
//
// Safe for concurrent use.
func (r *Reactor) Post(fn func()) bool {
	select {
	case <-r.done:
		return false
	default:
	}

	select {
	case r.queue <- fn:
		return true
	case <-r.done:
		return false
	}
}

// Turn runs queued callbacks. It waits at most maxWait for the first one, then drains whatever else is
// ready without waiting. Returns the number of callbacks run.
//
// Turn must only be called from the goroutine that owns the reactor.
func (r *Reactor) Turn(maxWait time.Duration) int {
	var first func()
	select {
	case first = <-r.queue:
	default:
		if maxWait <= 0 {
			return 0
		}
		timer := time.NewTimer(maxWait)
		defer timer.Stop()
		select {
		case first = <-r.queue:
		case <-timer.C:
			return 0
		case <-r.done:
			return 0
		}
	}

	first()
	n := 1
	for {
		select {
		case fn := <-r.queue:
			fn()
			n++
		default:
			return n
		}
	}
}

// Close stops accepting callbacks. Pending callbacks are dropped.
func (r *Reactor) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// Closed reports whether Close has been called.
func (r *Reactor) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Run drives r in ticks of at most tick until f resolves, ctx is done or the reactor closes.
func Run[T any](ctx context.Context, r *Reactor, f *Future[T], tick time.Duration) (T, error) {
	if tick <= 0 {
		tick = DefaultTick
	}
	for !f.Done() {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		if r.Closed() {
			var zero T
			return zero, shared.ErrReactorClosed
		}
		r.Turn(tick)
	}
	return f.Result()
}
