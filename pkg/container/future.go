package container

import "context"

// Future is the pending result of ResolveAsync.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(value any, err error) {
	f.value, f.err = value, err
	close(f.done)
}

// Done is closed once the resolution has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the resolution settles or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
