package rknn

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Get after the pool is closed
var ErrPoolClosed = errors.New("runtime pool is closed")

// Pool holds runtimes of the same model spread across NPU cores
type Pool struct {
	// runtimes not currently checked out
	runtimes chan *Runtime
	// size of pool
	size  int
	close sync.Once
	done  chan struct{}
}

// NewPool loads size runtimes of the model, assigning NPU cores round robin
// from cores.  Each option is applied to every runtime.
func NewPool(size int, modelFile string, cores []CoreMask, opts ...func(*Runtime)) (*Pool, error) {

	if len(cores) == 0 {
		cores = []CoreMask{NPUCoreAuto}
	}

	p := &Pool{
		runtimes: make(chan *Runtime, size),
		size:     size,
		done:     make(chan struct{}),
	}

	for i := 0; i < size; i++ {
		rt, err := NewRuntime(modelFile, cores[i%len(cores)])

		if err != nil {
			// close any instances created before the error
			p.Close()
			return nil, err
		}

		for _, opt := range opts {
			opt(rt)
		}

		p.runtimes <- rt
	}

	return p, nil
}

// Size returns the number of runtimes in the pool
func (p *Pool) Size() int {
	return p.size
}

// Get checks out a runtime, blocking until one is free or ctx is done
func (p *Pool) Get(ctx context.Context) (*Runtime, error) {
	select {
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case rt := <-p.runtimes:
		return rt, nil
	}
}

// Return a runtime to the pool.  Runtimes returned after Close are destroyed.
func (p *Pool) Return(rt *Runtime) {
	select {
	case <-p.done:
		_ = rt.Close()
		return
	default:
	}

	select {
	case p.runtimes <- rt:
	default:
		// pool is full
		_ = rt.Close()
	}
}

// Close destroys all idle runtimes, runtimes checked out are destroyed when
// returned
func (p *Pool) Close() {
	p.close.Do(func() {
		close(p.done)

		for {
			select {
			case rt := <-p.runtimes:
				_ = rt.Close()
			default:
				return
			}
		}
	})
}
