package server

import (
	"fmt"
)

// request is a unit of work to be executed on the workspace goroutine.
type request struct {
	fn   func(*Workspace) any
	done chan result
}

type result struct {
	value any
	err   error
}

// Worker serializes all workspace access through a single goroutine.
// Editor notifications arrive concurrently; analyses and queries must not
// interleave.
type Worker struct {
	ws       *Workspace
	requests chan request
	quit     chan struct{}
	stopped  chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(ws *Workspace) *Worker {
	w := &Worker{
		ws:       ws,
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer close(w.stopped)
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (w *Worker) execute(fn func(*Workspace) any) (res result) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("workspace request panicked: %v", r)
			res.err = fmt.Errorf("%v", r)
		}
	}()
	res.value = fn(w.ws)
	return res
}

// ErrStopped is returned by Do after Stop.
var ErrStopped = fmt.Errorf("worker stopped")

// Do submits fn for execution on the workspace goroutine and blocks until
// it completes. A panic in fn is returned as an error.
func (w *Worker) Do(fn func(*Workspace) any) (any, error) {
	req := request{fn: fn, done: make(chan result, 1)}
	select {
	case w.requests <- req:
	case <-w.stopped:
		return nil, ErrStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.stopped:
		return nil, ErrStopped
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	select {
	case <-w.quit:
	default:
		close(w.quit)
	}
	<-w.stopped
}
