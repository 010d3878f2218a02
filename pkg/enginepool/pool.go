// Package enginepool implements the Engine Pool: a fixed-size,
// round-robin set of workers serving one language pair, constructed
// atomically — if any worker fails to initialize, every worker started
// so far is terminated and Build returns an error.
package enginepool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"digital.vasic.nmt/internal/engineerr"
	"digital.vasic.nmt/internal/events"
	"digital.vasic.nmt/internal/obslog"
	"digital.vasic.nmt/pkg/models"
	"digital.vasic.nmt/pkg/worker"
)

// translationResult is what a workerSlot's pump delivers to the
// Submit call waiting on a given MessageID.
type translationResult struct {
	text string
	err  error
}

// workerSlot wraps a worker with a pump goroutine that demultiplexes
// its single shared Outbox by MessageID. Without this, two
// TranslationRequests in flight against the same worker (the default
// is one worker per pair) would race to receive each other's
// TranslationResponse off the same channel.
type workerSlot struct {
	w *worker.Worker

	mu      sync.Mutex
	waiters map[uint64]chan translationResult
	discard chan worker.TranslationsDiscarded
}

func newWorkerSlot(w *worker.Worker) *workerSlot {
	s := &workerSlot{
		w:       w,
		waiters: make(map[uint64]chan translationResult),
		discard: make(chan worker.TranslationsDiscarded, 1),
	}
	go s.pump()
	return s
}

// pump drains the worker's Outbox for the lifetime of the worker,
// routing each message to whichever Submit call or DiscardQueue call
// is waiting for it. It exits when the worker closes Outbox on
// termination.
func (s *workerSlot) pump() {
	for msg := range s.w.Outbox {
		switch m := msg.(type) {
		case worker.TranslationResponse:
			s.deliver(m.MessageID, translationResult{text: m.Text})
		case worker.TranslationError:
			s.deliver(m.MessageID, translationResult{err: m.Err})
		case worker.TranslationsDiscarded:
			select {
			case s.discard <- m:
			default:
			}
		}
	}
}

func (s *workerSlot) deliver(messageID uint64, result translationResult) {
	s.mu.Lock()
	ch, ok := s.waiters[messageID]
	if ok {
		delete(s.waiters, messageID)
	}
	s.mu.Unlock()
	if ok {
		ch <- result
	}
}

// register arranges for the pump to deliver the response to
// messageID on the returned channel. Callers must always follow with
// unregister, even on the ctx.Done() path, so a late response to a
// timed-out caller does not leak the waiter entry.
func (s *workerSlot) register(messageID uint64) chan translationResult {
	ch := make(chan translationResult, 1)
	s.mu.Lock()
	s.waiters[messageID] = ch
	s.mu.Unlock()
	return ch
}

func (s *workerSlot) unregister(messageID uint64) {
	s.mu.Lock()
	delete(s.waiters, messageID)
	s.mu.Unlock()
}

// Pool is a fixed-size array of Workers for a single pair.
type Pool struct {
	Pair    models.Pair
	workers []*workerSlot
	rrIndex uint64
	logger  obslog.Logger
}

// Build constructs size workers for pair, loads bundle into every one,
// and returns the pool only once every worker has reached InitSuccess.
// Any worker failing init aborts construction and terminates every
// sibling already started.
func Build(ctx context.Context, pair models.Pair, size int, bundles []models.ModelBundle, infer worker.InferenceFunc, initTimeout time.Duration, logger obslog.Logger, bus *events.Bus) (*Pool, error) {
	logger = obslog.Or(logger)
	workers := make([]*worker.Worker, size)
	for i := 0; i < size; i++ {
		workers[i] = worker.New(i, infer, logger, bus)
	}

	deadline := time.Now().Add(initTimeout)
	ready := make([]bool, size)

	for i, w := range workers {
		select {
		case <-w.Outbox:
			// WorkerReady
		case <-time.After(time.Until(deadline)):
			terminateAll(workers)
			return nil, engineerr.New(engineerr.WorkerInitTimeout, "pool.Build", "worker boot timed out")
		}

		w.Inbox <- worker.InitRequest{Pair: pair, Bundles: bundles}

		select {
		case msg := <-w.Outbox:
			switch m := msg.(type) {
			case worker.InitSuccess:
				ready[i] = true
			case worker.InitError:
				terminateAll(workers)
				return nil, engineerr.Wrap(engineerr.WorkerInitError, "pool.Build", m.Err)
			}
		case <-time.After(time.Until(deadline)):
			terminateAll(workers)
			return nil, engineerr.New(engineerr.WorkerInitTimeout, "pool.Build", "worker init timed out")
		case <-ctx.Done():
			terminateAll(workers)
			return nil, engineerr.Wrap(engineerr.WorkerInitTimeout, "pool.Build", ctx.Err())
		}
	}

	for _, ok := range ready {
		if !ok {
			terminateAll(workers)
			return nil, engineerr.New(engineerr.WorkerInitError, "pool.Build", "not all workers reached InitSuccess")
		}
	}

	// Slots start pumping only now: the handshake above is the last
	// place anything reads Outbox directly, so there is no race
	// between this loop and a slot's pump goroutine.
	slots := make([]*workerSlot, size)
	for i, w := range workers {
		slots[i] = newWorkerSlot(w)
	}

	return &Pool{Pair: pair, workers: slots, logger: logger}, nil
}

func terminateAll(workers []*worker.Worker) {
	for _, w := range workers {
		if w != nil {
			w.Terminate()
		}
	}
}

// Submit dispatches req to the next worker in round-robin order and
// waits for its response. req.MessageID is used to correlate the
// response on the worker's shared Outbox; callers must set it to a
// value unique among concurrently in-flight requests against this
// pool.
func (p *Pool) Submit(ctx context.Context, req worker.TranslationRequest) (string, error) {
	idx := atomic.AddUint64(&p.rrIndex, 1) - 1
	slot := p.workers[int(idx)%len(p.workers)]

	waiter := slot.register(req.MessageID)
	slot.w.Inbox <- req

	select {
	case result := <-waiter:
		return result.text, result.err
	case <-ctx.Done():
		slot.unregister(req.MessageID)
		return "", engineerr.Wrap(engineerr.Cancelled, "pool.Submit", ctx.Err())
	}
}

// DiscardQueue asks every worker in the pool to drop its queued tasks.
func (p *Pool) DiscardQueue() {
	var wg sync.WaitGroup
	for _, slot := range p.workers {
		wg.Add(1)
		go func(slot *workerSlot) {
			defer wg.Done()
			slot.w.Inbox <- worker.DiscardQueue{}
			<-slot.discard
		}(slot)
	}
	wg.Wait()
}

// Terminate stops every worker in the pool.
func (p *Pool) Terminate() {
	for _, slot := range p.workers {
		slot.w.Terminate()
	}
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return len(p.workers) }
