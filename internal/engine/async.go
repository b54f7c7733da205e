package engine

import "sync"

// AsyncEngine decouples event ingestion from matching: a single
// producer goroutine calls Submit, and one background worker
// goroutine drains a bounded channel of InternalEvent and applies
// each to a MatchingEngine. It is the Go rendering of the source's
// boost::lockfree::spsc_queue wrapper - a buffered channel is this
// corpus's idiomatic bounded SPSC queue (the teacher's own
// Engine.inputCh uses the identical pattern), and a blocking send on
// a full channel is the channel-based equivalent of the source's
// spin-yield backoff: the sending goroutine parks instead of busy
// looping, but the effect - no lost events, no unbounded growth - is
// the same. Only a single producer goroutine may call Submit;
// concurrent producers are not supported (see §4.4 of the spec).
type AsyncEngine struct {
	engine *MatchingEngine
	queue  chan InternalEvent

	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
}

// DefaultQueueCapacity is the AsyncEngine's default bounded-queue
// size when NewAsyncEngine is called with capacity <= 0.
const DefaultQueueCapacity = 1 << 16

// NewAsyncEngine starts a worker goroutine that applies events to
// engine as they arrive. capacity <= 0 selects DefaultQueueCapacity.
func NewAsyncEngine(eng *MatchingEngine, capacity int) *AsyncEngine {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	a := &AsyncEngine{
		engine:  eng,
		queue:   make(chan InternalEvent, capacity),
		stopped: make(chan struct{}),
	}
	a.wg.Add(1)
	go a.runLoop()
	return a
}

// Submit resolves ev's string symbol on the caller's goroutine (so
// the worker never touches SymbolIndex string storage) and enqueues
// the resulting InternalEvent. Submit blocks while the queue is
// full; there is no dropping.
func (a *AsyncEngine) Submit(ev Event) {
	ie := InternalEvent{
		Symbol: a.engine.symbols.GetOrCreate(ev.Symbol),
		ID:     ev.ID,
		Price:  ev.Price,
		Qty:    ev.Qty,
		UserID: ev.UserID,
		Type:   ev.Type,
		Side:   ev.Side,
		TIF:    ev.TIF,
	}
	a.SubmitInternal(ie)
}

// SubmitInternal enqueues an already-resolved InternalEvent,
// allocation-free on the hot path.
func (a *AsyncEngine) SubmitInternal(ie InternalEvent) {
	a.queue <- ie
}

// Stop is idempotent: it enqueues the Stop sentinel and blocks until
// the worker has drained every event already accepted and exited.
// After Stop returns, no further events will be processed.
func (a *AsyncEngine) Stop() {
	a.stopOnce.Do(func() {
		a.queue <- InternalEvent{Type: Stop}
		a.wg.Wait()
		close(a.stopped)
	})
	<-a.stopped
}

// Engine returns the underlying MatchingEngine, for read-only
// inspection (TopOfBook, BookStats, ...) from the caller's goroutine
// after Stop, or from within the trade callback during processing.
func (a *AsyncEngine) Engine() *MatchingEngine { return a.engine }

// runLoop is the worker: drain the queue, applying every event to
// the engine, until the Stop sentinel is seen. It is the only
// mechanism that terminates the worker.
func (a *AsyncEngine) runLoop() {
	defer a.wg.Done()
	for ie := range a.queue {
		if ie.Type == Stop {
			return
		}
		a.engine.ProcessInternal(ie)
	}
}
