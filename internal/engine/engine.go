package engine

// EventType enumerates the kinds of events the engine can process,
// whether delivered synchronously via Process or asynchronously
// through the AsyncEngine front-end.
type EventType uint8

const (
	NewLimit EventType = iota
	NewMarket
	Cancel
	Replace
	Stop
)

// Event is the external event shape: a string symbol, resolved to a
// SymbolId by the engine before it ever reaches a Book. Unset fields
// default to {Side: Bid, TIF: GFD, UserID: 1}.
type Event struct {
	Type   EventType
	Symbol string

	Side  Side
	Price int64
	Qty   int64

	ID     uint64
	TIF    TimeInForce
	UserID uint64
}

// InternalEvent is the hot-path shape: SymbolId already resolved, no
// heap-owned fields, trivially copyable by value - what crosses the
// AsyncEngine's queue.
type InternalEvent struct {
	Symbol uint32
	ID     uint64
	Price  int64
	Qty    int64
	UserID uint64
	Type   EventType
	Side   Side
	TIF    TimeInForce
}

// TradeCallback receives every trade the engine forwards, after any
// optional position-tracking bookkeeping has run.
type TradeCallback func(Trade)

// TopOfBookView is the read-only summary returned by TopOfBook; it
// mirrors Book's TopOfBook but is named at the engine boundary so
// callers of MatchingEngine don't need to import the Book directly.
type TopOfBookView = TopOfBook

// MatchingEngine owns one Book per symbol, dispatches events to the
// right book, assigns order IDs (delegated to each book), and
// forwards trades to a user-supplied callback - optionally through a
// PositionTracker that updates positions/risk state first. It is not
// safe for concurrent use: exactly one goroutine touches it at a
// time, whether that is a direct caller or the AsyncEngine worker.
type MatchingEngine struct {
	symbols *SymbolIndex
	books   []*Book // dense by SymbolId, grown on demand

	callback TradeCallback
	tracker  *PositionTracker // nil disables position tracking/risk gating
}

// NewMatchingEngine creates an engine that forwards trades to cb
// (which may be nil). Position tracking is disabled; enable it with
// WithPositionTracker.
func NewMatchingEngine(cb TradeCallback) *MatchingEngine {
	if cb == nil {
		cb = func(Trade) {}
	}
	return &MatchingEngine{
		symbols:  NewSymbolIndex(),
		callback: cb,
	}
}

// WithPositionTracker attaches the optional position/risk layer (C5)
// and returns the engine for chaining. Must be called before any
// event is processed.
func (e *MatchingEngine) WithPositionTracker(tracker *PositionTracker) *MatchingEngine {
	e.tracker = tracker
	return e
}

// SymbolIndex exposes the engine's symbol table, mainly so an async
// front-end can resolve symbols on the producer side before an event
// ever reaches the engine.
func (e *MatchingEngine) SymbolIndex() *SymbolIndex { return e.symbols }

func (e *MatchingEngine) getOrCreateBook(symbol uint32) *Book {
	if int(symbol) >= len(e.books) {
		grown := make([]*Book, symbol+1)
		copy(grown, e.books)
		e.books = grown
	}
	if e.books[symbol] == nil {
		name := e.symbols.Name(symbol)
		e.books[symbol] = NewBook(symbol, name, e.handleTrade)
	}
	return e.books[symbol]
}

func (e *MatchingEngine) bookAt(symbol uint32) *Book {
	if int(symbol) >= len(e.books) {
		return nil
	}
	return e.books[symbol]
}

// handleTrade is the internal callback every Book calls directly
// (static dispatch on the hot path, per the Design Notes): it updates
// position state, if enabled, then forwards to the user callback.
func (e *MatchingEngine) handleTrade(t Trade) {
	if e.tracker != nil {
		e.tracker.onTrade(t)
	}
	e.callback(t)
}

// Process dispatches an external Event, resolving its string symbol
// through the SymbolIndex first.
func (e *MatchingEngine) Process(ev Event) {
	ie := InternalEvent{
		Symbol: e.symbols.GetOrCreate(ev.Symbol),
		ID:     ev.ID,
		Price:  ev.Price,
		Qty:    ev.Qty,
		UserID: ev.UserID,
		Type:   ev.Type,
		Side:   ev.Side,
		TIF:    ev.TIF,
	}
	e.ProcessInternal(ie)
}

// ProcessInternal dispatches an already-resolved InternalEvent - the
// path the AsyncEngine worker uses, with zero string handling.
func (e *MatchingEngine) ProcessInternal(ie InternalEvent) {
	if ie.UserID == 0 {
		ie.UserID = 1 // unset UserID means the default user
	}
	switch ie.Type {
	case NewLimit:
		e.newLimitByID(ie.Symbol, ie.UserID, ie.Side, ie.Price, ie.Qty, ie.TIF)
	case NewMarket:
		e.newMarketByID(ie.Symbol, ie.UserID, ie.Side, ie.Qty)
	case Cancel:
		e.cancelByID(ie.Symbol, ie.ID)
	case Replace:
		e.replaceByID(ie.Symbol, ie.ID, ie.Side, ie.Price, ie.Qty, ie.TIF)
	case Stop:
		// no-op when reached via the synchronous path; the
		// AsyncEngine worker intercepts Stop before it gets here.
	}
}

// NewLimit submits a limit order for symbol on behalf of user and
// returns its assigned OrderId, or 0 if the optional risk layer
// rejects it.
func (e *MatchingEngine) NewLimit(symbol string, user uint64, side Side, price, qty int64, tif TimeInForce) uint64 {
	return e.newLimitByID(e.symbols.GetOrCreate(symbol), user, side, price, qty, tif)
}

func (e *MatchingEngine) newLimitByID(symbol uint32, user uint64, side Side, price, qty int64, tif TimeInForce) uint64 {
	if e.tracker != nil && !e.tracker.checkRisk(user, symbol, side, qty) {
		return 0
	}

	book := e.getOrCreateBook(symbol)

	if e.tracker != nil {
		e.tracker.beginSubmit(user, side)
	}
	id := book.AddLimit(side, price, qty, tif)
	if e.tracker != nil {
		e.tracker.endSubmit()
		e.tracker.recordOwner(id, user)
	}
	return id
}

// NewMarket submits a market order for symbol on behalf of user and
// returns its assigned OrderId, or 0 if the risk layer rejects it.
// The order never rests, regardless of outcome.
func (e *MatchingEngine) NewMarket(symbol string, user uint64, side Side, qty int64) uint64 {
	return e.newMarketByID(e.symbols.GetOrCreate(symbol), user, side, qty)
}

func (e *MatchingEngine) newMarketByID(symbol uint32, user uint64, side Side, qty int64) uint64 {
	if e.tracker != nil && !e.tracker.checkRisk(user, symbol, side, qty) {
		return 0
	}

	book := e.getOrCreateBook(symbol)

	if e.tracker != nil {
		e.tracker.beginSubmit(user, side)
	}
	id := book.AddMarket(side, qty)
	if e.tracker != nil {
		e.tracker.endSubmit()
		// market orders never rest, so there is nothing to own.
	}
	return id
}

// Cancel removes a resting order from symbol's book. Unknown symbol
// or order ID is tolerated and reported as false, not an error.
func (e *MatchingEngine) Cancel(symbol string, id uint64) bool {
	sid, ok := e.symbols.Find(symbol)
	if !ok {
		return false
	}
	return e.cancelByID(sid, id)
}

func (e *MatchingEngine) cancelByID(symbol uint32, id uint64) bool {
	book := e.bookAt(symbol)
	if book == nil {
		return false
	}
	ok := book.Cancel(id)
	if ok && e.tracker != nil {
		e.tracker.forgetOwner(id)
	}
	return ok
}

// Replace cancels oldID (tolerating an unknown ID) and submits a
// fresh limit order, which receives a new OrderId and loses time
// priority. Returns the new ID, or 0 if the risk layer rejects the
// new order.
func (e *MatchingEngine) Replace(symbol string, oldID uint64, side Side, price, qty int64, tif TimeInForce) uint64 {
	return e.replaceByID(e.symbols.GetOrCreate(symbol), oldID, side, price, qty, tif)
}

func (e *MatchingEngine) replaceByID(symbol uint32, oldID uint64, side Side, price, qty int64, tif TimeInForce) uint64 {
	var owner uint64
	var haveOwner bool
	if e.tracker != nil {
		owner, haveOwner = e.tracker.ownerOf(oldID)
	}

	e.cancelByID(symbol, oldID)

	user := uint64(1)
	if haveOwner {
		user = owner
	}
	newID := e.newLimitByID(symbol, user, side, price, qty, tif)
	return newID
}

// TopOfBook returns the best bid/ask, their sizes, and the mid price
// for symbol. A never-seen symbol reports an entirely empty view.
func (e *MatchingEngine) TopOfBook(symbol string) TopOfBook {
	sid, ok := e.symbols.Find(symbol)
	if !ok {
		return TopOfBook{}
	}
	return e.TopOfBookByID(sid)
}

// TopOfBookByID is the SymbolId-keyed form of TopOfBook.
func (e *MatchingEngine) TopOfBookByID(symbol uint32) TopOfBook {
	book := e.bookAt(symbol)
	if book == nil {
		return TopOfBook{}
	}
	return book.TopOfBook()
}

// FindBook returns symbol's book, or nil if no event has touched it
// yet.
func (e *MatchingEngine) FindBook(symbol string) *Book {
	sid, ok := e.symbols.Find(symbol)
	if !ok {
		return nil
	}
	return e.bookAt(sid)
}

// BookStats returns symbol's cumulative trade statistics. ok is
// false if the symbol has never been touched.
func (e *MatchingEngine) BookStats(symbol string) (BookStats, bool) {
	book := e.FindBook(symbol)
	if book == nil {
		return BookStats{}, false
	}
	return book.Stats(), true
}

// UserPosition returns user's signed position and traded volume in
// symbol, if the optional position layer is enabled and has seen a
// fill for that pair.
func (e *MatchingEngine) UserPosition(user uint64, symbol string) (position, tradedVolume int64, ok bool) {
	if e.tracker == nil {
		return 0, 0, false
	}
	sid, found := e.symbols.Find(symbol)
	if !found {
		return 0, 0, false
	}
	return e.tracker.Position(user, sid)
}

// KnownSymbols returns every symbol name the engine has resolved, in
// first-seen order.
func (e *MatchingEngine) KnownSymbols() []string {
	return e.symbols.Names()
}
