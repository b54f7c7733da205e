package engine

// symbolPosition is one user's signed position and cumulative traded
// volume in a single symbol.
type symbolPosition struct {
	position     int64
	tradedVolume int64
}

// PositionTracker is the optional per-user position/risk layer (C5).
// It is a composable layer selected at MatchingEngine construction
// time, rather than a compile-time flag scattered through the
// matching path: an Engine with a nil tracker skips every position
// check and update with a single nil comparison, which is the Go
// rendering of the source's `#if MATCHING_ENABLE_USER_TRACKING`
// guard (see SPEC_FULL.md §4.3).
type PositionTracker struct {
	maxAbsPosition int64
	positions      map[uint64]map[uint32]*symbolPosition // userID -> symbolID -> position
	owner          map[uint64]uint64                     // orderID -> userID, for every accepted limit order; removed on cancel

	// currentUser/currentSide/haveCurrent attribute trades fired
	// during an aggressor's own submit call (before its OrderId, if
	// any, has been recorded in owner) to the submitting user.
	// Attribution happens when the trade is emitted, not when the
	// submit call returns, so it stays correct for an aggressor that
	// fills across several resting orders in one call.
	currentUser uint64
	currentSide Side
	haveCurrent bool
}

// NewPositionTracker creates a tracker that rejects any order which
// would push |position| past maxAbsPosition.
func NewPositionTracker(maxAbsPosition int64) *PositionTracker {
	return &PositionTracker{
		maxAbsPosition: maxAbsPosition,
		positions:      make(map[uint64]map[uint32]*symbolPosition),
		owner:          make(map[uint64]uint64),
	}
}

func (p *PositionTracker) symbolPos(user uint64, symbol uint32) *symbolPosition {
	bySymbol, ok := p.positions[user]
	if !ok {
		bySymbol = make(map[uint32]*symbolPosition)
		p.positions[user] = bySymbol
	}
	pos, ok := bySymbol[symbol]
	if !ok {
		pos = &symbolPosition{}
		bySymbol[symbol] = pos
	}
	return pos
}

// Position returns a user's current signed position and traded
// volume in a symbol. ok is false if the user has never traded it.
func (p *PositionTracker) Position(user uint64, symbol uint32) (position, tradedVolume int64, ok bool) {
	bySymbol, exists := p.positions[user]
	if !exists {
		return 0, 0, false
	}
	pos, exists := bySymbol[symbol]
	if !exists {
		return 0, 0, false
	}
	return pos.position, pos.tradedVolume, true
}

// checkRisk reports whether user may submit a new order of qty on
// side without breaching the position cap, given its existing
// position in symbol. A pure read: it never mutates tracker state.
func (p *PositionTracker) checkRisk(user uint64, symbol uint32, side Side, qty int64) bool {
	bySymbol := p.positions[user]
	var current int64
	if bySymbol != nil {
		if pos, ok := bySymbol[symbol]; ok {
			current = pos.position
		}
	}
	delta := qty
	if side == Ask {
		delta = -qty
	}
	next := current + delta
	if next < 0 {
		next = -next
	}
	return next <= p.maxAbsPosition
}

// beginSubmit records the submitting user/side as the attribution
// hint for trades that fire before the aggressor order's own ID is
// recorded in the owner map (it may fill immediately and never rest).
func (p *PositionTracker) beginSubmit(user uint64, side Side) {
	p.currentUser = user
	p.currentSide = side
	p.haveCurrent = true
}

func (p *PositionTracker) endSubmit() {
	p.haveCurrent = false
}

// recordOwner attaches a UserId to the OrderId returned by a limit
// submit, whether or not the order rested, for trades that fire after
// the order has left the submit call (i.e. on a later aggressor
// crossing into it).
func (p *PositionTracker) recordOwner(orderID, user uint64) {
	if orderID != 0 {
		p.owner[orderID] = user
	}
}

func (p *PositionTracker) forgetOwner(orderID uint64) {
	delete(p.owner, orderID)
}

// ownerOf resolves a resting order's UserId, if known.
func (p *PositionTracker) ownerOf(orderID uint64) (uint64, bool) {
	u, ok := p.owner[orderID]
	return u, ok
}

// onTrade updates both sides' position and traded volume for a
// fill, attributing each leg to its owner if recorded, or to the
// current submitter hint otherwise.
func (p *PositionTracker) onTrade(t Trade) {
	if buyer, ok := p.ownerOf(t.BuyOrderID); ok {
		pos := p.symbolPos(buyer, t.SymbolID)
		pos.position += t.Qty
		pos.tradedVolume += t.Qty
	} else if p.haveCurrent && p.currentSide == Bid && t.BuyOrderID != 0 {
		pos := p.symbolPos(p.currentUser, t.SymbolID)
		pos.position += t.Qty
		pos.tradedVolume += t.Qty
	}

	if seller, ok := p.ownerOf(t.SellOrderID); ok {
		pos := p.symbolPos(seller, t.SymbolID)
		pos.position -= t.Qty
		pos.tradedVolume += t.Qty
	} else if p.haveCurrent && p.currentSide == Ask && t.SellOrderID != 0 {
		pos := p.symbolPos(p.currentUser, t.SymbolID)
		pos.position -= t.Qty
		pos.tradedVolume += t.Qty
	}
}
