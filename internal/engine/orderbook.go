package engine

// orderLocator is the order index's entry: enough to find the
// resting order's level without scanning both sides of the book.
type orderLocator struct {
	side  Side
	price int64
}

// Book is a single symbol's order book: two price ladders, a
// cancel-by-ID index, running stats, and the next order ID counter.
// A Book is only ever touched from one goroutine at a time - the
// caller for synchronous use, or the AsyncEngine worker when fed
// through the async front-end. No locks guard its state.
type Book struct {
	SymbolID   uint32
	SymbolName string // borrowed from the SymbolIndex, stable for the engine's lifetime

	bids *priceTree // descending: best = highest price
	asks *priceTree // ascending: best = lowest price

	index map[uint64]orderLocator

	nextOrderID uint64
	stats       BookStats

	onTrade TradeCallback
}

// NewBook creates an empty book for one symbol. onTrade may be nil.
func NewBook(symbolID uint32, symbolName string, onTrade TradeCallback) *Book {
	if onTrade == nil {
		onTrade = func(Trade) {}
	}
	return &Book{
		SymbolID:   symbolID,
		SymbolName: symbolName,
		bids:       newPriceTree(true),
		asks:       newPriceTree(false),
		index:      make(map[uint64]orderLocator),
		onTrade:    onTrade,
	}
}

func (b *Book) tree(side Side) *priceTree {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

func (b *Book) oppositeTree(side Side) *priceTree {
	if side == Bid {
		return b.asks
	}
	return b.bids
}

// AddLimit submits a limit order and returns its assigned OrderId.
// qty and price must both be positive. If tif is FOK and the book
// cannot immediately fill the entire quantity, no trades occur and
// no order rests - the assigned ID is still returned (see
// DESIGN.md's Open Question on FOK ID consumption). Otherwise the
// order matches against the opposite side, and any unfilled
// remainder rests only if tif is GFD.
func (b *Book) AddLimit(side Side, price, qty int64, tif TimeInForce) uint64 {
	b.nextOrderID++
	order := &Order{ID: b.nextOrderID, Side: side, Type: Limit, TIF: tif, Price: price, Qty: qty}

	if tif == FOK && !b.canFullyMatch(side, price, qty) {
		return order.ID
	}

	b.match(order)

	if order.Qty > 0 && order.TIF == GFD {
		b.restOrder(order)
	}
	return order.ID
}

// AddMarket submits a market order. It never rests: any quantity
// left unfilled once the opposite side is exhausted is discarded.
func (b *Book) AddMarket(side Side, qty int64) uint64 {
	b.nextOrderID++
	order := &Order{ID: b.nextOrderID, Side: side, Type: Market, TIF: IOC, Price: marketPrice(side), Qty: qty}
	b.match(order)
	return order.ID
}

// Cancel removes a resting order. Returns false (idempotently) if
// the order is not currently resting.
func (b *Book) Cancel(orderID uint64) bool {
	loc, ok := b.index[orderID]
	if !ok {
		return false
	}

	tree := b.tree(loc.side)
	level := tree.Get(loc.price)
	if level == nil {
		delete(b.index, orderID)
		return false
	}

	i := level.indexOf(orderID)
	if i < 0 {
		delete(b.index, orderID)
		return false
	}
	level.removeAt(i)
	delete(b.index, orderID)

	if level.isEmpty() {
		tree.Delete(loc.price)
	}
	return true
}

// BestBid returns the best (highest) bid price and whether one exists.
func (b *Book) BestBid() (int64, bool) {
	lvl := b.bids.Best()
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// BestAsk returns the best (lowest) ask price and whether one exists.
func (b *Book) BestAsk() (int64, bool) {
	lvl := b.asks.Best()
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// BestBidSize returns the aggregate quantity resting at the best bid.
func (b *Book) BestBidSize() (int64, bool) {
	lvl := b.bids.Best()
	if lvl == nil {
		return 0, false
	}
	return lvl.TotalQty, true
}

// BestAskSize returns the aggregate quantity resting at the best ask.
func (b *Book) BestAskSize() (int64, bool) {
	lvl := b.asks.Best()
	if lvl == nil {
		return 0, false
	}
	return lvl.TotalQty, true
}

// MidPrice returns (bestBid+bestAsk)/2 by integer division, and false
// if either side is empty.
func (b *Book) MidPrice() (int64, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// TopOfBook gathers the full top-of-book summary in one call.
func (b *Book) TopOfBook() TopOfBook {
	var tob TopOfBook
	tob.BestBid, tob.HasBid = b.BestBid()
	tob.BidSize, _ = b.BestBidSize()
	tob.BestAsk, tob.HasAsk = b.BestAsk()
	tob.AskSize, _ = b.BestAskSize()
	tob.Mid, tob.HasMid = b.MidPrice()
	return tob
}

// Stats returns the book's cumulative trade statistics.
func (b *Book) Stats() BookStats { return b.stats }

// Depth returns the number of distinct price levels on each side.
func (b *Book) Depth() (bidLevels, askLevels int) {
	return b.bids.Size(), b.asks.Size()
}

// DepthLevel is one row of a PrintDepth snapshot.
type DepthLevel struct {
	Price int64
	Qty   int64
}

// PrintDepth returns the top `depth` levels per side, best-first. Out
// of scope for core matching correctness; used by the REPL's `D`
// inspection command.
func (b *Book) PrintDepth(depth int) (bids, asks []DepthLevel) {
	collect := func(tree *priceTree) []DepthLevel {
		out := make([]DepthLevel, 0, depth)
		tree.ForEach(func(level *PriceLevel) bool {
			if len(out) >= depth {
				return false
			}
			out = append(out, DepthLevel{Price: level.Price, Qty: level.TotalQty})
			return true
		})
		return out
	}
	return collect(b.bids), collect(b.asks)
}

// canFullyMatch is the FOK pre-check: a pure read that sums resting
// quantity across opposite-side levels crossing price, without
// mutating any book state.
func (b *Book) canFullyMatch(side Side, price, qty int64) bool {
	if qty <= 0 {
		return true
	}
	return b.oppositeTree(side).sumCrossing(side, price) >= qty
}

// match walks the opposite side in price-time priority, trading the
// incoming order against resting orders until it is filled or the
// opposite side stops crossing. Trade price is always the resting
// side's price.
func (b *Book) match(incoming *Order) {
	opp := b.oppositeTree(incoming.Side)

	for incoming.Qty > 0 {
		level := opp.Best()
		if level == nil {
			break
		}
		if incoming.Type == Limit && !crosses(incoming.Side, incoming.Price, level.Price) {
			break
		}

		i := 0
		for i < len(level.Orders) && incoming.Qty > 0 {
			resting := level.Orders[i]
			traded := min64(incoming.Qty, resting.Qty)

			incoming.Qty -= traded
			resting.Qty -= traded
			level.TotalQty -= traded

			b.emitTrade(incoming, resting, level.Price, traded)

			if resting.Qty == 0 {
				delete(b.index, resting.ID)
				level.Orders = append(level.Orders[:i], level.Orders[i+1:]...)
				continue // level.Orders[i] is now the next order
			}
			i++
		}

		if level.isEmpty() {
			opp.Delete(level.Price)
		}
	}
}

// crosses reports whether a limit order's price crosses the given
// resting price on the opposite side.
func crosses(side Side, limitPrice, oppositePrice int64) bool {
	if side == Bid {
		return limitPrice >= oppositePrice
	}
	return limitPrice <= oppositePrice
}

func (b *Book) emitTrade(incoming, resting *Order, price, qty int64) {
	b.stats.TradeCount++
	b.stats.TradedQty += qty
	b.stats.LastTradePrice = price
	b.stats.HasLastTrade = true

	var buyID, sellID, buyerUser, sellerUser uint64
	if incoming.Side == Bid {
		buyID, buyerUser = incoming.ID, incoming.UserID
		sellID, sellerUser = resting.ID, resting.UserID
	} else {
		buyID, buyerUser = resting.ID, resting.UserID
		sellID, sellerUser = incoming.ID, incoming.UserID
	}

	b.onTrade(Trade{
		SymbolID:     b.SymbolID,
		SymbolName:   b.SymbolName,
		Price:        price,
		Qty:          qty,
		BuyOrderID:   buyID,
		SellOrderID:  sellID,
		BuyerUserID:  buyerUser,
		SellerUserID: sellerUser,
	})
}

// restOrder appends order to the tail of its price level and records
// it in the cancel index.
func (b *Book) restOrder(order *Order) {
	tree := b.tree(order.Side)
	level := tree.GetOrCreate(order.Price)
	level.addOrder(order)
	b.index[order.ID] = orderLocator{side: order.Side, price: order.Price}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
