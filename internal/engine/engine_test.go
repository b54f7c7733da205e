package engine

import "testing"

func TestEngineSimpleCross(t *testing.T) {
	// S1, driven through the engine's string-symbol API.
	var trades []Trade
	eng := NewMatchingEngine(func(tr Trade) { trades = append(trades, tr) })

	eng.Process(Event{Type: NewLimit, Symbol: "FOO", Side: Ask, Price: 100, Qty: 50})
	eng.Process(Event{Type: NewLimit, Symbol: "FOO", Side: Ask, Price: 100, Qty: 60})
	eng.Process(Event{Type: NewLimit, Symbol: "FOO", Side: Bid, Price: 100, Qty: 80})

	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].Qty != 50 || trades[1].Qty != 30 {
		t.Fatalf("unexpected trade quantities: %+v", trades)
	}

	stats, ok := eng.BookStats("FOO")
	if !ok {
		t.Fatal("expected FOO to have stats")
	}
	if stats.TradeCount != 2 || stats.TradedQty != 80 || stats.LastTradePrice != 100 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	tob := eng.TopOfBook("FOO")
	if tob.HasBid || !tob.HasAsk || tob.BestAsk != 100 || tob.AskSize != 30 {
		t.Fatalf("expected no bid and 30 left resting at ask 100 after the partial cross, got %+v", tob)
	}
}

func TestEngineCancelSecondAsk(t *testing.T) {
	// S2
	eng := NewMatchingEngine(nil)

	eng.NewLimit("FOO", 1, Ask, 100, 50, GFD)
	eng.NewLimit("FOO", 1, Ask, 100, 60, GFD)

	if !eng.Cancel("FOO", 2) {
		t.Fatal("expected cancel to succeed")
	}

	tob := eng.TopOfBook("FOO")
	if !tob.HasAsk || tob.BestAsk != 100 || tob.AskSize != 50 {
		t.Fatalf("unexpected top of book: %+v", tob)
	}
	if tob.HasBid {
		t.Fatal("expected no bid side")
	}
}

func TestEngineIOCPartial(t *testing.T) {
	// S3
	var trades []Trade
	eng := NewMatchingEngine(func(tr Trade) { trades = append(trades, tr) })

	eng.NewLimit("BAR", 1, Ask, 100, 50, GFD)
	eng.NewLimit("BAR", 1, Bid, 100, 80, IOC)

	if len(trades) != 1 || trades[0].Qty != 50 {
		t.Fatalf("expected a single trade of 50, got %+v", trades)
	}
	tob := eng.TopOfBook("BAR")
	if tob.HasAsk || tob.HasBid {
		t.Fatalf("expected both sides empty, got %+v", tob)
	}
}

func TestEngineFOKRejectThenFill(t *testing.T) {
	// S4
	var trades []Trade
	eng := NewMatchingEngine(func(tr Trade) { trades = append(trades, tr) })

	eng.NewLimit("BAZ", 1, Ask, 100, 50, GFD)
	eng.NewLimit("BAZ", 1, Bid, 100, 80, FOK)

	if len(trades) != 0 {
		t.Fatalf("expected no trades on FOK reject, got %+v", trades)
	}

	eng.NewLimit("BAZ", 1, Bid, 100, 40, FOK)
	if len(trades) != 1 || trades[0].Qty != 40 {
		t.Fatalf("expected one trade of 40, got %+v", trades)
	}

	tob := eng.TopOfBook("BAZ")
	if tob.AskSize != 10 {
		t.Fatalf("expected remaining ask size 10, got %d", tob.AskSize)
	}
}

func TestEngineReplaceLosesPriority(t *testing.T) {
	// S5
	eng := NewMatchingEngine(nil)

	id1 := eng.NewLimit("QUX", 1, Ask, 100, 50, GFD)
	newID := eng.Replace("QUX", id1, Ask, 102, 30, GFD)
	if newID == 0 {
		t.Fatal("expected replace to succeed")
	}
	if newID == id1 {
		t.Fatal("expected replace to assign a fresh OrderId")
	}

	eng.NewLimit("QUX", 1, Bid, 101, 100, GFD)

	tob := eng.TopOfBook("QUX")
	if !tob.HasAsk || tob.BestAsk != 102 {
		t.Fatalf("expected best ask 102, got %+v", tob)
	}
	if !tob.HasBid || tob.BestBid != 101 {
		t.Fatalf("expected best bid 101 (no trade), got %+v", tob)
	}
}

func TestEngineReplaceToleratesUnknownOldID(t *testing.T) {
	eng := NewMatchingEngine(nil)

	newID := eng.Replace("QUX", 999, Bid, 100, 10, GFD)
	if newID == 0 {
		t.Fatal("expected replace to submit the new order even when the old ID is unknown")
	}
}

func TestEngineMarketOrderAcrossSymbols(t *testing.T) {
	eng := NewMatchingEngine(nil)

	// Each symbol gets its own book, keyed by SymbolId.
	eng.NewLimit("AAA", 1, Ask, 10, 5, GFD)
	eng.NewLimit("BBB", 1, Ask, 20, 5, GFD)

	eng.NewMarket("AAA", 1, Bid, 5)

	tobA := eng.TopOfBook("AAA")
	tobB := eng.TopOfBook("BBB")
	if tobA.HasAsk {
		t.Fatal("expected AAA's ask consumed by the market order")
	}
	if !tobB.HasAsk || tobB.BestAsk != 20 {
		t.Fatalf("expected BBB untouched, got %+v", tobB)
	}
}

func TestEngineUnknownSymbolLookups(t *testing.T) {
	eng := NewMatchingEngine(nil)

	if eng.Cancel("NOPE", 1) {
		t.Fatal("expected cancel on unknown symbol to fail")
	}
	if eng.FindBook("NOPE") != nil {
		t.Fatal("expected no book for an unseen symbol")
	}
	if _, ok := eng.BookStats("NOPE"); ok {
		t.Fatal("expected no stats for an unseen symbol")
	}
	tob := eng.TopOfBook("NOPE")
	if tob.HasBid || tob.HasAsk {
		t.Fatalf("expected an empty view, got %+v", tob)
	}
}

func TestEnginePositionTrackingAndRiskCap(t *testing.T) {
	eng := NewMatchingEngine(nil).WithPositionTracker(NewPositionTracker(100))

	// Buyer goes long 60 against a resting seller; well within cap.
	eng.NewLimit("AAA", 2, Ask, 100, 60, GFD)
	buyID := eng.NewLimit("AAA", 1, Bid, 100, 60, GFD)
	if buyID == 0 {
		t.Fatal("expected the order within the risk cap to be accepted")
	}

	pos, vol, ok := eng.UserPosition(1, "AAA")
	if !ok || pos != 60 || vol != 60 {
		t.Fatalf("expected buyer position 60/volume 60, got pos=%d vol=%d ok=%v", pos, vol, ok)
	}
	sellerPos, sellerVol, ok := eng.UserPosition(2, "AAA")
	if !ok || sellerPos != -60 || sellerVol != 60 {
		t.Fatalf("expected seller position -60/volume 60, got pos=%d vol=%d ok=%v", sellerPos, sellerVol, ok)
	}

	// Pushing the buyer's position past the cap is rejected outright:
	// no trade, no book mutation, no stats update.
	before, _ := eng.BookStats("AAA")
	rejectedID := eng.NewLimit("AAA", 1, Bid, 100, 50, GFD)
	if rejectedID != 0 {
		t.Fatalf("expected risk rejection (OrderId 0), got %d", rejectedID)
	}
	after, _ := eng.BookStats("AAA")
	if before != after {
		t.Fatalf("expected stats unchanged by a risk rejection: before=%+v after=%+v", before, after)
	}
}

func TestEngineReplaceInheritsOwner(t *testing.T) {
	eng := NewMatchingEngine(nil).WithPositionTracker(NewPositionTracker(1_000_000))

	id1 := eng.NewLimit("AAA", 42, Ask, 100, 10, GFD)
	newID := eng.Replace("AAA", id1, Ask, 101, 10, GFD)

	eng.NewLimit("AAA", 7, Bid, 101, 10, GFD)

	pos, _, ok := eng.UserPosition(42, "AAA")
	if !ok || pos != -10 {
		t.Fatalf("expected the replaced order's fill attributed to its original owner (42), got pos=%d ok=%v", pos, ok)
	}
	_ = newID
}

func TestEngineAggressorAttributionAcrossMultipleFills(t *testing.T) {
	eng := NewMatchingEngine(nil).WithPositionTracker(NewPositionTracker(1_000_000))

	// Two small resting asks from different sellers; one aggressive
	// buy fills across both within a single submit call.
	eng.NewLimit("AAA", 10, Ask, 100, 5, GFD)
	eng.NewLimit("AAA", 11, Ask, 100, 5, GFD)

	eng.NewLimit("AAA", 1, Bid, 100, 10, GFD)

	buyerPos, buyerVol, ok := eng.UserPosition(1, "AAA")
	if !ok || buyerPos != 10 || buyerVol != 10 {
		t.Fatalf("expected aggressor position 10/volume 10 across both fills, got pos=%d vol=%d ok=%v", buyerPos, buyerVol, ok)
	}
}

func TestEngineKnownSymbols(t *testing.T) {
	eng := NewMatchingEngine(nil)
	eng.NewLimit("AAA", 1, Bid, 1, 1, GFD)
	eng.NewLimit("BBB", 1, Bid, 1, 1, GFD)
	eng.NewLimit("AAA", 1, Bid, 1, 1, GFD)

	got := eng.KnownSymbols()
	want := []string{"AAA", "BBB"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
