// Package repl implements an interactive line-oriented console over
// any io.Reader/io.Writer: it submits order-entry protocol lines to
// an engine and answers the two read-only inspection commands from
// the text protocol (D, U). Kept independent of the terminal so it
// is unit-testable with in-memory buffers.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yunhan842/matchcore/internal/engine"
	"github.com/yunhan842/matchcore/internal/protocol"
)

// quitWords end the REPL's read loop.
var quitWords = map[string]bool{"q": true, "Q": true, "quit": true, "QUIT": true, "exit": true, "EXIT": true}

// REPL reads protocol/inspection lines from in, writes acknowledgements
// and inspection output to out, and applies order-entry lines to eng.
type REPL struct {
	eng *engine.MatchingEngine
	in  *bufio.Scanner
	out io.Writer
	log zerolog.Logger
}

// New creates a REPL bound to eng, reading from in and writing to out.
func New(eng *engine.MatchingEngine, in io.Reader, out io.Writer, log zerolog.Logger) *REPL {
	return &REPL{eng: eng, in: bufio.NewScanner(in), out: out, log: log}
}

// Run reads lines until EOF or a quit command, applying each. It
// returns any I/O error from the underlying scanner.
func (r *REPL) Run() error {
	fmt.Fprintln(r.out, "Formats:")
	fmt.Fprintln(r.out, "  L,symbol,B|S,price,qty,GFD|IOC|FOK")
	fmt.Fprintln(r.out, "  M,symbol,B|S,qty")
	fmt.Fprintln(r.out, "  C,symbol,orderId")
	fmt.Fprintln(r.out, "  R,symbol,oldId,B|S,price,qty,GFD|IOC|FOK")
	fmt.Fprintln(r.out, "  D,symbol[,depth]")
	fmt.Fprintln(r.out, "  U,user,symbol")

	for r.in.Scan() {
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if quitWords[line] {
			fmt.Fprintln(r.out, "Stopping order input.")
			return nil
		}
		r.handle(line)
	}
	return r.in.Err()
}

func (r *REPL) handle(line string) {
	switch {
	case strings.HasPrefix(line, "D"):
		r.handleDepth(line)
		return
	case strings.HasPrefix(line, "U"):
		r.handleUser(line)
		return
	}

	ev, err := protocol.ParseLine(line)
	if err != nil {
		if errors.Is(err, protocol.ErrBlankLine) {
			return
		}
		r.log.Warn().Err(err).Msg("repl: rejecting invalid line")
		fmt.Fprintf(r.out, "REJECT %v\n", err)
		return
	}
	r.handleEvent(ev)
}

func (r *REPL) handleEvent(ev engine.Event) {
	switch ev.Type {
	case engine.NewLimit:
		id := r.eng.NewLimit(ev.Symbol, ev.UserID, ev.Side, ev.Price, ev.Qty, ev.TIF)
		fmt.Fprintf(r.out, "ACK L id=%d symbol=%s side=%s px=%d qty=%d tif=%s\n",
			id, ev.Symbol, ev.Side, ev.Price, ev.Qty, ev.TIF)
	case engine.NewMarket:
		id := r.eng.NewMarket(ev.Symbol, ev.UserID, ev.Side, ev.Qty)
		fmt.Fprintf(r.out, "ACK M id=%d symbol=%s side=%s qty=%d\n", id, ev.Symbol, ev.Side, ev.Qty)
	case engine.Cancel:
		ok := r.eng.Cancel(ev.Symbol, ev.ID)
		verb := "ACK"
		if !ok {
			verb = "REJECT"
		}
		fmt.Fprintf(r.out, "%s C id=%d symbol=%s\n", verb, ev.ID, ev.Symbol)
	case engine.Replace:
		newID := r.eng.Replace(ev.Symbol, ev.ID, ev.Side, ev.Price, ev.Qty, ev.TIF)
		fmt.Fprintf(r.out, "ACK R old_id=%d new_id=%d symbol=%s\n", ev.ID, newID, ev.Symbol)
	}

	r.printTopOfBook(ev.Symbol)
}

func (r *REPL) handleDepth(line string) {
	cmd, err := protocol.ParseInspect(line)
	if err != nil {
		fmt.Fprintf(r.out, "REJECT %v\n", err)
		return
	}
	book := r.eng.FindBook(cmd.Symbol)
	if book == nil {
		fmt.Fprintf(r.out, "No book for symbol: %s\n", cmd.Symbol)
		return
	}
	bids, asks := book.PrintDepth(cmd.Depth)
	fmt.Fprintf(r.out, "%s bids:\n", cmd.Symbol)
	for _, lvl := range bids {
		fmt.Fprintf(r.out, "  %d x %d\n", lvl.Price, lvl.Qty)
	}
	fmt.Fprintf(r.out, "%s asks:\n", cmd.Symbol)
	for _, lvl := range asks {
		fmt.Fprintf(r.out, "  %d x %d\n", lvl.Price, lvl.Qty)
	}
}

func (r *REPL) handleUser(line string) {
	cmd, err := protocol.ParseInspect(line)
	if err != nil {
		fmt.Fprintf(r.out, "REJECT %v\n", err)
		return
	}
	position, volume, ok := r.eng.UserPosition(cmd.User, cmd.Symbol)
	if !ok {
		fmt.Fprintf(r.out, "User %d has no position in %s\n", cmd.User, cmd.Symbol)
		return
	}
	fmt.Fprintf(r.out, "User %d %s position=%d traded_volume=%d\n", cmd.User, cmd.Symbol, position, volume)
}

func (r *REPL) printTopOfBook(symbol string) {
	tob := r.eng.TopOfBook(symbol)
	bid, ask := "none", "none"
	if tob.HasBid {
		bid = fmt.Sprintf("%d", tob.BestBid)
	}
	if tob.HasAsk {
		ask = fmt.Sprintf("%d", tob.BestAsk)
	}
	fmt.Fprintf(r.out, "%s bid=%s x %d   ask=%s x %d\n", symbol, bid, tob.BidSize, ask, tob.AskSize)
}
