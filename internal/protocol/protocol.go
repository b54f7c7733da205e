// Package protocol parses the engine's CSV order-entry mini-language
// into engine.Event values. It carries no matching logic itself: a
// malformed line is reported as an error and the caller (replay,
// REPL, or any other collaborator) decides what to do with it - the
// core engine never sees invalid input.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yunhan842/matchcore/internal/engine"
)

// ErrBlankLine is returned by ParseLine for an empty line or one
// starting with '#'; callers should skip it silently rather than log
// it as a rejection.
var ErrBlankLine = errors.New("protocol: blank or comment line")

// ParseLine parses one line of the order-entry protocol:
//
//	L,symbol,B|S,price,qty,GFD|IOC|FOK           new limit, default user
//	L,user,symbol,B|S,price,qty,GFD|IOC|FOK      new limit with user
//	M,symbol,B|S,qty                             new market, default user
//	M,user,symbol,B|S,qty                        new market with user
//	C,symbol,orderId                             cancel
//	R,symbol,oldId,B|S,price,qty,GFD|IOC|FOK     replace
//
// Lines starting with '#' and empty lines (after trimming) return
// ErrBlankLine. Any other malformed line returns a descriptive error
// and the line must not be applied to the engine.
func ParseLine(raw string) (engine.Event, error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return engine.Event{}, ErrBlankLine
	}

	fields := splitCSV(line)
	if len(fields) == 0 {
		return engine.Event{}, ErrBlankLine
	}

	switch fields[0] {
	case "L":
		return parseLimit(line, fields)
	case "M":
		return parseMarket(line, fields)
	case "C":
		return parseCancel(line, fields)
	case "R":
		return parseReplace(line, fields)
	default:
		return engine.Event{}, fmt.Errorf("protocol: unknown event type %q in line %q", fields[0], line)
	}
}

func splitCSV(line string) []string {
	raw := strings.Split(line, ",")
	fields := make([]string, len(raw))
	for i, f := range raw {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

func parseLimit(line string, fields []string) (engine.Event, error) {
	var ev engine.Event
	ev.Type = engine.NewLimit

	switch len(fields) {
	case 6: // L,symbol,side,price,qty,tif
		ev.UserID = 1
		ev.Symbol = fields[1]
		if err := parseSide(fields[2], &ev.Side); err != nil {
			return engine.Event{}, annotate(err, line)
		}
		price, err := parseInt(fields[3])
		if err != nil {
			return engine.Event{}, annotate(fmt.Errorf("invalid price: %w", err), line)
		}
		qty, err := parseInt(fields[4])
		if err != nil {
			return engine.Event{}, annotate(fmt.Errorf("invalid qty: %w", err), line)
		}
		ev.Price, ev.Qty = price, qty
		if err := parseTIF(fields[5], &ev.TIF); err != nil {
			return engine.Event{}, annotate(err, line)
		}
		return ev, nil

	case 7: // L,user,symbol,side,price,qty,tif
		user, err := parseUint(fields[1])
		if err != nil {
			return engine.Event{}, annotate(fmt.Errorf("invalid user id: %w", err), line)
		}
		ev.UserID = user
		ev.Symbol = fields[2]
		if err := parseSide(fields[3], &ev.Side); err != nil {
			return engine.Event{}, annotate(err, line)
		}
		price, err := parseInt(fields[4])
		if err != nil {
			return engine.Event{}, annotate(fmt.Errorf("invalid price: %w", err), line)
		}
		qty, err := parseInt(fields[5])
		if err != nil {
			return engine.Event{}, annotate(fmt.Errorf("invalid qty: %w", err), line)
		}
		ev.Price, ev.Qty = price, qty
		if err := parseTIF(fields[6], &ev.TIF); err != nil {
			return engine.Event{}, annotate(err, line)
		}
		return ev, nil

	default:
		return engine.Event{}, annotate(fmt.Errorf("wrong number of fields for L"), line)
	}
}

func parseMarket(line string, fields []string) (engine.Event, error) {
	var ev engine.Event
	ev.Type = engine.NewMarket
	ev.TIF = engine.IOC // markets never rest

	switch len(fields) {
	case 4: // M,symbol,side,qty
		ev.UserID = 1
		ev.Symbol = fields[1]
		if err := parseSide(fields[2], &ev.Side); err != nil {
			return engine.Event{}, annotate(err, line)
		}
		qty, err := parseInt(fields[3])
		if err != nil {
			return engine.Event{}, annotate(fmt.Errorf("invalid qty: %w", err), line)
		}
		ev.Qty = qty
		return ev, nil

	case 5: // M,user,symbol,side,qty
		user, err := parseUint(fields[1])
		if err != nil {
			return engine.Event{}, annotate(fmt.Errorf("invalid user id: %w", err), line)
		}
		ev.UserID = user
		ev.Symbol = fields[2]
		if err := parseSide(fields[3], &ev.Side); err != nil {
			return engine.Event{}, annotate(err, line)
		}
		qty, err := parseInt(fields[4])
		if err != nil {
			return engine.Event{}, annotate(fmt.Errorf("invalid qty: %w", err), line)
		}
		ev.Qty = qty
		return ev, nil

	default:
		return engine.Event{}, annotate(fmt.Errorf("wrong number of fields for M"), line)
	}
}

func parseCancel(line string, fields []string) (engine.Event, error) {
	if len(fields) != 3 {
		return engine.Event{}, annotate(fmt.Errorf("wrong number of fields for C"), line)
	}
	id, err := parseUint(fields[2])
	if err != nil {
		return engine.Event{}, annotate(fmt.Errorf("invalid order id: %w", err), line)
	}
	return engine.Event{
		Type:   engine.Cancel,
		Symbol: fields[1],
		ID:     id,
		UserID: 1,
	}, nil
}

func parseReplace(line string, fields []string) (engine.Event, error) {
	if len(fields) != 7 {
		return engine.Event{}, annotate(fmt.Errorf("wrong number of fields for R"), line)
	}
	var ev engine.Event
	ev.Type = engine.Replace
	ev.Symbol = fields[1]
	ev.UserID = 1

	oldID, err := parseUint(fields[2])
	if err != nil {
		return engine.Event{}, annotate(fmt.Errorf("invalid old order id: %w", err), line)
	}
	ev.ID = oldID

	if err := parseSide(fields[3], &ev.Side); err != nil {
		return engine.Event{}, annotate(err, line)
	}
	price, err := parseInt(fields[4])
	if err != nil {
		return engine.Event{}, annotate(fmt.Errorf("invalid price: %w", err), line)
	}
	qty, err := parseInt(fields[5])
	if err != nil {
		return engine.Event{}, annotate(fmt.Errorf("invalid qty: %w", err), line)
	}
	ev.Price, ev.Qty = price, qty
	if err := parseTIF(fields[6], &ev.TIF); err != nil {
		return engine.Event{}, annotate(err, line)
	}
	return ev, nil
}

func parseSide(token string, out *engine.Side) error {
	switch token {
	case "B":
		*out = engine.Bid
		return nil
	case "S":
		*out = engine.Ask
		return nil
	default:
		return fmt.Errorf("invalid side %q, want B or S", token)
	}
}

func parseTIF(token string, out *engine.TimeInForce) error {
	switch token {
	case "GFD":
		*out = engine.GFD
		return nil
	case "IOC":
		*out = engine.IOC
		return nil
	case "FOK":
		*out = engine.FOK
		return nil
	default:
		return fmt.Errorf("invalid TIF %q, want GFD, IOC, or FOK", token)
	}
}

func parseInt(token string) (int64, error) {
	return strconv.ParseInt(token, 10, 64)
}

func parseUint(token string) (uint64, error) {
	return strconv.ParseUint(token, 10, 64)
}

func annotate(err error, line string) error {
	return fmt.Errorf("protocol: %w (line %q)", err, line)
}

// InspectKind distinguishes the two read-only inspection commands
// from the order-entry protocol.
type InspectKind uint8

const (
	InspectDepth InspectKind = iota // D,symbol[,depth]
	InspectUser                     // U,user,symbol
)

// InspectCommand is a parsed `D` or `U` line. These never reach the
// engine's Process path - they only read state, via MatchingEngine's
// FindBook/UserPosition.
type InspectCommand struct {
	Kind   InspectKind
	Symbol string
	Depth  int // InspectDepth only; defaults to 5
	User   uint64
}

// ParseInspect parses a `D,symbol[,depth]` or `U,user,symbol` line.
func ParseInspect(raw string) (InspectCommand, error) {
	line := strings.TrimSpace(raw)
	fields := splitCSV(line)
	if len(fields) == 0 {
		return InspectCommand{}, fmt.Errorf("protocol: empty inspect line")
	}

	switch fields[0] {
	case "D":
		if len(fields) < 2 || len(fields) > 3 {
			return InspectCommand{}, annotate(fmt.Errorf("wrong number of fields for D"), line)
		}
		depth := 5
		if len(fields) == 3 {
			d, err := strconv.Atoi(fields[2])
			if err != nil || d <= 0 {
				return InspectCommand{}, annotate(fmt.Errorf("invalid depth %q", fields[2]), line)
			}
			depth = d
		}
		return InspectCommand{Kind: InspectDepth, Symbol: fields[1], Depth: depth}, nil

	case "U":
		if len(fields) != 3 {
			return InspectCommand{}, annotate(fmt.Errorf("wrong number of fields for U"), line)
		}
		user, err := parseUint(fields[1])
		if err != nil {
			return InspectCommand{}, annotate(fmt.Errorf("invalid user id: %w", err), line)
		}
		return InspectCommand{Kind: InspectUser, User: user, Symbol: fields[2]}, nil

	default:
		return InspectCommand{}, fmt.Errorf("protocol: unknown inspect command %q in line %q", fields[0], line)
	}
}
