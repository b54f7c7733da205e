// Package replay applies a file of order-entry protocol lines to a
// matching engine synchronously, in order, then reports per-symbol
// top-of-book and statistics at EOF. It is an external collaborator:
// it carries no matching logic, only I/O and event dispatch.
package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/yunhan842/matchcore/internal/engine"
	"github.com/yunhan842/matchcore/internal/protocol"
)

// Summary is one symbol's end-of-replay report.
type Summary struct {
	Symbol string
	engine.TopOfBook
	Stats engine.BookStats
}

// Run reads lines from path, applies each to eng via Process, and
// returns a Summary per symbol seen, in first-seen order. Malformed
// lines are logged at warn level and skipped without side effects.
func Run(path string, eng *engine.MatchingEngine, log zerolog.Logger) ([]Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: cannot open %s: %w", path, err)
	}
	defer f.Close()

	if err := Apply(f, eng, log); err != nil {
		return nil, err
	}
	return Report(eng), nil
}

// Apply reads lines from r and applies each to eng via Process.
// Malformed lines are logged and skipped; io errors from the scanner
// itself are returned.
func Apply(r io.Reader, eng *engine.MatchingEngine, log zerolog.Logger) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		ev, err := protocol.ParseLine(line)
		if err != nil {
			if errors.Is(err, protocol.ErrBlankLine) {
				continue
			}
			log.Warn().Err(err).Int("line", lineNo).Msg("replay: skipping invalid line")
			continue
		}
		eng.Process(ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("replay: read error: %w", err)
	}
	return nil
}

// Report builds one Summary per symbol eng has seen, in first-seen
// order.
func Report(eng *engine.MatchingEngine) []Summary {
	symbols := eng.KnownSymbols()
	out := make([]Summary, 0, len(symbols))
	for _, sym := range symbols {
		stats, _ := eng.BookStats(sym)
		out = append(out, Summary{
			Symbol:    sym,
			TopOfBook: eng.TopOfBook(sym),
			Stats:     stats,
		})
	}
	return out
}
