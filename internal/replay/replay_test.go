package replay

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yunhan842/matchcore/internal/engine"
)

func TestApplySimpleCrossAndSummary(t *testing.T) {
	input := strings.Join([]string{
		"# comment lines and blanks are ignored",
		"",
		"L,FOO,S,100,50,GFD",
		"L,FOO,S,100,60,GFD",
		"L,FOO,B,100,80,GFD",
	}, "\n")

	eng := engine.NewMatchingEngine(nil)
	err := Apply(strings.NewReader(input), eng, zerolog.Nop())
	require.NoError(t, err)

	summaries := Report(eng)
	require.Len(t, summaries, 1)
	s := summaries[0]
	require.Equal(t, "FOO", s.Symbol)
	require.False(t, s.HasBid)
	require.True(t, s.HasAsk)
	require.Equal(t, int64(30), s.AskSize)
	require.Equal(t, uint64(2), s.Stats.TradeCount)
	require.Equal(t, int64(80), s.Stats.TradedQty)
	require.Equal(t, int64(100), s.Stats.LastTradePrice)
}

func TestApplySkipsInvalidLinesWithoutSideEffects(t *testing.T) {
	input := strings.Join([]string{
		"L,FOO,Z,100,50,GFD", // bad side, rejected
		"L,FOO,B,100,50,GFD",
	}, "\n")

	eng := engine.NewMatchingEngine(nil)
	err := Apply(strings.NewReader(input), eng, zerolog.Nop())
	require.NoError(t, err)

	tob := eng.TopOfBook("FOO")
	require.True(t, tob.HasBid)
	require.Equal(t, int64(50), tob.BidSize)
}

func TestRunReportsOpenError(t *testing.T) {
	eng := engine.NewMatchingEngine(nil)
	_, err := Run("/nonexistent/path/does/not/exist.txt", eng, zerolog.Nop())
	require.Error(t, err)
}
