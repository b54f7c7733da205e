package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/yunhan842/matchcore/internal/engine"
	"github.com/yunhan842/matchcore/internal/replay"
	"github.com/yunhan842/matchcore/internal/repl"
)

func main() {
	replayPath := flag.String("replay", "", "path to a file of order-entry protocol lines to apply, then exit")
	interactive := flag.Bool("repl", false, "start an interactive console on stdin/stdout after any -replay file")
	logLevel := flag.String("log-level", "info", "zerolog level: debug, info, warn, error")
	maxPosition := flag.Int64("max-position", 0, "enable the position/risk layer with this max absolute position (0 disables it)")
	queueCapacity := flag.Int("queue-capacity", engine.DefaultQueueCapacity, "async front-end queue capacity")
	async := flag.Bool("async", false, "submit through the async SPSC front-end instead of calling the engine directly")
	flag.Parse()

	log := newLogger(*logLevel)
	log.Info().Msg("matchcore: starting")

	eng := engine.NewMatchingEngine(func(t engine.Trade) {
		log.Info().
			Str("symbol", t.SymbolName).
			Int64("price", t.Price).
			Int64("qty", t.Qty).
			Uint64("buy_order", t.BuyOrderID).
			Uint64("sell_order", t.SellOrderID).
			Msg("trade")
	})
	if *maxPosition > 0 {
		eng.WithPositionTracker(engine.NewPositionTracker(*maxPosition))
		log.Info().Int64("max_position", *maxPosition).Msg("matchcore: position/risk layer enabled")
	}

	var asyncEng *engine.AsyncEngine
	if *async {
		asyncEng = engine.NewAsyncEngine(eng, *queueCapacity)
		log.Info().Int("queue_capacity", *queueCapacity).Msg("matchcore: async front-end enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("matchcore: received shutdown signal")
		cancel()
	}()

	if *replayPath != "" {
		// Replay always applies synchronously against the engine,
		// even in -async mode: it is a deterministic batch load, not
		// a concurrent producer, so there is nothing to gain from the
		// queue and every line should land before the summary prints.
		summaries, err := replay.Run(*replayPath, eng, log)
		if err != nil {
			log.Error().Err(err).Str("path", *replayPath).Msg("matchcore: replay failed")
			os.Exit(1)
		}
		for _, s := range summaries {
			fmt.Printf("%s: bid=%v(%d) ask=%v(%d) trades=%d volume=%d\n",
				s.Symbol, topPrice(s.HasBid, s.BestBid), s.BidSize,
				topPrice(s.HasAsk, s.BestAsk), s.AskSize,
				s.Stats.TradeCount, s.Stats.TradedQty)
		}
	}

	if *interactive {
		// The REPL always calls the engine directly: a human typing
		// commands is not the kind of single hot-path producer the
		// async front-end exists for, so -async only affects whether
		// a future programmatic producer could attach to the queue.
		console := repl.New(eng, os.Stdin, os.Stdout, log)
		if err := console.Run(); err != nil {
			log.Error().Err(err).Msg("matchcore: repl read error")
		}
	}

	if *replayPath == "" && !*interactive {
		// Neither a batch job nor a console: stay up as an idle async
		// service, driven only by whatever calls Submit out-of-process
		// in a future integration, until a shutdown signal arrives.
		log.Info().Msg("matchcore: idling, waiting for shutdown signal")
		<-ctx.Done()
	}

	if asyncEng != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		stopped := make(chan struct{})
		go func() {
			asyncEng.Stop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			log.Warn().Msg("matchcore: async front-end did not drain before shutdown timeout")
		}
	}

	log.Info().Msg("matchcore: goodbye")
}

func newLogger(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	return logger.Level(parsed)
}

func topPrice(has bool, price int64) any {
	if !has {
		return "none"
	}
	return price
}
