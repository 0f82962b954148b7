// Stratbot - Single-position spot trading bot
//
// Manages the lifecycle of one position against Binance spot: entry sizing
// from free capital and the order book, market entry with fill validation
// against trade history, an attached stop-loss order, and a clean exit.
//
// Usage:
//
//	stratbot status        show the current position
//	stratbot open          open a long position
//	stratbot exit          close the position
//	stratbot stop <price>  cancel/replace the stop order
//	stratbot watch         stream prices and serve Telegram status
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/stratbot/bot"
	"github.com/web3guy0/stratbot/exchange/binance"
	"github.com/web3guy0/stratbot/feeds"
	"github.com/web3guy0/stratbot/internal/config"
	"github.com/web3guy0/stratbot/position"
	"github.com/web3guy0/stratbot/storage"
)

const version = "1.2.0"

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: stratbot <status|open|exit|stop <price>|watch>")
	}
	command := os.Args[1]

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Str("symbol", cfg.Symbol()).
		Bool("trading", cfg.Trading).
		Msg("⚡ Stratbot starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	client := newExchangeClient(cfg)

	// Optional EMA-anchored stop fed by the live price stream; the percent
	// stop needs no market data.
	var stream *feeds.PriceStream
	var calculator position.StopPriceCalculator
	if cfg.UseEMAStop {
		tracker, err := feeds.NewEMATracker(cfg.EMAPeriod, cfg.EMAHistory)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build EMA tracker")
		}
		calculator, err = position.NewEMAStop(tracker.Series(), cfg.EMAMaxLoss)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build EMA stop")
		}
		stream = feeds.NewPriceStream(cfg.Symbol())
		stream.AttachTracker(tracker)
		if err := stream.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start price stream")
		}
		defer stream.Stop()
	} else if !cfg.DisableStopLoss {
		calculator, err = position.NewPercentStop(cfg.StopLossPct)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build percent stop")
		}
	}

	mgr, err := position.NewManager(client, position.Config{
		LongSymbol:         cfg.LongSymbol,
		ShortSymbol:        cfg.ShortSymbol,
		MaxUSDPosition:     cfg.MaxUSDPosition,
		GainTargetPct:      cfg.GainTargetPct,
		StopCalculator:     calculator,
		DisableStopLoss:    cfg.DisableStopLoss,
		Trading:            cfg.Trading,
		OrderBookLevels:    cfg.OrderBookLevels,
		TradeCheckInterval: cfg.TradeCheckInterval,
		MaxTradeChecks:     cfg.MaxTradeChecks,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build position manager")
	}

	var notifier *bot.Notifier
	if cfg.TelegramToken != "" {
		notifier, err = bot.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, mgr)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram disabled")
		}
	}

	mgr.SetFillCallback(func(fill position.Fill) {
		journalFill(db, mgr, fill)
		if notifier != nil {
			notifier.NotifyFill(fill)
		}
	})

	switch command {
	case "status":
		runStatus(ctx, mgr)
	case "open":
		if err := mgr.OpenLong(ctx); err != nil {
			reportLifecycleError(notifier, err)
		}
	case "exit":
		if err := mgr.Exit(ctx); err != nil {
			reportLifecycleError(notifier, err)
		}
	case "stop":
		if len(os.Args) < 3 {
			log.Fatal().Msg("usage: stratbot stop <price>")
		}
		price, err := decimal.NewFromString(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid stop price")
		}
		if err := mgr.UpdateStopPrice(ctx, price); err != nil {
			reportLifecycleError(notifier, err)
		}
		if err := db.UpdateStopPrice(cfg.Symbol(), price); err != nil {
			log.Error().Err(err).Msg("Failed to journal stop update")
		}
	case "watch":
		runWatch(ctx, cancel, cfg, mgr, stream, notifier)
	default:
		log.Fatal().Str("command", command).Msg("Unknown command")
	}
}

func newExchangeClient(cfg *config.Config) *binance.Client {
	if cfg.BinanceBaseURL != "" {
		return binance.NewWithBaseURL(cfg.BinanceAPIKey, cfg.BinanceSecretKey, cfg.BinanceBaseURL)
	}
	return binance.New(cfg.BinanceAPIKey, cfg.BinanceSecretKey)
}

func journalFill(db *storage.Database, mgr *position.Manager, fill position.Fill) {
	if err := db.LogTrade(fill.Symbol, string(fill.Side), fill.Price, fill.Quantity, fill.Paper, fill.Time); err != nil {
		return
	}
	if fill.Side == "BUY" {
		pos := mgr.Snapshot()
		if err := db.OpenPosition(fill.Symbol, fill.Price, fill.Quantity, pos.StopPrice, pos.GainTargetPrice, fill.Time); err != nil {
			log.Error().Err(err).Msg("Failed to journal opened position")
		}
		return
	}
	if err := db.ClosePosition(fill.Symbol, fill.Price, fill.Time); err != nil {
		log.Error().Err(err).Msg("Failed to journal closed position")
	}
}

// reportLifecycleError logs the outcome and escalates the unprotected
// condition to Telegram; everything else is an ordinary failure.
func reportLifecycleError(notifier *bot.Notifier, err error) {
	if errors.Is(err, position.ErrUnprotectedPosition) {
		log.Error().Err(err).Msg("🚨 Position left unprotected")
		if notifier != nil {
			notifier.NotifyUnprotected(err)
		}
		os.Exit(2)
	}
	log.Fatal().Err(err).Msg("Operation failed")
}

func runStatus(ctx context.Context, mgr *position.Manager) {
	pos := mgr.Snapshot()
	free, err := mgr.FetchFreeCapital(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not fetch free capital")
	}

	ev := log.Info().
		Str("direction", pos.Direction.String()).
		Str("free_capital", free.String())
	if pos.Direction == position.DirectionLong {
		ev = ev.
			Str("entry_price", pos.EntryPrice.String()).
			Str("quantity", pos.Quantity.String()).
			Str("stop_price", pos.StopPrice.String()).
			Str("gain_target", pos.GainTargetPrice.String())
	}
	ev.Msg("📊 Position status")
}

func runWatch(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, mgr *position.Manager, stream *feeds.PriceStream, notifier *bot.Notifier) {
	if stream == nil {
		stream = feeds.NewPriceStream(cfg.Symbol())
		if err := stream.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start price stream")
		}
		defer stream.Stop()
	}
	if notifier != nil {
		notifier.Start()
		defer notifier.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	log.Info().Msg("👀 Watching (ctrl-c to stop)")
	for {
		select {
		case <-ticker.C:
			price, ok := stream.LastPrice()
			if !ok {
				continue
			}
			ev := log.Info().Str("last_price", price.String())
			if target, ok := mgr.GainTargetPrice(); ok && price.GreaterThanOrEqual(target) {
				ev = ev.Str("gain_target", target.String()).Bool("target_reached", true)
			}
			ev.Msg("Tick")
		case <-sigCh:
			log.Info().Msg("Shutting down")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
