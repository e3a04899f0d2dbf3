package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/brojonat/hopscotch/service/engine"
	"github.com/brojonat/hopscotch/service/jupiter"
	solanasvc "github.com/brojonat/hopscotch/service/solana"
	"github.com/brojonat/hopscotch/service/token"
	"github.com/brojonat/hopscotch/service/trade"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func tradesCommand() *cli.Command {
	return &cli.Command{
		Name:      "trades",
		Usage:     "Retrieve a wallet's swap trade history as JSON lines",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   1000,
				Usage:   "Maximum number of signatures to consider",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Value: 100,
				Usage: "Transactions fetched per batch",
			},
			&cli.StringFlag{
				Name:  "until",
				Usage: "Only consider signatures older than this one (resume cursor)",
			},
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "jq expression applied to each trade before printing",
			},
			&cli.BoolFlag{
				Name:  "summary",
				Usage: "Print the completion summary as a final JSON line",
			},
		},
		Action: runTrades,
	}
}

func runTrades(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("wallet address is required")
	}
	wallet := c.Args().Get(0)
	logger := setupLogger(c.String("log-level"))

	var filter *gojq.Code
	if expr := c.String("filter"); expr != "" {
		query, err := gojq.Parse(expr)
		if err != nil {
			return fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
		}
		filter, err = gojq.Compile(query)
		if err != nil {
			return fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
		}
	}

	rpcClient := solanasvc.NewRPCClient(c.String("rpc-url"))
	solanaClient := solanasvc.NewClient(rpcClient, nil, logger)
	metadataSource := solanasvc.NewMetadataSource(rpcClient, nil, logger)

	cache, err := token.NewCache(10000)
	if err != nil {
		return fmt.Errorf("failed to create token cache: %w", err)
	}
	// No persistent store in one-shot mode; cache and chain only.
	resolver := token.NewResolver(cache, nil, solanaClient, metadataSource, nil, logger)

	sink := engine.NewChannelSink(64)
	eng := engine.NewEngine(
		solanaClient,
		resolver,
		[]trade.Interpreter{jupiter.NewParser(jupiter.ProgramID, logger)},
		trade.NewFormatter(logger),
		sink,
		engine.Params{
			BatchSize: c.Int("batch-size"),
			Limit:     c.Int("limit"),
			Until:     c.String("until"),
		},
		nil,
		logger,
	)

	ctx := c.Context
	runErr := make(chan error, 1)
	go func() {
		_, err := eng.GetTradeHistory(ctx, wallet)
		runErr <- err
		sink.Close()
	}()

	out := json.NewEncoder(os.Stdout)
	for event := range sink.Events() {
		switch event.Type {
		case engine.EventTypeTrade:
			if err := printTrade(out, event.Trade, filter); err != nil {
				return err
			}
		case engine.EventTypeError:
			logger.Warn("trade dropped", "signature", event.Signature, "error", event.Err)
		case engine.EventTypeComplete:
			if c.Bool("summary") {
				if err := out.Encode(event.Summary); err != nil {
					return err
				}
			}
		}
	}

	return <-runErr
}

// printTrade writes one trade as a JSON line, optionally passed through
// the jq filter first. A filter that yields no results drops the trade.
func printTrade(out *json.Encoder, t *trade.FormattedTrade, filter *gojq.Code) error {
	if filter == nil {
		return out.Encode(t)
	}

	// gojq operates on plain interface{} values.
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal trade: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to unmarshal trade: %w", err)
	}

	iter := filter.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq filter error on trade %s: %w", t.Signature, err)
		}
		if err := out.Encode(v); err != nil {
			return err
		}
	}
}

func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
