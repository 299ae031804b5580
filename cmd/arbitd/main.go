// Command arbitd is the entry point for the arbitrage engine: load
// config, build the orchestrator, start it, and run a thin stdin
// command loop alongside the shutdown-signal wait.
//
// Architecture:
//
//	main.go                     — entry point: loads config, starts the orchestrator, runs the CLI loop
//	internal/orchestrator       — wires graph/markets/adapters/scanner/executor together
//	internal/graph              — currency vertices, markets as edges, path enumeration
//	internal/scanner            — scan queue consumer, admission gate, best-candidate selection
//	internal/executor           — chain partitioning and dispatch of admitted sequences
//	internal/adapter/rest       — reference REST+WebSocket exchange adapter
//	internal/journal/filejournal — append-only audit log of transfers and admitted sequences
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"arbitd/internal/config"
	"arbitd/internal/orchestrator"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("ARBITD_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	orch, err := orchestrator.New(cfg, logger)
	if err != nil {
		logger.Error("failed to build orchestrator", "error", err)
		os.Exit(1)
	}

	if os.Getenv("TRADING") == "1" {
		orch.SetTradingEnabled(true)
	}

	if err := orch.Start(context.Background()); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}
	logger.Info("arbitd started",
		"exchanges", len(cfg.Exchanges),
		"base_currency", cfg.BaseCurrency,
		"dry_run", cfg.DryRun,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	cliDone := make(chan struct{})
	go runCLI(orch, logger, cliDone)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-cliDone:
		logger.Info("exit requested from CLI")
	}

	if err := orch.Stop(); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}

// runCLI implements the thin interactive command surface: exit, show,
// order, activate, balances. It is external to the core per spec.md §1
// and is intentionally minimal — a convenience for operators attached
// to a terminal, not a scriptable API.
func runCLI(orch *orchestrator.Orchestrator, logger *slog.Logger, done chan<- struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "exit":
			close(done)
			return
		case "activate":
			orch.SetTradingEnabled(true)
			fmt.Println("trading activated")
		case "balances":
			for key, bal := range orch.Balances() {
				fmt.Printf("%s: %s\n", key, bal.String())
			}
		case "show":
			fmt.Printf("trading_enabled=%v\n", orch.IsTradingEnabled())
		case "order":
			fmt.Println("manual order submission is not supported by this CLI")
		default:
			logger.Warn("unrecognized command", "command", fields[0])
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
