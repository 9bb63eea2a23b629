package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "run-once":
		err = cmdRunOnce(ctx, args, false)
	case "dry-run":
		err = cmdRunOnce(ctx, args, true)
	case "followups-only":
		err = cmdFollowupsOnly(ctx, args)
	case "run-scheduled":
		err = cmdRunScheduled(ctx, args)
	case "stats":
		err = cmdStats(ctx, args)
	case "mark-replied":
		err = cmdMarkReplied(ctx, args)
	case "serve":
		err = cmdServe(ctx, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`outreach - rate-limited outreach ledger and scheduler

Usage:
  outreach <command> [flags]

Commands:
  run-once         execute one scheduler pass over the target feed now
  run-scheduled    trigger a full daily pass (feed + follow-up sweep) at the
                   configured hour, until terminated
  dry-run          full decision pipeline, nothing dispatched or recorded
  followups-only   execute only the follow-up sweep
  stats            print cumulative ledger counters
  mark-replied <address>
                   record a reply; the contact is never contacted again
  serve            start the stats and reply-webhook HTTP server

Flags (all commands):
  -config <path>   configuration file (default config.yaml)`)
}
