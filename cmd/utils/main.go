package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/pos/cmd/utils/internal/commands"
)

const (
	appName    = "pos-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	config, err := aqm.LoadConfig("UTILS", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel := config.GetStringOrDef("log.level", "info")
	logger := aqm.NewLogger(logLevel)

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "audit-stats":
		if err := commands.AuditStats(ctx, config, logger, os.Stdout); err != nil {
			log.Fatalf("Audit stats failed: %v", err)
		}

	case "purge-audit":
		if err := commands.PurgeAudit(ctx, config, logger); err != nil {
			log.Fatalf("Audit purge failed: %v", err)
		}
		logger.Info("Audit purge completed")

	case "reset-db":
		if err := commands.ResetDB(ctx, config, logger); err != nil {
			log.Fatalf("Database reset failed: %v", err)
		}
		logger.Info("Database reset completed")

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - POS terminal maintenance commands

Usage:
  %s <command> [options]

Commands:
  audit-stats   Print checkout submissions per outcome
  purge-audit   Delete audit entries older than the retention window
  reset-db      Drop the terminal database (USE WITH CAUTION)
  version       Print version information
  help          Show this help message

Environment Variables:
  UTILS_MONGO_URL         MongoDB connection URL (default: mongodb://localhost:27017)
  UTILS_MONGO_NAME        Terminal database name (default: pos_terminal)
  UTILS_AUDIT_RETENTION   Retention window for purge-audit (default: 720h)
  UTILS_LOG_LEVEL         Log level: debug, info, warn, error (default: info)

Examples:
  %s audit-stats
  UTILS_AUDIT_RETENTION=168h %s purge-audit

`, appName, appName, appName, appName)
}
