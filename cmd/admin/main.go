package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tern/internal/domain/account"
	"tern/internal/domain/sync"
	"tern/internal/domain/syncstate"
	"tern/internal/infrastructure/aggregator"
	"tern/internal/infrastructure/crypto"
	"tern/internal/infrastructure/postgres"
	"tern/internal/shared/config"
)

const usage = `Tern Admin CLI - Management commands for the Tern API

Usage:
  admin <command> [options]

Commands:
  sync     Run a connection sync from the command line
  status   Show per-account sync states for a connection

Examples:
  # Sync one connection
  admin sync --connection-id=abc123

  # Sync every syncable connection in the configured environment
  admin sync --all

  # Sync with a custom timeout
  admin sync --connection-id=abc123 --timeout=5m

  # Show sync states
  admin status --connection-id=abc123`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "sync":
		runSync(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		fmt.Println(usage)
		os.Exit(1)
	}
}

// adminDeps is the subset of the application wired for CLI runs. No
// notifications and no categorization trigger: CLI syncs are operator
// actions, not user-facing ones.
type adminDeps struct {
	db     *postgres.DB
	states *postgres.SyncStateRepository
	conns  *postgres.ConnectionRepository
	syncer *sync.ConnectionSyncer
	driver *sync.BatchDriver
	env    string
}

func newAdminDeps(cfg *config.Config) (*adminDeps, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	connectionRepo := postgres.NewConnectionRepository(db, encryptor)
	accountRepo := postgres.NewAccountRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)
	syncStateRepo := postgres.NewSyncStateRepository(db)

	client := aggregator.NewClient(cfg.Aggregator.Environment)
	directory := account.NewService(accountRepo)
	transactions := sync.NewTransactionSyncService(client, directory, transactionRepo, syncStateRepo, accountRepo, nil)
	investments := sync.NewInvestmentSyncService(client, directory, holdingRepo, syncStateRepo)
	syncer := sync.NewConnectionSyncer(transactions, investments, connectionRepo, nil)

	return &adminDeps{
		db:     db,
		states: syncStateRepo,
		conns:  connectionRepo,
		syncer: syncer,
		driver: sync.NewBatchDriver(connectionRepo, syncer),
		env:    cfg.Aggregator.Environment,
	}, nil
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	connectionID := fs.String("connection-id", "", "Connection ID to sync")
	all := fs.Bool("all", false, "Sync every syncable connection in the configured environment")
	timeoutStr := fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)")

	fs.Usage = func() {
		fmt.Println("Usage: admin sync [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  admin sync --connection-id=abc123")
		fmt.Println("  admin sync --all --timeout=1h")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *connectionID == "" && !*all {
		fmt.Println("Error: must specify --connection-id or --all")
		fs.Usage()
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	deps, err := newAdminDeps(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer deps.db.Close()
	log.Println("Connected to database")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	startTime := time.Now()

	if *all {
		result, err := deps.driver.Run(ctx, deps.env)
		if err != nil {
			log.Fatalf("Batch sync failed: %v", err)
		}
		printBatchResult(result)
	} else {
		if err := deps.syncer.SyncByID(ctx, *connectionID); err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
		fmt.Printf("Connection %s synced\n", *connectionID)
	}

	log.Printf("Sync completed in %v", time.Since(startTime))
}

func printBatchResult(result *sync.BatchResult) {
	fmt.Printf("\n=== Batch (%s) ===\n", result.Environment)
	fmt.Printf("  Attempted: %d\n", result.Attempted)
	fmt.Printf("  Succeeded: %d\n", result.Succeeded)
	fmt.Printf("  Failed:    %d\n", result.Failed)
	fmt.Printf("  Skipped:   %d\n", result.Skipped)

	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:    %d\n", len(result.Errors))
		for i, e := range result.Errors {
			if i >= 5 {
				fmt.Printf("    ... and %d more errors\n", len(result.Errors)-5)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)

	connectionID := fs.String("connection-id", "", "Connection ID to inspect")

	fs.Usage = func() {
		fmt.Println("Usage: admin status --connection-id=<id>")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *connectionID == "" {
		fmt.Println("Error: must specify --connection-id")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	deps, err := newAdminDeps(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer deps.db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := deps.conns.GetByID(ctx, *connectionID)
	if err != nil {
		log.Fatalf("Failed to load connection: %v", err)
	}
	if conn == nil {
		log.Fatalf("Connection %s not found", *connectionID)
	}

	states, err := deps.states.ListByConnectionID(ctx, *connectionID)
	if err != nil {
		log.Fatalf("Failed to list sync states: %v", err)
	}

	fmt.Printf("\n=== Connection %s (%s, %s) ===\n", conn.ID, conn.InstitutionName, conn.Status)
	if len(states) == 0 {
		fmt.Println("  No sync states yet")
		return
	}
	for _, s := range states {
		fmt.Printf("  %s/%s: %s  synced=%d%s\n",
			s.AccountID, s.Domain, s.Status, s.TotalSynced, formatStateDetails(s))
	}
}

func formatStateDetails(s *syncstate.SyncState) string {
	var parts []string
	if s.Cursor != nil {
		parts = append(parts, "cursor="+*s.Cursor)
	}
	if s.LastSyncedAt != nil {
		parts = append(parts, "last="+s.LastSyncedAt.Format(time.RFC3339))
	}
	if s.ErrorMessage != nil {
		parts = append(parts, "error="+*s.ErrorMessage)
	}
	if len(parts) == 0 {
		return ""
	}
	return "  (" + strings.Join(parts, " ") + ")"
}
