package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaolamthuy/glt-backend/config"
	"github.com/gaolamthuy/glt-backend/kiotviet"
	"github.com/gaolamthuy/glt-backend/kvsync"
	"github.com/gaolamthuy/glt-backend/models"
	"github.com/gaolamthuy/glt-backend/utils"
)

func main() {
	entityFlag := flag.String("entity", "", "entity to sync: products, customers, invoices, inventories, purchaseorders")
	fromFlag := flag.String("from", "", "window start, dd/mm/yyyy")
	toFlag := flag.String("to", "", "window end, dd/mm/yyyy")
	historical := flag.Bool("historical", false, "backfill in sliding windows down to the earliest date")
	windowMonths := flag.Int("window-months", 3, "historical window length in months")
	earliestFlag := flag.String("earliest", "", "historical floor, dd/mm/yyyy (default from KIOTVIET_EARLIEST_DATE)")
	inspectToken := flag.Bool("inspect-token", false, "report stored token validity and exit")
	migrate := flag.Bool("migrate", false, "run schema migrations before syncing")
	flag.Parse()

	logger := config.GetLogger()
	cfg, err := config.LoadKiotvietConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if *migrate {
		models.MigrateTable()
	}

	store := kiotviet.NewDBTokenStore(db)
	client := kiotviet.NewClient(cfg, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *inspectToken {
		cred, valid, err := client.Tokens().Inspect(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "token inspect:", err)
			os.Exit(1)
		}
		if cred == nil {
			fmt.Println("no stored credential")
			os.Exit(1)
		}
		if cred.ExpiresAt.IsZero() {
			fmt.Println("stored credential has no expiry (legacy shape)")
		} else {
			fmt.Printf("stored credential expires at %s\n", cred.ExpiresAt.Format(time.RFC3339))
		}
		if !valid {
			fmt.Println("credential is not usable, next sync will refresh it")
			os.Exit(1)
		}
		fmt.Println("credential is usable")
		return
	}

	if *entityFlag == "" {
		fmt.Fprintln(os.Stderr, "missing -entity")
		flag.Usage()
		os.Exit(1)
	}
	entity, err := kvsync.ParseEntity(*entityFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := kvsync.RunOptions{
		Entity:       entity,
		Historical:   *historical,
		WindowMonths: *windowMonths,
		Earliest:     cfg.EarliestDate,
		TriggeredBy:  models.SyncTriggeredManual,
	}
	if *fromFlag != "" {
		t, err := utils.ParseDMY(*fromFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, "-from:", err)
			os.Exit(1)
		}
		opts.From = &t
	}
	if *toFlag != "" {
		t, err := utils.ParseDMY(*toFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, "-to:", err)
			os.Exit(1)
		}
		opts.To = &t
	}
	if *earliestFlag != "" {
		t, err := utils.ParseDMY(*earliestFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, "-earliest:", err)
			os.Exit(1)
		}
		opts.Earliest = t
	}
	if *historical && !entity.DateRanged() {
		fmt.Fprintln(os.Stderr, "-historical only applies to invoices and purchaseorders")
		os.Exit(1)
	}

	orchestrator := kvsync.NewOrchestrator(
		kvsync.NewFetcher(client),
		kvsync.DBSinkFactory(db),
		db,
		logger,
	)

	summary, _ := orchestrator.Run(ctx, opts)
	fmt.Printf("%s: %s, %d pages, %d attempted, %d upserted, %d failed in %s\n",
		summary.Entity, summary.Status, summary.PagesFetched,
		summary.RecordsAttempted, summary.RecordsUpserted, summary.RecordsFailed,
		summary.Elapsed.Round(time.Millisecond))
	if summary.FatalError != "" {
		fmt.Fprintln(os.Stderr, summary.FatalError)
	}
	for _, sample := range summary.ErrorSamples {
		fmt.Fprintf(os.Stderr, "  %s %d: %s (%s)\n", sample.Entity, sample.KiotvietID, sample.Message, sample.Code)
	}
	os.Exit(summary.ExitCode())
}
