package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cadencejames/pingtimes/internal/catalog"
	"github.com/cadencejames/pingtimes/internal/collector"
	"github.com/cadencejames/pingtimes/internal/config"
	"github.com/cadencejames/pingtimes/internal/credentials"
	"github.com/cadencejames/pingtimes/internal/export"
	"github.com/cadencejames/pingtimes/internal/history"
	"github.com/cadencejames/pingtimes/internal/probe"
	"github.com/cadencejames/pingtimes/internal/report"
	"github.com/cadencejames/pingtimes/internal/runlog"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to configuration file (YAML)")
		dateFlag   = flag.String("date", "", "override the run date (YYYY-MM-DD), defaults to today")
	)
	flag.Parse()

	start := time.Now()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	runDate := time.Now()
	if *dateFlag != "" {
		runDate, err = time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			log.Fatalf("parse -date: %v", err)
		}
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}
	log.Printf("Loaded %d target(s) from %s", cat.Len(), cfg.CatalogFile)

	creds, ok := credentials.FromEnv()
	if !ok {
		creds = &credentials.Terminal{}
	}

	factory := &probe.Factory{
		Dialer: &probe.SSHDialer{Timeout: time.Duration(cfg.Probe.ConnectTimeoutSeconds) * time.Second},
		Count:  cfg.Probe.Count,
	}
	col := collector.New(factory, creds, cfg.VantagePoints, cat.Targets())
	col.ProbeTimeout = time.Duration(cfg.Probe.TimeoutSeconds) * time.Second
	col.AttemptCount = cfg.Probe.Count

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Gathering ping times from %d vantage point(s)...", len(cfg.VantagePoints))
	run, summaries, err := col.Collect(ctx)
	if err != nil {
		log.Fatalf("collection aborted: %v", err)
	}
	for _, s := range summaries {
		if s.ConnectionFailed {
			log.Printf("vantage %s: connection failed, %d target(s) recorded down", s.Vantage, s.Down)
			continue
		}
		log.Printf("vantage %s: %d up, %d down", s.Vantage, s.Up, s.Down)
	}

	if err := report.Write(cfg.ResultsFile, run, cat.Targets()); err != nil {
		log.Fatalf("write results: %v", err)
	}
	log.Printf("Results saved to %s", cfg.ResultsFile)

	table, err := history.Load(cfg.HistoryFile)
	if err != nil {
		log.Fatalf("load history: %v", err)
	}
	table.Aggregate(run, cat.Targets(), runDate)
	if err := table.Save(cfg.HistoryFile); err != nil {
		log.Fatalf("save history: %v", err)
	}
	log.Printf("History updated in %s (%d date column(s))", cfg.HistoryFile, len(table.Dates))

	payload := export.Build(table, cfg.ExportWindow, cfg.SkipSites)
	if err := export.Write(cfg.ExportFile, payload); err != nil {
		log.Fatalf("write export: %v", err)
	}
	log.Printf("Export written to %s", cfg.ExportFile)

	if cfg.RunLogFile != "" {
		rl, err := runlog.Open(cfg.RunLogFile)
		if err != nil {
			log.Fatalf("open run log: %v", err)
		}
		if err := rl.Record(run); err != nil {
			rl.Close()
			log.Fatalf("record run log: %v", err)
		}
		rl.Close()
	}

	log.Printf("Run finished in %s", time.Since(start).Round(time.Millisecond))
}
