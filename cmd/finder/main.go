package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yashypsoft/gold-deal-finder/internal/app"
	"github.com/yashypsoft/gold-deal-finder/internal/config"
	"github.com/yashypsoft/gold-deal-finder/internal/observability"
	"github.com/yashypsoft/gold-deal-finder/internal/utils"
)

func main() {
	cfgPath := flag.String("config", config.DefaultConfigPath(), "path to config.json")
	once := flag.Bool("once", false, "run a single scan and exit")
	testRun := flag.Bool("test-run", false, "verify connectivity and send a test alert, then exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("Shutting down...")
		cancel()
	}()

	if *testRun {
		runTest(ctx, a)
		return
	}

	observability.Start(cfg.MetricsPort)

	if *once {
		if _, err := a.Pipeline.Run(ctx); err != nil {
			log.Fatalf("scan error: %v", err)
		}
		return
	}

	interval := time.Duration(cfg.ScanIntervalMinutes) * time.Minute
	log.Printf("[finder] scanning every %s", interval)

	if _, err := a.Pipeline.Run(ctx); err != nil {
		log.Printf("[finder] scan error: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Pipeline.Run(ctx); err != nil {
				log.Printf("[finder] scan error: %v", err)
			}
		}
	}
}

// runTest exercises the spot sources and the Telegram channel without
// touching the scan history.
func runTest(ctx context.Context, a *app.App) {
	snap := a.Spot.Get(ctx, true)
	log.Printf("[finder] spot %s: 999 landed %s/g (source %s)",
		utils.FormatClock(snap.Timestamp.In(utils.ISTLoc())),
		utils.FormatINR(snap.LandedPerGram, 2), snap.Source)

	if a.Notifier == nil {
		log.Printf("[finder] telegram disabled, skipping test alert")
		return
	}
	if err := a.Notifier.SendPriceSummary(snap); err != nil {
		log.Fatalf("test alert error: %v", err)
	}
	log.Printf("[finder] test alert sent")
}
