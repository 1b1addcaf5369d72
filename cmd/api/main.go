package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yashypsoft/gold-deal-finder/internal/api"
	"github.com/yashypsoft/gold-deal-finder/internal/app"
	"github.com/yashypsoft/gold-deal-finder/internal/config"
)

func main() {
	cfgPath := flag.String("config", config.DefaultConfigPath(), "path to config.json")
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

	srv := api.NewServer(a.Store, a.Spot, a)
	if err := srv.ListenAndServe(ctx, cfg.APIPort); err != nil {
		log.Fatalf("api error: %v", err)
	}
}
