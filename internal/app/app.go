package app

import (
	"context"
	"log"
	"time"

	"github.com/yashypsoft/gold-deal-finder/internal/config"
	"github.com/yashypsoft/gold-deal-finder/internal/deals"
	"github.com/yashypsoft/gold-deal-finder/internal/listing"
	"github.com/yashypsoft/gold-deal-finder/internal/notify"
	"github.com/yashypsoft/gold-deal-finder/internal/pricing"
	"github.com/yashypsoft/gold-deal-finder/internal/scan"
	"github.com/yashypsoft/gold-deal-finder/internal/scrape"
	"github.com/yashypsoft/gold-deal-finder/internal/spot"
	"github.com/yashypsoft/gold-deal-finder/internal/store"
)

// App owns every long-lived component of the deal finder. Construct it once
// per process and Close it on shutdown.
type App struct {
	Cfg      config.Config
	Spot     *spot.Cache
	Calc     *pricing.Calculator
	Store    *store.Store
	Pipeline *scan.Pipeline
	Notifier *notify.Telegram
}

func New(cfg config.Config) (*App, error) {
	cache := spot.NewCache(spot.CacheConfig{
		Path:    cfg.CachePath(),
		Sources: spot.Sources(cfg.MetalPriceAPIKey, cfg.GoldAPIToken),
		TTL:     time.Duration(cfg.CacheTTLSeconds) * time.Second,
	})

	pricingPolicy := pricing.DefaultPolicy()
	if cfg.MakingCharges != nil {
		pricingPolicy.MakingCharges = cfg.MakingCharges
	}
	pricingPolicy.GSTPercent = cfg.GSTPercent
	pricingPolicy.JewelleryPremium10g = cfg.JewelleryPremium10g
	pricingPolicy.DiscountFloor = cfg.DiscountFloor
	calc := pricing.NewCalculator(cache, pricingPolicy)

	dealPolicy := deals.Policy{
		MinDiscountPercent:     cfg.MinDiscountPercent,
		MinWeightGrams:         cfg.MinWeightGrams,
		PriceFloor:             cfg.PriceFloor,
		MaxPricePerGram:        purityCaps(cfg.MaxPricePerGram),
		DefaultMaxPricePerGram: cfg.MaxPricePerGram["default"],
		MaxDeals:               cfg.MaxDeals,
		RankOrder:              cfg.RankOrder,
	}
	eval := deals.NewEvaluator(dealPolicy)

	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return nil, err
	}

	var notifier *notify.Telegram
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		notifier, err = notify.New(cfg.TelegramBotToken, cfg.TelegramChatID, func(ctx context.Context) spot.Snapshot {
			return cache.Get(ctx, false)
		})
		if err != nil {
			st.Close()
			return nil, err
		}
	} else {
		log.Printf("[app] telegram token or chat id missing, alerts disabled")
	}

	scrapers := []scrape.Scraper{scrape.NewAJIO(), scrape.NewMyntra()}
	var pipelineNotifier scan.Notifier
	if notifier != nil {
		pipelineNotifier = notifier
	}
	pipeline := scan.NewPipeline(scrapers, calc, eval, st, pipelineNotifier, cfg.Workers)

	return &App{
		Cfg:      cfg,
		Spot:     cache,
		Calc:     calc,
		Store:    st,
		Pipeline: pipeline,
		Notifier: notifier,
	}, nil
}

func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
}

// TriggerScan satisfies the dashboard's scan trigger.
func (a *App) TriggerScan(ctx context.Context) error {
	_, err := a.Pipeline.Run(ctx)
	return err
}

func purityCaps(m map[string]float64) map[listing.Purity]float64 {
	if m == nil {
		return nil
	}
	out := make(map[listing.Purity]float64, len(m))
	for k, v := range m {
		if k == "default" {
			continue
		}
		out[listing.Purity(k)] = v
	}
	return out
}
