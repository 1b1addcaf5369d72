package observability

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScansTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gdf_scans_total",
		Help: "Completed scan cycles",
	})
	ProductsScanned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gdf_products_scanned_total",
		Help: "Listings evaluated across all scans",
	})
	DealsFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gdf_deals_found_total",
		Help: "Listings admitted as good deals",
	})
	SpotFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gdf_spot_fetch_total",
		Help: "Spot price fetch attempts by source and outcome",
	}, []string{"source", "outcome"})
)

// Start registers the collectors and serves /metrics on the given port.
func Start(port string) {
	prometheus.MustRegister(ScansTotal, ProductsScanned, DealsFound, SpotFetches)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			log.Printf("[metrics] listener stopped: %v", err)
		}
	}()
}
