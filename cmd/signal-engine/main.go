package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/pairsignal/pkg/client"
	"github.com/yourusername/pairsignal/pkg/comms"
	"github.com/yourusername/pairsignal/pkg/config"
	"github.com/yourusername/pairsignal/pkg/strategy"
)

const (
	appName    = "PairSignalEngine"
	appVersion = "1.0.0"
)

var (
	configFile = flag.String("config", "./config/engine.yaml", "Configuration file path")
	natsURL    = flag.String("nats", "", "NATS server URL (overrides config)")
	version    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	printBanner()

	cfg, err := config.LoadEngineConfig(*configFile)
	if err != nil {
		log.Fatalf("[Main] Failed to load config: %v", err)
	}
	if *natsURL != "" {
		cfg.NATS.URL = *natsURL
	}
	log.Printf("[Main] Loaded config: %d pairs, NATS %s", len(cfg.Pairs), cfg.NATS.URL)

	publisher, err := comms.NewPublisher(cfg.NATS.URL, cfg.System.Component, cfg.System.HeartbeatInterval)
	if err != nil {
		log.Fatalf("[Main] Failed to create publisher: %v", err)
	}
	defer publisher.Close()

	engine := strategy.NewEngine()

	// One runner per pair, one subscription per leg symbol
	mdClient, err := client.NewMDClient(cfg.NATS.URL, cfg.NATS.MarketSubject)
	if err != nil {
		log.Fatalf("[Main] Failed to create market data client: %v", err)
	}
	defer mdClient.Close()

	for _, pairCfg := range cfg.Pairs {
		runner, err := newPairRunner(pairCfg, cfg.System.WarmupBars, engine, publisher)
		if err != nil {
			log.Fatalf("[Main] Failed to set up pair %s: %v", pairCfg.Name, err)
		}
		symbols := []string{pairCfg.SymbolA, pairCfg.SymbolB}
		if err := mdClient.Subscribe(symbols, runner.onTick); err != nil {
			log.Fatalf("[Main] Failed to subscribe pair %s: %v", pairCfg.Name, err)
		}
	}

	if cfg.Metrics.Enabled {
		go func() {
			log.Printf("[Main] Metrics listening on %s", cfg.Metrics.Listen)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				log.Printf("[Main] Metrics server stopped: %v", err)
			}
		}()
	}

	if err := publisher.PublishSystemStatus("online", map[string]string{
		"pairs": fmt.Sprintf("%d", len(cfg.Pairs)),
	}); err != nil {
		log.Printf("[Main] Status publish failed: %v", err)
	}
	log.Printf("[Main] %s started, pairs: %v", appName, engine.ListPairs())

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("[Main] Received signal %v, shutting down...", sig)

	if err := publisher.PublishSystemStatus("offline", nil); err != nil {
		log.Printf("[Main] Status publish failed: %v", err)
	}
	log.Printf("[Main] Shutdown complete")
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║  %s v%-41s║\n", appName, appVersion)
	fmt.Println("║  Pairs Trading Signal Engine                              ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()
}
