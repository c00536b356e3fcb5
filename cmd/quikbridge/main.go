package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quikbridge/internal/broker"
	"quikbridge/internal/config"
	"quikbridge/internal/quik"
	"quikbridge/internal/store"
	"quikbridge/internal/util"
)

func main() {
	cfgPath := "config/quikbridge.yaml"
	if p := os.Getenv("QUIKBRIDGE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	journal, err := store.NewSQLiteJournal(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening journal: %v", err)
	}
	defer journal.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := quik.DialZMQ(ctx, cfg.Gateway.RequestsAddr, cfg.Gateway.EventsAddr, cfg.Gateway.Token, logger)
	if err != nil {
		log.Fatalf("connecting to gateway: %v", err)
	}
	defer client.Close()

	b := broker.New(broker.Config{
		Lots:                cfg.Trading.Lots,
		SlippageSteps:       cfg.Trading.SlippageSteps,
		ClientCodeForOrders: cfg.Trading.ClientCodeForOrders,
		Currency:            cfg.Trading.Currency,
		SendRatePerMin:      cfg.Trading.SendRatePerMin,
	}, client, journal, logger)

	if err := b.LoadPositions(ctx); err != nil {
		log.Fatalf("loading positions: %v", err)
	}
	logger.Info("bridge started",
		"requests_addr", cfg.Gateway.RequestsAddr,
		"events_addr", cfg.Gateway.EventsAddr,
		"cash", b.Cash(ctx, nil))

	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	go func() {
		if err := b.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("event loop error", "error", err)
		}
	}()

	// Heartbeat tick: push one placeholder per second and drain whatever the
	// reconciliation loop queued since the last tick.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-ticker.C:
			b.NextTick()
			for {
				o, ok := b.Poll()
				if !ok {
					break
				}
				if o == nil {
					continue // heartbeat placeholder
				}
				logger.Info("order update",
					"trans_id", o.TransID,
					"instrument", o.Instrument.String(),
					"status", o.Status.String(),
					"filled", o.FilledSize,
					"avg_price", o.AvgFillPrice)
			}
		}
	}
}
