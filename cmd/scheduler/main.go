package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lumenops/aicore/internal/automation"
	"github.com/lumenops/aicore/internal/config"
	"github.com/lumenops/aicore/internal/db"
	"github.com/lumenops/aicore/internal/gateway"
	"github.com/lumenops/aicore/internal/logging"
	"github.com/lumenops/aicore/internal/store/rabbitmq"
	"github.com/lumenops/aicore/internal/tenant"
)

// The scheduler process sweeps due automations on a fixed interval. Deploys
// that prefer an external cron can disable this binary and hit the sweep
// endpoint instead.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New("aicore-scheduler", logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}

	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, time.Duration(cfg.GatewayTimeout)*time.Second)

	var events tenant.UsagePublisher
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Warn().Err(err).Msg("usage event broker unavailable, analytics rollup disabled")
		} else {
			defer pub.Close()
			events = pub
		}
	}

	tenantRepo := tenant.NewRepo(gdb)
	ledger := tenant.NewLedger(tenantRepo, events, log)

	scheduler := automation.NewScheduler(
		automation.NewRepo(gdb),
		automation.NewLedger(gdb),
		gw,
		ledger,
		cfg.SweepBatchSize,
		time.Duration(cfg.StaleRunReclaimMin)*time.Minute,
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(cfg.SweepIntervalMin) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("scheduler started")

	sweep := func() {
		start := time.Now()
		res, err := scheduler.Sweep(ctx, start)
		if err != nil {
			log.Error().Err(err).Msg("sweep failed")
			return
		}
		log.Info().
			Int("count", res.Count).
			Dur("took", time.Since(start)).
			Msg("sweep completed")
	}

	sweep()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler shutting down")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
