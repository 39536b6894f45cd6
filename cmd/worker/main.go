package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/lumenops/aicore/internal/analytics"
	"github.com/lumenops/aicore/internal/config"
	"github.com/lumenops/aicore/internal/db"
	"github.com/lumenops/aicore/internal/logging"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

// The worker drains the usage-event queue and folds events into the daily
// analytics rollup. Events are idempotent-ish accumulations; a poisoned
// message goes to the DLQ rather than blocking the queue.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New("aicore-worker", logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	repo := analytics.NewRepo(gdb)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit dial failed")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit channel failed")
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	}); err != nil {
		log.Fatal().Err(err).Msg("queue declare failed")
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatal().Err(err).Msg("qos failed")
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("consume failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("queue", cfg.RabbitQueue).
		Int("concurrency", concurrency).
		Msg("worker started")

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				handleDelivery(ctx, repo, log.With().Int("worker", workerID).Logger(), d)
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Warn().Msg("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func handleDelivery(ctx context.Context, repo *analytics.Repo, log zerolog.Logger, d amqp.Delivery) {
	var ev analytics.UsageEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil || ev.TenantID == "" {
		log.Warn().Err(err).Msg("bad usage event")
		_ = d.Nack(false, false)
		return
	}

	if err := repo.Apply(ctx, ev); err != nil {
		log.Error().Err(err).
			Str("tenant_id", ev.TenantID).
			Msg("usage event apply failed")
		_ = d.Nack(false, false)
		return
	}

	if err := d.Ack(false); err != nil {
		log.Error().Err(err).Msg("ack failed")
	}
}
