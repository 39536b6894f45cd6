package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lumenops/aicore/internal/analytics"
	"github.com/lumenops/aicore/internal/automation"
	"github.com/lumenops/aicore/internal/chat"
	"github.com/lumenops/aicore/internal/config"
	"github.com/lumenops/aicore/internal/db"
	"github.com/lumenops/aicore/internal/httpapi"
	"github.com/lumenops/aicore/internal/logging"
	"github.com/lumenops/aicore/internal/store/rabbitmq"
	"github.com/lumenops/aicore/internal/store/redisstore"
	"github.com/lumenops/aicore/internal/tenant"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New("aicore-api", logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}

	// knowledge_chunks is owned by the ingestion pipeline (pgvector extension,
	// index strategy); everything else migrates here.
	if err := gdb.AutoMigrate(
		&tenant.Settings{},
		&chat.Conversation{},
		&chat.Message{},
		&automation.Automation{},
		&automation.Run{},
		&analytics.DailyUsage{},
	); err != nil {
		log.Fatal().Err(err).Msg("automigrate failed")
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

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

	router := httpapi.NewRouter(gdb, cfg, rds, events, log)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
