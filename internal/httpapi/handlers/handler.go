package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lumenops/aicore/internal/automation"
	"github.com/lumenops/aicore/internal/chat"
	"github.com/lumenops/aicore/internal/common"
	"github.com/lumenops/aicore/internal/config"
	"github.com/lumenops/aicore/internal/gateway"
	"github.com/lumenops/aicore/internal/httpapi/middleware"
	"github.com/lumenops/aicore/internal/knowledge"
	"github.com/lumenops/aicore/internal/tenant"
)

type Handler struct {
	Cfg        config.Config
	ChatSvc    *chat.Service
	Scheduler  *automation.Scheduler
	SweepToken string
	Log        zerolog.Logger
}

// NewHandler wires the request-path services: repos, the gateway client, the
// RAG retriever, the budget ledger and feature gate, the chat orchestrator and
// the automation scheduler.
func NewHandler(db *gorm.DB, cfg config.Config, events tenant.UsagePublisher, log zerolog.Logger) *Handler {
	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, time.Duration(cfg.GatewayTimeout)*time.Second)

	tenantRepo := tenant.NewRepo(db)
	ledger := tenant.NewLedger(tenantRepo, events, log)
	gate := tenant.NewGate(tenantRepo)

	retriever := knowledge.NewRetriever(knowledge.NewStore(db), gw, log)

	chatSvc := chat.NewService(
		chat.NewRepo(db),
		gate,
		ledger,
		tenantRepo,
		retriever,
		gw,
		cfg.ChatContextWindowSize,
		log,
	)

	scheduler := automation.NewScheduler(
		automation.NewRepo(db),
		automation.NewLedger(db),
		gw,
		ledger,
		cfg.SweepBatchSize,
		time.Duration(cfg.StaleRunReclaimMin)*time.Minute,
		log,
	)

	return &Handler{
		Cfg:        cfg,
		ChatSvc:    chatSvc,
		Scheduler:  scheduler,
		SweepToken: cfg.SweepToken,
		Log:        log,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func callerFromContext(c *gin.Context) (tenantID, userID string, ok bool) {
	tenantID = c.GetString(middleware.TenantIDKey)
	userID = c.GetString(middleware.UserIDKey)
	return tenantID, userID, tenantID != "" && userID != ""
}
