package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lumenops/aicore/internal/common"
	"github.com/lumenops/aicore/internal/config"
	"github.com/lumenops/aicore/internal/httpapi/handlers"
	"github.com/lumenops/aicore/internal/httpapi/middleware"
	"github.com/lumenops/aicore/internal/store/redisstore"
	"github.com/lumenops/aicore/internal/tenant"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, events tenant.UsagePublisher, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(db, cfg, events, log)

	r.GET("/ping", h.Ping)

	// external cron trigger, token-authenticated
	r.POST("/internal/automations/sweep", h.SweepAutomations)

	authGroup := r.Group("/ai")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.POST("/chat", middleware.RateLimit(rds, cfg.ChatRateLimitPerMin, log), h.SendChat)
	authGroup.GET("/conversations/:conversation_id/messages", h.ListConversationMessages)

	return r
}
