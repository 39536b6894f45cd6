package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumenops/aicore/internal/common"
)

const sweepTokenHeader = "X-Sweep-Token"

// SweepAutomations runs one scheduler sweep. The endpoint is for the trusted
// external cron only, authenticated by a shared token header.
func (h *Handler) SweepAutomations(c *gin.Context) {
	token := c.GetHeader(sweepTokenHeader)
	if h.SweepToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.SweepToken)) != 1 {
		common.Fail(c, http.StatusUnauthorized, 40102, "unauthorized")
		return
	}

	res, err := h.Scheduler.Sweep(c.Request.Context(), time.Now())
	if err != nil {
		h.Log.Error().Err(err).Msg("automation sweep failed")
		common.Fail(c, http.StatusInternalServerError, 50003, "sweep failed")
		return
	}

	common.OK(c, gin.H{
		"message": "sweep completed",
		"count":   res.Count,
		"results": res.Results,
	})
}
