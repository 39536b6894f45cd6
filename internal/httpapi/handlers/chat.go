package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumenops/aicore/internal/chat"
	"github.com/lumenops/aicore/internal/common"
	"github.com/lumenops/aicore/internal/gateway"
)

type entityContextReq struct {
	EntityType string         `json:"entity_type" binding:"required"`
	EntityID   string         `json:"entity_id" binding:"required"`
	EntityData map[string]any `json:"entity_data"`
}

type sendChatReq struct {
	Content        string            `json:"content" binding:"required"`
	ConversationID string            `json:"conversation_id"`
	ModuleContext  string            `json:"module_context"`
	EntityContext  *entityContextReq `json:"entity_context"`
}

func (h *Handler) SendChat(c *gin.Context) {
	tenantID, userID, ok := callerFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req sendChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	var entityCtx *gateway.EntityContext
	if req.EntityContext != nil {
		entityCtx = &gateway.EntityContext{
			EntityType: req.EntityContext.EntityType,
			EntityID:   req.EntityContext.EntityID,
			EntityData: req.EntityContext.EntityData,
		}
	}

	out, err := h.ChatSvc.Send(c.Request.Context(), chat.SendInput{
		TenantID:       tenantID,
		UserID:         userID,
		ConversationID: req.ConversationID,
		Content:        req.Content,
		ModuleContext:  req.ModuleContext,
		EntityContext:  entityCtx,
	})
	if err != nil {
		h.failChat(c, err)
		return
	}

	common.OK(c, out)
}

func (h *Handler) failChat(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyContent):
		common.Fail(c, http.StatusBadRequest, 10002, "content is required")
	case errors.Is(err, chat.ErrFeatureDisabled):
		common.Fail(c, http.StatusForbidden, 40301, "AI chat is not enabled for this workspace")
	case errors.Is(err, chat.ErrBudgetExceeded):
		common.Fail(c, http.StatusTooManyRequests, 42902, "monthly token budget exceeded")
	case errors.Is(err, gorm.ErrRecordNotFound):
		common.Fail(c, http.StatusNotFound, 40401, "conversation not found")
	default:
		var gwErr *chat.GatewayError
		if errors.As(err, &gwErr) {
			status := gateway.UpstreamStatus(gwErr.Err)
			if status == http.StatusServiceUnavailable {
				common.Fail(c, http.StatusServiceUnavailable, 50301, "AI service unavailable")
				return
			}
			common.Fail(c, status, 40002, "AI request rejected")
			return
		}
		h.Log.Error().Err(err).Msg("chat request failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}

func (h *Handler) ListConversationMessages(c *gin.Context) {
	tenantID, userID, ok := callerFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	conversationID := c.Param("conversation_id")

	limit, _ := strconv.Atoi(c.Query("limit"))
	var beforeID uint64
	if v := c.Query("before_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			beforeID = n
		}
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), tenantID, userID, conversationID, limit, beforeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "conversation not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}

	var nextBeforeID uint64
	if len(msgs) > 0 {
		nextBeforeID = msgs[len(msgs)-1].ID
	}

	common.OK(c, gin.H{
		"messages":       msgs,
		"next_before_id": nextBeforeID,
	})
}
