// Package chat runs the AI chat request pipeline: policy checks, conversation
// resolution, history assembly, the gateway call, and response persistence.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lumenops/aicore/internal/common"
	"github.com/lumenops/aicore/internal/gateway"
	"github.com/lumenops/aicore/internal/tenant"
)

var (
	ErrFeatureDisabled = errors.New("chat: feature disabled for tenant")
	ErrBudgetExceeded  = errors.New("chat: monthly token budget exceeded")
	ErrEmptyContent    = errors.New("chat: content is required")
)

// GatewayError marks a failure of the external completion call so the HTTP
// layer can apply the upstream-status mapping instead of a plain 500.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string { return e.Err.Error() }
func (e *GatewayError) Unwrap() error { return e.Err }

const maxTitleLen = 50

// Completer is the gateway chat call.
type Completer interface {
	Chat(ctx context.Context, req gateway.ChatRequest) (*gateway.ChatResult, error)
}

// ContextRetriever supplies the optional RAG block. Implementations never
// error; they return "" when nothing useful is available.
type ContextRetriever interface {
	Context(ctx context.Context, tenantID, query string) string
}

type FeatureGate interface {
	IsEnabled(ctx context.Context, tenantID, feature string) bool
}

type BudgetLedger interface {
	CheckBudget(ctx context.Context, tenantID string) tenant.BudgetStatus
	TrackUsage(ctx context.Context, tenantID string, tokens int64, userID, model, kind string)
}

type SettingsSource interface {
	Get(ctx context.Context, tenantID string) (*tenant.Settings, error)
}

type Service struct {
	repo              *Repo
	gate              FeatureGate
	ledger            BudgetLedger
	settings          SettingsSource
	retriever         ContextRetriever
	completer         Completer
	contextWindowSize int
	log               zerolog.Logger
}

func NewService(
	repo *Repo,
	gate FeatureGate,
	ledger BudgetLedger,
	settings SettingsSource,
	retriever ContextRetriever,
	completer Completer,
	contextWindowSize int,
	log zerolog.Logger,
) *Service {
	if contextWindowSize <= 0 || contextWindowSize > 100 {
		contextWindowSize = 20
	}
	return &Service{
		repo:              repo,
		gate:              gate,
		ledger:            ledger,
		settings:          settings,
		retriever:         retriever,
		completer:         completer,
		contextWindowSize: contextWindowSize,
		log:               log,
	}
}

type SendInput struct {
	TenantID       string
	UserID         string
	ConversationID string
	Content        string
	ModuleContext  string
	EntityContext  *gateway.EntityContext
}

type AssistantMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
}

type SendOutput struct {
	ConversationID string           `json:"conversation_id"`
	Message        AssistantMessage `json:"message"`
}

// Send runs one chat turn. Policy failures come back as sentinel errors,
// ownership failures as gorm.ErrRecordNotFound, gateway failures as the
// gateway error itself; the HTTP layer maps each to its status.
func (s *Service) Send(ctx context.Context, in SendInput) (*SendOutput, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	if !s.gate.IsEnabled(ctx, in.TenantID, tenant.FeatureChat) {
		return nil, ErrFeatureDisabled
	}

	if status := s.ledger.CheckBudget(ctx, in.TenantID); !status.Allowed {
		return nil, ErrBudgetExceeded
	}

	settings, err := s.settings.Get(ctx, in.TenantID)
	if err != nil {
		// gate passed so the row exists; a transient read failure here only
		// costs the tenant prompt and model preference
		settings = &tenant.Settings{}
	}

	conv, err := s.resolveConversation(ctx, in, content)
	if err != nil {
		return nil, err
	}

	userMsg := &Message{
		ConversationID: conv.ID,
		Role:           RoleUser,
		Content:        content,
	}
	if err := s.repo.InsertMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	messages := s.withSystemMessage(ctx, in.TenantID, content, settings.SystemPrompt, history)

	result, err := s.completer.Chat(ctx, gateway.ChatRequest{
		Messages:      messages,
		ModuleContext: in.ModuleContext,
		EntityContext: in.EntityContext,
		Model:         settings.PreferredModel,
	})
	if err != nil {
		return nil, &GatewayError{Err: err}
	}

	assistantMsg := &Message{
		ConversationID: conv.ID,
		Role:           RoleAssistant,
		Content:        result.Content,
		Model:          result.Model,
		TokensUsed:     result.TokensUsed,
	}
	if err := s.repo.InsertMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	if err := s.repo.TouchConversation(ctx, conv.ID); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("conversation touch failed")
	}

	s.ledger.TrackUsage(ctx, in.TenantID, int64(result.TokensUsed), in.UserID, result.Model, "chat")

	return &SendOutput{
		ConversationID: conv.ID,
		Message: AssistantMessage{
			Role:       RoleAssistant,
			Content:    result.Content,
			Model:      result.Model,
			TokensUsed: result.TokensUsed,
		},
	}, nil
}

// resolveConversation creates a thread on the first message or verifies that a
// provided id belongs to the same tenant and user. A mismatch reads as not
// found; conversations are never reattached across the isolation boundary.
func (s *Service) resolveConversation(ctx context.Context, in SendInput, content string) (*Conversation, error) {
	if in.ConversationID != "" {
		conv, err := s.repo.GetConversation(ctx, in.ConversationID)
		if err != nil {
			return nil, err
		}
		if conv.TenantID != in.TenantID || conv.UserID != in.UserID {
			return nil, gorm.ErrRecordNotFound
		}
		return conv, nil
	}

	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	var metadata map[string]any
	if in.EntityContext != nil {
		metadata = map[string]any{"entity_context": in.EntityContext}
	}

	conv := &Conversation{
		ID:            id,
		TenantID:      in.TenantID,
		UserID:        in.UserID,
		Title:         TitleFor(content),
		ModuleContext: in.ModuleContext,
		Metadata:      metadata,
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// loadHistory returns the context window oldest first.
func (s *Service) loadHistory(ctx context.Context, conversationID string) ([]gateway.Message, error) {
	recentDesc, err := s.repo.ListRecentMessagesDesc(ctx, conversationID, s.contextWindowSize)
	if err != nil {
		return nil, err
	}
	out := make([]gateway.Message, 0, len(recentDesc))
	for i := len(recentDesc) - 1; i >= 0; i-- {
		m := recentDesc[i]
		out = append(out, gateway.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

// withSystemMessage prepends the RAG context and tenant system prompt as a
// single system message when either exists.
func (s *Service) withSystemMessage(ctx context.Context, tenantID, query, systemPrompt string, history []gateway.Message) []gateway.Message {
	parts := make([]string, 0, 2)
	if ragCtx := s.retriever.Context(ctx, tenantID, query); ragCtx != "" {
		parts = append(parts, ragCtx)
	}
	if systemPrompt != "" {
		parts = append(parts, systemPrompt)
	}
	if len(parts) == 0 {
		return history
	}
	return append([]gateway.Message{
		{Role: "system", Content: strings.Join(parts, "\n\n")},
	}, history...)
}

// TitleFor derives a conversation title from its first message: messages over
// 50 runes truncate to the first 47 plus an ellipsis.
func TitleFor(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) <= maxTitleLen {
		return firstMessage
	}
	return string(runes[:47]) + "..."
}

// ListMessages pages a conversation's history after verifying ownership.
func (s *Service) ListMessages(ctx context.Context, tenantID, userID, conversationID string, limit int, beforeID uint64) ([]Message, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.TenantID != tenantID || conv.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListMessages(ctx, conversationID, limit, beforeID)
}
