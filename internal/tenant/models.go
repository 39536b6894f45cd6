package tenant

import "time"

// Feature keys checked by the gate.
const (
	FeatureChat        = "ai_chat"
	FeatureAutomations = "ai_automations"
)

// Settings holds one tenant's AI configuration and the monthly token counter.
// monthly_tokens_used is reset externally at the start of each billing period;
// inside a period it only grows.
type Settings struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	TenantID string `gorm:"type:varchar(36);uniqueIndex;not null" json:"tenant_id"`

	PreferredModel string `gorm:"type:varchar(64)" json:"preferred_model"`
	SystemPrompt   string `gorm:"type:text" json:"system_prompt"`

	MonthlyTokenBudget int64 `gorm:"not null" json:"monthly_token_budget"`
	MonthlyTokensUsed  int64 `gorm:"not null" json:"monthly_tokens_used"`

	FeaturesEnabled map[string]bool `gorm:"serializer:json;type:text" json:"features_enabled"`

	ConversationRetentionDays int `gorm:"not null;default:90" json:"conversation_retention_days"`
	InsightRetentionDays      int `gorm:"not null;default:30" json:"insight_retention_days"`
	GenerationRetentionDays   int `gorm:"not null;default:30" json:"generation_retention_days"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Settings) TableName() string { return "tenant_ai_settings" }
