package chat

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ID       string `gorm:"primaryKey;size:26" json:"id"` // ULID
	TenantID string `gorm:"type:varchar(36);index:idx_conv_tenant_user,priority:1;not null" json:"-"`
	UserID   string `gorm:"type:varchar(36);index:idx_conv_tenant_user,priority:2;not null" json:"-"`

	Title         string         `gorm:"type:varchar(80);not null" json:"title"`
	ModuleContext string         `gorm:"type:varchar(64)" json:"module_context"`
	Metadata      map[string]any `gorm:"serializer:json;type:text" json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Conversation) TableName() string { return "ai_conversations" }

// Message rows are immutable once written; the autoincrement id preserves
// creation order for the history window.
type Message struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string `gorm:"size:26;index;not null" json:"conversation_id"`

	Role       string         `gorm:"type:varchar(16);not null" json:"role"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Model      string         `gorm:"type:varchar(64)" json:"model,omitempty"`
	TokensUsed int            `json:"tokens_used,omitempty"`
	Metadata   map[string]any `gorm:"serializer:json;type:text" json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "ai_messages" }
