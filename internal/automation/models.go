package automation

import "time"

const (
	ScheduleManual  = "manual"
	ScheduleDaily   = "daily"
	ScheduleWeekly  = "weekly"
	ScheduleMonthly = "monthly"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ScheduleConfig is the JSON schedule payload: time of day plus the weekly or
// monthly anchor day.
type ScheduleConfig struct {
	Time       string `json:"time,omitempty"`         // HH:MM
	DayOfWeek  *int   `json:"day_of_week,omitempty"`  // 0=Sunday..6, weekly only
	DayOfMonth *int   `json:"day_of_month,omitempty"` // 1-31, monthly only
}

type Automation struct {
	ID       string `gorm:"primaryKey;size:26" json:"id"`
	TenantID string `gorm:"type:varchar(36);index;not null" json:"tenant_id"`

	Type           string         `gorm:"type:varchar(64);not null" json:"type"`
	Config         map[string]any `gorm:"serializer:json;type:text" json:"config"`
	ScheduleType   string         `gorm:"type:varchar(16);not null" json:"schedule_type"`
	ScheduleConfig ScheduleConfig `gorm:"serializer:json;type:text" json:"schedule_config"`

	IsEnabled bool       `gorm:"not null;index" json:"is_enabled"`
	NextRunAt *time.Time `gorm:"index" json:"next_run_at"`
	LastRunAt *time.Time `json:"last_run_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Automation) TableName() string { return "automations" }

// Run is one execution attempt. Rows are created before the external call and
// finalized after, so every attempt leaves an audit trail.
type Run struct {
	ID           string `gorm:"primaryKey;size:26" json:"id"`
	AutomationID string `gorm:"size:26;index;not null" json:"automation_id"`
	TenantID     string `gorm:"type:varchar(36);index;not null" json:"tenant_id"`

	Status         RunStatus      `gorm:"type:varchar(16);index;not null" json:"status"`
	Result         map[string]any `gorm:"serializer:json;type:text" json:"result,omitempty"`
	TokensUsed     int            `json:"tokens_used"`
	ItemsProcessed int            `json:"items_processed"`
	ErrorMessage   string         `gorm:"type:varchar(500)" json:"error_message,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (Run) TableName() string { return "automation_runs" }
