// Package analytics keeps the daily AI-usage rollup fed by fire-and-forget
// usage events from the chat and automation paths.
package analytics

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SystemUserID tags usage produced by scheduled automations rather than a
// human caller.
const SystemUserID = "system"

// UsageEvent is one billed interaction. Published to the queue by the API and
// scheduler processes, applied to the rollup by the worker.
type UsageEvent struct {
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	Tokens     int64     `json:"tokens"`
	Model      string    `json:"model"`
	Kind       string    `json:"kind"` // chat | automation
	OccurredAt time.Time `json:"occurred_at"`
}

type DailyUsage struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	TenantID string `gorm:"type:varchar(36);not null;index:uniq_usage_day,unique,priority:1"`
	UserID   string `gorm:"type:varchar(36);not null;index:uniq_usage_day,unique,priority:2"`
	Day      string `gorm:"type:varchar(10);not null;index:uniq_usage_day,unique,priority:3"` // YYYY-MM-DD
	Kind     string `gorm:"type:varchar(32);not null;index:uniq_usage_day,unique,priority:4"`
	Tokens   int64  `gorm:"not null"`
	Requests int64  `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DailyUsage) TableName() string { return "ai_usage_daily" }

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Apply upserts the event into its (tenant, user, day, kind) bucket,
// accumulating tokens and request count.
func (r *Repo) Apply(ctx context.Context, ev UsageEvent) error {
	day := ev.OccurredAt
	if day.IsZero() {
		day = time.Now()
	}
	row := DailyUsage{
		TenantID: ev.TenantID,
		UserID:   ev.UserID,
		Day:      day.UTC().Format("2006-01-02"),
		Kind:     ev.Kind,
		Tokens:   ev.Tokens,
		Requests: 1,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"}, {Name: "user_id"}, {Name: "day"}, {Name: "kind"},
		},
		DoUpdates: clause.Assignments(map[string]any{
			"tokens":     gorm.Expr("tokens + ?", ev.Tokens),
			"requests":   gorm.Expr("requests + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
}
