package tenant

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Get(ctx context.Context, tenantID string) (*Settings, error) {
	var s Settings
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// AddUsage bumps the monthly counter in a single statement so concurrent chat
// and automation paths never lose an increment to a read-modify-write race.
func (r *Repo) AddUsage(ctx context.Context, tenantID string, tokens int64) error {
	return r.db.WithContext(ctx).Model(&Settings{}).
		Where("tenant_id = ?", tenantID).
		Update("monthly_tokens_used", gorm.Expr("monthly_tokens_used + ?", tokens)).Error
}
