package automation

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Due selects enabled, non-manual automations whose next run is at or before
// now. Manual jobs never match because they are excluded explicitly and never
// carry a next_run_at.
func (r *Repo) Due(ctx context.Context, now time.Time) ([]Automation, error) {
	var out []Automation
	err := r.db.WithContext(ctx).
		Where("is_enabled = ? AND schedule_type <> ? AND next_run_at <= ?", true, ScheduleManual, now).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSchedule stamps last_run_at and the recomputed next_run_at after an
// execution attempt, regardless of its outcome.
func (r *Repo) UpdateSchedule(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) error {
	return r.db.WithContext(ctx).Model(&Automation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_run_at": lastRun,
			"next_run_at": nextRun,
			"updated_at":  time.Now(),
		}).Error
}
