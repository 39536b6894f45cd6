package automation

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lumenops/aicore/internal/common"
)

const maxErrorLen = 500

// Ledger is the append/update log of automation runs. Only the scheduler
// writes to it.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Start inserts the running row before any external call is made.
func (l *Ledger) Start(ctx context.Context, automationID, tenantID string) (*Run, error) {
	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	run := &Run{
		ID:           id,
		AutomationID: automationID,
		TenantID:     tenantID,
		Status:       RunRunning,
		StartedAt:    time.Now(),
	}
	if err := l.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (l *Ledger) Complete(ctx context.Context, runID string, result map[string]any, tokensUsed, itemsProcessed int) error {
	now := time.Now()
	return l.db.WithContext(ctx).Model(&Run{}).
		Where("id = ?", runID).
		Updates(Run{
			Status:         RunCompleted,
			Result:         result,
			TokensUsed:     tokensUsed,
			ItemsProcessed: itemsProcessed,
			CompletedAt:    &now,
		}).Error
}

func (l *Ledger) Fail(ctx context.Context, runID string, errMsg string) error {
	now := time.Now()
	return l.db.WithContext(ctx).Model(&Run{}).
		Where("id = ?", runID).
		Updates(Run{
			Status:       RunFailed,
			ErrorMessage: truncateError(errMsg),
			CompletedAt:  &now,
		}).Error
}

// ReclaimStale reclassifies runs stuck in running since before the cutoff as
// failed, closing the audit gap left by a crash between start and completion.
func (l *Ledger) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now()
	res := l.db.WithContext(ctx).Model(&Run{}).
		Where("status = ? AND started_at < ?", RunRunning, cutoff).
		Updates(Run{
			Status:       RunFailed,
			ErrorMessage: "reclaimed: run exceeded the stale threshold",
			CompletedAt:  &now,
		})
	return res.RowsAffected, res.Error
}

func truncateError(msg string) string {
	if len(msg) > maxErrorLen {
		return msg[:maxErrorLen]
	}
	return msg
}
