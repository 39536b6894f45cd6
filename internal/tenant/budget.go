package tenant

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumenops/aicore/internal/analytics"
)

// UsagePublisher pushes usage events onto the analytics queue. May be nil when
// no broker is configured.
type UsagePublisher interface {
	PublishUsage(ctx context.Context, ev analytics.UsageEvent) error
}

type BudgetStatus struct {
	Allowed   bool
	Remaining int64
}

// Ledger enforces the per-tenant monthly token budget and records usage.
type Ledger struct {
	repo   *Repo
	events UsagePublisher
	log    zerolog.Logger
}

func NewLedger(repo *Repo, events UsagePublisher, log zerolog.Logger) *Ledger {
	return &Ledger{repo: repo, events: events, log: log}
}

// CheckBudget is fail-closed: a tenant without a settings row (or an unreadable
// one) is over budget. Allowed iff used < budget.
func (l *Ledger) CheckBudget(ctx context.Context, tenantID string) BudgetStatus {
	s, err := l.repo.Get(ctx, tenantID)
	if err != nil {
		return BudgetStatus{Allowed: false}
	}
	remaining := s.MonthlyTokenBudget - s.MonthlyTokensUsed
	return BudgetStatus{
		Allowed:   s.MonthlyTokensUsed < s.MonthlyTokenBudget,
		Remaining: max(remaining, 0),
	}
}

// TrackUsage is best-effort: a tracking outage must never surface to the
// caller, so every failure is logged and swallowed.
func (l *Ledger) TrackUsage(ctx context.Context, tenantID string, tokens int64, userID, model, kind string) {
	if tokens <= 0 {
		return
	}

	if err := l.repo.AddUsage(ctx, tenantID, tokens); err != nil {
		l.log.Warn().Err(err).
			Str("tenant_id", tenantID).
			Int64("tokens", tokens).
			Msg("usage increment failed")
	}

	if l.events == nil {
		return
	}
	ev := analytics.UsageEvent{
		TenantID:   tenantID,
		UserID:     userID,
		Tokens:     tokens,
		Model:      model,
		Kind:       kind,
		OccurredAt: time.Now(),
	}
	if err := l.events.PublishUsage(ctx, ev); err != nil {
		l.log.Warn().Err(err).
			Str("tenant_id", tenantID).
			Str("kind", kind).
			Msg("usage event publish failed")
	}
}
