package tenant

import "context"

// Gate answers whether a tenant has a named AI feature switched on.
type Gate struct {
	repo *Repo
}

func NewGate(repo *Repo) *Gate {
	return &Gate{repo: repo}
}

// IsEnabled is default-deny: a missing settings row, a missing feature map, an
// absent key, or any persistence error all read as disabled.
func (g *Gate) IsEnabled(ctx context.Context, tenantID, feature string) bool {
	s, err := g.repo.Get(ctx, tenantID)
	if err != nil {
		return false
	}
	if s.FeaturesEnabled == nil {
		return false
	}
	return s.FeaturesEnabled[feature]
}
