// Package velocity provides transaction velocity calculation.
package velocity

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// DefaultWindow is the rolling window tracked per account at ingest time.
// Counter reads only serve lookups over this same window.
const DefaultWindow = time.Hour

// Service calculates per-account transaction velocity for the screening
// engine's velocity_count variable.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new velocity service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// Record bumps the rolling counter for an account at ingest time. The
// counter expires with the window, so reads stay O(1) on the hot path.
func (s *Service) Record(ctx context.Context, tenantID, account string, window time.Duration) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	key := fmt.Sprintf("velocity:%s", account)
	return s.cache.IncrementCounter(ctx, tenantID, key, window)
}

// GetTransactionCount returns the number of transactions for an account
// within a time window. This is the VelocityGetter signature expected by
// the screening engine. Lookups over the default window are served from
// the ingest-time counter when one is live; anything else falls back to
// counting repository rows.
func (s *Service) GetTransactionCount(ctx context.Context, tenantID, account string, windowSecs int) (int64, error) {
	if tenantID == "" || account == "" {
		return 0, fmt.Errorf("tenantID and account are required")
	}

	if s.cache != nil && windowSecs == int(DefaultWindow.Seconds()) {
		key := fmt.Sprintf("velocity:%s", account)
		count, ok, err := s.cache.GetCounter(ctx, tenantID, key)
		if err == nil && ok {
			return count, nil
		}
	}

	if s.repo == nil {
		return 0, fmt.Errorf("no data source available")
	}

	since := time.Now().Add(-time.Duration(windowSecs) * time.Second)
	txs, err := s.repo.GetTransactionsByAccount(ctx, tenantID, account, since)
	if err != nil {
		return 0, fmt.Errorf("failed to get transactions: %w", err)
	}
	return int64(len(txs)), nil
}

// GetVelocityGetter returns a VelocityGetter function for the screening engine.
func (s *Service) GetVelocityGetter() func(ctx context.Context, tenantID, account string, windowSecs int) (int64, error) {
	return s.GetTransactionCount
}
