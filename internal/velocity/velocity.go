// Package velocity provides entity activity velocity calculation.
package velocity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// DefaultWindow is the lookback used when none is configured.
const DefaultWindow = time.Hour

// cacheTTL bounds staleness of cached counts. Velocity feeds risk
// adjustments, not hard limits, so a short lag is acceptable.
const cacheTTL = 10 * time.Second

// Service calculates recent activity counts for entities.
type Service struct {
	store  domain.AuditStore
	cache  domain.Cache
	window time.Duration
}

// NewService creates a velocity service. cache may be nil to disable
// count caching.
func NewService(store domain.AuditStore, cache domain.Cache, window time.Duration) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{
		store:  store,
		cache:  cache,
		window: window,
	}
}

// Count returns the number of audit records for an entity within the
// service window. Satisfies the fraud assessor's VelocityCounter.
func (s *Service) Count(ctx context.Context, entityID string) (int64, error) {
	return s.CountWindow(ctx, entityID, s.window)
}

// CountWindow returns the number of audit records for an entity within an
// explicit window.
func (s *Service) CountWindow(ctx context.Context, entityID string, window time.Duration) (int64, error) {
	if entityID == "" {
		return 0, fmt.Errorf("entityID is required")
	}
	if s.store == nil {
		return 0, fmt.Errorf("no data source available")
	}

	key := fmt.Sprintf("velocity:%s:%d", entityID, int64(window.Seconds()))
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
			if count, err := strconv.ParseInt(string(data), 10, 64); err == nil {
				return count, nil
			}
		}
	}

	since := time.Now().Add(-window)
	count, err := s.store.CountByEntity(ctx, entityID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count entity activity: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, []byte(strconv.FormatInt(count, 10)), cacheTTL)
	}
	return count, nil
}
