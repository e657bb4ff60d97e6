package application

import (
	"context"
	"sync"
	"time"

	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

// FeeConfigService loads the fee schedule and caches it with a TTL. The cache
// is an explicit value owned by the service instance; there is no package
// state. Missing or incomplete configuration fails loud at the repository.
type FeeConfigService struct {
	repo ports.FeeConfigRepository
	ttl  time.Duration

	mu        sync.Mutex
	cached    domain.FeeConfig
	fetchedAt time.Time
	nowFn     func() time.Time
}

func NewFeeConfigService(repo ports.FeeConfigRepository, ttl time.Duration) *FeeConfigService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &FeeConfigService{
		repo:  repo,
		ttl:   ttl,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the fee schedule, re-reading from storage when the cache has
// expired or forceRefresh is set.
func (s *FeeConfigService) Get(ctx context.Context, forceRefresh bool) (domain.FeeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	if !forceRefresh && !s.fetchedAt.IsZero() && now.Sub(s.fetchedAt) < s.ttl {
		return s.cached, nil
	}

	cfg, err := s.repo.Load(ctx)
	if err != nil {
		return domain.FeeConfig{}, err
	}
	cfg.LoadedAt = now
	s.cached = cfg
	s.fetchedAt = now
	return cfg, nil
}
