package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusmetrics/clo-api/internal/models"
	"github.com/campusmetrics/clo-api/pkg/config"
)

type statsCollector interface {
	Collect(ctx context.Context, institution string) (*models.TenantStats, error)
}

type statsCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// StatsService serves per-tenant record counts best-effort: reads run under
// a short deadline and fall back to the last cached value, marked stale,
// rather than block behind a heavy import.
type StatsService struct {
	cfg    config.StatsConfig
	repo   statsCollector
	cache  statsCache
	logger *zap.Logger
}

// NewStatsService constructs StatsService. The cache is optional.
func NewStatsService(cfg config.StatsConfig, repo statsCollector, cache statsCache, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{cfg: cfg, repo: repo, cache: cache, logger: logger}
}

func statsKey(institution string) string {
	return "stats:" + institution
}

// Get returns tenant stats. On a timed-out or failed read it serves the
// cached snapshot with Stale set, or zeroed counts when no snapshot exists.
func (s *StatsService) Get(ctx context.Context, institution string) (*models.TenantStats, error) {
	readCtx := ctx
	if s.cfg.ReadTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
	}

	stats, err := s.repo.Collect(readCtx, institution)
	if err == nil {
		s.cacheSet(ctx, institution, stats)
		return stats, nil
	}
	s.logger.Warn("stats collection failed, serving fallback",
		zap.String("institution", institution), zap.Error(err))

	if cached := s.cacheGet(ctx, institution); cached != nil {
		cached.Stale = true
		return cached, nil
	}

	return &models.TenantStats{
		InstitutionShortName: institution,
		RecordCounts:         make(map[models.EntityKind]int),
		Stale:                true,
	}, nil
}

func (s *StatsService) cacheSet(ctx context.Context, institution string, stats *models.TenantStats) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	ttl := s.cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.cache.Set(ctx, statsKey(institution), payload, ttl).Err(); err != nil {
		s.logger.Debug("stats cache write failed", zap.Error(err))
	}
}

func (s *StatsService) cacheGet(ctx context.Context, institution string) *models.TenantStats {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.Get(ctx, statsKey(institution)).Bytes()
	if err != nil {
		return nil
	}
	var stats models.TenantStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return nil
	}
	return &stats
}
