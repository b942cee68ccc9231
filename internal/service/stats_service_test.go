package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/campusmetrics/clo-api/internal/models"
	"github.com/campusmetrics/clo-api/pkg/config"
)

type stubCollector struct {
	stats *models.TenantStats
	err   error
	calls int
}

func (s *stubCollector) Collect(_ context.Context, _ string) (*models.TenantStats, error) {
	s.calls++
	return s.stats, s.err
}

type stubStatsCache struct {
	data map[string]string
}

func newStubStatsCache() *stubStatsCache {
	return &stubStatsCache{data: make(map[string]string)}
}

func (c *stubStatsCache) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := c.data[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (c *stubStatsCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	c.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func statsFixture() *models.TenantStats {
	return &models.TenantStats{
		InstitutionShortName: "nvcc",
		RecordCounts: map[models.EntityKind]int{
			models.KindCourse: 12,
			models.KindTerm:   3,
		},
		PendingReviews: 2,
	}
}

func TestStatsGetCachesResult(t *testing.T) {
	cache := newStubStatsCache()
	collector := &stubCollector{stats: statsFixture()}
	svc := NewStatsService(config.StatsConfig{CacheTTL: time.Minute}, collector, cache, nil)

	stats, err := svc.Get(context.Background(), "nvcc")
	require.NoError(t, err)
	require.False(t, stats.Stale)
	require.Equal(t, 12, stats.RecordCounts[models.KindCourse])
	require.Contains(t, cache.data, "stats:nvcc")
}

func TestStatsGetServesStaleSnapshotOnFailure(t *testing.T) {
	cache := newStubStatsCache()
	collector := &stubCollector{stats: statsFixture()}
	svc := NewStatsService(config.StatsConfig{CacheTTL: time.Minute}, collector, cache, nil)

	_, err := svc.Get(context.Background(), "nvcc")
	require.NoError(t, err)

	collector.stats = nil
	collector.err = errors.New("connection reset")

	stats, err := svc.Get(context.Background(), "nvcc")
	require.NoError(t, err)
	require.True(t, stats.Stale)
	require.Equal(t, 12, stats.RecordCounts[models.KindCourse])
	require.Equal(t, 2, stats.PendingReviews)
}

func TestStatsGetZeroedWhenNoSnapshot(t *testing.T) {
	collector := &stubCollector{err: errors.New("timeout")}
	svc := NewStatsService(config.StatsConfig{}, collector, nil, nil)

	stats, err := svc.Get(context.Background(), "nvcc")
	require.NoError(t, err)
	require.True(t, stats.Stale)
	require.Empty(t, stats.RecordCounts)
	require.Equal(t, "nvcc", stats.InstitutionShortName)
}
