package service

import (
	"context"
	"errors"
	"time"

	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/repository"
	"skilltrack_backend/internal/util"
	"skilltrack_backend/pkg/cache"
	"skilltrack_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	analyticsCachePrefix = "analytics:"
	globalStatsKey       = analyticsCachePrefix + "global"
	skillStatsKeyPrefix  = analyticsCachePrefix + "skill:"
)

// AnalyticsService 基于持久化进度的只读查询。
// 跨用户结果缓存到下一次仓库提交
type AnalyticsService struct {
	Repo     *repository.ProgressRepository
	Cache    cache.Cache
	CacheTTL time.Duration
	Now      func() time.Time
}

func NewAnalyticsService(repo *repository.ProgressRepository, c cache.Cache, ttl time.Duration) *AnalyticsService {
	if c == nil {
		c = cache.Noop{}
	}
	s := &AnalyticsService{
		Repo:     repo,
		Cache:    c,
		CacheTTL: ttl,
		Now:      func() time.Time { return time.Now().UTC() },
	}
	repo.OnCommit(s.InvalidateCache)
	return s
}

func (s *AnalyticsService) InvalidateCache(ctx context.Context) {
	if err := s.Cache.DeletePrefix(ctx, analyticsCachePrefix); err != nil {
		logger.Log.Warn("Failed to invalidate analytics cache", zap.Error(err))
	}
}

func (s *AnalyticsService) withUser(ctx context.Context, userID string, fn func(doc *model.Document, user *model.User) error) error {
	return s.Repo.View(ctx, func(doc *model.Document) error {
		user, ok := doc.Users[userID]
		if !ok {
			return util.ErrUserNotFound
		}
		return fn(doc, user)
	})
}

func (s *AnalyticsService) GetSkillStats(ctx context.Context, userID, skillID string) (*model.SkillStats, error) {
	var stats *model.SkillStats
	err := s.withUser(ctx, userID, func(_ *model.Document, user *model.User) error {
		var err error
		stats, err = skillStats(user, skillID)
		return err
	})
	return stats, err
}

// CalculateSuccessRate 从未尝试过的技能返回0
func (s *AnalyticsService) CalculateSuccessRate(ctx context.Context, userID, skillID string) (float64, error) {
	stats, err := s.GetSkillStats(ctx, userID, skillID)
	if errors.Is(err, util.ErrSkillProgressNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return stats.SuccessRate, nil
}

// GetCommonErrors skillID 为空时统计用户的所有技能
func (s *AnalyticsService) GetCommonErrors(ctx context.Context, userID, skillID string) ([]model.CommonError, error) {
	var out []model.CommonError
	err := s.withUser(ctx, userID, func(_ *model.Document, user *model.User) error {
		out = commonErrors(user, skillID)
		return nil
	})
	return out, err
}

func (s *AnalyticsService) GetWeakSteps(ctx context.Context, userID, skillID string) ([]model.WeakStep, error) {
	stats, err := s.GetSkillStats(ctx, userID, skillID)
	if err != nil {
		return nil, err
	}
	return weakSteps(stats), nil
}

func (s *AnalyticsService) GetSkillComparisons(ctx context.Context, userID string) ([]model.SkillComparison, error) {
	var out []model.SkillComparison
	err := s.withUser(ctx, userID, func(doc *model.Document, user *model.User) error {
		out = skillComparisons(doc, user)
		return nil
	})
	return out, err
}

// 跨用户统计按计算时的仓库 Version 缓存，
// 提交之前算出的结果不会在提交之后返回
func (s *AnalyticsService) GetGlobalErrorStats(ctx context.Context) (*model.GlobalErrorStats, error) {
	var cached model.GlobalErrorStats
	if s.cacheGet(ctx, globalStatsKey+":"+s.Repo.Version(), &cached) {
		return &cached, nil
	}

	var stats *model.GlobalErrorStats
	version, err := s.Repo.ViewVersion(ctx, func(doc *model.Document) error {
		stats = globalErrorStats(doc, s.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, globalStatsKey+":"+version, stats)
	return stats, nil
}

func (s *AnalyticsService) GetSkillErrorStats(ctx context.Context, skillID string) (*model.SkillErrorStats, error) {
	key := skillStatsKeyPrefix + skillID + ":"
	var cached model.SkillErrorStats
	if s.cacheGet(ctx, key+s.Repo.Version(), &cached) {
		return &cached, nil
	}

	var stats *model.SkillErrorStats
	version, err := s.Repo.ViewVersion(ctx, func(doc *model.Document) error {
		var err error
		stats, err = skillErrorStats(doc, skillID, s.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key+version, stats)
	return stats, nil
}

func (s *AnalyticsService) cacheGet(ctx context.Context, key string, dst any) bool {
	hit, err := s.Cache.Get(ctx, key, dst)
	if err != nil {
		logger.Log.Warn("Analytics cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *AnalyticsService) cacheSet(ctx context.Context, key string, value any) {
	if err := s.Cache.Set(ctx, key, value, s.CacheTTL); err != nil {
		logger.Log.Warn("Analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
}
