package scheduler

import (
	"context"
	"time"

	"skilltrack_backend/pkg/logger"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

const snapshotTimeout = time.Minute

// AttemptExpirer 清理超过 TTL 的未完成尝试
type AttemptExpirer interface {
	ExpireStaleAttempts(ttl time.Duration) int
}

// Snapshotter 把进度文档复制到安全位置
type Snapshotter interface {
	Snapshot(ctx context.Context) (string, error)
}

// Scheduler 定时维护任务：清理过期尝试、文档快照。
// 间隔为0的任务不注册
type Scheduler struct {
	scheduler *gocron.Scheduler

	Attempts         AttemptExpirer
	Store            Snapshotter
	AttemptTTL       time.Duration
	SweepInterval    time.Duration
	SnapshotInterval time.Duration
}

func New(attempts AttemptExpirer, store Snapshotter) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		Attempts:  attempts,
		Store:     store,
	}
}

// Start 注册启用的任务并在后台运行
func (s *Scheduler) Start() error {
	if s.Attempts != nil && s.AttemptTTL > 0 && s.SweepInterval > 0 {
		if _, err := s.scheduler.Every(s.SweepInterval).Do(func() { s.SweepStaleAttempts() }); err != nil {
			return err
		}
		logger.Log.Info("Stale attempt sweep scheduled",
			zap.Duration("ttl", s.AttemptTTL), zap.Duration("interval", s.SweepInterval))
	}

	if s.Store != nil && s.SnapshotInterval > 0 {
		if _, err := s.scheduler.Every(s.SnapshotInterval).Do(s.TakeSnapshot); err != nil {
			return err
		}
		logger.Log.Info("Document snapshots scheduled", zap.Duration("interval", s.SnapshotInterval))
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Jobs 已注册的任务数
func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}

func (s *Scheduler) SweepStaleAttempts() int {
	n := s.Attempts.ExpireStaleAttempts(s.AttemptTTL)
	if n > 0 {
		logger.Log.Info("Stale attempts swept", zap.Int("count", n))
	}
	return n
}

func (s *Scheduler) TakeSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	location, err := s.Store.Snapshot(ctx)
	if err != nil {
		logger.Log.Error("Document snapshot failed", zap.Error(err))
		return
	}
	logger.Log.Info("Document snapshot written", zap.String("location", location))
}
