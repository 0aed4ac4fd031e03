package service

import (
	"context"
	"strings"
	"time"

	"skilltrack_backend/internal/ledger"
	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/repository"
	"skilltrack_backend/internal/util"
	"skilltrack_backend/pkg/logger"
	"skilltrack_backend/pkg/monitoring"
	"skilltrack_backend/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProgressService 尝试的生命周期：
// 未完成的尝试保存在 ledger 中，完成时交给仓库
type ProgressService struct {
	Repo   *repository.ProgressRepository
	Ledger *ledger.Ledger
	Now    func() time.Time
	NewID  func() string
}

func NewProgressService(repo *repository.ProgressRepository, l *ledger.Ledger) *ProgressService {
	return &ProgressService{
		Repo:   repo,
		Ledger: l,
		Now:    func() time.Time { return time.Now().UTC() },
		NewID:  newAttemptID,
	}
}

func newAttemptID() string {
	return "att_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (s *ProgressService) CreateUser(ctx context.Context, userID string) (*model.User, error) {
	return s.Repo.CreateUser(ctx, userID)
}

func (s *ProgressService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.Repo.GetUser(ctx, userID)
}

// StartAttempt 开始新的尝试，用户不存在时先创建。
// 只有用户记录写入失败时才返回错误
func (s *ProgressService) StartAttempt(ctx context.Context, userID, skillID string) (string, error) {
	ctx, end := tracing.StartSpan(ctx, "progress.start_attempt",
		attribute.String("user_id", userID), attribute.String("skill_id", skillID))

	if _, err := s.Repo.CreateUser(ctx, userID); err != nil {
		end(err)
		return "", err
	}

	attemptID := s.NewID()
	s.Ledger.Open(model.NewAttempt(attemptID, userID, skillID, s.Now()))
	monitoring.AttemptsStarted.Inc()
	end(nil)

	logger.Log.Debug("Attempt started",
		zap.String("attempt_id", attemptID),
		zap.String("user_id", userID),
		zap.String("skill_id", skillID))
	return attemptID, nil
}

// RecordInput 追加输入事件，timestamp 为 nil 时取当前时间
func (s *ProgressService) RecordInput(attemptID string, stepNumber int, expected, actual string, ts *time.Time) error {
	at := s.Now()
	if ts != nil {
		at = ts.UTC()
	}
	ok := s.Ledger.RecordInput(attemptID, model.InputRecord{
		StepNumber:    stepNumber,
		ExpectedInput: expected,
		ActualInput:   actual,
		IsCorrect:     expected == actual,
		Timestamp:     at,
	})
	if !ok {
		return util.ErrAttemptNotFound
	}
	return nil
}

func (s *ProgressService) RecordError(attemptID string, stepNumber int, errorType, expectedAction, actualAction string) error {
	ok := s.Ledger.RecordError(attemptID, model.ErrorRecord{
		StepNumber:     stepNumber,
		ErrorType:      errorType,
		ExpectedAction: expectedAction,
		ActualAction:   actualAction,
		Timestamp:      s.Now(),
	})
	if !ok {
		return util.ErrAttemptNotFound
	}
	return nil
}

// RecordTelemetry 接收 camelCase 或 snake_case 键的原始步骤数据
func (s *ProgressService) RecordTelemetry(attemptID string, payload []byte) error {
	rec := ParseTelemetry(payload, s.Now())
	if !s.Ledger.RecordTelemetry(attemptID, rec) {
		return util.ErrAttemptNotFound
	}
	return nil
}

// GetOpenAttempt 返回未完成尝试的副本
func (s *ProgressService) GetOpenAttempt(attemptID string) (*model.Attempt, error) {
	a, ok := s.Ledger.Get(attemptID)
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	return a, nil
}

// CompleteAttempt 未完成的尝试只能完成一次。再次完成（无论是否并发）
// 返回 ErrAttemptNotFound 且不修改存储。
// 写入存储失败时尝试会放回 ledger，调用方可以重试
func (s *ProgressService) CompleteAttempt(ctx context.Context, attemptID string, success bool) error {
	ctx, end := tracing.StartSpan(ctx, "progress.complete_attempt", attribute.String("attempt_id", attemptID))

	a, ok := s.Ledger.Take(attemptID)
	if !ok {
		monitoring.CompletionConflicts.Inc()
		logger.Log.Debug("Completion for unknown or already completed attempt", zap.String("attempt_id", attemptID))
		end(util.ErrAttemptNotFound)
		return util.ErrAttemptNotFound
	}

	finished := s.Now()
	a.EndTime = &finished
	a.Success = &success

	err := s.Repo.Update(ctx, func(doc *model.Document) error {
		applyCompletion(doc, a.Clone(), finished)
		return nil
	})
	if err != nil {
		a.EndTime = nil
		a.Success = nil
		s.Ledger.Restore(a)
		logger.Log.Error("Failed to persist completed attempt",
			zap.String("attempt_id", attemptID), zap.Error(err))
		end(err)
		return err
	}

	result := "failure"
	if success {
		result = "success"
	}
	monitoring.AttemptsCompleted.WithLabelValues(result).Inc()
	end(nil)

	logger.Log.Info("Attempt completed",
		zap.String("attempt_id", attemptID),
		zap.String("user_id", a.UserID),
		zap.String("skill_id", a.SkillID),
		zap.Bool("success", success),
		zap.Int("errors", len(a.StepErrors)))
	return nil
}

func (s *ProgressService) ClearUserProgress(ctx context.Context, userID string) error {
	return s.Repo.ClearUserProgress(ctx, userID)
}

// ExpireStaleAttempts 丢弃超过 ttl 的未完成尝试，ttl 不大于0时全部保留
func (s *ProgressService) ExpireStaleAttempts(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	expired := s.Ledger.Sweep(s.Now().Add(-ttl))
	for _, a := range expired {
		monitoring.AttemptsExpired.Inc()
		logger.Log.Warn("Discarded stale open attempt",
			zap.String("attempt_id", a.AttemptID),
			zap.String("user_id", a.UserID),
			zap.String("skill_id", a.SkillID),
			zap.Time("start_time", a.StartTime))
	}
	return len(expired)
}
