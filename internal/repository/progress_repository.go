package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/util"
	"skilltrack_backend/pkg/logger"
	"skilltrack_backend/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCommitRetries = 3

// CommitHook 每次写入成功后在写锁之外执行
type CommitHook func(ctx context.Context)

// ProgressRepository 持久化用户和已完成的尝试。
// 所有修改操作都在同一把写锁内完成 读取-修改-保存
type ProgressRepository struct {
	backend DocumentBackend
	backup  BackupSink
	Now     func() time.Time

	mu    sync.RWMutex
	hooks []CommitHook

	// 本进程的保存次数，只在写锁内递增
	generation atomic.Uint64
	instance   string
}

// NewProgressRepository backup 为 nil 时不做备份
func NewProgressRepository(backend DocumentBackend, backup BackupSink) *ProgressRepository {
	return &ProgressRepository{
		backend:  backend,
		backup:   backup,
		Now:      func() time.Time { return time.Now().UTC() },
		instance: uuid.NewString()[:8],
	}
}

// Version 标识本仓库最后一次提交的文档状态，每次保存成功都会变化
func (r *ProgressRepository) Version() string {
	return r.versionOf(r.generation.Load())
}

func (r *ProgressRepository) versionOf(gen uint64) string {
	return r.instance + "." + strconv.FormatUint(gen, 10)
}

func (r *ProgressRepository) OnCommit(hook CommitHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Init 文档不存在时写入空文档，文档损坏时执行恢复
func (r *ProgressRepository) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := r.backend.Load(ctx)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return r.save(ctx, model.NewDocument())
	}
	if _, verr := DecodeDocument(raw); verr != nil {
		if !errors.Is(verr, ErrCorruptDocument) {
			return verr
		}
		_, err := r.recoverLocked(ctx, raw, verr)
		return err
	}
	return nil
}

func (r *ProgressRepository) read(ctx context.Context) (*model.Document, []byte, error) {
	raw, err := r.backend.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return model.NewDocument(), nil, nil
	}
	doc, err := DecodeDocument(raw)
	if err != nil {
		return nil, raw, err
	}
	return doc, raw, nil
}

func (r *ProgressRepository) save(ctx context.Context, doc *model.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := r.backend.Save(ctx, data); err != nil {
		monitoring.DocumentCommits.WithLabelValues("error").Inc()
		return err
	}
	r.generation.Add(1)
	monitoring.DocumentCommits.WithLabelValues("ok").Inc()
	return nil
}

// recoverLocked 备份损坏的文档并替换为空文档。
// 配置了备份且备份失败时，保留原文档不动
func (r *ProgressRepository) recoverLocked(ctx context.Context, raw []byte, cause error) (*model.Document, error) {
	location := ""
	if r.backup != nil && len(raw) > 0 {
		name := fmt.Sprintf("progress-corrupt-%s.json", r.Now().Format("20060102T150405.000000000Z"))
		loc, err := r.backup.Backup(ctx, name, raw)
		if err != nil {
			logger.Log.Error("Failed to back up corrupt progress document",
				zap.String("backend", r.backend.Describe()), zap.Error(err))
			return nil, fmt.Errorf("back up corrupt document: %w", err)
		}
		location = loc
	}

	doc := model.NewDocument()
	if err := r.save(ctx, doc); err != nil {
		return nil, err
	}

	monitoring.DocumentRecoveries.Inc()
	logger.Log.Error("Progress document was corrupt and has been reinitialized",
		zap.String("backend", r.backend.Describe()),
		zap.String("backup", location),
		zap.Int("bytes", len(raw)),
		zap.Error(cause))
	return doc, nil
}

// View 加载当前文档并交给 fn。文档是私有副本，fn 的修改不会保存
func (r *ProgressRepository) View(ctx context.Context, fn func(doc *model.Document) error) error {
	_, err := r.ViewVersion(ctx, fn)
	return err
}

// ViewVersion 同 View，另外返回 fn 看到的文档 Version
func (r *ProgressRepository) ViewVersion(ctx context.Context, fn func(doc *model.Document) error) (string, error) {
	r.mu.RLock()
	doc, _, err := r.read(ctx)
	gen := r.generation.Load()
	r.mu.RUnlock()

	if errors.Is(err, ErrCorruptDocument) {
		// 恢复需要写入，必须持有写锁
		r.mu.Lock()
		doc, err = r.loadOrRecoverLocked(ctx)
		gen = r.generation.Load()
		r.mu.Unlock()
	}
	if err != nil {
		return "", err
	}
	return r.versionOf(gen), fn(doc)
}

func (r *ProgressRepository) loadOrRecoverLocked(ctx context.Context) (*model.Document, error) {
	doc, raw, err := r.read(ctx)
	if errors.Is(err, ErrCorruptDocument) {
		return r.recoverLocked(ctx, raw, err)
	}
	return doc, err
}

// Update 对当前文档执行 fn 并保存。fn 返回错误时不写入。
// 共享后端的其他进程并发写入时，整个 读取-修改-保存 过程重试
func (r *ProgressRepository) Update(ctx context.Context, fn func(doc *model.Document) error) error {
	r.mu.Lock()
	var err error
	for i := 0; i < maxCommitRetries; i++ {
		var doc *model.Document
		doc, err = r.loadOrRecoverLocked(ctx)
		if err != nil {
			break
		}
		if err = fn(doc); err != nil {
			break
		}
		err = r.save(ctx, doc)
		if !errors.Is(err, ErrConcurrentModification) {
			break
		}
		logger.Log.Warn("Progress document changed underneath us, retrying",
			zap.String("backend", r.backend.Describe()), zap.Int("attempt", i+1))
	}
	hooks := r.hooks
	r.mu.Unlock()

	if err != nil {
		return err
	}
	for _, hook := range hooks {
		hook(ctx)
	}
	return nil
}

// Document 返回整个文档的快照
func (r *ProgressRepository) Document(ctx context.Context) (*model.Document, error) {
	var out *model.Document
	err := r.View(ctx, func(doc *model.Document) error {
		out = doc
		return nil
	})
	return out, err
}

// CreateUser 用户已存在则直接返回，否则以 Foundation 阶段新建
func (r *ProgressRepository) CreateUser(ctx context.Context, userID string) (*model.User, error) {
	var user *model.User
	var created bool

	// 用户已存在时不写入
	err := r.View(ctx, func(doc *model.Document) error {
		user = doc.Users[userID]
		return nil
	})
	if err != nil || user != nil {
		return user, err
	}

	err = r.Update(ctx, func(doc *model.Document) error {
		created = false
		if existing, ok := doc.Users[userID]; ok {
			user = existing
			return nil
		}
		user = model.NewUser(userID, r.Now())
		doc.Users[userID] = user
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created {
		logger.Log.Info("User created", zap.String("user_id", userID))
	}
	return user, nil
}

func (r *ProgressRepository) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var user *model.User
	err := r.View(ctx, func(doc *model.Document) error {
		u, ok := doc.Users[userID]
		if !ok {
			return util.ErrUserNotFound
		}
		user = u
		return nil
	})
	return user, err
}

// ClearUserProgress 重置用户的技能进度和会话，删除其已完成的尝试，
// 不影响其他用户
func (r *ProgressRepository) ClearUserProgress(ctx context.Context, userID string) error {
	removed := 0
	err := r.Update(ctx, func(doc *model.Document) error {
		// 提交冲突时闭包会重新执行
		removed = 0
		u, ok := doc.Users[userID]
		if !ok {
			return util.ErrUserNotFound
		}
		now := r.Now()
		u.SkillProgress = make(map[string]*model.SkillProgress)
		u.Sessions = []json.RawMessage{}
		u.UpdatedAt = &now

		kept := doc.Attempts[:0]
		for _, a := range doc.Attempts {
			if a.UserID == userID {
				removed++
				continue
			}
			kept = append(kept, a)
		}
		doc.Attempts = kept
		return nil
	})
	if err != nil {
		return err
	}
	logger.Log.Info("User progress cleared", zap.String("user_id", userID), zap.Int("attempts_removed", removed))
	return nil
}

// Snapshot 把当前文档复制到备份位置
func (r *ProgressRepository) Snapshot(ctx context.Context) (string, error) {
	if r.backup == nil {
		return "", errors.New("no backup sink configured")
	}

	r.mu.RLock()
	raw, err := r.backend.Load(ctx)
	r.mu.RUnlock()
	if err != nil {
		return "", err
	}
	if raw == nil {
		raw = []byte(`{"users":{},"attempts":[]}`)
	}

	name := fmt.Sprintf("progress-snapshot-%s.json", r.Now().Format("20060102T150405Z"))
	return r.backup.Backup(ctx, name, raw)
}

// Check 校验存储的文档但不修改。
// 仅当加载会触发恢复时返回错误
func (r *ProgressRepository) Check(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	raw, err := r.backend.Load(ctx)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return ValidateDocument(raw)
}
