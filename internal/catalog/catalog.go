package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/util"
	"skilltrack_backend/pkg/filewatch"
	"skilltrack_backend/pkg/logger"

	"go.uber.org/zap"
)

const IndexFile = "_index.json"

// Catalog 从目录加载技能索引和每个技能的步骤定义
type Catalog struct {
	dir string

	mu    sync.RWMutex
	index []model.SkillCatalogEntry
	steps map[string]*model.SkillSteps
}

func New(dir string) *Catalog {
	return &Catalog{dir: dir, steps: make(map[string]*model.SkillSteps)}
}

// Reload 重新读取索引。索引文件不存在时返回空目录；格式错误时报错并保留旧索引
func (c *Catalog) Reload() error {
	raw, err := os.ReadFile(filepath.Join(c.dir, IndexFile))
	var index []model.SkillCatalogEntry
	switch {
	case errors.Is(err, os.ErrNotExist):
		index = []model.SkillCatalogEntry{}
	case err != nil:
		return fmt.Errorf("read skill index: %w", err)
	default:
		if err := json.Unmarshal(raw, &index); err != nil {
			return fmt.Errorf("parse skill index: %w", err)
		}
	}

	c.mu.Lock()
	c.index = index
	c.steps = make(map[string]*model.SkillSteps)
	c.mu.Unlock()

	logger.Log.Info("Skill catalog loaded", zap.String("dir", c.dir), zap.Int("skills", len(index)))
	return nil
}

// Skills 按文件顺序返回索引
func (c *Catalog) Skills() []model.SkillCatalogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.SkillCatalogEntry{}, c.index...)
}

func (c *Catalog) Lookup(skillID string) (model.SkillCatalogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.index {
		if e.SkillID == skillID {
			return e, true
		}
	}
	return model.SkillCatalogEntry{}, false
}

// Steps 加载 <skill_id>.json，缓存到下一次重新加载
func (c *Catalog) Steps(skillID string) (*model.SkillSteps, error) {
	if skillID == "" || strings.ContainsAny(skillID, `/\`) || strings.HasPrefix(skillID, ".") {
		return nil, util.ErrSkillNotFound
	}

	c.mu.RLock()
	cached, ok := c.steps[skillID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	raw, err := os.ReadFile(filepath.Join(c.dir, skillID+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, util.ErrSkillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read skill %s: %w", skillID, err)
	}

	var steps model.SkillSteps
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, fmt.Errorf("parse skill %s: %w", skillID, err)
	}
	if steps.SkillID == "" {
		steps.SkillID = skillID
	}

	c.mu.Lock()
	c.steps[skillID] = &steps
	c.mu.Unlock()
	return &steps, nil
}

// Watch 目录内文件变化时自动重新加载，直到 ctx 结束
func (c *Catalog) Watch(ctx context.Context) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	return filewatch.Watch(ctx, c.dir, 500*time.Millisecond, func() {
		if err := c.Reload(); err != nil {
			logger.Log.Error("Failed to reload skill catalog", zap.String("dir", c.dir), zap.Error(err))
		}
	})
}
