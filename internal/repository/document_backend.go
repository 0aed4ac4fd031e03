package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"skilltrack_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCorruptDocument        = errors.New("progress document is corrupt")
	ErrConcurrentModification = errors.New("progress document was modified concurrently")
)

// DocumentBackend 以单个 blob 持久化序列化后的进度文档。
// 尚未存储时 Load 返回 (nil, nil)
type DocumentBackend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Describe() string
}

// FileBackend 文档存为单个文件，保存时原子替换
type FileBackend struct {
	Path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.Path, err)
	}
	return data, nil
}

func (b *FileBackend) Save(ctx context.Context, data []byte) (err error) {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, b.Path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

func (b *FileBackend) Describe() string {
	return "file:" + b.Path
}

// GormBackend 文档存为 progress_documents 表的一行。
// 保存时以上次读到的版本号为条件，
// 共享该表的多个进程不会互相静默覆盖
type GormBackend struct {
	DB   *gorm.DB
	Name string

	mu      sync.Mutex
	version int64
	exists  bool
}

func NewGormBackend(db *gorm.DB, name string) *GormBackend {
	return &GormBackend{DB: db, Name: name}
}

func (b *GormBackend) Load(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var rec model.DocumentRecord
	err := b.DB.WithContext(ctx).Where("name = ?", b.Name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		b.version, b.exists = 0, false
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document %q: %w", b.Name, err)
	}
	b.version, b.exists = rec.Version, true
	return rec.Body, nil
}

func (b *GormBackend) Save(ctx context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	db := b.DB.WithContext(ctx)

	if !b.exists {
		rec := model.DocumentRecord{Name: b.Name, Body: data, Version: 1, UpdatedAt: now}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
		if res.Error != nil {
			return fmt.Errorf("insert document %q: %w", b.Name, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentModification
		}
		b.version, b.exists = 1, true
		return nil
	}

	res := db.Model(&model.DocumentRecord{}).
		Where("name = ? AND version = ?", b.Name, b.version).
		Updates(map[string]interface{}{
			"body":       data,
			"version":    b.version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("update document %q: %w", b.Name, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	b.version++
	return nil
}

func (b *GormBackend) Describe() string {
	return "mysql:" + b.Name
}
