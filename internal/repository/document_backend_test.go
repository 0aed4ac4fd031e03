package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"skilltrack_backend/internal/config"
	"skilltrack_backend/internal/model"
	"skilltrack_backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestFileBackendMissingFile(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "nested", "doc.json"))

	data, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, b.Save(context.Background(), []byte(`{}`)))
	data, err = b.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestFileBackendLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(filepath.Join(dir, "doc.json"))
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Save(context.Background(), []byte(`{"n":1}`)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.json", entries[0].Name())
}

func TestGormBackendOptimisticVersion(t *testing.T) {
	if os.Getenv("SKILLTRACK_TEST_MYSQL_HOST") == "" {
		t.Skip("SKILLTRACK_TEST_MYSQL_HOST not set")
	}
	cfg := &config.DatabaseConfig{
		Host:      os.Getenv("SKILLTRACK_TEST_MYSQL_HOST"),
		Port:      3306,
		User:      os.Getenv("SKILLTRACK_TEST_MYSQL_USER"),
		Password:  os.Getenv("SKILLTRACK_TEST_MYSQL_PASSWORD"),
		DBName:    os.Getenv("SKILLTRACK_TEST_MYSQL_DB"),
		Charset:   "utf8mb4",
		ParseTime: true,
	}
	db, err := gorm.Open(mysql.Open(database.DSN(cfg)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.DocumentRecord{}))

	name := "test-" + t.Name()
	t.Cleanup(func() { db.Where("name = ?", name).Delete(&model.DocumentRecord{}) })

	ctx := context.Background()
	a := NewGormBackend(db, name)
	b := NewGormBackend(db, name)

	data, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)
	require.NoError(t, a.Save(ctx, []byte(`{"v":1}`)))

	_, err = b.Load(ctx)
	require.NoError(t, err)
	_, err = a.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, a.Save(ctx, []byte(`{"v":2}`)))
	assert.ErrorIs(t, b.Save(ctx, []byte(`{"v":3}`)), ErrConcurrentModification)

	data, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))
}
