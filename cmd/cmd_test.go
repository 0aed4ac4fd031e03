package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"skilltrack_backend/internal/repository"
	"skilltrack_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (configDir, docPath string) {
	t.Helper()
	dir := t.TempDir()
	docPath = filepath.Join(dir, "user_progress.json")
	yaml := fmt.Sprintf(`storage:
  backend: file
  document_path: %s
  backup_type: none
catalog:
  dir: %s
  watch: false
`, docPath, filepath.Join(dir, "skill_steps"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	return dir, docPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir, docPath := writeConfig(t)

	out, err := runCLI(t, "validate", "--config", dir, "--env-file", filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Contains(t, out, "OK")

	require.NoError(t, os.WriteFile(docPath, []byte(`{"users": []}`), 0644))
	_, err = runCLI(t, "validate", "--config", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrCorruptDocument)

	raw, err := os.ReadFile(docPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"users": []}`, string(raw), "validate must not rewrite the document")
}

func TestResetUserCommand(t *testing.T) {
	dir, docPath := writeConfig(t)

	_, err := runCLI(t, "reset-user", "ghost", "--config", dir)
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	repo := repository.NewProgressRepository(repository.NewFileBackend(docPath), nil)
	_, err = repo.CreateUser(context.Background(), "u1")
	require.NoError(t, err)

	out, err := runCLI(t, "reset-user", "u1", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Progress cleared for user u1")
}

func TestExportCommand(t *testing.T) {
	dir, _ := writeConfig(t)
	output := filepath.Join(dir, "errors.xlsx")

	out, err := runCLI(t, "export", "--config", dir, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, output)

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("PK")))
}
