package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteGlobalErrorsXLSX(t *testing.T) {
	env := newTestEnv(t, nil)
	env.runAttempt(t, "u1", "s1", false, stepErr{2, "timing", "push", "pull"})
	env.runAttempt(t, "u2", "s2", true)

	var buf bytes.Buffer
	require.NoError(t, NewExportService(env.analytics).WriteGlobalErrorsXLSX(context.Background(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetSkills, SheetProblematic, SheetConfusion}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"Total attempts", "2"}, summary[1])
	assert.Equal(t, []string{"Total users", "2"}, summary[2])

	skills, err := f.GetRows(SheetSkills)
	require.NoError(t, err)
	require.Len(t, skills, 3)
	assert.Equal(t, []string{"s1", "1", "1", "1", "1", "2"}, skills[1])

	confusion, err := f.GetRows(SheetConfusion)
	require.NoError(t, err)
	require.Len(t, confusion, 2)
	assert.Equal(t, "Users press pull instead of push", confusion[1][3])
}
