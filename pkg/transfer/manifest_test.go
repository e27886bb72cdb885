package transfer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionSplitsFilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "compose.yaml")
	require.NoError(t, os.WriteFile(file, []byte("services: {}\n"), 0o644))
	sub := filepath.Join(dir, "conf")
	require.NoError(t, os.Mkdir(sub, 0o755))

	m := Manifest{
		{Local: file, Remote: "/opt/app/compose.yaml"},
		{Local: sub, Remote: "/opt/app/conf"},
	}
	files, dirs, err := m.Partition()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Len(t, dirs, 1)
	assert.Equal(t, file, files[0].Local)
	assert.Equal(t, sub, dirs[0].Local)
}

func TestPartitionFailsOnMissingLocalPath(t *testing.T) {
	m := Manifest{{Local: filepath.Join(t.TempDir(), "missing"), Remote: "/opt/app/x"}}
	_, _, err := m.Partition()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUploadReportPartialFailure(t *testing.T) {
	boom := errors.New("sftp: permission denied")
	report := &UploadReport{Files: []FileResult{
		{Local: "a", Remote: "/opt/app/a", Bytes: 10},
		{Local: "b", Remote: "/opt/app/b", Err: boom},
		{Local: "c", Remote: "/opt/app/c", Bytes: 3},
	}}

	assert.False(t, report.Ok())
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "b", report.Failed()[0].Local)
	assert.Equal(t, "2/3 files transferred", report.Summary())
}

func TestUploadReportAllOk(t *testing.T) {
	report := &UploadReport{Files: []FileResult{
		{Local: "a", Remote: "/opt/app/a"},
	}}
	assert.True(t, report.Ok())
	assert.Equal(t, "1/1 files transferred", report.Summary())
}
