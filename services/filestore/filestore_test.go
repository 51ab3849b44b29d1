package filestore

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	logsvc "github.com/trezcool/campus/services/logger"
)

func TestStorage(t *testing.T) {
	s := New(t.TempDir(), logsvc.NewNopLogger())

	name, err := s.Save(core.DirSubmissions, core.Upload{Filename: "Report.PDF", Content: strings.NewReader("hello")})
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{32}\.pdf$`, name)

	path, err := s.Path(core.DirSubmissions, name)
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	other, err := s.Save(core.DirSubmissions, core.Upload{Filename: "Report.PDF", Content: strings.NewReader("x")})
	require.NoError(t, err)
	assert.NotEqual(t, name, other)

	s.Remove(core.DirSubmissions, name)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	s.Remove(core.DirSubmissions, name) // already gone: no panic, only a log
}

func TestStorage_rejects(t *testing.T) {
	s := New(t.TempDir(), logsvc.NewNopLogger())

	_, err := s.Save("../etc", core.Upload{Filename: "a.txt", Content: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrUnknownDir)

	for _, name := range []string{"", "../secret.txt", "a/b.txt", ".env"} {
		_, err = s.Path(core.DirVideos, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}
