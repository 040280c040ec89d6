package source_test

import (
	"io"
	"os"
	"testing"

	"github.com/jademcosta/courier/pkg/adapters/source"
	"github.com/jademcosta/courier/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReturnsContentAndSize(t *testing.T) {
	sut := source.NewMemory(logger.NewDummy())
	require.NoError(t, sut.WriteFile("/data/photos/a.jpg", []byte("some image bytes")))

	r, size, err := sut.Open("/data/photos/a.jpg")
	require.NoError(t, err, "opening an existing file should not error")
	defer r.Close()

	assert.Equal(t, int64(16), size, "size should come from the file info")
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "some image bytes", string(content))
}

func TestOpenMissingFile(t *testing.T) {
	sut := source.NewMemory(logger.NewDummy())

	_, _, err := sut.Open("/not/there")
	require.Error(t, err, "opening a missing file should error")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenDirectory(t *testing.T) {
	sut := source.NewMemory(logger.NewDummy())
	require.NoError(t, sut.WriteFile("/dir/file", []byte("x")))

	_, _, err := sut.Open("/dir")
	assert.ErrorIs(t, err, source.ErrNotRegularFile, "directories cannot be uploaded")
}

func TestOpenEmptyFile(t *testing.T) {
	sut := source.NewMemory(logger.NewDummy())
	require.NoError(t, sut.WriteFile("/empty", []byte{}))

	r, size, err := sut.Open("/empty")
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(0), size)
}
