package mmap

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFloats(t *testing.T, vals ...float32) string {
	t.Helper()
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	path := filepath.Join(t.TempDir(), "features_p00_r000.npy")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestFile_ReadAt(t *testing.T) {
	path := writeFloats(t, 1, 2, 3, 4)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, int64(16), f.Size())

	buf := make([]byte, 8)
	n, err := f.ReadAt(buf, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	assert.Equal(t, float32(4), math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])))

	// Short read at the tail
	n, err = f.ReadAt(buf, 12)
	assert.Equal(t, 4, n)
	assert.Equal(t, io.EOF, err)

	n, err = f.ReadAt(buf, 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	_, err = f.ReadAt(buf, -1)
	assert.Equal(t, ErrInvalidOffset, err)
}

func TestFile_ModTime(t *testing.T) {
	path := writeFloats(t, 1)
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, f.ModTime().Equal(mtime))
}

func TestFile_CloseIdempotent(t *testing.T) {
	f, err := Open(writeFloats(t, 1))
	require.NoError(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.ReadAt(make([]byte, 4), 0)
	assert.Equal(t, ErrClosed, err)
}

func TestFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.npy")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Zero(t, f.Size())
	_, err = f.ReadAt(make([]byte, 4), 0)
	assert.Equal(t, io.EOF, err)
	require.NoError(t, f.Close())
}

func TestFile_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.npy"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
