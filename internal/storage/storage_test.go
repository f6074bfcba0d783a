package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revbucket/sa-decontamination/internal/model"
)

func TestReadWritePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "data.bin")
	payload := []byte("hello decontamination")

	require.NoError(t, WriteFile(path, payload))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadWriteGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin.gz")
	payload := []byte("compress me, repeatedly, compress me, repeatedly")

	require.NoError(t, WriteFile(path, payload))

	// The on-disk bytes really are a gzip stream.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, raw[:2])

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.bin"))
	assert.ErrorIs(t, err, model.ErrIO)
}

func TestReadCorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip at all"), 0644))

	_, err := ReadFile(path)
	assert.ErrorIs(t, err, model.ErrIO)
}

func TestReadAny(t *testing.T) {
	dir := t.TempDir()
	gzPath := filepath.Join(dir, "text.bin.gz")
	require.NoError(t, WriteFile(gzPath, []byte("payload")))

	got, err := ReadAny(filepath.Join(dir, "text.bin"), gzPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	_, err = ReadAny(filepath.Join(dir, "a"), filepath.Join(dir, "b"))
	assert.ErrorIs(t, err, model.ErrIO)
}

func TestExpandDirs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested", "deep")
	require.NoError(t, os.MkdirAll(sub, 0755))

	keep := []string{
		filepath.Join(dir, "a.jsonl"),
		filepath.Join(dir, "b.json.gz"),
		filepath.Join(sub, "c.jsonl.gz"),
	}
	skip := []string{
		filepath.Join(dir, "readme.md"),
		filepath.Join(sub, "data.csv"),
	}
	for _, p := range append(append([]string{}, keep...), skip...) {
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0644))
	}

	files, err := ExpandDirs([]string{dir})
	require.NoError(t, err)
	assert.ElementsMatch(t, keep, files)

	// A file root is accepted directly.
	files, err = ExpandDirs([]string{keep[0]})
	require.NoError(t, err)
	assert.Equal(t, []string{keep[0]}, files)

	_, err = ExpandDirs([]string{filepath.Join(dir, "missing")})
	assert.ErrorIs(t, err, model.ErrIO)
}
