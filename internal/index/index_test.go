package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revbucket/sa-decontamination/internal/cache"
	"github.com/revbucket/sa-decontamination/internal/codec"
	"github.com/revbucket/sa-decontamination/internal/model"
	"github.com/revbucket/sa-decontamination/internal/storage"
)

func buildTestIndex(t *testing.T, text string, boundaries Boundaries) *Index {
	t.Helper()
	ix, err := Build([]byte(text), boundaries)
	require.NoError(t, err)
	return ix
}

func TestOccurrences(t *testing.T) {
	ix := buildTestIndex(t, "abcabc", Boundaries{0, 6})

	assert.ElementsMatch(t, []uint64{0, 3}, ix.Occurrences([]byte("abc")))
	assert.ElementsMatch(t, []uint64{0}, ix.Occurrences([]byte("abcab")))
	assert.ElementsMatch(t, []uint64{2, 5}, ix.Occurrences([]byte("c")))
	assert.Empty(t, ix.Occurrences([]byte("abd")))
	assert.Empty(t, ix.Occurrences([]byte("abcabca")))
	assert.Empty(t, ix.Occurrences(nil))
}

func TestOccurrencesRepeatedText(t *testing.T) {
	// Every occurrence is reported, one per table entry.
	ix := buildTestIndex(t, "aaaa", Boundaries{0, 4})

	assert.ElementsMatch(t, []uint64{0, 1, 2, 3}, ix.Occurrences([]byte("a")))
	assert.ElementsMatch(t, []uint64{0, 1, 2}, ix.Occurrences([]byte("aa")))
	assert.ElementsMatch(t, []uint64{0}, ix.Occurrences([]byte("aaaa")))
}

func TestOccurrencesWithCache(t *testing.T) {
	ix := buildTestIndex(t, "abcabc", Boundaries{0, 6})
	ix.SetCache(cache.NewMemoryCache(0, 0))

	// Same answer on the cold query and the cached one.
	assert.ElementsMatch(t, []uint64{0, 3}, ix.Occurrences([]byte("abc")))
	assert.ElementsMatch(t, []uint64{0, 3}, ix.Occurrences([]byte("abc")))
	assert.Empty(t, ix.Occurrences([]byte("zzz")))
	assert.Empty(t, ix.Occurrences([]byte("zzz")))
}

func TestEntryWidth(t *testing.T) {
	assert.Equal(t, 1, entryWidth(6))
	assert.Equal(t, 1, entryWidth(256))
	assert.Equal(t, 2, entryWidth(257))
	assert.Equal(t, 2, entryWidth(1 << 16))
	assert.Equal(t, 3, entryWidth(1<<16+1))
}

func TestBuildWideEntries(t *testing.T) {
	// A corpus over 256 bytes forces two-byte table entries.
	text := make([]byte, 300)
	for i := range text {
		text[i] = byte('a' + i%3)
	}
	ix, err := Build(text, Boundaries{0, 300})
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Width)
	assert.Equal(t, 300, ix.Len())

	// "cab" occurs at every position p with p%3 == 2, p <= 296.
	occ := ix.Occurrences([]byte("cab"))
	require.NotEmpty(t, occ)
	for _, p := range occ {
		assert.Equal(t, uint64(2), p%3)
	}
	assert.Len(t, occ, 99)
}

func TestBuildRejectsBadBoundaries(t *testing.T) {
	_, err := Build([]byte("abc"), Boundaries{0, 2})
	assert.ErrorIs(t, err, model.ErrIndex)

	_, err = Build([]byte("abc"), Boundaries{1, 3})
	assert.ErrorIs(t, err, model.ErrIndex)

	_, err = Build([]byte("abc"), Boundaries{0, 2, 1, 3})
	assert.ErrorIs(t, err, model.ErrIndex)

	_, err = Build(nil, Boundaries{0, 0})
	assert.ErrorIs(t, err, model.ErrIndex)
}

func TestWriteLoadRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		dir := t.TempDir()
		boundaries := Boundaries{0, 3, 6}
		built := buildTestIndex(t, "abcabc", boundaries)
		require.NoError(t, Write(dir, built, boundaries, compress))

		loaded, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, built.Text, loaded.Text)
		assert.Equal(t, built.Table, loaded.Table)
		assert.Equal(t, built.Width, loaded.Width)

		b, err := LoadBoundaries(dir)
		require.NoError(t, err)
		assert.Equal(t, boundaries, b)
	}
}

func TestLoadRejectsMisalignedTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, storage.WriteFile(filepath.Join(dir, TextFile), []byte("abcabc")))
	require.NoError(t, storage.WriteFile(filepath.Join(dir, TableFile), []byte{1, 2, 3, 4}))

	_, err := Load(dir)
	assert.ErrorIs(t, err, model.ErrIndex)
}

func TestLoadBoundariesRejectsBadTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, storage.WriteFile(filepath.Join(dir, BoundaryFile), codec.EncodeUint64s([]uint64{0, 5, 3})))

	_, err := LoadBoundaries(dir)
	assert.ErrorIs(t, err, model.ErrIndex)
}

func TestLocate(t *testing.T) {
	b := Boundaries{0, 3, 3, 10}

	// Every in-range position resolves to the unique enclosing doc.
	for pos := uint64(0); pos < 3; pos++ {
		doc, err := b.Locate(pos)
		require.NoError(t, err)
		assert.Equal(t, 0, doc, "pos %d", pos)
	}
	for pos := uint64(3); pos < 10; pos++ {
		doc, err := b.Locate(pos)
		require.NoError(t, err)
		assert.Equal(t, 2, doc, "pos %d", pos)
	}

	// The corpus end belongs to no document.
	_, err := b.Locate(10)
	assert.ErrorIs(t, err, model.ErrIndex)
	_, err = b.Locate(11)
	assert.ErrorIs(t, err, model.ErrIndex)
}

func TestBoundaryDocSizes(t *testing.T) {
	b := Boundaries{0, 3, 3, 10}
	assert.Equal(t, 3, b.NumDocs())
	assert.Equal(t, uint64(3), b.DocSize(0))
	assert.Equal(t, uint64(0), b.DocSize(1))
	assert.Equal(t, uint64(7), b.DocSize(2))
}
