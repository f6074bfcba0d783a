// Package index implements the suffix-array index over the concatenated
// validation corpus: loading, substring-occurrence queries, and the
// document boundary table.
package index

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/revbucket/sa-decontamination/internal/cache"
	"github.com/revbucket/sa-decontamination/internal/codec"
	"github.com/revbucket/sa-decontamination/internal/model"
	"github.com/revbucket/sa-decontamination/internal/storage"
)

// On-disk layout inside an index directory. The table holds one entry
// per text byte, encoded little-endian at a fixed width; the width is
// recovered at load time as len(table)/len(text). The boundary file
// holds the cumulative document offsets.
const (
	TextFile     = "text.bin"
	TableFile    = "table.bin"
	BoundaryFile = ".size"
)

// Index is the read-only in-memory suffix-array index. It is immutable
// after Load and safe to share across all workers without locking.
type Index struct {
	Text  []byte
	Table []byte
	Width int

	queryCache cache.Cache
}

// Load reads the full text buffer and offset table from dir.
func Load(dir string) (*Index, error) {
	text, err := storage.ReadAny(filepath.Join(dir, TextFile), filepath.Join(dir, TextFile+".gz"))
	if err != nil {
		return nil, fmt.Errorf("%w: load text: %v", model.ErrIndex, err)
	}
	table, err := storage.ReadAny(filepath.Join(dir, TableFile), filepath.Join(dir, TableFile+".gz"))
	if err != nil {
		return nil, fmt.Errorf("%w: load table: %v", model.ErrIndex, err)
	}
	return newIndex(text, table)
}

func newIndex(text, table []byte) (*Index, error) {
	if len(text) == 0 {
		return nil, fmt.Errorf("%w: empty corpus text", model.ErrIndex)
	}
	width := len(table) / len(text)
	if width < 1 || width > 8 || width*len(text) != len(table) {
		return nil, fmt.Errorf("%w: table size %d does not divide into %d fixed-width entries",
			model.ErrIndex, len(table), len(text))
	}
	return &Index{Text: text, Table: table, Width: width}, nil
}

// SetCache installs an occurrence-query cache. Values are codec-encoded
// position lists keyed by the window bytes.
func (ix *Index) SetCache(c cache.Cache) {
	ix.queryCache = c
}

// Len returns the number of suffixes in the table.
func (ix *Index) Len() int {
	return len(ix.Table) / ix.Width
}

// entry decodes the i-th table entry as an absolute text position.
func (ix *Index) entry(i int) uint64 {
	var v uint64
	off := i * ix.Width
	for b := ix.Width - 1; b >= 0; b-- {
		v = v<<8 | uint64(ix.Table[off+b])
	}
	return v
}

// cmpSuffix compares the suffix at table entry i against query,
// truncated to the query length. A suffix shorter than the query that
// matches as far as it goes compares less: it cannot contain the query.
func (ix *Index) cmpSuffix(i int, query []byte) int {
	pos := int(ix.entry(i))
	end := pos + len(query)
	if end > len(ix.Text) {
		end = len(ix.Text)
	}
	return bytes.Compare(ix.Text[pos:end], query)
}

// Occurrences returns every position in the corpus text where query
// occurs as an exact contiguous substring. The occurrence band is found
// with two binary searches over the suffix ordering; entries inside the
// band decode to the result positions. Returns an empty slice, never an
// error, when the query does not occur. Repeated substrings yield one
// position per table entry since they are genuinely repeated
// occurrences.
func (ix *Index) Occurrences(query []byte) []uint64 {
	if len(query) == 0 {
		return nil
	}

	var key string
	if ix.queryCache != nil {
		key = cache.WindowKey(query)
		if val, ok := ix.queryCache.Get(key); ok {
			positions, err := codec.DecodeUint64s(val)
			if err == nil {
				return positions
			}
			// Corrupt entry: fall through to a fresh query.
			_ = ix.queryCache.Delete(key)
		}
	}

	n := ix.Len()
	lo := sort.Search(n, func(i int) bool { return ix.cmpSuffix(i, query) >= 0 })
	hi := sort.Search(n, func(i int) bool { return ix.cmpSuffix(i, query) > 0 })

	positions := make([]uint64, 0, hi-lo)
	for i := lo; i < hi; i++ {
		positions = append(positions, ix.entry(i))
	}

	if ix.queryCache != nil {
		_ = ix.queryCache.Set(key, codec.EncodeUint64s(positions), 0)
	}
	return positions
}

// Boundaries is the ordered cumulative-offset table of the validation
// corpus: document i occupies [Boundaries[i], Boundaries[i+1]).
type Boundaries []uint64

// LoadBoundaries reads the boundary table from the index directory.
func LoadBoundaries(dir string) (Boundaries, error) {
	data, err := storage.ReadAny(filepath.Join(dir, BoundaryFile), filepath.Join(dir, BoundaryFile+".gz"))
	if err != nil {
		return nil, fmt.Errorf("%w: load boundaries: %v", model.ErrIndex, err)
	}
	vals, err := codec.DecodeUint64s(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode boundaries: %v", model.ErrIndex, err)
	}
	b := Boundaries(vals)
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b Boundaries) validate() error {
	if len(b) < 2 {
		return fmt.Errorf("%w: boundary table needs at least two offsets, got %d", model.ErrIndex, len(b))
	}
	if b[0] != 0 {
		return fmt.Errorf("%w: boundary table must start at 0, got %d", model.ErrIndex, b[0])
	}
	for i := 1; i < len(b); i++ {
		if b[i] < b[i-1] {
			return fmt.Errorf("%w: boundary table decreases at %d (%d < %d)", model.ErrIndex, i, b[i], b[i-1])
		}
	}
	return nil
}

// NumDocs returns the number of validation documents.
func (b Boundaries) NumDocs() int {
	return len(b) - 1
}

// DocSize returns the byte length of validation document i.
func (b Boundaries) DocSize(i int) uint64 {
	return b[i+1] - b[i]
}

// Locate returns the unique document i with b[i] <= pos < b[i+1].
// A position at or past the corpus end is an error: it belongs to no
// document.
func (b Boundaries) Locate(pos uint64) (int, error) {
	if pos >= b[len(b)-1] {
		return 0, fmt.Errorf("%w: position %d past corpus end %d", model.ErrIndex, pos, b[len(b)-1])
	}
	i := sort.Search(b.NumDocs(), func(i int) bool { return b[i+1] > pos })
	return i, nil
}
