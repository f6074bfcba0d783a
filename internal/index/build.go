package index

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/revbucket/sa-decontamination/internal/codec"
	"github.com/revbucket/sa-decontamination/internal/model"
	"github.com/revbucket/sa-decontamination/internal/storage"
)

// Build constructs a suffix-array index over the concatenated validation
// corpus text. The boundary table must start at 0, be non-decreasing,
// and end at the text length.
func Build(text []byte, boundaries Boundaries) (*Index, error) {
	if err := boundaries.validate(); err != nil {
		return nil, err
	}
	if boundaries[len(boundaries)-1] != uint64(len(text)) {
		return nil, fmt.Errorf("%w: boundary table ends at %d, corpus has %d bytes",
			model.ErrIndex, boundaries[len(boundaries)-1], len(text))
	}
	if len(text) == 0 {
		return nil, fmt.Errorf("%w: empty corpus text", model.ErrIndex)
	}

	sa := make([]int, len(text))
	for i := range sa {
		sa[i] = i
	}
	sort.Slice(sa, func(i, j int) bool {
		return bytes.Compare(text[sa[i]:], text[sa[j]:]) < 0
	})

	width := entryWidth(len(text))
	table := make([]byte, 0, len(sa)*width)
	for _, pos := range sa {
		table = appendEntry(table, uint64(pos), width)
	}
	return &Index{Text: text, Table: table, Width: width}, nil
}

// entryWidth returns the smallest byte width that can encode every
// position of a corpus of n bytes.
func entryWidth(n int) int {
	width := 1
	for width < 8 && n > 1<<(8*width) {
		width++
	}
	return width
}

func appendEntry(table []byte, pos uint64, width int) []byte {
	for b := 0; b < width; b++ {
		table = append(table, byte(pos>>(8*b)))
	}
	return table
}

// Write persists the index and its boundary table into dir. With
// compress set, the text and table files get a .gz suffix; the boundary
// file name is fixed since phase 2 derives it from the index directory.
func Write(dir string, ix *Index, boundaries Boundaries, compress bool) error {
	textPath := filepath.Join(dir, TextFile)
	tablePath := filepath.Join(dir, TableFile)
	if compress {
		textPath += ".gz"
		tablePath += ".gz"
	}
	if err := storage.WriteFile(textPath, ix.Text); err != nil {
		return err
	}
	if err := storage.WriteFile(tablePath, ix.Table); err != nil {
		return err
	}
	return storage.WriteFile(filepath.Join(dir, BoundaryFile), codec.EncodeUint64s(boundaries))
}
