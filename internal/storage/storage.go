// Package storage provides whole-buffer file I/O with transparent gzip
// compression and training-corpus directory expansion.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/revbucket/sa-decontamination/internal/model"
)

// trainExts are the file suffixes accepted during trainset expansion.
var trainExts = []string{".jsonl", ".json", ".jsonl.gz", ".json.gz"}

// ReadFile reads an entire file into memory, decompressing transparently
// when the path ends in .gz.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", model.ErrIO, path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: gunzip %s: %v", model.ErrIO, path, err)
	}
	defer func() { _ = zr.Close() }()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: gunzip %s: %v", model.ErrIO, path, err)
	}
	return out, nil
}

// WriteFile writes an entire buffer to path, creating parent directories
// and gzip-compressing when the path ends in .gz.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create dir %s: %v", model.ErrIO, dir, err)
		}
	}
	if strings.HasSuffix(path, ".gz") {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("%w: gzip %s: %v", model.ErrIO, path, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("%w: gzip %s: %v", model.ErrIO, path, err)
		}
		data = buf.Bytes()
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: write %s: %v", model.ErrIO, path, err)
	}
	return nil
}

// ReadAny reads the first path that exists out of the candidates.
// Used for artifacts that may or may not be compressed.
func ReadAny(paths ...string) ([]byte, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return ReadFile(p)
		}
	}
	return nil, fmt.Errorf("%w: none of %v exist", model.ErrIO, paths)
}

// ExpandDirs expands trainset roots into the list of JSON Lines files
// they contain. Files are accepted directly; directories are walked
// recursively. The result is unordered; callers sort before assigning
// document IDs.
func ExpandDirs(roots []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("%w: stat %s: %v", model.ErrIO, root, err)
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if hasTrainExt(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: walk %s: %v", model.ErrIO, root, err)
		}
	}
	return files, nil
}

func hasTrainExt(path string) bool {
	for _, ext := range trainExts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
