package vault

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/XiaoConstantine/spark-go/pkg/errors"
)

// DocumentStore is the engine's view of the filesystem: UTF-8 reads and
// whole-file overwrites by absolute path. The overwrite is the
// atomicity unit for every document mutation.
type DocumentStore interface {
	Read(path string) (string, error)
	Write(path, content string) error
}

// OSStore is the production DocumentStore backed by the local filesystem.
type OSStore struct{}

func NewOSStore() *OSStore {
	return &OSStore{}
}

func (s *OSStore) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WithFields(
			errors.Wrap(err, errors.ContextLoadFailure, "failed to read document"),
			errors.Fields{"path": path})
	}
	return string(data), nil
}

func (s *OSStore) Write(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.WriteFailure, "failed to write document"),
			errors.Fields{"path": path})
	}
	return nil
}

// ListMarkdownFiles walks root and returns every markdown file,
// skipping dot-directories. Output is sorted for determinism.
func ListMarkdownFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A single unreadable entry must not abort enumeration.
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ContextLoadFailure, "failed to walk vault"),
			errors.Fields{"root": root})
	}

	sort.Strings(files)
	return files, nil
}
