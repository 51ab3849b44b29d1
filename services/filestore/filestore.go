// Package filestore keeps uploads on the local disk, under one directory per kind.
package filestore

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

var (
	knownDirs = []string{core.DirVideos, core.DirLessonFiles, core.DirSubmissions}

	ErrUnknownDir  = errors.New("unknown upload directory")
	ErrInvalidName = core.NewNotFoundError("file not found")
)

type Storage struct {
	root   string
	logger core.Logger
}

var _ core.FileStorage = (*Storage)(nil) // interface compliance check

func New(root string, logger core.Logger) *Storage {
	return &Storage{root: root, logger: logger}
}

func (s *Storage) dir(dir string) (string, error) {
	for _, d := range knownDirs {
		if d == dir {
			return filepath.Join(s.root, dir), nil
		}
	}
	return "", errors.Wrap(ErrUnknownDir, dir)
}

// newName returns a random hex name carrying the extension of `orig`.
func newName(orig string) string {
	id := uuid.New()
	name := hex.EncodeToString(id[:])
	if ext := core.FileExt(orig); ext != "" {
		name += "." + ext
	}
	return name
}

func (s *Storage) Save(dir string, up core.Upload) (string, error) {
	d, err := s.dir(dir)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(d, 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}

	name := newName(up.Filename)
	path := filepath.Join(d, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, up.Content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(path)
		return "", errors.Wrap(err, "closing file")
	}
	return name, nil
}

func (s *Storage) Remove(dir, name string) {
	if name == "" {
		return
	}
	path, err := s.Path(dir, name)
	if err != nil {
		s.logger.Warn("removing upload", err, map[string]interface{}{"dir": dir, "name": name})
		return
	}
	if err = os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("removing upload", errors.Wrap(err, name))
	}
}

// Path refuses names that would escape the upload directory.
func (s *Storage) Path(dir, name string) (string, error) {
	d, err := s.dir(dir)
	if err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(d, name), nil
}
