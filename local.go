package arinc665

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/folbricht/tempfile"
	"github.com/pkg/errors"
)

// LocalMediaStore lays a Media Set's media out as sibling directories
// under Base, one per medium number, and backs the abstract
// ReadFile/WriteFile/FileSize/CreateMedium/CreateDirectory callbacks
// (§6) with the real filesystem. Grounded on desync's LocalStore (a
// Base directory plus a per-item subdirectory and an atomic
// tempfile-rename write), generalized here from a flat content-addressed
// chunk store to medium-numbered directory trees.
type LocalMediaStore struct {
	Base string
}

// NewLocalMediaStore creates a LocalMediaStore rooted at dir, creating
// dir if it does not already exist.
func NewLocalMediaStore(dir string) (*LocalMediaStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(IoError, "creating store root %s: %v", dir, err)
	}
	return &LocalMediaStore{Base: dir}, nil
}

func (s *LocalMediaStore) mediumDir(n MediumNumber) string {
	return filepath.Join(s.Base, fmt.Sprintf("MEDIUM_%03d", n))
}

// ReadFile implements the ReadFile function type (§6).
func (s *LocalMediaStore) ReadFile(n MediumNumber, path string) ([]byte, error) {
	p := filepath.Join(s.mediumDir(n), filepath.FromSlash(path))
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrapf(IoError, "reading %s on medium %s: %v", path, n, err)
	}
	return b, nil
}

// FileSize implements the FileSize function type (§6).
func (s *LocalMediaStore) FileSize(n MediumNumber, path string) (uint64, error) {
	p := filepath.Join(s.mediumDir(n), filepath.FromSlash(path))
	info, err := os.Stat(p)
	if err != nil {
		return 0, errors.Wrapf(IoError, "stat %s on medium %s: %v", path, n, err)
	}
	return uint64(info.Size()), nil
}

// WriteFile implements the WriteFile function type (§6). The write
// lands in a tempfile.New-backed file in the target directory, then is
// renamed into place, so a crash mid-write never leaves a truncated
// file behind (mirrors desync LocalStore.StoreChunk's tempfile-then-
// rename pattern; desync's own version stages with ioutil.TempFile,
// generalized here to the pack's dedicated tempfile package). Every
// file Compile writes — data/support files, generated load headers and
// batch files, and the FILES.LUM/LOADS.LUM/BATCHES.LUM list files —
// passes through here, so all of them are staged this way.
func (s *LocalMediaStore) WriteFile(n MediumNumber, path string, data []byte) error {
	dir := filepath.Join(s.mediumDir(n), filepath.Dir(filepath.FromSlash(path)))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(IoError, "creating directory for %s on medium %s: %v", path, n, err)
	}
	tmp, err := tempfile.New(dir, ".tmp-arinc665")
	if err != nil {
		return errors.Wrapf(IoError, "creating temp file for %s on medium %s: %v", path, n, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(IoError, "writing %s on medium %s: %v", path, n, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(IoError, "closing %s on medium %s: %v", path, n, err)
	}
	full := filepath.Join(s.mediumDir(n), filepath.FromSlash(path))
	if err := os.Rename(tmp.Name(), full); err != nil {
		return errors.Wrapf(IoError, "placing %s on medium %s: %v", path, n, err)
	}
	return nil
}

// CreateMedium implements the CreateMedium function type (§6).
func (s *LocalMediaStore) CreateMedium(n MediumNumber) error {
	if err := os.MkdirAll(s.mediumDir(n), 0755); err != nil {
		return errors.Wrapf(IoError, "creating medium %s: %v", n, err)
	}
	return nil
}

// CreateDirectory implements the CreateDirectory function type (§6).
func (s *LocalMediaStore) CreateDirectory(n MediumNumber, relativePath string) error {
	p := filepath.Join(s.mediumDir(n), filepath.FromSlash(relativePath))
	if err := os.MkdirAll(p, 0755); err != nil {
		return errors.Wrapf(IoError, "creating directory %s on medium %s: %v", relativePath, n, err)
	}
	return nil
}

// ReadSource implements ReadSourceFile by reading path directly,
// independent of any medium and of Base (a relative path resolves
// against the process's working directory) — the shape
// Compile's SourcePath mapping needs for files not yet laid out on any
// medium.
func (s *LocalMediaStore) ReadSource(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(IoError, "reading source %s: %v", path, err)
	}
	return b, nil
}
