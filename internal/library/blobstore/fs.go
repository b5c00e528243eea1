package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strconv"

	errors "github.com/Laisky/errors/v2"
)

// FSStore keeps blobs under root/{room}/{folder}/{key}.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory when needed.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve storage root")
	}
	if err = os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "create storage root")
	}
	return &FSStore{root: abs}, nil
}

// Root returns the absolute storage root.
func (s *FSStore) Root() string { return s.root }

func (s *FSStore) folderDir(roomID, folderID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(roomID, 10), strconv.FormatInt(folderID, 10))
}

func (s *FSStore) blobPath(loc Location) (string, error) {
	if err := validateKey(loc.Key); err != nil {
		return "", err
	}
	return filepath.Join(s.folderDir(loc.RoomID, loc.FolderID), loc.Key), nil
}

// Put writes through a temp file and renames it into place.
func (s *FSStore) Put(ctx context.Context, loc Location, r io.Reader, size int64) (Written, error) {
	if err := ctx.Err(); err != nil {
		return Written{}, errors.WithStack(err)
	}
	dest, err := s.blobPath(loc)
	if err != nil {
		return Written{}, err
	}
	dir := filepath.Dir(dest)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return Written{}, errors.Wrap(err, "create folder dir")
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return Written{}, errors.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		_ = tmp.Close()
		return Written{}, errors.Wrap(err, "write blob")
	}
	if err = tmp.Close(); err != nil {
		return Written{}, errors.Wrap(err, "close temp file")
	}
	if size >= 0 && written != size {
		return Written{}, errors.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}
	if err = os.Rename(tmpPath, dest); err != nil {
		return Written{}, errors.Wrap(err, "rename temp file")
	}

	success = true
	return Written{Size: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// Open opens the blob for reading.
func (s *FSStore) Open(_ context.Context, loc Location) (io.ReadCloser, int64, error) {
	p, err := s.blobPath(loc)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, errors.WithStack(ErrNotFound)
		}
		return nil, 0, errors.Wrap(err, "open blob")
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, errors.Wrap(err, "stat blob")
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, 0, errors.WithStack(ErrNotFound)
	}
	return f, info.Size(), nil
}

// Delete removes the blob file.
func (s *FSStore) Delete(_ context.Context, loc Location) error {
	p, err := s.blobPath(loc)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove blob")
	}
	return nil
}

// EnsureDir creates the folder directory.
func (s *FSStore) EnsureDir(_ context.Context, roomID, folderID int64) error {
	if err := os.MkdirAll(s.folderDir(roomID, folderID), 0o755); err != nil {
		return errors.Wrap(err, "create folder dir")
	}
	return nil
}

// RemoveDir removes the folder directory and everything in it.
func (s *FSStore) RemoveDir(_ context.Context, roomID, folderID int64) error {
	if err := os.RemoveAll(s.folderDir(roomID, folderID)); err != nil {
		return errors.Wrap(err, "remove folder dir")
	}
	return nil
}

// RemoveRoom removes the dataroom directory.
func (s *FSStore) RemoveRoom(_ context.Context, roomID int64) error {
	if err := os.RemoveAll(filepath.Join(s.root, strconv.FormatInt(roomID, 10))); err != nil {
		return errors.Wrap(err, "remove room dir")
	}
	return nil
}
