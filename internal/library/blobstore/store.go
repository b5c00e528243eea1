// Package blobstore persists uploaded file bytes addressed by
// (dataroom, folder, storage key).
package blobstore

import (
	"context"
	"io"
	"path"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
)

// ErrNotFound is returned when a blob is missing from the backend.
var ErrNotFound = errors.New("blob not found")

// Location addresses one stored object.
type Location struct {
	RoomID   int64
	FolderID int64
	Key      string
}

// Written describes bytes persisted by Put.
type Written struct {
	Size   int64
	SHA256 string
}

// Store is implemented by blob backends.
type Store interface {
	// Put writes r to loc and reports the size and sha256 of the persisted bytes.
	Put(ctx context.Context, loc Location, r io.Reader, size int64) (Written, error)
	// Open returns the blob content and its size, or ErrNotFound.
	Open(ctx context.Context, loc Location) (io.ReadCloser, int64, error)
	// Delete removes one blob. Missing blobs are not an error.
	Delete(ctx context.Context, loc Location) error
	// EnsureDir prepares the container for a folder.
	EnsureDir(ctx context.Context, roomID, folderID int64) error
	// RemoveDir removes every blob stored for a folder.
	RemoveDir(ctx context.Context, roomID, folderID int64) error
	// RemoveRoom removes every blob stored for a dataroom.
	RemoveRoom(ctx context.Context, roomID int64) error
}

// objectKey renders the slash separated key "{room}/{folder}/{key}".
func objectKey(loc Location) (string, error) {
	if err := validateKey(loc.Key); err != nil {
		return "", err
	}
	return path.Join(folderPrefix(loc.RoomID, loc.FolderID), loc.Key), nil
}

func folderPrefix(roomID, folderID int64) string {
	return strconv.FormatInt(roomID, 10) + "/" + strconv.FormatInt(folderID, 10)
}

func roomPrefix(roomID int64) string {
	return strconv.FormatInt(roomID, 10)
}

// validateKey rejects keys that could escape the folder container.
func validateKey(key string) error {
	switch {
	case key == "", key == ".", key == "..":
		return errors.Errorf("invalid storage key %q", key)
	case strings.ContainsAny(key, `/\`), strings.ContainsRune(key, 0):
		return errors.Errorf("invalid storage key %q", key)
	}
	return nil
}
