package dataroom

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	"gorm.io/gorm"
)

// Every resolver is a single query filtered by owner, so a missing row and
// a row owned by someone else take the same path and return errNotFound.

// OwnedFile is a file together with the dataroom that holds it.
type OwnedFile struct {
	File
	DataroomID int64
}

// resolveDataroom returns the dataroom when userID owns it.
func resolveDataroom(ctx context.Context, db *gorm.DB, roomID, userID int64) (*Dataroom, error) {
	var room Dataroom
	err := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", roomID, userID).
		Take(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound()
		}
		return nil, errors.Wrap(err, "resolve dataroom")
	}
	return &room, nil
}

// resolveFolder walks folder -> dataroom -> owner.
func resolveFolder(ctx context.Context, db *gorm.DB, folderID, userID int64) (*Folder, error) {
	var folder Folder
	err := db.WithContext(ctx).
		Select("folders.*").
		Joins("JOIN datarooms ON datarooms.id = folders.dataroom_id").
		Where("folders.id = ? AND datarooms.owner_id = ?", folderID, userID).
		Take(&folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound()
		}
		return nil, errors.Wrap(err, "resolve folder")
	}
	return &folder, nil
}

// resolveFile walks file -> folder -> dataroom -> owner.
func resolveFile(ctx context.Context, db *gorm.DB, fileID, userID int64) (*OwnedFile, error) {
	var rows []OwnedFile
	err := db.WithContext(ctx).
		Model(&File{}).
		Select("files.*, folders.dataroom_id AS dataroom_id").
		Joins("JOIN folders ON folders.id = files.folder_id").
		Joins("JOIN datarooms ON datarooms.id = folders.dataroom_id").
		Where("files.id = ? AND datarooms.owner_id = ?", fileID, userID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "resolve file")
	}
	if len(rows) == 0 {
		return nil, errNotFound()
	}
	return &rows[0], nil
}
