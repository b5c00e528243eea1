package dataroom

import (
	"context"
	"strconv"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"gorm.io/gorm"

	"github.com/Laisky/dataroom/internal/library/keyset"
)

// DataroomItem is the public view of a dataroom.
type DataroomItem struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	RootFolderID *int64    `json:"root_folder_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func dataroomKey(d Dataroom) (time.Time, int64) { return d.CreatedAt, d.ID }

func toDataroomItem(d *Dataroom) *DataroomItem {
	return &DataroomItem{ID: d.ID, Name: d.Name, RootFolderID: d.RootFolderID, CreatedAt: d.CreatedAt}
}

// ListDatarooms pages through the caller's datarooms, newest first.
func (s *Service) ListDatarooms(ctx context.Context, userID int64, limit int, cursor string) (ListResponse[DataroomItem], error) {
	pos, err := decodeCursor(cursor)
	if err != nil {
		return ListResponse[DataroomItem]{}, err
	}
	limit = keyset.ClampLimit(limit, s.settings.ListLimitDefault, s.settings.ListLimitMax)

	var rows []Dataroom
	if err = s.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Scopes(keyset.Scope("datarooms", pos, limit)).
		Find(&rows).Error; err != nil {
		return ListResponse[DataroomItem]{}, errors.Wrap(err, "list datarooms")
	}

	return toListResponse[Dataroom, DataroomItem](keyset.Trim(rows, limit, dataroomKey))
}

// CreateDataroom creates the dataroom and its root folder atomically.
func (s *Service) CreateDataroom(ctx context.Context, userID int64, name string) (*DataroomItem, SideEffects, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	room := Dataroom{Name: name, OwnerID: userID, CreatedAt: now}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return errors.Wrap(err, "insert dataroom")
		}

		root := Folder{Name: RootFolderName, DataroomID: room.ID, CreatedAt: now}
		if err := tx.Create(&root).Error; err != nil {
			return errors.Wrap(err, "insert root folder")
		}

		if err := tx.Model(&Dataroom{}).
			Where("id = ?", room.ID).
			Update("root_folder_id", root.ID).Error; err != nil {
			return errors.Wrap(err, "link root folder")
		}
		room.RootFolderID = &root.ID
		return nil
	})
	if err != nil {
		return nil, nil, wrapServiceError(err, "create dataroom")
	}

	var effects SideEffects
	s.bestEffort(ctx, &effects, "ensure_dir", folderTarget(room.ID, *room.RootFolderID), func() error {
		return s.blobs.EnsureDir(ctx, room.ID, *room.RootFolderID)
	})

	s.LoggerFromContext(ctx).Info("dataroom created",
		zap.Int64("dataroom_id", room.ID), zap.Int64("owner_id", userID))
	return toDataroomItem(&room), effects, nil
}

// GetDataroom returns one of the caller's datarooms.
func (s *Service) GetDataroom(ctx context.Context, userID, roomID int64) (*DataroomItem, error) {
	room, err := resolveDataroom(ctx, s.db, roomID, userID)
	if err != nil {
		return nil, err
	}
	return toDataroomItem(room), nil
}

// RenameDataroom changes the display name. Dataroom names need not be unique.
func (s *Service) RenameDataroom(ctx context.Context, userID, roomID int64, name string) (*DataroomItem, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	var room *Dataroom
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if room, err = resolveDataroom(ctx, tx, roomID, userID); err != nil {
			return err
		}
		if err = tx.Model(&Dataroom{}).Where("id = ?", room.ID).Update("name", name).Error; err != nil {
			return errors.Wrap(err, "rename dataroom")
		}
		room.Name = name
		return nil
	})
	if err != nil {
		return nil, wrapServiceError(err, "rename dataroom")
	}
	return toDataroomItem(room), nil
}

// DeleteDataroom removes the dataroom with all of its folders and files.
func (s *Service) DeleteDataroom(ctx context.Context, userID, roomID int64) (SideEffects, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := resolveDataroom(ctx, tx, roomID, userID)
		if err != nil {
			return err
		}

		var folderIDs []int64
		if err = tx.Model(&Folder{}).Where("dataroom_id = ?", room.ID).Pluck("id", &folderIDs).Error; err != nil {
			return errors.Wrap(err, "load dataroom folders")
		}
		if err = deleteFolderRows(tx, folderIDs); err != nil {
			return err
		}
		if err = tx.Where("id = ?", room.ID).Delete(&Dataroom{}).Error; err != nil {
			return errors.Wrap(err, "delete dataroom")
		}
		return nil
	})
	if err != nil {
		return nil, wrapServiceError(err, "delete dataroom")
	}

	var effects SideEffects
	s.bestEffort(ctx, &effects, "remove_room", strconv.FormatInt(roomID, 10), func() error {
		return s.blobs.RemoveRoom(ctx, roomID)
	})
	return effects, nil
}

func folderTarget(roomID, folderID int64) string {
	return strconv.FormatInt(roomID, 10) + "/" + strconv.FormatInt(folderID, 10)
}
