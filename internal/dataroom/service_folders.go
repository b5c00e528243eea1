package dataroom

import (
	"context"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Laisky/dataroom/internal/library/keyset"
	"github.com/Laisky/dataroom/internal/library/naming"
)

// deleteBatchSize bounds the number of ids bound into one IN clause.
const deleteBatchSize = 500

// FolderItem is the public view of a folder.
type FolderItem struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	DataroomID int64     `json:"dataroom_id"`
	ParentID   *int64    `json:"parent_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChildrenQuery pages folders and files independently.
type ChildrenQuery struct {
	LimitFolders  int
	CursorFolders string
	LimitFiles    int
	CursorFiles   string
}

// Children is one page of a folder's direct children.
type Children struct {
	Folders           []FolderItem `json:"folders"`
	Files             []FileItem   `json:"files"`
	NextCursorFolders *string      `json:"next_cursor_folders"`
	NextCursorFiles   *string      `json:"next_cursor_files"`
}

func folderKey(f Folder) (time.Time, int64) { return f.CreatedAt, f.ID }

func toFolderItem(f *Folder) *FolderItem {
	return &FolderItem{ID: f.ID, Name: f.Name, DataroomID: f.DataroomID, ParentID: f.ParentID, CreatedAt: f.CreatedAt}
}

// GetFolder returns one of the caller's folders.
func (s *Service) GetFolder(ctx context.Context, userID, folderID int64) (*FolderItem, error) {
	folder, err := resolveFolder(ctx, s.db, folderID, userID)
	if err != nil {
		return nil, err
	}
	return toFolderItem(folder), nil
}

// ListChildren pages a folder's subfolders and files, newest first.
func (s *Service) ListChildren(ctx context.Context, userID, folderID int64, q ChildrenQuery) (*Children, error) {
	folderPos, err := decodeCursor(q.CursorFolders)
	if err != nil {
		return nil, err
	}
	filePos, err := decodeCursor(q.CursorFiles)
	if err != nil {
		return nil, err
	}
	folderLimit := keyset.ClampLimit(q.LimitFolders, s.settings.ListLimitDefault, s.settings.ListLimitMax)
	fileLimit := keyset.ClampLimit(q.LimitFiles, s.settings.ListLimitDefault, s.settings.ListLimitMax)

	parent, err := resolveFolder(ctx, s.db, folderID, userID)
	if err != nil {
		return nil, err
	}

	var (
		folderRows []Folder
		fileRows   []File
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return errors.Wrap(s.db.WithContext(gctx).
			Where("parent_id = ?", parent.ID).
			Scopes(keyset.Scope("folders", folderPos, folderLimit)).
			Find(&folderRows).Error, "list child folders")
	})
	g.Go(func() error {
		return errors.Wrap(s.db.WithContext(gctx).
			Where("folder_id = ?", parent.ID).
			Scopes(keyset.Scope("files", filePos, fileLimit)).
			Find(&fileRows).Error, "list child files")
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	folders, err := toListResponse[Folder, FolderItem](keyset.Trim(folderRows, folderLimit, folderKey))
	if err != nil {
		return nil, err
	}
	files, err := toListResponse[File, FileItem](keyset.Trim(fileRows, fileLimit, fileKey))
	if err != nil {
		return nil, err
	}

	return &Children{
		Folders:           folders.Items,
		Files:             files.Items,
		NextCursorFolders: folders.NextCursor,
		NextCursorFiles:   files.NextCursor,
	}, nil
}

// CreateFolder adds a folder under parentID inside roomID. A taken name is
// renumbered rather than rejected.
func (s *Service) CreateFolder(ctx context.Context, userID, roomID, parentID int64, name string) (*FolderItem, SideEffects, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, nil, err
	}

	var folder Folder
	err = s.withNameRetry(ctx, "create_folder", func(tx *gorm.DB) error {
		room, err := resolveDataroom(ctx, tx, roomID, userID)
		if err != nil {
			return err
		}
		parent, err := resolveFolder(ctx, tx, parentID, userID)
		if err != nil {
			return err
		}
		if parent.DataroomID != room.ID {
			return errors.WithStack(NewError(ErrCodeInvalidParent, "parent folder belongs to another dataroom", false))
		}

		taken, err := siblingFolderNames(tx, room.ID, &parent.ID, 0)
		if err != nil {
			return err
		}

		folder = Folder{
			Name:       naming.Resolve(name, naming.Set(taken)),
			DataroomID: room.ID,
			ParentID:   &parent.ID,
			CreatedAt:  s.now(),
		}
		if err = tx.Create(&folder).Error; err != nil {
			return errors.Wrap(err, "insert folder")
		}
		return nil
	})
	if err != nil {
		return nil, nil, wrapServiceError(err, "create folder")
	}

	var effects SideEffects
	s.bestEffort(ctx, &effects, "ensure_dir", folderTarget(folder.DataroomID, folder.ID), func() error {
		return s.blobs.EnsureDir(ctx, folder.DataroomID, folder.ID)
	})
	return toFolderItem(&folder), effects, nil
}

// RenameFolder renames a folder, renumbering when a sibling has the name.
func (s *Service) RenameFolder(ctx context.Context, userID, folderID int64, name string) (*FolderItem, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	var folder *Folder
	err = s.withNameRetry(ctx, "rename_folder", func(tx *gorm.DB) error {
		var err error
		if folder, err = resolveFolder(ctx, tx, folderID, userID); err != nil {
			return err
		}
		taken, err := siblingFolderNames(tx, folder.DataroomID, folder.ParentID, folder.ID)
		if err != nil {
			return err
		}

		final := naming.Resolve(name, naming.Set(taken))
		if err = tx.Model(&Folder{}).Where("id = ?", folder.ID).Update("name", final).Error; err != nil {
			return errors.Wrap(err, "rename folder")
		}
		folder.Name = final
		return nil
	})
	if err != nil {
		return nil, wrapServiceError(err, "rename folder")
	}
	return toFolderItem(folder), nil
}

// DeleteFolder removes a folder with its whole subtree.
func (s *Service) DeleteFolder(ctx context.Context, userID, folderID int64) (SideEffects, error) {
	var (
		roomID    int64
		folderIDs []int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		folder, err := resolveFolder(ctx, tx, folderID, userID)
		if err != nil {
			return err
		}
		roomID = folder.DataroomID

		if folderIDs, err = collectSubtree(tx, folder.ID); err != nil {
			return err
		}
		return deleteFolderRows(tx, folderIDs)
	})
	if err != nil {
		return nil, wrapServiceError(err, "delete folder")
	}

	var effects SideEffects
	for _, id := range folderIDs {
		s.bestEffort(ctx, &effects, "remove_dir", folderTarget(roomID, id), func() error {
			return s.blobs.RemoveDir(ctx, roomID, id)
		})
	}

	s.LoggerFromContext(ctx).Debug("folder subtree deleted",
		zap.Int64("folder_id", folderID), zap.Int("folders", len(folderIDs)))
	return effects, nil
}

// collectSubtree walks the tree breadth first and returns rootID followed
// by every descendant folder id.
func collectSubtree(tx *gorm.DB, rootID int64) ([]int64, error) {
	all := []int64{rootID}
	frontier := []int64{rootID}
	for len(frontier) > 0 {
		var next []int64
		for _, batch := range chunkIDs(frontier) {
			var children []int64
			if err := tx.Model(&Folder{}).Where("parent_id IN ?", batch).Pluck("id", &children).Error; err != nil {
				return nil, errors.Wrap(err, "load child folders")
			}
			next = append(next, children...)
		}
		all = append(all, next...)
		frontier = next
	}
	return all, nil
}

// deleteFolderRows removes the folders together with their files and
// extracted texts. It clears root_folder_id on any dataroom whose root is
// among them.
func deleteFolderRows(tx *gorm.DB, folderIDs []int64) error {
	for _, batch := range chunkIDs(folderIDs) {
		var fileIDs []int64
		if err := tx.Model(&File{}).Where("folder_id IN ?", batch).Pluck("id", &fileIDs).Error; err != nil {
			return errors.Wrap(err, "load subtree files")
		}
		for _, fileBatch := range chunkIDs(fileIDs) {
			if err := tx.Where("file_id IN ?", fileBatch).Delete(&FileText{}).Error; err != nil {
				return errors.Wrap(err, "delete file texts")
			}
		}
		if err := tx.Where("folder_id IN ?", batch).Delete(&File{}).Error; err != nil {
			return errors.Wrap(err, "delete files")
		}
		if err := tx.Model(&Dataroom{}).
			Where("root_folder_id IN ?", batch).
			Update("root_folder_id", nil).Error; err != nil {
			return errors.Wrap(err, "clear root folder")
		}
		if err := tx.Where("id IN ?", batch).Delete(&Folder{}).Error; err != nil {
			return errors.Wrap(err, "delete folders")
		}
	}
	return nil
}

func chunkIDs(ids []int64) [][]int64 {
	var chunks [][]int64
	for len(ids) > deleteBatchSize {
		chunks = append(chunks, ids[:deleteBatchSize])
		ids = ids[deleteBatchSize:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
