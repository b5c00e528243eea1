package dataroom

import (
	"bytes"
	"context"
	"io"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"gorm.io/gorm"

	"github.com/Laisky/dataroom/internal/library/blobstore"
	"github.com/Laisky/dataroom/internal/library/naming"
	"github.com/Laisky/dataroom/internal/library/pdftext"
)

// FileItem is the public view of a file.
type FileItem struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FolderID  int64     `json:"folder_id"`
	SizeBytes int64     `json:"size_bytes"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentHit is a content search result. Snippet is always serialized,
// empty when the matched text has nothing to show.
type ContentHit struct {
	FileItem
	Snippet string `json:"snippet"`
}

// UploadResult reports the stored file and whether its name was changed.
type UploadResult struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SizeBytes    int64  `json:"size_bytes"`
	Renamed      bool   `json:"renamed"`
	OriginalName string `json:"original_name"`
}

// FileContent is an open blob ready to stream.
type FileContent struct {
	Item   *FileItem
	Body   io.ReadCloser
	Length int64
}

func fileKey(f File) (time.Time, int64) { return f.CreatedAt, f.ID }

func toFileItem(f *File) *FileItem {
	return &FileItem{
		ID:        f.ID,
		Name:      f.Name,
		FolderID:  f.FolderID,
		SizeBytes: f.SizeBytes,
		MimeType:  f.MimeType,
		CreatedAt: f.CreatedAt,
	}
}

func blobLocation(f *OwnedFile) blobstore.Location {
	return blobstore.Location{RoomID: f.DataroomID, FolderID: f.FolderID, Key: f.StoredName}
}

// UploadFile stores a PDF in folderID. A taken name is renumbered.
func (s *Service) UploadFile(ctx context.Context, userID, folderID int64, filename string, r io.Reader) (*UploadResult, SideEffects, error) {
	logger := s.LoggerFromContext(ctx)
	original, err := cleanUploadName(filename)
	if err != nil {
		return nil, nil, err
	}

	folder, err := resolveFolder(ctx, s.db, folderID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !pdftext.HasPDFExtension(original) {
		return nil, nil, errors.WithStack(NewError(ErrCodeUnsupportedMedia, "only PDF files are allowed", false))
	}

	content, err := io.ReadAll(io.LimitReader(r, s.settings.MaxUploadBytes+1))
	if err != nil {
		return nil, nil, errors.Wrap(err, "read upload")
	}
	if int64(len(content)) > s.settings.MaxUploadBytes {
		return nil, nil, errors.WithStack(NewError(ErrCodePayloadTooLarge, "file is too large", false))
	}
	if !pdftext.IsPDF(content) {
		return nil, nil, errors.WithStack(NewError(ErrCodeUnsupportedMedia, "file content is not a PDF", false))
	}

	loc := blobstore.Location{RoomID: folder.DataroomID, FolderID: folder.ID, Key: s.newKey()}
	written, err := s.blobs.Put(ctx, loc, bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, nil, errors.Wrap(err, "store upload")
	}

	text := s.extractor.Extract(ctx, content)

	var file File
	err = s.withNameRetry(ctx, "upload_file", func(tx *gorm.DB) error {
		// the folder may have been removed while the blob was written
		if _, err := resolveFolder(ctx, tx, folder.ID, userID); err != nil {
			return err
		}
		taken, err := siblingFileNames(tx, folder.ID, 0)
		if err != nil {
			return err
		}

		now := s.now()
		file = File{
			FolderID:       folder.ID,
			Name:           naming.Resolve(original, naming.Set(taken)),
			StoredName:     loc.Key,
			MimeType:       pdftext.MimeType,
			SizeBytes:      written.Size,
			ChecksumSHA256: written.SHA256,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err = tx.Create(&file).Error; err != nil {
			return errors.Wrap(err, "insert file")
		}
		if err = tx.Create(&FileText{FileID: file.ID, ContentPlain: text}).Error; err != nil {
			return errors.Wrap(err, "insert file text")
		}
		return nil
	})
	if err != nil {
		var effects SideEffects
		s.bestEffort(ctx, &effects, "delete_blob", loc.Key, func() error {
			return s.blobs.Delete(ctx, loc)
		})
		return nil, effects, wrapServiceError(err, "upload file")
	}

	logger.Info("file uploaded",
		zap.Int64("file_id", file.ID),
		zap.Int64("folder_id", folder.ID),
		zap.Int64("size_bytes", file.SizeBytes),
		zap.Int("text_chars", len([]rune(text))))
	return &UploadResult{
		ID:           file.ID,
		Name:         file.Name,
		SizeBytes:    file.SizeBytes,
		Renamed:      file.Name != original,
		OriginalName: original,
	}, nil, nil
}

// GetFile returns one of the caller's files.
func (s *Service) GetFile(ctx context.Context, userID, fileID int64) (*FileItem, error) {
	file, err := resolveFile(ctx, s.db, fileID, userID)
	if err != nil {
		return nil, err
	}
	return toFileItem(&file.File), nil
}

// OpenFile opens a file's bytes. The caller closes Body.
func (s *Service) OpenFile(ctx context.Context, userID, fileID int64) (*FileContent, error) {
	file, err := resolveFile(ctx, s.db, fileID, userID)
	if err != nil {
		return nil, err
	}

	body, size, err := s.blobs.Open(ctx, blobLocation(file))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.LoggerFromContext(ctx).Error("file row has no stored blob",
				zap.Int64("file_id", file.ID), zap.String("stored_name", file.StoredName))
			return nil, errors.WithStack(NewError(ErrCodeStorageInconsistent, "file content is missing", true))
		}
		return nil, errors.Wrap(err, "open blob")
	}

	return &FileContent{Item: toFileItem(&file.File), Body: body, Length: size}, nil
}

// RenameFile renames a file, renumbering when a sibling has the name. The
// stored blob is untouched.
func (s *Service) RenameFile(ctx context.Context, userID, fileID int64, name string) (*FileItem, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	var file *OwnedFile
	err = s.withNameRetry(ctx, "rename_file", func(tx *gorm.DB) error {
		var err error
		if file, err = resolveFile(ctx, tx, fileID, userID); err != nil {
			return err
		}
		taken, err := siblingFileNames(tx, file.FolderID, file.ID)
		if err != nil {
			return err
		}

		final := naming.Resolve(name, naming.Set(taken))
		now := s.now()
		if err = tx.Model(&File{}).Where("id = ?", file.ID).
			Updates(map[string]any{"name": final, "updated_at": now}).Error; err != nil {
			return errors.Wrap(err, "rename file")
		}
		file.Name, file.UpdatedAt = final, now
		return nil
	})
	if err != nil {
		return nil, wrapServiceError(err, "rename file")
	}
	return toFileItem(&file.File), nil
}

// DeleteFile removes the blob first, then the file rows.
func (s *Service) DeleteFile(ctx context.Context, userID, fileID int64) (SideEffects, error) {
	file, err := resolveFile(ctx, s.db, fileID, userID)
	if err != nil {
		return nil, err
	}

	var effects SideEffects
	s.bestEffort(ctx, &effects, "delete_blob", file.StoredName, func() error {
		return s.blobs.Delete(ctx, blobLocation(file))
	})

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", file.ID).Delete(&FileText{}).Error; err != nil {
			return errors.Wrap(err, "delete file text")
		}
		if err := tx.Where("id = ?", file.ID).Delete(&File{}).Error; err != nil {
			return errors.Wrap(err, "delete file")
		}
		return nil
	})
	if err != nil {
		return effects, wrapServiceError(err, "delete file")
	}
	return effects, nil
}
