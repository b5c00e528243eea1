package dataroom

import (
	"context"
	"path"
	"strings"
	"unicode/utf8"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"gorm.io/gorm"
)

const maxNameLength = 255

// cleanName trims and validates a display name.
func cleanName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		return "", errInvalidArgument("name is required")
	case strings.ContainsRune(name, 0):
		return "", errInvalidArgument("name contains invalid null byte")
	case !utf8.ValidString(name):
		return "", errInvalidArgument("name must be valid utf-8")
	case utf8.RuneCountInString(name) > maxNameLength:
		return "", errInvalidArgument("name is too long")
	}
	return name, nil
}

// cleanUploadName keeps only the base name of a client supplied filename.
func cleanUploadName(raw string) (string, error) {
	name := strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
	if name != "" {
		name = path.Base(name)
	}
	if name == "." || name == "/" {
		name = ""
	}
	return cleanName(name)
}

// withNameRetry runs one sibling-naming transaction, re-running it with a
// fresh sibling set when a concurrent writer claimed the same name first.
// It gives up with a retryable conflict after NameRetryMax attempts.
func (s *Service) withNameRetry(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	for attempt := 1; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(fn)
		if err == nil || !isUniqueViolation(err) {
			return err
		}
		if attempt >= s.settings.NameRetryMax {
			s.warnOnError(ctx, err, "sibling name retries exhausted", zap.String("op", op), zap.Int("attempts", attempt))
			return errors.WithStack(NewError(ErrCodeConflict, "name is being used by a concurrent request, please retry", true))
		}
		s.LoggerFromContext(ctx).Debug("sibling name raced, renumbering",
			zap.String("op", op), zap.Int("attempt", attempt))
	}
}

// siblingFolderNames lists folder names under parent, excluding one id.
func siblingFolderNames(tx *gorm.DB, roomID int64, parentID *int64, excludeID int64) ([]string, error) {
	q := tx.Model(&Folder{}).Where("dataroom_id = ?", roomID)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var names []string
	if err := q.Pluck("name", &names).Error; err != nil {
		return nil, errors.Wrap(err, "load sibling folders")
	}
	return names, nil
}

// siblingFileNames lists file names in folderID, excluding one id.
func siblingFileNames(tx *gorm.DB, folderID, excludeID int64) ([]string, error) {
	q := tx.Model(&File{}).Where("folder_id = ?", folderID)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var names []string
	if err := q.Pluck("name", &names).Error; err != nil {
		return nil, errors.Wrap(err, "load sibling files")
	}
	return names, nil
}
