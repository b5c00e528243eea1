package dataroom

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"gorm.io/gorm"

	"github.com/Laisky/dataroom/library/log"
)

// RunMigrations ensures dataroom tables and indexes exist.
func RunMigrations(ctx context.Context, db *gorm.DB, logger logSDK.Logger) error {
	if db == nil {
		return errors.New("gorm db is required")
	}
	if logger == nil {
		logger = log.Logger.Named("dataroom_migration")
	}

	if err := db.WithContext(ctx).AutoMigrate(&User{}, &Dataroom{}, &Folder{}, &File{}, &FileText{}); err != nil {
		return errors.Wrap(err, "auto migrate dataroom tables")
	}
	if err := ensureIndexes(ctx, db, logger); err != nil {
		return errors.WithStack(err)
	}

	logger.Debug("dataroom migrations completed")
	return nil
}

// ensureIndexes creates the keyset listing indexes and, on Postgres, the
// search indexes.
func ensureIndexes(ctx context.Context, db *gorm.DB, logger logSDK.Logger) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS ix_datarooms_owner_created_id ON datarooms (owner_id, created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS ix_folders_parent_created_id ON folders (parent_id, created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS ix_files_folder_created_id ON files (folder_id, created_at DESC, id DESC)`,
	}
	if isPostgresDialect(db) {
		if err := db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`).Error; err != nil {
			// trigram search only speeds up name filters
			logger.Warn("pg_trgm extension unavailable, name search will not use a trigram index")
		} else {
			statements = append(statements,
				`CREATE INDEX IF NOT EXISTS ix_files_name_trgm ON files USING gin (name gin_trgm_ops)`)
		}
		statements = append(statements,
			`CREATE INDEX IF NOT EXISTS ix_file_texts_content_fts ON file_texts USING gin (to_tsvector('simple', content_plain))`)
	}

	for _, stmt := range statements {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return errors.Wrap(err, "create index")
		}
	}
	return nil
}
