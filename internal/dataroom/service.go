// Package dataroom implements datarooms, their folder trees, uploaded PDF
// files, and metadata/content search, all scoped to the owning user.
package dataroom

import (
	"context"
	"time"

	errors "github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"

	"github.com/Laisky/dataroom/internal/library/blobstore"
	"github.com/Laisky/dataroom/internal/library/keyset"
	"github.com/Laisky/dataroom/internal/library/pdftext"
	"github.com/Laisky/dataroom/library/log"
)

// Clock returns the current time in UTC.
type Clock func() time.Time

// Service coordinates dataroom, folder, file, and search operations.
type Service struct {
	db        *gorm.DB
	settings  Settings
	blobs     blobstore.Store
	extractor pdftext.Extractor
	logger    logSDK.Logger
	clock     Clock
	newKey    func() string
}

// NewService constructs the service and runs migrations.
func NewService(db *gorm.DB, settings Settings, blobs blobstore.Store, extractor pdftext.Extractor, logger logSDK.Logger, clock Clock) (*Service, error) {
	if db == nil {
		return nil, errors.New("gorm db is required")
	}
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	settings = settings.normalize()
	if logger == nil {
		logger = log.Logger.Named("dataroom_service")
	}
	if extractor == nil {
		extractor = pdftext.NewPDFExtractor(settings.ExtractMaxChars, logger.Named("pdftext"))
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	if err := RunMigrations(context.Background(), db, logger); err != nil {
		return nil, errors.WithStack(err)
	}

	return &Service{
		db:        db,
		settings:  settings,
		blobs:     blobs,
		extractor: extractor,
		logger:    logger,
		clock:     clock,
		newKey:    func() string { return uuid.NewString() + ".pdf" },
	}, nil
}

// Settings returns the effective settings.
func (s *Service) Settings() Settings { return s.settings }

// LoggerFromContext returns the request-scoped logger when available.
func (s *Service) LoggerFromContext(ctx context.Context) logSDK.Logger {
	if ctx != nil {
		if ctxLogger := gmw.GetLogger(ctx); ctxLogger != nil {
			return ctxLogger
		}
	}
	if s != nil && s.logger != nil {
		return s.logger
	}
	return log.Logger.Named("dataroom_fallback")
}

// now truncates to microseconds, the precision Postgres keeps, so cursors
// built from in-memory rows match stored rows exactly.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// warnOnError logs an error when needed for diagnostics.
func (s *Service) warnOnError(ctx context.Context, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}
	s.LoggerFromContext(ctx).Warn(msg, append(fields, zap.Error(err))...)
}

// wrapServiceError adds stack context without logging.
func wrapServiceError(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	return errors.Wrap(err, message)
}

// ListResponse is the shape returned by every paginated endpoint.
type ListResponse[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor"`
}

// toListResponse copies page items into response items.
func toListResponse[M, T any](page keyset.Page[M]) (ListResponse[T], error) {
	items := make([]T, 0, len(page.Items))
	for i := range page.Items {
		var item T
		if err := copier.Copy(&item, &page.Items[i]); err != nil {
			return ListResponse[T]{}, errors.Wrap(err, "copy list item")
		}
		items = append(items, item)
	}
	return ListResponse[T]{Items: items, NextCursor: page.NextCursor}, nil
}

// decodeCursor turns a malformed cursor into a client error.
func decodeCursor(cursor string) (*keyset.Position, error) {
	pos, err := keyset.DecodeOptional(cursor)
	if err != nil {
		return nil, errors.WithStack(NewError(ErrCodeInvalidCursor, "bad cursor", false))
	}
	return pos, nil
}
