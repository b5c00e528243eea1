package dataroom

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"

	errors "github.com/Laisky/errors/v2"
	"gorm.io/gorm"

	"github.com/Laisky/dataroom/internal/library/keyset"
)

const (
	searchDateLayout = "2006-01-02"
	bytesPerMiB      = 1 << 20
)

// MetaQuery holds the AND-combined metadata filters. DateTo is exclusive.
type MetaQuery struct {
	Name     string
	DateFrom *time.Time
	DateTo   *time.Time
	SizeMin  *int64
	SizeMax  *int64
	Limit    int
	Cursor   string
}

// ParseMetaQuery builds a MetaQuery from request parameters. date_to names
// a day that is included in full. size_min_mb and size_max_mb are MiB
// aliases used when the byte variants are absent.
func ParseMetaQuery(get func(key string) string) (MetaQuery, error) {
	var (
		q   MetaQuery
		err error
	)
	q.Name = strings.TrimSpace(get("name"))
	q.Cursor = strings.TrimSpace(get("cursor"))
	if q.Limit, err = parseLimit(get("limit")); err != nil {
		return MetaQuery{}, err
	}

	if q.DateFrom, err = parseDay(get("date_from"), "date_from"); err != nil {
		return MetaQuery{}, err
	}
	if q.DateTo, err = parseDay(get("date_to"), "date_to"); err != nil {
		return MetaQuery{}, err
	}
	if q.DateTo != nil {
		next := q.DateTo.AddDate(0, 0, 1)
		q.DateTo = &next
	}
	if q.DateFrom != nil && q.DateTo != nil && !q.DateFrom.Before(*q.DateTo) {
		return MetaQuery{}, errInvalidArgument("date_from must not be after date_to")
	}

	if q.SizeMin, err = parseSize(get("size_min"), get("size_min_mb"), "size_min"); err != nil {
		return MetaQuery{}, err
	}
	if q.SizeMax, err = parseSize(get("size_max"), get("size_max_mb"), "size_max"); err != nil {
		return MetaQuery{}, err
	}
	if q.SizeMin != nil && q.SizeMax != nil && *q.SizeMin > *q.SizeMax {
		return MetaQuery{}, errInvalidArgument("size_min must not exceed size_max")
	}
	return q, nil
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errInvalidArgument("limit must be an integer")
	}
	return limit, nil
}

func parseDay(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(searchDateLayout, raw, time.UTC)
	if err != nil {
		return nil, errInvalidArgument(field + " must be YYYY-MM-DD")
	}
	return &day, nil
}

func parseSize(rawBytes, rawMiB, field string) (*int64, error) {
	if rawBytes = strings.TrimSpace(rawBytes); rawBytes != "" {
		size, err := strconv.ParseInt(rawBytes, 10, 64)
		if err != nil || size < 0 {
			return nil, errInvalidArgument(field + " must be a non-negative integer")
		}
		return &size, nil
	}
	if rawMiB = strings.TrimSpace(rawMiB); rawMiB != "" {
		mib, err := strconv.ParseFloat(rawMiB, 64)
		if err != nil || mib < 0 || mib > float64(1<<43) {
			return nil, errInvalidArgument(field + "_mb must be a non-negative number")
		}
		size := int64(mib * bytesPerMiB)
		return &size, nil
	}
	return nil, nil
}

// ownedFiles selects files visible to userID.
func (s *Service) ownedFiles(ctx context.Context, userID int64) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&File{}).
		Joins("JOIN folders ON folders.id = files.folder_id").
		Joins("JOIN datarooms ON datarooms.id = folders.dataroom_id").
		Where("datarooms.owner_id = ?", userID)
}

// SearchMeta filters the caller's files by name, upload date, and size.
func (s *Service) SearchMeta(ctx context.Context, userID int64, mq MetaQuery) (ListResponse[FileItem], error) {
	pos, err := decodeCursor(mq.Cursor)
	if err != nil {
		return ListResponse[FileItem]{}, err
	}
	limit := keyset.ClampLimit(mq.Limit, s.settings.SearchLimitDefault, s.settings.SearchLimitMax)

	q := s.ownedFiles(ctx, userID).Select("files.*")
	if name := strings.TrimSpace(mq.Name); name != "" {
		q = q.Where(ilike(q, "files.name"), containsPattern(name))
	}
	if mq.DateFrom != nil {
		q = q.Where("files.created_at >= ?", mq.DateFrom.UTC())
	}
	if mq.DateTo != nil {
		q = q.Where("files.created_at < ?", mq.DateTo.UTC())
	}
	if mq.SizeMin != nil {
		q = q.Where("files.size_bytes >= ?", *mq.SizeMin)
	}
	if mq.SizeMax != nil {
		q = q.Where("files.size_bytes <= ?", *mq.SizeMax)
	}

	var rows []File
	if err = q.Scopes(keyset.Scope("files", pos, limit)).Scan(&rows).Error; err != nil {
		return ListResponse[FileItem]{}, errors.Wrap(err, "search file metadata")
	}
	return toListResponse[File, FileItem](keyset.Trim(rows, limit, fileKey))
}

type contentHit struct {
	File
	Snippet string
}

func contentHitKey(h contentHit) (time.Time, int64) { return h.CreatedAt, h.ID }

// SearchContent matches extracted text. Postgres uses full-text search with
// ts_headline snippets; other dialects fall back to a substring match.
func (s *Service) SearchContent(ctx context.Context, userID int64, text string, limit int, cursor string) (ListResponse[ContentHit], error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ListResponse[ContentHit]{Items: []ContentHit{}}, nil
	}
	pos, err := decodeCursor(cursor)
	if err != nil {
		return ListResponse[ContentHit]{}, err
	}
	limit = keyset.ClampLimit(limit, s.settings.SearchLimitDefault, s.settings.SearchLimitMax)

	q := s.ownedFiles(ctx, userID).Joins("JOIN file_texts ON file_texts.file_id = files.id")
	postgres := isPostgresDialect(q)
	if postgres {
		q = q.Select("files.*, ts_headline('simple', file_texts.content_plain, plainto_tsquery('simple', ?)) AS snippet", text).
			Where("to_tsvector('simple', file_texts.content_plain) @@ plainto_tsquery('simple', ?)", text)
	} else {
		q = q.Select("files.*, file_texts.content_plain AS snippet").
			Where(ilike(q, "file_texts.content_plain"), containsPattern(text))
	}

	var rows []contentHit
	if err = q.Scopes(keyset.Scope("files", pos, limit)).Scan(&rows).Error; err != nil {
		return ListResponse[ContentHit]{}, errors.Wrap(err, "search file content")
	}

	page := keyset.Map(keyset.Trim(rows, limit, contentHitKey), func(hit contentHit) ContentHit {
		item := ContentHit{FileItem: *toFileItem(&hit.File), Snippet: hit.Snippet}
		if !postgres {
			item.Snippet = buildSnippet(hit.Snippet, text, s.settings.SnippetRadius)
		}
		return item
	})
	return ListResponse[ContentHit]{Items: page.Items, NextCursor: page.NextCursor}, nil
}

// buildSnippet cuts a window of radius runes around the first
// case-insensitive occurrence of needle and wraps the hit in <b></b>.
func buildSnippet(content, needle string, radius int) string {
	hay := []rune(content)
	if len(hay) == 0 {
		return ""
	}
	target := []rune(needle)
	idx := indexFold(hay, target)
	if idx < 0 || len(target) == 0 {
		if len(hay) > 2*radius {
			return string(hay[:2*radius]) + "…"
		}
		return content
	}

	start, end := idx-radius, idx+len(target)+radius
	if start < 0 {
		start = 0
	}
	if end > len(hay) {
		end = len(hay)
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("…")
	}
	b.WriteString(string(hay[start:idx]))
	b.WriteString("<b>")
	b.WriteString(string(hay[idx : idx+len(target)]))
	b.WriteString("</b>")
	b.WriteString(string(hay[idx+len(target) : end]))
	if end < len(hay) {
		b.WriteString("…")
	}
	return b.String()
}

// indexFold finds needle in hay comparing runes case-insensitively.
func indexFold(hay, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j, r := range needle {
			if unicode.ToLower(hay[i+j]) != unicode.ToLower(r) {
				continue outer
			}
		}
		return i
	}
	return -1
}
