// Package keyset implements opaque cursors and keyset pagination over
// rows ordered by (created_at DESC, id DESC).
package keyset

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
)

// ErrInvalidCursor is returned when a cursor cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// Position is a decoded resume point in the canonical order.
type Position struct {
	CreatedAt time.Time
	ID        int64
}

// Encode builds an opaque cursor for the given position.
func Encode(createdAt time.Time, id int64) string {
	payload, _ := json.Marshal([]any{createdAt.UTC().Format(time.RFC3339Nano), id})
	return base64.RawURLEncoding.EncodeToString(payload)
}

// Decode parses a cursor produced by Encode. Padded input is accepted.
func Decode(cursor string) (Position, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(cursor), "="))
	if err != nil {
		return Position{}, errors.Wrap(ErrInvalidCursor, "decode base64")
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var fields []any
	if err = decoder.Decode(&fields); err != nil {
		return Position{}, errors.Wrap(ErrInvalidCursor, "decode json")
	}
	if decoder.More() {
		return Position{}, errors.Wrap(ErrInvalidCursor, "trailing data")
	}
	if len(fields) != 2 {
		return Position{}, errors.Wrap(ErrInvalidCursor, "unexpected field count")
	}

	tsRaw, ok := fields[0].(string)
	if !ok {
		return Position{}, errors.Wrap(ErrInvalidCursor, "timestamp must be a string")
	}
	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return Position{}, errors.Wrap(ErrInvalidCursor, "parse timestamp")
	}

	num, ok := fields[1].(json.Number)
	if !ok {
		return Position{}, errors.Wrap(ErrInvalidCursor, "id must be a number")
	}
	id, err := num.Int64()
	if err != nil {
		return Position{}, errors.Wrap(ErrInvalidCursor, "id must be an integer")
	}

	return Position{CreatedAt: ts.UTC(), ID: id}, nil
}

// DecodeOptional decodes a cursor, returning nil for an empty string.
func DecodeOptional(cursor string) (*Position, error) {
	if strings.TrimSpace(cursor) == "" {
		return nil, nil
	}
	pos, err := Decode(cursor)
	if err != nil {
		return nil, err
	}
	return &pos, nil
}
