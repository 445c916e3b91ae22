// Package pagination implements newest-first keyset pages over
// (created_at, id).
package pagination

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Cursor identifies the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// Keyset is a gorm scope that orders newest first, skips everything up to and
// including after, and reads one row past the page so Page can detect more.
func Keyset(after *Cursor, limit int) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if after != nil {
			q = q.Where("(created_at, id) < (?, ?)", after.CreatedAt, after.ID)
		}
		return q.Order("created_at DESC, id DESC").Limit(NormalizeLimit(limit) + 1)
	}
}

// Page trims rows read through Keyset back to the page size. The cursor is
// nil on the last page.
func Page[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, *Cursor) {
	n := NormalizeLimit(limit)
	if len(rows) <= n {
		return rows, nil
	}
	rows = rows[:n]
	next := cursorOf(rows[n-1])
	return rows, &next
}

// Encode returns an opaque URL-safe token.
func (c Cursor) Encode() string {
	buf := make([]byte, 8+16)
	binary.BigEndian.PutUint64(buf, uint64(c.CreatedAt.UnixNano()))
	copy(buf[8:], c.ID[:])
	return base64.RawURLEncoding.EncodeToString(buf)
}

// ParseCursor reverses Encode. A blank token means the first page.
func ParseCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != 24 {
		return nil, errors.New("malformed cursor")
	}
	id, err := uuid.FromBytes(raw[8:])
	if err != nil {
		return nil, errors.New("malformed cursor")
	}
	nanos := int64(binary.BigEndian.Uint64(raw[:8]))
	return &Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}
