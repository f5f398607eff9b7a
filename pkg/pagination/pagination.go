// Package pagination implements keyset cursors for the listing endpoints.
// Catalog and partner listings page on created_at, event listings on
// occurred_at, so the cursor carries a neutral sort timestamp plus the row
// id as tie-breaker.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Params holds the raw pagination inputs as they arrive from a controller.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the decoded keyset position: rows strictly before (Ts, ID) in
// descending order belong to the next page.
type Cursor struct {
	Ts time.Time `json:"ts"`
	ID uuid.UUID `json:"id"`
}

// NormalizeLimit clamps a requested page size into [1, MaxLimit], falling
// back to DefaultLimit when unset.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer requests one extra row so the caller can tell whether a
// next page exists without a count query.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Next encodes the keyset position of the last row on a full page.
func Next(ts time.Time, id uuid.UUID) string {
	payload, _ := json.Marshal(Cursor{Ts: ts.UTC(), ID: id})
	return base64.RawURLEncoding.EncodeToString(payload)
}

// ParseCursor decodes a cursor produced by Next. An empty value means the
// first page and yields a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(decoded, &c); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	if c.Ts.IsZero() || c.ID == uuid.Nil {
		return nil, fmt.Errorf("incomplete cursor")
	}
	return &c, nil
}
