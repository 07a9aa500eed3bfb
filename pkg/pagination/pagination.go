// Package pagination implements keyset paging over (created_at, id),
// newest first.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Params is what a list endpoint accepts. Cursor is the opaque token from
// the previous Page.
type Params struct {
	Limit  int
	Cursor string
}

// Size is Limit clamped to [1, MaxLimit] with DefaultLimit for zero.
func (p Params) Size() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// Fetch is the row count to query: one past Size so the next page can be
// detected without a count.
func (p Params) Fetch() int { return p.Size() + 1 }

// After decodes Cursor; nil means the first page.
func (p Params) After() (*Cursor, error) {
	return DecodeCursor(p.Cursor)
}

// Cursor is the keyset position of the last row of a page.
type Cursor struct {
	CreatedAt time.Time `json:"ts"`
	ID        uuid.UUID `json:"id"`
}

func (c Cursor) Encode() string {
	raw, _ := json.Marshal(Cursor{CreatedAt: c.CreatedAt.UTC(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by Encode. Blank input yields nil;
// anything else that fails wraps ErrInvalidCursor.
func DecodeCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.ID == uuid.Nil || c.CreatedAt.IsZero() {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// Page is a window of results plus the cursor for the next window, if any.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Paginate trims rows fetched with Params.Fetch to one page and derives
// the next cursor from the last kept row.
func Paginate[T any](rows []T, p Params, keyOf func(T) Cursor) Page[T] {
	size := p.Size()
	page := Page[T]{Items: rows}
	if len(rows) > size {
		page.Items = rows[:size]
		page.NextCursor = keyOf(page.Items[size-1]).Encode()
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page
}
