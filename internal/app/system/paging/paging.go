// internal/app/system/paging/paging.go
package paging

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Page sizes for the "load more" lists.
const (
	FeedPageSize    = 10 // admin feed of all submissions
	RosterPageSize  = 10 // admin user roster
	HistoryPageSize = 5  // a user's own submissions
)

// Cursor identifies the last row of a page: its sort key plus its _id as
// the tie-breaker. It is positional, so rows inserted or removed ahead
// of the cursor between loads can shift what the next page returns.
type Cursor struct {
	Key string `json:"k"`
	ID  string `json:"i"`
}

// Encode returns the opaque, URL-safe form of c.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a value produced by Cursor.Encode.
func DecodeCursor(s string) (Cursor, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Cursor{}, false
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, false
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil || c.ID == "" {
		return Cursor{}, false
	}
	return c, true
}

// TimeKey encodes a timestamp sort key. BSON datetimes carry millisecond
// precision, so milliseconds round-trip exactly.
func TimeKey(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseTimeKey reverses TimeKey.
func ParseTimeKey(k string) (time.Time, bool) {
	ms, err := strconv.ParseInt(k, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// Page is one fetched window of an ordered list.
type Page[T any] struct {
	Items   []T
	Next    string // encoded cursor of the last item; "" when empty
	HasMore bool   // false once a page comes back shorter than the page size
}

// NewPage wraps rows fetched with limit size. A page that fills the limit
// may have more behind it; a shorter one is the end of the list.
func NewPage[T any](rows []T, size int, cursorOf func(T) Cursor) Page[T] {
	p := Page[T]{Items: rows, HasMore: size > 0 && len(rows) == size}
	if len(rows) > 0 {
		p.Next = cursorOf(rows[len(rows)-1]).Encode()
	}
	return p
}

// After returns the keyset filter selecting rows strictly after the
// cursor position for an ordering on (field, _id) in the given direction.
func After(field string, key, id any, desc bool) bson.M {
	op := "$gt"
	if desc {
		op = "$lt"
	}
	return bson.M{"$or": []bson.M{
		{field: bson.M{op: key}},
		{field: key, "_id": bson.M{op: id}},
	}}
}

// FindOptions sorts on (field, _id) and limits to size.
func FindOptions(field string, desc bool, size int) *options.FindOptions {
	dir := 1
	if desc {
		dir = -1
	}
	return options.Find().
		SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}).
		SetLimit(int64(size))
}

// ParseAfter reads the "after" query parameter.
func ParseAfter(r *http.Request) string {
	return query.Get(r, "after")
}
