package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor represents a decoded pagination cursor for timestamp-ordered lists
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

var (
	ErrInvalidCursor = errors.New("invalid cursor format")
)

// EncodeCursor creates a base64-encoded cursor from the last item ID and timestamp
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + "|" + timestamp.UTC().Format(time.RFC3339Nano)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor decodes a base64-encoded cursor and returns the last ID and timestamp
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{
		LastID:    parts[0],
		Timestamp: timestamp,
	}, nil
}

// EncodePageToken creates an opaque token from the last seen id, used by
// id-ordered listings such as the vector store's prefix scan.
func EncodePageToken(lastID string) string {
	if lastID == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(lastID))
}

// DecodePageToken returns the last seen id encoded in a page token. An empty
// token means the scan starts from the beginning.
func DecodePageToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidCursor
	}
	return string(decoded), nil
}
