package mongostore

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// DefaultPageSize and MaxPageSize bound MonitoringApi listing pages,
// mirroring the teacher's pagination.go constants.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// EncodePageToken encodes an offset as an opaque page token.
func EncodePageToken(offset int64) string {
	return base64.URLEncoding.EncodeToString([]byte(strconv.FormatInt(offset, 10)))
}

// DecodePageToken decodes a page token produced by EncodePageToken. An
// empty token decodes to offset 0 (first page).
func DecodePageToken(token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("mongostore: invalid page token: %w", err)
	}
	offset, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("mongostore: invalid page token: %w", err)
	}
	return offset, nil
}

// clampPageSize applies the Default/Max bounds to a caller-requested page
// size, the way the teacher's handler.getPageSize does.
func clampPageSize(requested int) int {
	if requested <= 0 {
		return DefaultPageSize
	}
	if requested > MaxPageSize {
		return MaxPageSize
	}
	return requested
}
