package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidIdentifier indicates a malformed backup ID string.
var ErrInvalidIdentifier = errors.New("invalid backup identifier")

// A backup's identity is its start timestamp (Unix seconds). On disk and on
// the command line it appears base-36 encoded, e.g. 1755000000 -> "t0xr5c0".

// EncodeID converts a backup start timestamp to its canonical lower-case
// base-36 form, used as the catalog directory name and as the
// human-visible backup ID.
func EncodeID(id int64) string {
	return strconv.FormatInt(id, 36)
}

// DecodeID is the inverse of EncodeID. Decoding is case-insensitive and
// rejects anything outside [0-9a-z] or beyond the int64 range.
func DecodeID(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidIdentifier)
	}
	id, err := strconv.ParseInt(strings.ToLower(s), 36, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return id, nil
}

// ParseIDOrLatest decodes a user-supplied backup ID. The literal "latest"
// (or an empty string) means "no pin" and maps to zero.
func ParseIDOrLatest(s string) (int64, error) {
	if s == "" || strings.EqualFold(s, "latest") {
		return 0, nil
	}
	return DecodeID(s)
}
