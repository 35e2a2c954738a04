package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// URN is a provider resource name of the form "prefix:type:id",
// e.g. "sr:sport:1" or "sr:match:12345".
type URN struct {
	Prefix string
	Type   string
	ID     int64
}

// ParseURN parses a URN string. The id segment must be a positive integer.
func ParseURN(s string) (URN, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return URN{}, fmt.Errorf("%w: %q", ErrMalformedURN, s)
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return URN{}, fmt.Errorf("%w: %q", ErrMalformedURN, s)
	}
	return URN{Prefix: parts[0], Type: parts[1], ID: id}, nil
}

func (u URN) String() string {
	return u.Prefix + ":" + u.Type + ":" + strconv.FormatInt(u.ID, 10)
}
