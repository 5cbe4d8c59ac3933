package bookmark

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTime reads a filter bound given as unix seconds, a YYYY-MM-DD date
// (UTC midnight), or an RFC 3339 timestamp. An empty string yields nil.
func ParseTime(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			n := t.Unix()
			return &n, nil
		}
	}
	return nil, fmt.Errorf("invalid time %q: use unix seconds, YYYY-MM-DD, or RFC 3339", s)
}
