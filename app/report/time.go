package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseTime accepts epoch milliseconds or any common date layout.
// Unparseable input yields nil so the caller can ignore the bound.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
