package utils

import (
	"fmt"
	"strings"
	"time"
)

// ParseDMY parses the DD/MM/YYYY date format used by the sync CLI flags.
func ParseDMY(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse("02/01/2006", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want DD/MM/YYYY): %w", value, err)
	}
	return t, nil
}

// Truncate limits s to max bytes, for error samples carrying body excerpts.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
