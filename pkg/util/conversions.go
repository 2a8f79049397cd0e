package util

import (
	"fmt"
	"strconv"
)

// FormatSnowflake renders a snowflake ID in the string form the API uses.
func FormatSnowflake(n uint64) string {
	return strconv.FormatUint(n, 10)
}

// ParseSnowflake parses a snowflake ID string.
func ParseSnowflake(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse snowflake %q: %w", s, err)
	}
	return n, nil
}
