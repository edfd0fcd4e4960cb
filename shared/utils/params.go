package utils

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// DateQuery reads an optional date query parameter, returning def when absent
func DateQuery(c *gin.Context, key string, def time.Time) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return ParseDate(v)
}

// MonthQuery reads an optional YYYY-MM query parameter as the first of that month
func MonthQuery(c *gin.Context, key string, def time.Time) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(MonthLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", v)
	}
	return t, nil
}

// Today returns the current UTC calendar date
func Today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
