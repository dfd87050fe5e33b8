package server

import (
	"strconv"
	"strings"
	"time"

	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
)

const dateOnlyLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD or RFC3339 and returns UTC midnight.
func parseDate(field, value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, newFieldError(field, "invalid_date")
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return dailymetricdomain.NormalizeDay(parsed), nil
	}
	return time.Time{}, newFieldError(field, "invalid_date")
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseRange reads start/end, rejecting start > end with field "range".
func parseRange(startValue, endValue string) (time.Time, time.Time, error) {
	start, err := parseDate("start", startValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("end", endValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, newFieldError("range", "invalid_range")
	}
	return start, end, nil
}

func parseOptionalInt(field, value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, newFieldError(field, "invalid_"+field)
	}
	return parsed, nil
}
