package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule is a parsed five-field cron expression
// (minute hour day-of-month month day-of-week). Fields are either a
// wildcard or a single numeric value; that is all the batch jobs need.
type Schedule struct {
	Minute     int // 0-59, -1 = any
	Hour       int // 0-23, -1 = any
	DayOfMonth int // 1-31, -1 = any
	Month      int // 1-12, -1 = any
	DayOfWeek  int // 0-6 (Sunday = 0), -1 = any
}

// ParseSchedule parses a five-field cron expression into a Schedule
func ParseSchedule(expr string) (Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return Schedule{}, fmt.Errorf("schedule %q: expected 5 fields, got %d", expr, len(fields))
	}

	bounds := []struct {
		name     string
		min, max int
	}{
		{"minute", 0, 59},
		{"hour", 0, 23},
		{"day-of-month", 1, 31},
		{"month", 1, 12},
		{"day-of-week", 0, 6},
	}

	values := make([]int, 5)
	for i, field := range fields {
		if field == "*" {
			values[i] = -1
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return Schedule{}, fmt.Errorf("schedule %q: %s field %q is not a number or wildcard", expr, bounds[i].name, field)
		}
		if n < bounds[i].min || n > bounds[i].max {
			return Schedule{}, fmt.Errorf("schedule %q: %s field %d out of range [%d, %d]", expr, bounds[i].name, n, bounds[i].min, bounds[i].max)
		}
		values[i] = n
	}

	return Schedule{
		Minute:     values[0],
		Hour:       values[1],
		DayOfMonth: values[2],
		Month:      values[3],
		DayOfWeek:  values[4],
	}, nil
}

// Matches reports whether the schedule fires at the given time,
// truncated to the minute
func (s Schedule) Matches(t time.Time) bool {
	if s.Minute != -1 && t.Minute() != s.Minute {
		return false
	}
	if s.Hour != -1 && t.Hour() != s.Hour {
		return false
	}
	if s.DayOfMonth != -1 && t.Day() != s.DayOfMonth {
		return false
	}
	if s.Month != -1 && int(t.Month()) != s.Month {
		return false
	}
	if s.DayOfWeek != -1 && int(t.Weekday()) != s.DayOfWeek {
		return false
	}
	return true
}
