package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/reportmill/internal/models"
)

var (
	ErrScheduleDisabled = errors.New("schedule is disabled")
	ErrInvalidTime      = errors.New("schedule time must be HH:MM in 24-hour form")
	ErrNoDays           = errors.New("weekly and monthly schedules need at least one day")
)

// NextFireTime computes when a schedule should next fire, relative to now.
//
// The candidate is today at the scheduled time in now's location; a
// still-future candidate wins regardless of frequency. Otherwise the
// candidate advances per frequency: daily to tomorrow (the days set is not
// consulted), weekly to the next listed weekday (wrapping into next week),
// monthly to the next listed day of month (wrapping into next month).
//
// The Timezone field is stored on the schedule but deliberately not applied
// here; the math runs in now's location for parity with configurations
// saved by the original system.
func NextFireTime(sc models.ScheduleConfig, now time.Time) (time.Time, error) {
	if !sc.Enabled {
		return time.Time{}, ErrScheduleDisabled
	}

	hour, minute, err := parseClock(sc.Time)
	if err != nil {
		return time.Time{}, err
	}

	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if target.After(now) {
		return target, nil
	}

	switch sc.Frequency {
	case models.FrequencyDaily:
		return target.AddDate(0, 0, 1), nil

	case models.FrequencyWeekly:
		days, err := parseDays(sc.Days, 0, 6)
		if err != nil {
			return time.Time{}, err
		}
		today := int(now.Weekday())
		for _, d := range days {
			if d > today {
				return target.AddDate(0, 0, d-today), nil
			}
		}
		// Wrap to the earliest listed weekday of next week.
		return target.AddDate(0, 0, 7-today+days[0]), nil

	case models.FrequencyMonthly:
		days, err := parseDays(sc.Days, 1, 31)
		if err != nil {
			return time.Time{}, err
		}
		dom := now.Day()
		for _, d := range days {
			if d > dom {
				return time.Date(now.Year(), now.Month(), d, hour, minute, 0, 0, now.Location()), nil
			}
		}
		return time.Date(now.Year(), now.Month()+1, days[0], hour, minute, 0, 0, now.Location()), nil

	default:
		return time.Time{}, fmt.Errorf("unknown frequency %q", sc.Frequency)
	}
}

// ValidateSchedule rejects schedules NextFireTime could never arm:
// unparseable times, and empty day sets under weekly/monthly frequencies.
// Enabled is not checked; disabled schedules may be stored.
func ValidateSchedule(sc models.ScheduleConfig) error {
	if _, _, err := parseClock(sc.Time); err != nil {
		return err
	}
	switch sc.Frequency {
	case models.FrequencyDaily:
		return nil
	case models.FrequencyWeekly:
		_, err := parseDays(sc.Days, 0, 6)
		return err
	case models.FrequencyMonthly:
		_, err := parseDays(sc.Days, 1, 31)
		return err
	default:
		return fmt.Errorf("unknown frequency %q", sc.Frequency)
	}
}

func parseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidTime
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, ErrInvalidTime
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, ErrInvalidTime
	}
	return hour, minute, nil
}

// parseDays converts the stored day strings into a sorted, deduplicated set
// of ints within [min, max]. Unparseable or out-of-range entries are
// skipped; an empty result is an error.
func parseDays(values []string, min, max int) ([]int, error) {
	seen := make(map[int]bool)
	var days []int
	for _, v := range values {
		d, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || d < min || d > max || seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	if len(days) == 0 {
		return nil, ErrNoDays
	}
	sort.Ints(days)
	return days, nil
}
