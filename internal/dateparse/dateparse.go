// Package dateparse turns loose user phrasing ("next tuesday", "3:30 pm")
// into concrete dates and times for slot validation.
package dateparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoDate   = errors.New("no date found")
	ErrNoTime   = errors.New("no time found")
	ErrPastDate = errors.New("date is in the past")
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	numericDate = regexp.MustCompile(`\b(\d{1,2})[-/](\d{1,2})(?:[-/](\d{2,4}))?\b`)
	isoDate     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	monthDay    = regexp.MustCompile(`\b([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)
	weekdayRef  = regexp.MustCompile(`\b(?:(next|this)\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	clockTime   = regexp.MustCompile(`\b(\d{1,2})(?:[:.](\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)\b`)
	clock24     = regexp.MustCompile(`\b(\d{1,2})[:.](\d{2})\b`)
)

// ParseDate resolves the first date expression found in text relative to now.
// The result is truncated to midnight in now's location. Dates earlier than
// today fail with ErrPastDate.
func ParseDate(text string, now time.Time) (time.Time, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(lower, "today"):
		return today, nil
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1), nil
	case strings.Contains(lower, "next week"):
		return today.AddDate(0, 0, 7), nil
	}

	if m := weekdayRef.FindStringSubmatch(lower); m != nil {
		target := weekdays[m[2]]
		days := (int(target) - int(today.Weekday()) + 7) % 7
		// A bare weekday means the next occurrence; "next" skips a full week
		// when the weekday is today.
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days), nil
	}

	if m := isoDate.FindStringSubmatch(lower); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return checkFuture(buildDate(year, time.Month(month), day, now), today)
	}

	if m := monthDay.FindStringSubmatch(lower); m != nil {
		if month, ok := months[m[1]]; ok {
			day, _ := strconv.Atoi(m[2])
			year := 0
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
			}
			d := buildDate(year, month, day, now)
			// Month/day without a year rolls into next year if already past.
			if m[3] == "" && d.Before(today) {
				d = d.AddDate(1, 0, 0)
			}
			return checkFuture(d, today)
		}
	}

	if m := numericDate.FindStringSubmatch(lower); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, ErrNoDate
		}
		year := 0
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		d := buildDate(year, time.Month(month), day, now)
		if m[3] == "" && d.Before(today) {
			d = d.AddDate(1, 0, 0)
		}
		return checkFuture(d, today)
	}

	return time.Time{}, ErrNoDate
}

func buildDate(year int, month time.Month, day int, now time.Time) time.Time {
	if year == 0 {
		year = now.Year()
	}
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
}

func checkFuture(d, today time.Time) (time.Time, error) {
	if d.Before(today) {
		return time.Time{}, ErrPastDate
	}
	return d, nil
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

// Format renders a 12-hour clock string like "3:30 PM".
func (t TimeOfDay) Format() string {
	h := t.Hour % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if t.Hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute, suffix)
}

// ParseTime resolves the first time expression in text: "3:30 PM", "3pm",
// "15:00", "noon", "midnight".
func ParseTime(text string) (TimeOfDay, error) {
	lower := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.Contains(lower, "noon"):
		return TimeOfDay{Hour: 12}, nil
	case strings.Contains(lower, "midnight"):
		return TimeOfDay{}, nil
	}

	if m := clockTime.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return TimeOfDay{}, ErrNoTime
		}
		pm := strings.HasPrefix(m[3], "p")
		if pm && hour != 12 {
			hour += 12
		}
		if !pm && hour == 12 {
			hour = 0
		}
		return TimeOfDay{Hour: hour, Minute: minute}, nil
	}

	if m := clock24.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return TimeOfDay{}, ErrNoTime
		}
		return TimeOfDay{Hour: hour, Minute: minute}, nil
	}

	return TimeOfDay{}, ErrNoTime
}
