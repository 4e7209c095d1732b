package routing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kursadbilgin/route-engine/internal/domain"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Window is the absolute delivery window of one generation run.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// WindowInput carries the candidate HH:mm bounds of a run. Explicit values
// win over the batch's stored window; missing bounds default to the full day.
type WindowInput struct {
	Date          time.Time
	Location      *time.Location
	ExplicitStart string
	ExplicitEnd   string
	BatchStart    *string
	BatchEnd      *string
}

func ResolveWindow(in WindowInput) (Window, error) {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := in.Date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	start := day
	end := day.AddDate(0, 0, 1)

	startRaw := firstNonEmpty(in.ExplicitStart, deref(in.BatchStart))
	if startRaw != "" {
		t, err := clockOnDay(day, startRaw, "startTime")
		if err != nil {
			return Window{}, err
		}
		start = t
	}

	endRaw := firstNonEmpty(in.ExplicitEnd, deref(in.BatchEnd))
	if endRaw != "" {
		t, err := clockOnDay(day, endRaw, "endTime")
		if err != nil {
			return Window{}, err
		}
		end = t
	}

	if !end.After(start) {
		return Window{}, fmt.Errorf("%w: delivery window end %s must be after start %s",
			domain.ErrValidation, end.Format("15:04"), start.Format("15:04"))
	}

	return Window{Start: start, End: end}, nil
}

// ValidClock reports whether s is a 24h HH:mm value.
func ValidClock(s string) bool {
	return clockPattern.MatchString(strings.TrimSpace(s))
}

func clockOnDay(day time.Time, raw string, field string) (time.Time, error) {
	match := clockPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return time.Time{}, fmt.Errorf("%w: %s must match HH:mm, got %q", domain.ErrValidation, field, raw)
	}
	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
