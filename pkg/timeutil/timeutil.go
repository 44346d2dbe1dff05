package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTimeToMinutes converts a "HH:MM" clock string to minutes from
// midnight ("09:00" -> 540). Empty or malformed input yields 0.
func ParseTimeToMinutes(s string) int {
	if s == "" {
		return 0
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0
	}
	return h*60 + m
}

// FormatMinutes converts minutes from midnight back to "HH:MM".
func FormatMinutes(minutes int) string {
	if minutes < 0 || minutes >= 24*60 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Window is a daily time window expressed in minutes from midnight.
// Windows may wrap past midnight (e.g. 22:00-08:00).
type Window struct {
	Start int
	End   int
}

// NewWindow builds a Window from "HH:MM" bounds. A window where both
// bounds parse to the same minute is considered empty.
func NewWindow(start, end string) Window {
	return Window{Start: ParseTimeToMinutes(start), End: ParseTimeToMinutes(end)}
}

// IsZero reports whether the window is empty.
func (w Window) IsZero() bool {
	return w.Start == w.End
}

// Contains reports whether the given minute-of-day falls inside the window.
func (w Window) Contains(minute int) bool {
	if w.IsZero() {
		return false
	}
	if w.Start < w.End {
		return minute >= w.Start && minute < w.End
	}
	// Wraps past midnight.
	return minute >= w.Start || minute < w.End
}
