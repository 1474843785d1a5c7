package utils

import (
	"fmt"
	"time"
)

const (
	isoDateLayout   = "2006-01-02"
	forumDateLayout = "02.01.2006"
)

// DayStart returns local midnight of t's calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// SameDay compares the local calendar dates (year, month, day) of a and b.
// It deliberately avoids window arithmetic so DST transitions cannot shift
// a show into a neighbouring day.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// UpcomingDates returns n consecutive local midnights starting with today.
func UpcomingDates(now time.Time, n int, loc *time.Location) []time.Time {
	today := DayStart(now, loc)
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, today.AddDate(0, 0, i))
	}
	return out
}

// FormatISODate formats the local calendar date of t as YYYY-MM-DD.
func FormatISODate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(isoDateLayout)
}

// FormatForumDate formats the local calendar date of t as DD.MM.YYYY.
func FormatForumDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(forumDateLayout)
}

// ParseISODate parses YYYY-MM-DD as local midnight in loc.
func ParseISODate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(isoDateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// LabelForDate returns "Today", "Tomorrow" or the English weekday name of
// date relative to now.
func LabelForDate(date, now time.Time, loc *time.Location) string {
	d := DayStart(date, loc)
	today := DayStart(now, loc)
	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDate(0, 0, 1)):
		return "Tomorrow"
	}
	return d.Weekday().String()
}
