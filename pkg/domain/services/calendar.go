package services

import (
	"fmt"
	"time"
)

// DefaultCalendarAnchor is a Monday, so seven-day buckets start on Mondays
var DefaultCalendarAnchor = time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC)

// Calendar maps dates onto fixed-length capacity buckets
type Calendar struct {
	BucketDays int
	Anchor     time.Time
}

// NewCalendar creates a calendar of bucketDays-long buckets aligned to DefaultCalendarAnchor
func NewCalendar(bucketDays int) (*Calendar, error) {
	if bucketDays <= 0 {
		return nil, fmt.Errorf("bucket days must be positive, got %d", bucketDays)
	}
	return &Calendar{BucketDays: bucketDays, Anchor: DefaultCalendarAnchor}, nil
}

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from a to b
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// BucketStart returns the first day of the bucket containing t
func (c *Calendar) BucketStart(t time.Time) time.Time {
	days := DaysBetween(c.Anchor, t)
	offset := days % c.BucketDays
	if offset < 0 {
		offset += c.BucketDays
	}
	return Day(t).AddDate(0, 0, -offset)
}

// Buckets lists the bucket starts covering [from, to]
func (c *Calendar) Buckets(from, to time.Time) []time.Time {
	var out []time.Time
	for b := c.BucketStart(from); !b.After(Day(to)); b = b.AddDate(0, 0, c.BucketDays) {
		out = append(out, b)
	}
	return out
}
