// Package bucket groups dated records into calendar-month and calendar-year
// buckets.
//
// Keys are zero-padded ("2025-06", "2025") so string order equals
// chronological order and reports can be ordered without parsing dates.
package bucket

import (
	"sort"
	"time"
)

// Buckets maps a period key to the records dated in that period. Records keep
// their input order inside a bucket.
type Buckets[T any] map[string][]T

// MonthKey returns the YYYY-MM key of t.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// YearKey returns the YYYY key of t.
func YearKey(t time.Time) string {
	return t.Format("2006")
}

// YearOfMonth returns the year part of a month key.
func YearOfMonth(monthKey string) string {
	if len(monthKey) < 4 {
		return monthKey
	}
	return monthKey[:4]
}

// ByMonth groups records by the month of the selected date.
func ByMonth[T any](records []T, date func(T) time.Time) Buckets[T] {
	return by(records, func(r T) string { return MonthKey(date(r)) })
}

// ByYear groups records by the year of the selected date.
func ByYear[T any](records []T, date func(T) time.Time) Buckets[T] {
	return by(records, func(r T) string { return YearKey(date(r)) })
}

func by[T any](records []T, key func(T) string) Buckets[T] {
	out := make(Buckets[T])
	for _, r := range records {
		k := key(r)
		out[k] = append(out[k], r)
	}
	return out
}

// Keys returns the bucket keys in ascending order.
func (b Buckets[T]) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the bucket for key, or nil.
func (b Buckets[T]) Get(key string) []T {
	return b[key]
}

// Flatten concatenates every bucket in key order.
func (b Buckets[T]) Flatten() []T {
	var out []T
	for _, k := range b.Keys() {
		out = append(out, b[k]...)
	}
	return out
}

// Len returns the number of records across all buckets.
func (b Buckets[T]) Len() int {
	n := 0
	for _, v := range b {
		n += len(v)
	}
	return n
}

// MergeKeys returns the sorted union of keys from several key lists.
func MergeKeys(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lists {
		for _, k := range l {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
