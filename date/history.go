package date

import (
	"iter"
	"slices"
)

// History stores a chronological series of values, each associated with a unique date.
type History[T any] struct {
	days   []Date
	values []T
}

func compare(a, b Date) int { return a.time().Compare(b.time()) }

// Len returns the number of points in the history.
func (h *History[T]) Len() int { return len(h.days) }

// Append sets the value on a date, replacing any existing value on that date.
func (h *History[T]) Append(on Date, v T) *History[T] {
	i, found := slices.BinarySearchFunc(h.days, on, compare)
	if found {
		h.values[i] = v
		return h
	}
	h.days = slices.Insert(h.days, i, on)
	h.values = slices.Insert(h.values, i, v)
	return h
}

// Latest returns the most recent point, or false for an empty history.
func (h *History[T]) Latest() (Date, T, bool) {
	last := len(h.days) - 1
	if last < 0 {
		var zero T
		return Date{}, zero, false
	}
	return h.days[last], h.values[last], true
}

// ValueAsOf returns the point on day, or the most recent one before it.
func (h *History[T]) ValueAsOf(day Date) (Date, T, bool) {
	i, found := slices.BinarySearchFunc(h.days, day, compare)
	if found {
		return h.days[i], h.values[i], true
	}
	if i == 0 {
		var zero T
		return Date{}, zero, false
	}
	return h.days[i-1], h.values[i-1], true
}

// Values iterates over the history in chronological order.
func (h *History[T]) Values() iter.Seq2[Date, T] {
	return func(yield func(Date, T) bool) {
		for i, on := range h.days {
			if !yield(on, h.values[i]) {
				return
			}
		}
	}
}
