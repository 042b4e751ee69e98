// Package ordering computes position values for tasks inserted among siblings.
//
// Positions are renumbered with integer steps instead of interpolated, so
// repeated moves never run out of float precision.
package ordering

import "math"

// Sibling is the part of a task ordering needs.
type Sibling struct {
	ID       string
	Position float64
}

// Result is the outcome of an insertion.
type Result struct {
	// Moved is the position for the inserted task.
	Moved float64
	// Resequenced holds new positions for siblings that had to shift.
	Resequenced map[string]float64
}

// InsertionPositions places a task at index among siblings, which must be in
// display order and must not contain the task being moved. Index is clamped
// to [0, len(siblings)].
//
// At the head the task gets min-1, at the tail max+1, and in an empty list 0.
// In the middle it takes a free integer slot between its neighbours when one
// exists. Otherwise it takes the slot of the sibling at index and that
// sibling and everything after it shift up by one.
//
// The result is strictly increasing in display order even if the input had ties.
func InsertionPositions(siblings []Sibling, index int) Result {
	n := len(siblings)
	index = max(0, min(index, n))
	res := Result{Resequenced: map[string]float64{}}

	if n == 0 {
		res.Moved = 0
		return res
	}

	pos := make([]float64, n)
	for i, s := range siblings {
		pos[i] = s.Position
	}

	switch {
	case index == 0:
		res.Moved = minOf(pos) - 1
	case index == n:
		res.Moved = maxOf(pos) + 1
	default:
		prev, next := pos[index-1], pos[index]
		if slot := math.Floor(prev) + 1; slot < next {
			res.Moved = slot
		} else {
			res.Moved = next
			for i := index; i < n; i++ {
				pos[i]++
			}
		}
	}

	// Walk the final order and lift anything that does not sit strictly
	// above its predecessor.
	last := math.Inf(-1)
	for i := 0; i <= n; i++ {
		if i == index {
			if res.Moved <= last {
				res.Moved = math.Floor(last) + 1
			}
			last = res.Moved
		}
		if i == n {
			break
		}
		if pos[i] <= last {
			pos[i] = math.Floor(last) + 1
		}
		last = pos[i]
	}

	for i, s := range siblings {
		if pos[i] != s.Position {
			res.Resequenced[s.ID] = pos[i]
		}
	}
	return res
}

// Append returns the position for a task added after all siblings.
func Append(siblings []Sibling) float64 {
	return InsertionPositions(siblings, len(siblings)).Moved
}

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = math.Min(m, x)
	}
	return m
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = math.Max(m, x)
	}
	return m
}
