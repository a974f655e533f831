package streak

import "sort"

// DateSet is the set of days on which a habit was completed.
type DateSet map[Date]struct{}

func NewDateSet(dates ...Date) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s.Add(d)
	}
	return s
}

func (s DateSet) Add(d Date) {
	s[d] = struct{}{}
}

func (s DateSet) Remove(d Date) {
	delete(s, d)
}

func (s DateSet) Has(d Date) bool {
	_, ok := s[d]
	return ok
}

// Sorted returns the dates in ascending order.
func (s DateSet) Sorted() []Date {
	out := make([]Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Streak counts consecutive days in set ending at target, inclusive.
// It returns 0 when target itself is not in set. The walk can only see as
// far back as the set reaches, so a set built from a short log window
// underestimates long streaks.
func Streak(set DateSet, target Date) int {
	n := 0
	for cursor := target; set.Has(cursor); cursor = cursor.AddDays(-1) {
		n++
	}
	return n
}

// LongestStreak returns the longest run of consecutive days anywhere in set.
func LongestStreak(set DateSet) int {
	longest := 0
	for d := range set {
		if set.Has(d.AddDays(-1)) {
			continue
		}
		n := 0
		for cursor := d; set.Has(cursor); cursor = cursor.AddDays(1) {
			n++
		}
		if n > longest {
			longest = n
		}
	}
	return longest
}

// CurrentStreak is the headline streak as of today. An unfinished today
// does not break the streak: if today is not completed yet the run ending
// yesterday is reported.
func CurrentStreak(set DateSet, today Date) int {
	if set.Has(today) {
		return Streak(set, today)
	}
	return Streak(set, today.AddDays(-1))
}
