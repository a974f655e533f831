package streak

import "sort"

// HabitDates pairs a habit with the days it was completed.
type HabitDates struct {
	HabitID   int
	Name      string
	Color     string
	Completed DateSet
}

type DayEntry struct {
	HabitID int    `json:"habit_id"`
	Name    string `json:"name"`
	Color   string `json:"color,omitempty"`
	Streak  int    `json:"streak"`
}

// DayDetail lists the habits completed on date with their streak ending
// that day, longest streak first. Entries with no streak are dropped; that
// only happens when a set changed between load and aggregation.
func DayDetail(habits []HabitDates, date Date) []DayEntry {
	entries := []DayEntry{}
	for _, h := range habits {
		n := Streak(h.Completed, date)
		if n <= 0 {
			continue
		}
		entries = append(entries, DayEntry{HabitID: h.HabitID, Name: h.Name, Color: h.Color, Streak: n})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Streak != entries[j].Streak {
			return entries[i].Streak > entries[j].Streak
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// CompletedCounts returns, for each day of m, how many habits were completed.
func CompletedCounts(habits []HabitDates, m Month) map[int]int {
	counts := make(map[int]int)
	days := DaysInMonth(m.Year, m.Month)
	for _, h := range habits {
		for day := 1; day <= days; day++ {
			if h.Completed.Has(m.Day(day)) {
				counts[day]++
			}
		}
	}
	return counts
}
