package streak

import (
	"fmt"
	"sync"
	"time"
)

// Month identifies a calendar month. Month is 0-indexed (0 = January).
type Month struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func MonthOf(d Date) Month {
	return Month{Year: d.Year, Month: int(d.Month) - 1}
}

// ParseMonth accepts YYYY-MM with a 1-indexed month.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q (expected YYYY-MM): %w", s, err)
	}
	return Month{Year: t.Year(), Month: int(t.Month()) - 1}, nil
}

func CurrentMonth(loc *time.Location) Month {
	return MonthOf(Today(loc))
}

// Add steps by delta months. Day is pinned to 1 so short months never
// overflow into the following one.
func (m Month) Add(delta int) Month {
	t := time.Date(m.Year, time.Month(m.Month+1+delta), 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: int(t.Month()) - 1}
}

func (m Month) Next() Month {
	return m.Add(1)
}

func (m Month) Prev() Month {
	return m.Add(-1)
}

func (m Month) First() Date {
	return Date{Year: m.Year, Month: time.Month(m.Month + 1), Day: 1}
}

func (m Month) Last() Date {
	return Date{Year: m.Year, Month: time.Month(m.Month + 1), Day: DaysInMonth(m.Year, m.Month)}
}

func (m Month) Contains(d Date) bool {
	return MonthOf(d) == m
}

func (m Month) Grid() []Cell {
	return Grid(m.Year, m.Month)
}

// Day returns the date of day-of-month n.
func (m Month) Day(n int) Date {
	return Date{Year: m.Year, Month: time.Month(m.Month + 1), Day: n}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month+1)
}

// Navigator holds the month a calendar is showing. It starts at the
// current month and Reset returns it there.
type Navigator struct {
	mu      sync.Mutex
	loc     *time.Location
	now     func() time.Time
	current Month
}

// NewNavigator uses time.Now when now is nil.
func NewNavigator(loc *time.Location, now func() time.Time) *Navigator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	n := &Navigator{loc: loc, now: now}
	n.current = MonthOf(DateOf(now(), loc))
	return n
}

func (n *Navigator) Current() Month {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *Navigator) Next() Month {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = n.current.Next()
	return n.current
}

func (n *Navigator) Prev() Month {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = n.current.Prev()
	return n.current
}

// Jump moves directly to m.
func (n *Navigator) Jump(m Month) Month {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = m.Add(0)
	return n.current
}

func (n *Navigator) Reset() Month {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = MonthOf(DateOf(n.now(), n.loc))
	return n.current
}
