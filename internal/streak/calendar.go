package streak

import (
	"encoding/json"
	"time"
)

// Cell is one calendar slot: 0 is a leading blank, otherwise a day of month.
type Cell int

func (c Cell) Blank() bool {
	return c == 0
}

func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Blank() {
		return []byte("null"), nil
	}
	return json.Marshal(int(c))
}

func (c *Cell) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = 0
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = Cell(n)
	return nil
}

// DaysInMonth takes a 0-indexed month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// LeadingBlanks is the weekday of the first of the month, Sunday = 0.
func LeadingBlanks(year, month int) int {
	return int(time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// Grid lays out a month (0-indexed) as leading blanks followed by 1..daysInMonth.
func Grid(year, month int) []Cell {
	blanks := LeadingBlanks(year, month)
	days := DaysInMonth(year, month)
	cells := make([]Cell, blanks, blanks+days)
	for d := 1; d <= days; d++ {
		cells = append(cells, Cell(d))
	}
	return cells
}
