package streak

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	tests := []struct {
		name   string
		year   int
		month  int
		blanks int
		days   int
	}{
		{"january 2024 starts monday", 2024, 0, 1, 31},
		{"leap february", 2024, 1, 4, 29},
		{"march 2024 starts friday", 2024, 2, 5, 31},
		{"september 2024 starts sunday", 2024, 8, 0, 30},
		{"non-leap february", 2023, 1, 3, 28},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := Grid(tt.year, tt.month)
			require.Len(t, cells, tt.blanks+tt.days)
			assert.Equal(t, tt.blanks, LeadingBlanks(tt.year, tt.month))
			for i := 0; i < tt.blanks; i++ {
				assert.True(t, cells[i].Blank())
			}
			assert.Equal(t, Cell(1), cells[tt.blanks])
			assert.Equal(t, Cell(tt.days), cells[len(cells)-1])
		})
	}
}

func TestGridMatchesWeekday(t *testing.T) {
	for year := 2020; year <= 2030; year++ {
		for month := 0; month < 12; month++ {
			first := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
			cells := Grid(year, month)
			assert.Len(t, cells, int(first.Weekday())+DaysInMonth(year, month))
		}
	}
}

func TestCellJSON(t *testing.T) {
	b, err := json.Marshal([]Cell{0, 0, 1, 2})
	require.NoError(t, err)
	assert.JSONEq(t, `[null,null,1,2]`, string(b))

	var back []Cell
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, []Cell{0, 0, 1, 2}, back)
}

func TestMonthNavigation(t *testing.T) {
	jan := Month{Year: 2024, Month: 0}
	assert.Equal(t, 1, jan.Next().Month)
	assert.Equal(t, Month{Year: 2023, Month: 11}, jan.Prev())
	assert.Equal(t, Month{Year: 2025, Month: 0}, Month{Year: 2024, Month: 11}.Next())
	assert.Equal(t, "2024-01", jan.String())
	assert.Equal(t, MustParseDate("2024-02-29"), jan.Next().Last())
}

func TestNavigatorFromJanuary31(t *testing.T) {
	now := func() time.Time { return time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC) }
	nav := NewNavigator(time.UTC, now)

	assert.Equal(t, Month{Year: 2024, Month: 0}, nav.Current())
	assert.Equal(t, Month{Year: 2024, Month: 1}, nav.Next())
	assert.Equal(t, Month{Year: 2024, Month: 2}, nav.Next())
	nav.Prev()
	nav.Prev()
	assert.Equal(t, Month{Year: 2023, Month: 11}, nav.Prev())
	assert.Equal(t, Month{Year: 2024, Month: 0}, nav.Reset())
}

func TestNavigatorJumpNormalizes(t *testing.T) {
	nav := NewNavigator(time.UTC, nil)
	assert.Equal(t, Month{Year: 2025, Month: 1}, nav.Jump(Month{Year: 2024, Month: 13}))
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-03")
	require.NoError(t, err)
	assert.Equal(t, Month{Year: 2024, Month: 2}, m)
	_, err = ParseMonth("2024-13")
	assert.Error(t, err)
}
