package cli

import (
	"fmt"
	"io"
	"strings"

	"step26/internal/models"
	"step26/internal/streak"

	"github.com/charmbracelet/lipgloss"
)

// Markers trail each day number so the grid stays readable without color.
const (
	markAll  = "*"
	markSome = "+"
	markNone = " "
)

var weekdayHeader = []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

// Theme holds the styles for one output stream. Colors are dropped
// automatically when the stream is not a terminal.
type Theme struct {
	title   lipgloss.Style
	dim     lipgloss.Style
	all     lipgloss.Style
	some    lipgloss.Style
	today   lipgloss.Style
	name    lipgloss.Style
	streak  lipgloss.Style
	checked lipgloss.Style
}

func NewTheme(w io.Writer) *Theme {
	r := lipgloss.NewRenderer(w)
	return &Theme{
		title:   r.NewStyle().Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("240")),
		all:     r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		some:    r.NewStyle().Foreground(lipgloss.Color("214")),
		today:   r.NewStyle().Underline(true),
		name:    r.NewStyle().Width(20).MaxHeight(1),
		streak:  r.NewStyle().Foreground(lipgloss.Color("212")),
		checked: r.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

func monthTitle(m streak.Month) string {
	return fmt.Sprintf("%s %d", m.First().Month, m.Year)
}

// RenderMonth draws m as a seven-column grid. Days where every habit was
// completed get markAll, days with some completions markSome.
func (t *Theme) RenderMonth(m streak.Month, counts map[int]int, habits int, today streak.Date) string {
	var b strings.Builder
	b.WriteString(t.title.Render(monthTitle(m)))
	b.WriteByte('\n')

	header := make([]string, len(weekdayHeader))
	for i, d := range weekdayHeader {
		header[i] = d + " "
	}
	b.WriteString(t.dim.Render(strings.TrimRight(strings.Join(header, " "), " ")))
	b.WriteByte('\n')

	cells := m.Grid()
	row := make([]string, 0, 7)
	for i, c := range cells {
		row = append(row, t.cell(m, c, counts, habits, today))
		if len(row) == 7 || i == len(cells)-1 {
			b.WriteString(strings.TrimRight(strings.Join(row, " "), " "))
			b.WriteByte('\n')
			row = row[:0]
		}
	}
	return b.String()
}

func (t *Theme) cell(m streak.Month, c streak.Cell, counts map[int]int, habits int, today streak.Date) string {
	if c.Blank() {
		return "   "
	}
	day := int(c)
	n := counts[day]

	style, mark := t.dim, markNone
	switch {
	case habits > 0 && n >= habits:
		style, mark = t.all, markAll
	case n > 0:
		style, mark = t.some, markSome
	}
	if m.Day(day) == today {
		style = style.Inherit(t.today)
	}
	return style.Render(fmt.Sprintf("%2d", day)) + mark
}

// RenderDay lists the habits completed on date, longest streak first.
func (t *Theme) RenderDay(date streak.Date, entries []streak.DayEntry) string {
	var b strings.Builder
	b.WriteString(t.title.Render(fmt.Sprintf("%s, %s %d %d", date.Weekday(), date.Month, date.Day, date.Year)))
	b.WriteByte('\n')
	if len(entries) == 0 {
		b.WriteString(t.dim.Render("No habits completed."))
		b.WriteByte('\n')
		return b.String()
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s %s\n", t.name.Render(e.Name), t.streak.Render(dayCount(e.Streak)))
	}
	return b.String()
}

// RenderToday lists the active habits with a check for those done today.
func (t *Theme) RenderToday(date streak.Date, habits []models.HabitToday) string {
	var b strings.Builder
	b.WriteString(t.title.Render("Today " + date.String()))
	b.WriteByte('\n')
	if len(habits) == 0 {
		b.WriteString(t.dim.Render("No active habits."))
		b.WriteByte('\n')
		return b.String()
	}
	for _, h := range habits {
		box := "[ ]"
		if h.CompletedToday {
			box = t.checked.Render("[x]")
		}
		fmt.Fprintf(&b, "  %s %3d  %s %s\n", box, h.ID, t.name.Render(h.Name),
			t.dim.Render(fmt.Sprintf("streak %d, best %d", h.CurrentStreak, h.LongestStreak)))
	}
	return b.String()
}

// RenderHabitTotals prints how many days of the month each habit was done.
func (t *Theme) RenderHabitTotals(m streak.Month, habits []streak.HabitDates) string {
	var b strings.Builder
	for _, h := range habits {
		days := 0
		for d := range h.Completed {
			if m.Contains(d) {
				days++
			}
		}
		fmt.Fprintf(&b, "  %s %s\n", t.name.Render(h.Name), t.dim.Render(dayCount(days)))
	}
	return b.String()
}

func dayCount(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
