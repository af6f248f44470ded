package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Headers are the grid column titles.
var Headers = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Cursor is the month being viewed.
type Cursor struct {
	Year  int
	Month time.Month
}

// CursorFor returns the month containing t.
func CursorFor(t time.Time) Cursor {
	return Cursor{Year: t.Year(), Month: t.Month()}
}

// ParseCursor reads "2024-06".
func ParseCursor(s string) (Cursor, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return CursorFor(t), nil
}

// Shift moves the cursor by n months.
func (c Cursor) Shift(n int) Cursor {
	return CursorFor(c.first().AddDate(0, n, 0))
}

func (c Cursor) Prev() Cursor { return c.Shift(-1) }
func (c Cursor) Next() Cursor { return c.Shift(1) }

// Title is "June 2024".
func (c Cursor) Title() string {
	return fmt.Sprintf("%s %d", c.Month, c.Year)
}

func (c Cursor) String() string {
	return fmt.Sprintf("%04d-%02d", c.Year, int(c.Month))
}

func (c Cursor) first() time.Time {
	return time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days in the month.
func (c Cursor) Days() int {
	return c.first().AddDate(0, 1, -1).Day()
}

// Cell is one day of the grid.
type Cell struct {
	Day    int
	Date   string
	Status DayStatus
	Today  bool
}

// Grid is a Monday-first month layout.
type Grid struct {
	Title   string
	Headers [7]string
	Leading int
	Cells   []Cell
}

// BuildMonth resolves every day of cursor's month. today is a YYYY-MM-DD
// date in the viewer's zone.
func BuildMonth(cursor Cursor, weekly []WeeklyRule, exceptions []Exception, today string) Grid {
	first := cursor.first()
	n := cursor.Days()
	g := Grid{
		Title:   cursor.Title(),
		Headers: Headers,
		Leading: Weekday(first),
		Cells:   make([]Cell, 0, n),
	}
	for d := 1; d <= n; d++ {
		date := first.AddDate(0, 0, d-1)
		key := date.Format("2006-01-02")
		g.Cells = append(g.Cells, Cell{
			Day:    d,
			Date:   key,
			Status: Resolve(date, weekly, exceptions),
			Today:  key == today,
		})
	}
	return g
}

const cellWidth = 13

// Render draws the grid as text, one week per row pair: day numbers with
// today marked by '*', then the status labels.
func (g Grid) Render() string {
	var b strings.Builder
	b.WriteString(g.Title)
	b.WriteString("\n")
	for _, h := range g.Headers {
		b.WriteString(pad(h))
	}
	b.WriteString("\n")

	slots := make([]*Cell, g.Leading, g.Leading+len(g.Cells))
	for i := range g.Cells {
		slots = append(slots, &g.Cells[i])
	}
	for len(slots)%7 != 0 {
		slots = append(slots, nil)
	}
	for w := 0; w < len(slots); w += 7 {
		week := slots[w : w+7]
		for _, c := range week {
			if c == nil {
				b.WriteString(pad(""))
				continue
			}
			num := strconv.Itoa(c.Day)
			if c.Today {
				num += "*"
			}
			b.WriteString(pad(num))
		}
		b.WriteString("\n")
		for _, c := range week {
			if c == nil {
				b.WriteString(pad(""))
				continue
			}
			b.WriteString(pad(c.Status.Label))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func pad(s string) string {
	if len(s) >= cellWidth {
		return s[:cellWidth-1] + " "
	}
	return s + strings.Repeat(" ", cellWidth-len(s))
}
