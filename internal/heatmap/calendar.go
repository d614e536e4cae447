package heatmap

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"
)

// CalendarGlobal is the constructor name the calendar script defines.
const CalendarGlobal = "CalHeatmap"

// ErrDestroyed is returned when painting a destroyed chart.
var ErrDestroyed = eris.New("heatmap: chart destroyed")

var weekdays = map[string][7]string{
	"ja": {"日", "月", "火", "水", "木", "金", "土"},
	"en": {"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"},
}

// Calendar draws a month-by-day heat map to the page writer.
type Calendar struct {
	page *Page

	mu        sync.Mutex
	destroyed bool
}

// NewCalendar is the Constructor for Calendar.
func NewCalendar(p *Page) Chart {
	return &Calendar{page: p}
}

// Paint implements Chart.
func (c *Calendar) Paint(ctx context.Context, cfg PaintConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "heatmap: paint")
	}
	if cfg.Domain.Type != "month" || cfg.SubDomain.Type != "day" {
		return eris.Errorf("heatmap: unsupported domain %s/%s", cfg.Domain.Type, cfg.SubDomain.Type)
	}

	out := c.page.Out()
	if out == nil {
		return eris.New("heatmap: page has no output")
	}

	style := c.page.Style()
	values := make(map[string]int, len(cfg.Data.Source))
	for _, d := range cfg.Data.Source {
		values[d.Date] = d.Value
	}

	months := make([]string, 0, cfg.Range)
	start := time.Date(cfg.Date.Start.Year(), cfg.Date.Start.Month(), 1, 0, 0, 0, 0, cfg.Date.Start.Location())
	for i := 0; i < max(cfg.Range, 1); i++ {
		months = append(months, renderMonth(start.AddDate(0, i, 0), cfg, style, values))
	}

	gap := strings.Repeat(" ", max(cfg.SubDomain.Gutter/2, 1))
	if _, err := fmt.Fprintln(out, lipgloss.JoinHorizontal(lipgloss.Top, withGap(months, gap)...)); err != nil {
		return eris.Wrap(err, "heatmap: write")
	}
	return nil
}

// Destroy implements Chart.
func (c *Calendar) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
}

func renderMonth(month time.Time, cfg PaintConfig, style *Style, values map[string]int) string {
	text := lipgloss.NewStyle().Foreground(lipgloss.Color(style.Text))
	empty := lipgloss.NewStyle().Foreground(lipgloss.Color(style.Empty))

	names, ok := weekdays[cfg.Date.Locale]
	if !ok {
		names = weekdays["en"]
	}

	var b strings.Builder
	b.WriteString(text.Render(monthTitle(month, cfg.Date.Locale)))
	b.WriteByte('\n')
	b.WriteString(text.Render(strings.Join(names[:], " ")))
	b.WriteByte('\n')

	// Leading blanks up to the first weekday of the month.
	col := int(month.Weekday())
	b.WriteString(strings.Repeat("   ", col))

	for d := month; d.Month() == month.Month(); d = d.AddDate(0, 0, 1) {
		if v, ok := values[d.Format(time.DateOnly)]; ok {
			cell := lipgloss.NewStyle().Foreground(lipgloss.Color(colorFor(v, cfg.Scale.Color, style.Colors)))
			b.WriteString(cell.Render("■"))
		} else {
			b.WriteString(empty.Render("·"))
		}
		col++
		if col == 7 {
			b.WriteByte('\n')
			col = 0
		} else {
			b.WriteString("  ")
		}
	}
	return strings.TrimRight(b.String(), " \n")
}

func monthTitle(month time.Time, locale string) string {
	if locale == "ja" {
		return fmt.Sprintf("%d年%d月", month.Year(), int(month.Month()))
	}
	return month.Format("January 2006")
}

// colorFor maps v onto the palette with a linear scale over the domain.
func colorFor(v int, scale ColorScale, colors []string) string {
	if len(colors) == 0 {
		return ""
	}
	lo, hi := scale.Domain[0], scale.Domain[1]
	if hi <= lo {
		return colors[len(colors)-1]
	}
	t := float64(v-lo) / float64(hi-lo)
	t = math.Max(0, math.Min(1, t))
	return colors[int(math.Round(t*float64(len(colors)-1)))]
}

func withGap(parts []string, gap string) []string {
	out := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			out = append(out, gap)
		}
		out = append(out, p)
	}
	return out
}
