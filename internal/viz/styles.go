package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/vlab/internal/lab"
)

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Canvas lipgloss.Style
	Panel  lipgloss.Style
	Header lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Active lipgloss.Style
	Muted  lipgloss.Style
	Help   lipgloss.Style
	Error  lipgloss.Style
	Graph  lipgloss.Style

	Setup     lipgloss.Style
	Running   lipgloss.Style
	Completed lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Canvas: lipgloss.NewStyle().Padding(1, 2).Foreground(t.Secondary),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(46),
		Header:    lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		Label:     lipgloss.NewStyle().Foreground(t.Muted).Width(14),
		Value:     lipgloss.NewStyle().Foreground(t.Text),
		Active:    lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Muted:     lipgloss.NewStyle().Foreground(t.Muted),
		Help:      lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		Error:     lipgloss.NewStyle().Foreground(t.Error),
		Graph:     lipgloss.NewStyle().Foreground(t.Secondary).Padding(1, 0),
		Setup:     lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		Running:   lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		Completed: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
	}
}

// StatusBadge renders the status in upper case with its colour.
func (s Styles) StatusBadge(st lab.Status) string {
	text := strings.ToUpper(st.String())
	switch st {
	case lab.StatusRunning:
		return s.Running.Render("● " + text)
	case lab.StatusCompleted:
		return s.Completed.Render("■ " + text)
	default:
		return s.Setup.Render("○ " + text)
	}
}

// ProgressBar renders a bar filled to fraction in [0, 1].
func ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Swatch renders a block in the given colour.
func Swatch(c lipgloss.Color, width int) string {
	return lipgloss.NewStyle().Foreground(c).Render(strings.Repeat("█", width))
}

// Sparkline renders the last width values as block characters.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / rng * float64(len(chars)-1))
		b.WriteRune(chars[max(0, min(idx, len(chars)-1))])
	}
	return b.String()
}

// Separator draws a decorated horizontal rule.
func Separator(width int) string {
	mid := width / 2
	return strings.Repeat("─", max(mid-3, 0)) + " ◆ " + strings.Repeat("─", max(width-mid-3, 0))
}
