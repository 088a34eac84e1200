package viz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/vlab/internal/experiment"
	"github.com/san-kum/vlab/internal/lab"
	"github.com/san-kum/vlab/internal/titration"
)

const (
	width         = 60
	height        = 20
	historyLength = 240
	logLength     = 6
	eventBuffer   = 256
)

type TickMsg time.Time

func frame() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Options configures the live lab.
type Options struct {
	Theme   string
	GIFPath string
}

// Model renders a controller's session and maps keys to its operations.
// It polls snapshots at the frame rate; events reach it through a buffered
// channel so a slow frame never blocks the simulation clock.
type Model struct {
	ctl    *experiment.Controller
	kinds  []lab.Kind
	events chan lab.Event
	unsub  func()

	theme  Theme
	styles Styles
	canvas *Canvas

	snap     lab.Snapshot
	params   map[string]float64
	specs    []lab.ParamSpec
	selected int

	history []float64
	log     []string
	report  *lab.Report
	note    string
	err     error

	gif      *GIFRecorder
	gifPath  string
	showHelp bool
}

func NewModel(ctl *experiment.Controller, opts Options) Model {
	var kinds []lab.Kind
	for _, info := range ctl.Registry().List() {
		kinds = append(kinds, info.ID)
	}

	events := make(chan lab.Event, eventBuffer)
	unsub := ctl.Subscribe(func(ev lab.Event) {
		if ev.Kind == lab.EventTick {
			return
		}
		select {
		case events <- ev:
		default:
		}
	})

	gifPath := opts.GIFPath
	if gifPath == "" {
		gifPath = "vlab.gif"
	}
	theme := GetTheme(opts.Theme)
	m := Model{
		ctl:     ctl,
		kinds:   kinds,
		events:  events,
		unsub:   unsub,
		theme:   theme,
		styles:  NewStyles(theme),
		canvas:  NewCanvas(width, height),
		gifPath: gifPath,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return frame()
}

// Close detaches the model from the controller.
func (m Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

// Canvas returns the most recently drawn frame.
func (m Model) Canvas() *Canvas { return m.canvas }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case TickMsg:
		m.drain()
		m.refresh()
		DrawScene(m.canvas, m.snap)
		if m.gif != nil {
			m.gif.Capture(m.canvas)
		}
		return m, frame()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch msg.String() {
	case "q", "ctrl+c":
		m.stopRecording()
		return m, tea.Quit
	case "s", " ":
		m.err = m.ctl.Start()
	case "x":
		m.err = m.ctl.Stop()
	case "r":
		m.err = m.ctl.Reset()
		m.history = m.history[:0]
		m.report = nil
	case "n":
		m.switchExperiment(1)
	case "p":
		m.switchExperiment(-1)
	case "tab":
		if len(m.specs) > 0 {
			m.selected = (m.selected + 1) % len(m.specs)
		}
	case "up", "k":
		m.adjustParam(1)
	case "down", "j":
		m.adjustParam(-1)
	case "t":
		m.theme = NextTheme(m.theme)
		m.styles = NewStyles(m.theme)
	case "g":
		if m.gif != nil {
			m.stopRecording()
		} else {
			m.gif = NewGIFRecorder()
			m.note = "recording"
		}
	case "?":
		m.showHelp = !m.showHelp
	}
	m.refresh()
	return m, nil
}

func (m *Model) stopRecording() {
	if m.gif == nil {
		return
	}
	if err := m.gif.Save(m.gifPath); err != nil {
		m.err = err
	} else {
		m.note = fmt.Sprintf("saved %d frames to %s", m.gif.Len(), m.gifPath)
	}
	m.gif = nil
}

func (m *Model) switchExperiment(dir int) {
	if len(m.kinds) == 0 {
		return
	}
	idx := 0
	for i, k := range m.kinds {
		if k == m.snap.Kind {
			idx = i
		}
	}
	idx = (idx + dir + len(m.kinds)) % len(m.kinds)
	m.err = m.ctl.Select(m.kinds[idx])
	m.selected = 0
	m.history = m.history[:0]
	m.log = m.log[:0]
	m.report = nil
}

func (m *Model) adjustParam(dir float64) {
	if len(m.specs) == 0 {
		return
	}
	spec := m.specs[m.selected]
	v := m.params[spec.Name] + dir*spec.Step
	v = max(spec.Min, min(v, spec.Max))
	m.err = m.ctl.SetParam(spec.Name, v)
}

// drain consumes queued events without blocking.
func (m *Model) drain() {
	for {
		select {
		case ev := <-m.events:
			m.onEvent(ev)
		default:
			return
		}
	}
}

func (m *Model) onEvent(ev lab.Event) {
	s := ev.Snapshot
	switch ev.Kind {
	case lab.EventEndpointReached:
		added := s.Burette.VolumeAdded
		m.pushLog(fmt.Sprintf("%5.1fs  endpoint colour at %.1f mL", s.Elapsed, added))
	case lab.EventCycleCompleted:
		m.pushLog(fmt.Sprintf("%5.1fs  cycle %d, period %.3fs", s.Elapsed, s.Oscillator.CycleCount, s.Oscillator.PeriodEstimate))
	case lab.EventStatusChanged:
		if s.Status == lab.StatusCompleted {
			r, err := m.ctl.Report()
			if err == nil || errors.Is(err, lab.ErrDegenerateMeasurement) {
				m.report = &r
			}
		}
		if s.Status == lab.StatusRunning {
			m.history = m.history[:0]
			m.report = nil
		}
	}
}

func (m *Model) pushLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > logLength {
		m.log = m.log[len(m.log)-logLength:]
	}
}

// refresh pulls the current snapshot and parameters from the controller.
func (m *Model) refresh() {
	snap, err := m.ctl.Snapshot()
	if err != nil {
		return
	}
	m.snap = snap
	m.params, _ = m.ctl.Params()
	m.specs, _ = m.ctl.ParamSpecs()
	if m.selected >= len(m.specs) {
		m.selected = 0
	}

	if snap.Status == lab.StatusRunning {
		var v float64
		switch {
		case snap.Oscillator != nil:
			v = snap.Oscillator.Displacement
		case snap.Burette != nil:
			v = snap.Burette.VolumeAdded
		}
		m.history = append(m.history, v)
		if len(m.history) > historyLength {
			m.history = m.history[len(m.history)-historyLength:]
		}
	}
}

func (m Model) View() string {
	st := m.styles
	canvasView := st.Canvas.Render(m.canvas.String())

	var s strings.Builder
	title := string(m.snap.Kind)
	if info, err := m.ctl.Registry().Info(m.snap.Kind); err == nil {
		title = info.Name
	}
	s.WriteString(st.Header.Render(strings.ToUpper(title)) + "\n")
	s.WriteString(st.StatusBadge(m.snap.Status))
	if m.gif != nil {
		s.WriteString(st.Error.Render("  ● REC"))
	}
	s.WriteString("\n\n")

	row := func(label, value string) {
		s.WriteString(st.Label.Render(label) + st.Value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.1fs", m.snap.Elapsed))

	switch {
	case m.snap.Burette != nil:
		b, f := m.snap.Burette, m.snap.Flask
		row("Burette", fmt.Sprintf("%.1f mL %s", b.CurrentVolume, ProgressBar(b.CurrentVolume/b.InitialVolume, 12)))
		row("Added", fmt.Sprintf("%.1f mL", b.VolumeAdded))
		row("Titrant", b.SolutionLabel)
		row("Flask", f.SolutionLabel)
		if f.IndicatorLabel != "" {
			row("Indicator", f.IndicatorLabel)
		}
		row("Colour", Swatch(PhaseColor(f.ColorPhase), 3)+" "+f.ColorPhase.String())
		if f.EndpointReached {
			row("Endpoint", "reached")
		}
	case m.snap.Oscillator != nil:
		o := m.snap.Oscillator
		row("Cycles", fmt.Sprintf("%d", o.CycleCount))
		row("Period (T)", fmt.Sprintf("%.3fs", o.TheoreticalPeriod))
		row("Measured", fmt.Sprintf("%.3fs", o.PeriodEstimate))
		row("Displacement", fmt.Sprintf("%+.3f", o.Displacement))
		row("Trace", Sparkline(m.history, 24))
	}

	if len(m.history) > 1 {
		caption := "Volume added (mL)"
		if m.snap.Oscillator != nil {
			caption = "Displacement"
		}
		chart := asciigraph.Plot(m.history, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption(caption))
		s.WriteString(st.Graph.Render(chart) + "\n")
	}

	if m.report != nil {
		s.WriteString("\nRESULT\n")
		if m.report.NoData {
			row("Accuracy", m.report.Accuracy)
		} else {
			row("Measured", fmt.Sprintf("%.3f %s", m.report.Measured, m.report.Unit))
			row("Expected", fmt.Sprintf("%.3f %s", m.report.Theoretical, m.report.Unit))
			row("Error", fmt.Sprintf("%.2f%%", m.report.PercentError))
			row("Accuracy", m.report.Accuracy)
			if fe, ok := m.report.Extras[titration.ExtraFerrous]; ok {
				row("[Fe²⁺]", fmt.Sprintf("%.4f M", fe))
			}
		}
	}

	s.WriteString("\nPARAMETERS\n")
	for i, spec := range m.specs {
		line := fmt.Sprintf("%-16s %6.2f %s", spec.Name, m.params[spec.Name], spec.Unit)
		if i == m.selected {
			s.WriteString(st.Active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.Muted.Render(line) + "\n")
		}
	}

	if len(m.log) > 0 {
		s.WriteString("\n" + st.Muted.Render(strings.Join(m.log, "\n")) + "\n")
	}
	if m.err != nil {
		s.WriteString("\n" + st.Error.Render(m.err.Error()) + "\n")
	} else if m.note != "" {
		s.WriteString("\n" + st.Muted.Render(m.note) + "\n")
	}
	s.WriteString("\n" + st.Muted.Render(experiment.Hint(m.snap.Kind, m.snap.Status)) + "\n")
	s.WriteString(st.Help.Render(Separator(30) + "\nS:Start X:Stop R:Reset Q:Quit\nN/P:Experiment Tab:Param ↑↓:Tune ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.Panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  S/Space  - Start the experiment     ║
║  X        - Stop at current reading  ║
║  R        - Reset to setup           ║
║  N / P    - Next / previous lab      ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter       ║
║  Down/J   - Decrease parameter       ║
║  T        - Cycle themes             ║
║  G        - Toggle GIF recording     ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// Run starts the live lab and blocks until the user quits.
func Run(ctl *experiment.Controller, opts Options) error {
	m := NewModel(ctl, opts)
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
