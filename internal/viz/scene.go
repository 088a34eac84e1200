package viz

import (
	"math"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/vlab/internal/lab"
)

// DrawScene renders the apparatus for snap onto c. It only reads the snapshot.
func DrawScene(c *Canvas, snap lab.Snapshot) {
	c.Clear()
	switch {
	case snap.Burette != nil && snap.Flask != nil:
		drawTitration(c, snap.Burette, snap.Flask, snap.Elapsed)
	case snap.Oscillator != nil && snap.Kind == lab.KindPendulum:
		drawPendulum(c, snap.Oscillator)
	case snap.Oscillator != nil:
		drawSpring(c, snap.Oscillator)
	}
}

func drawTitration(c *Canvas, b *lab.BuretteState, f *lab.FlaskState, elapsed float64) {
	w, h := c.Dots()
	cx := w / 2

	// burette tube
	top, bottom := 2, h*11/20
	left, right := cx-4, cx+4
	c.DrawRect(left, top, right, bottom)

	if b.InitialVolume > 0 {
		level := b.CurrentVolume / b.InitialVolume
		fillTop := bottom - int(level*float64(bottom-top-2))
		if level > 0 {
			c.FillRect(left+2, fillTop, right-2, bottom-1)
		}
	}

	// stopcock and tip
	c.DrawLine(cx-7, bottom+2, cx+7, bottom+2)
	c.DrawLine(cx, bottom, cx, bottom+5)

	flaskNeck := h*7/10 - 2
	if b.IsFlowing {
		// falling drop, five frames per second
		phase := int(elapsed*5) % 3
		c.Set(cx, bottom+7+phase*2)
	}

	// conical flask
	neckTop, base := flaskNeck, h-2
	c.DrawLine(cx-5, neckTop, cx-5, neckTop+5)
	c.DrawLine(cx+5, neckTop, cx+5, neckTop+5)
	c.DrawLine(cx-5, neckTop+5, cx-22, base)
	c.DrawLine(cx+5, neckTop+5, cx+22, base)
	c.DrawLine(cx-22, base, cx+22, base)

	// liquid: denser hatching for deeper colour
	spacing := 4 - phaseDepth(f.ColorPhase)
	liquidTop := base - (base-neckTop)/3
	cone := max(base-neckTop-5, 1)
	for y := liquidTop; y < base; y++ {
		half := 5 + max(y-neckTop-5, 0)*17/cone
		for x := cx - half + 1; x < cx+half; x++ {
			if (x+y)%spacing == 0 {
				c.Set(x, y)
			}
		}
	}
}

// phaseDepth is 0 for clear and rises to 3 for the darkest tint.
func phaseDepth(p lab.ColorPhase) int {
	switch p {
	case lab.PhaseVeryLightPink, lab.PhaseVeryLightYellow:
		return 1
	case lab.PhaseLightPink, lab.PhaseFlashPink, lab.PhaseLightPurple:
		return 2
	case lab.PhaseDarkPink, lab.PhaseDarkPurple:
		return 3
	default:
		return 0
	}
}

func drawPendulum(c *Canvas, o *lab.OscillatorState) {
	w, h := c.Dots()
	cx, cy := w/2, 4

	c.DrawLine(cx-10, cy, cx+10, cy)
	maxLen := float64(h - 12)
	length := maxLen * math.Min(o.MassOrLength/2.0, 1)
	length = math.Max(length, 8)

	theta := o.Displacement
	bx := cx + int(length*math.Sin(theta))
	by := cy + int(length*math.Cos(theta))
	c.DrawLine(cx, cy, bx, by)
	c.FillCircle(bx, by, 2)
}

func drawSpring(c *Canvas, o *lab.OscillatorState) {
	w, h := c.Dots()
	cy := h / 2
	wallX := 6
	c.DrawLine(wallX, cy-12, wallX, cy+12)

	rest := w / 2
	scale := float64(w) / 4 / 0.30
	massX := rest + int(o.Displacement*scale)

	coils, prevX, prevY := 12, wallX, cy
	step := float64(massX-4-wallX) / float64(coils)
	for i := 1; i <= coils; i++ {
		x, y := wallX+int(float64(i)*step), cy+5
		if i%2 == 0 {
			y = cy - 5
		}
		c.DrawLine(prevX, prevY, x, y)
		prevX, prevY = x, y
	}
	c.DrawLine(prevX, prevY, massX-4, cy)
	c.FillRect(massX-4, cy-4, massX+4, cy+4)

	// rest position marker
	for y := cy + 8; y < cy+12; y++ {
		c.Set(rest, y)
	}
}

// PhaseColor is the display colour of a flask phase.
func PhaseColor(p lab.ColorPhase) lipgloss.Color {
	switch p {
	case lab.PhaseVeryLightPink:
		return lipgloss.Color("#ffe4ec")
	case lab.PhaseLightPink:
		return lipgloss.Color("#ffb6c1")
	case lab.PhaseDarkPink:
		return lipgloss.Color("#ff1493")
	case lab.PhaseVeryLightYellow:
		return lipgloss.Color("#fffacd")
	case lab.PhaseFlashPink:
		return lipgloss.Color("#ff69b4")
	case lab.PhaseLightPurple:
		return lipgloss.Color("#d8a0ff")
	case lab.PhaseDarkPurple:
		return lipgloss.Color("#800080")
	default:
		return lipgloss.Color("#e8f4f8")
	}
}
