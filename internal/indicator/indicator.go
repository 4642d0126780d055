// Package indicator renders the device's status LED.
//
// The control loop only ever sets one of three colours: green while
// connected, red (blinking) while it needs attention, and off.
package indicator

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/muurk/sensornode/internal/logging"
	"github.com/muurk/sensornode/internal/ui"
)

// DefaultBrightness matches the reference hardware's LED setting.
const DefaultBrightness = 15

// Color is an RGB LED colour.
type Color struct {
	R, G, B uint8
}

var (
	Green = Color{G: 255}
	Red   = Color{R: 255}
	Off   = Color{}
)

// Name returns "green", "red", "off", or the hex value.
func (c Color) Name() string {
	switch c {
	case Green:
		return "green"
	case Red:
		return "red"
	case Off:
		return "off"
	default:
		return c.Hex()
	}
}

// Hex returns the colour as #RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Scale returns the colour dimmed to brightness/255.
func (c Color) Scale(brightness uint8) Color {
	scale := func(v uint8) uint8 { return uint8(uint16(v) * uint16(brightness) / 255) }
	return Color{R: scale(c.R), G: scale(c.G), B: scale(c.B)}
}

// Indicator displays a single colour.
type Indicator interface {
	SetColor(c Color)
}

// Nop discards colour changes.
type Nop struct{}

func (Nop) SetColor(Color) {}

// Log reports colour changes at debug level.
type Log struct {
	mu   sync.Mutex
	last *Color
}

func (l *Log) SetColor(c Color) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.last != nil && *l.last == c {
		return
	}
	l.last = &c
	logging.Debug("Indicator", zap.String("color", c.Name()))
}

// Terminal draws the LED as a coloured dot on a writer, one line per change.
// Colour is only emitted when the writer is a terminal.
type Terminal struct {
	mu         sync.Mutex
	out        io.Writer
	brightness uint8
	color      bool
	now        func() time.Time
	last       *Color
}

// NewTerminal returns a Terminal indicator writing to out.
func NewTerminal(out io.Writer, brightness uint8) *Terminal {
	f, isFile := out.(*os.File)
	return &Terminal{
		out:        out,
		brightness: brightness,
		color:      isFile && ui.IsTerminal(f),
		now:        time.Now,
	}
}

func (t *Terminal) SetColor(c Color) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last != nil && *t.last == c {
		return
	}
	t.last = &c

	fmt.Fprintf(t.out, "%s %s %s\n", t.now().Format("15:04:05"), t.render(c), c.Name())
}

func (t *Terminal) render(c Color) string {
	if !t.color {
		if c == Off {
			return "○"
		}
		return ui.DotMarker
	}
	if c == Off {
		return lipgloss.NewStyle().Foreground(ui.MutedColor).Render("○")
	}

	// Floor so the LED's default 15/255 stays visible on screen.
	b := t.brightness
	if b < 96 {
		b = 96
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Scale(b).Hex())).Render(ui.DotMarker)
}

// Recorder keeps every colour it is given, for tests and diagnostics.
type Recorder struct {
	mu     sync.Mutex
	colors []Color
}

func (r *Recorder) SetColor(c Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.colors = append(r.colors, c)
}

// Colors returns the recorded colours in order.
func (r *Recorder) Colors() []Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Color(nil), r.colors...)
}

// Last returns the most recent colour, or Off when nothing was set.
func (r *Recorder) Last() Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.colors) == 0 {
		return Off
	}
	return r.colors[len(r.colors)-1]
}

// Reset drops recorded colours.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.colors = nil
}
