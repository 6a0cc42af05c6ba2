package utils

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/moodclient/tn3270/tn3270"
)

// palette is the classic 3279 set of colors
var palette = map[tn3270.Color]colorful.Color{
	tn3270.ColorBlue:      mustHex("#5c8dff"),
	tn3270.ColorRed:       mustHex("#ff3a3a"),
	tn3270.ColorPink:      mustHex("#ff5cd6"),
	tn3270.ColorGreen:     mustHex("#3ee63e"),
	tn3270.ColorTurquoise: mustHex("#3ee6e6"),
	tn3270.ColorYellow:    mustHex("#ffff3a"),
	tn3270.ColorWhite:     mustHex("#f0f0f0"),
}

var white = mustHex("#ffffff")

func mustHex(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		panic(err)
	}

	return c
}

// baseColor follows the 3278 convention for fields without an explicit color: input
// fields are green, or red when intensified, and protected fields are blue, or white
// when intensified
func baseColor(attr tn3270.FieldAttribute) tn3270.Color {
	if attr.Color != tn3270.ColorDefault {
		return attr.Color
	}

	switch {
	case attr.Protected && attr.Intensity == tn3270.IntensityHigh:
		return tn3270.ColorWhite
	case attr.Protected:
		return tn3270.ColorBlue
	case attr.Intensity == tn3270.IntensityHigh:
		return tn3270.ColorRed
	default:
		return tn3270.ColorGreen
	}
}

type RendererConfig struct {
	// Profile gates color output. Ascii and NoTTY render plain text.
	Profile colorprofile.Profile
	// Width truncates rendered rows, so a small terminal does not wrap them. Zero
	// leaves rows at the screen width.
	Width int
	// ShowCursor renders the cursor position in reverse video
	ShowCursor bool
}

// ScreenRenderer draws a tn3270 screen for an ANSI terminal
type ScreenRenderer struct {
	config RendererConfig
	styles map[styleKey]lipgloss.Style
}

type styleKey struct {
	color        tn3270.Color
	intensified  bool
	highlighting tn3270.Highlighting
	cursor       bool
}

func NewScreenRenderer(config RendererConfig) *ScreenRenderer {
	return &ScreenRenderer{
		config: config,
		styles: make(map[styleKey]lipgloss.Style),
	}
}

func (r *ScreenRenderer) colorEnabled() bool {
	return r.config.Profile != colorprofile.Ascii && r.config.Profile != colorprofile.NoTTY
}

func (r *ScreenRenderer) style(key styleKey) lipgloss.Style {
	style, ok := r.styles[key]
	if ok {
		return style
	}

	foreground := palette[key.color]
	if key.intensified {
		foreground = foreground.BlendLab(white, 0.35).Clamped()
	}

	style = lipgloss.NewStyle().Foreground(r.config.Profile.Convert(foreground))

	switch key.highlighting {
	case tn3270.HighlightBlink:
		style = style.Blink(true)
	case tn3270.HighlightReverse:
		style = style.Reverse(true)
	case tn3270.HighlightUnderscore:
		style = style.Underline(true)
	}

	if key.cursor {
		style = style.Reverse(key.highlighting != tn3270.HighlightReverse)
	}

	r.styles[key] = style
	return style
}

func (r *ScreenRenderer) keyFor(cell tn3270.Cell, cursor bool) styleKey {
	return styleKey{
		color:        baseColor(cell.Attribute),
		intensified:  cell.Attribute.Intensity == tn3270.IntensityHigh,
		highlighting: cell.Attribute.Highlighting,
		cursor:       cursor,
	}
}

// Render returns every row of the screen, separated by CR LF so it can be written to a
// terminal in raw mode
func (r *ScreenRenderer) Render(screen *tn3270.Screen) string {
	cells := screen.Cells()
	cursor := -1
	if r.config.ShowCursor {
		cursor = screen.Cursor()
	}

	cols := screen.Cols()
	rows := make([]string, 0, screen.Rows())
	for row := 0; row < screen.Rows(); row++ {
		rows = append(rows, r.renderRow(cells[row*cols:(row+1)*cols], cursor-row*cols))
	}

	return strings.Join(rows, "\r\n")
}

// renderRow groups runs of identically styled cells into a single styled string. cursor
// is the cursor's column, or outside the row when it is elsewhere.
func (r *ScreenRenderer) renderRow(cells []tn3270.Cell, cursor int) string {
	var out strings.Builder

	if !r.colorEnabled() {
		for _, cell := range cells {
			out.WriteRune(cell.Rune)
		}

		return r.truncate(out.String())
	}

	var run strings.Builder
	var runKey styleKey
	for col, cell := range cells {
		key := r.keyFor(cell, col == cursor)
		if run.Len() > 0 && key != runKey {
			out.WriteString(r.style(runKey).Render(run.String()))
			run.Reset()
		}

		runKey = key
		run.WriteRune(cell.Rune)
	}

	if run.Len() > 0 {
		out.WriteString(r.style(runKey).Render(run.String()))
	}

	return r.truncate(out.String())
}

func (r *ScreenRenderer) truncate(row string) string {
	if r.config.Width <= 0 || ansi.StringWidth(row) <= r.config.Width {
		return row
	}

	return ansi.Truncate(row, r.config.Width, "")
}

// StatusLine summarizes the operator information area: keyboard state, insert mode and
// the cursor location
func (r *ScreenRenderer) StatusLine(screen *tn3270.Screen) string {
	var parts []string
	if screen.KeyboardLocked() {
		parts = append(parts, "X SYSTEM")
	} else {
		parts = append(parts, "READY")
	}

	if screen.InsertMode() {
		parts = append(parts, "INSERT")
	}

	row, col := screen.CursorRowCol()
	parts = append(parts, fmt.Sprintf("%03d/%03d", row+1, col+1))

	line := strings.Join(parts, "  ")
	if r.colorEnabled() {
		line = lipgloss.NewStyle().Foreground(r.config.Profile.Convert(palette[tn3270.ColorTurquoise])).Render(line)
	}

	return r.truncate(line)
}
