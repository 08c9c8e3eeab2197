package dashboard

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/samber/lo"
)

// Drawer is a interface for drawing components of the view to a screen
type Drawer interface {

	// Draw draws to the given screen
	Draw(screen tcell.Screen)

	// Clear deletes all if any associated drawings from the screen
	Clear(screen tcell.Screen)
}

// Coordinate is a x-y coordinate. The origin (i.e. (0, 0)) of the coordinate system is located at the top left of the
// screen
type Coordinate struct {
	X int
	Y int
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// Widget is a basic component which is able to draw a 2D array of text to a screen. If possible, other implementations
// of Drawer should defer to Widget when drawing
type Widget struct {
	Coordinate
	drawing []string
	style   tcell.Style
}

// NewWidget returns a Widget object which is able to draw itself with a style at the x-y offset
func NewWidget(x, y int, drawing []string, style tcell.Style) *Widget {
	return &Widget{
		Coordinate: Coordinate{x, y},
		drawing:    drawing,
		style:      style,
	}
}

func (w *Widget) Draw(screen tcell.Screen) {
	for y, row := range w.drawing {
		for x, char := range []rune(row) {
			screen.SetContent(w.X+x, w.Y+y, char, nil, w.style)
		}
	}
}

func (w *Widget) Clear(screen tcell.Screen) {
	for y, row := range w.drawing {
		for x := range []rune(row) {
			screen.SetContent(w.X+x, w.Y+y, ' ', nil, w.style)
		}
	}
}

// SetDrawing replaces the rows drawn by the widget
func (w *Widget) SetDrawing(drawing []string) {
	w.drawing = drawing
}

// height is the number of rows drawn by the widget
func (w *Widget) height() int {
	return len(w.drawing)
}

// TextWidget is able draw a line of text with a style to at an x-y offset. TextWidget is only able to draw text
// in a left-to-right direction
type TextWidget struct {
	base *Widget
}

// NewTextWidget returns a new TextWidget object
func NewTextWidget(x, y int, text string, style tcell.Style) *TextWidget {
	return &TextWidget{
		base: NewWidget(x, y, []string{text}, style),
	}
}

func (t *TextWidget) Draw(screen tcell.Screen) {
	if t.base == nil {
		return
	}

	t.base.Draw(screen)
}

func (t *TextWidget) Clear(screen tcell.Screen) {
	if t.base == nil {
		return
	}

	t.base.Clear(screen)
}

func (t *TextWidget) SetText(text string) {
	t.base.drawing = []string{text}
}

// text returns the line drawn by the widget
func (t *TextWidget) text() string {
	if t.base == nil || len(t.base.drawing) == 0 {
		return ""
	}

	return t.base.drawing[0]
}

func (t *TextWidget) SetStyle(style tcell.Style) {
	t.base.style = style
}

type logLine struct {
	text  string
	style tcell.Style
}

// LogWidget draws the most recent lines appended to it, oldest at the top. Each line keeps its own style
type LogWidget struct {
	Coordinate
	capacity int
	lines    []logLine
}

// NewLogWidget returns a LogWidget keeping at most capacity lines
func NewLogWidget(x, y, capacity int) *LogWidget {
	return &LogWidget{
		Coordinate: Coordinate{x, y},
		capacity:   capacity,
	}
}

// Append adds a line, dropping the oldest one when the widget is full
func (l *LogWidget) Append(text string, style tcell.Style) {
	l.lines = append(l.lines, logLine{text: text, style: style})
	if len(l.lines) > l.capacity {
		l.lines = l.lines[len(l.lines)-l.capacity:]
	}
}

// Lines returns the text of every kept line
func (l *LogWidget) Lines() []string {
	return lo.Map(l.lines, func(line logLine, _ int) string {
		return line.text
	})
}

func (l *LogWidget) Draw(screen tcell.Screen) {
	for y, line := range l.lines {
		NewWidget(l.X, l.Y+y, []string{line.text}, line.style).Draw(screen)
	}
}

func (l *LogWidget) Clear(screen tcell.Screen) {
	NewWidget(l.X, l.Y, l.Lines(), defaultTextStyle).Clear(screen)
}
