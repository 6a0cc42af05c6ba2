package tn3270

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrScreenTooLarge = errors.New("screen does not fit the 12-bit address space")
var ErrKeyboardLocked = errors.New("keyboard is locked")

const (
	DefaultRows = 24
	DefaultCols = 80
)

// nullCell is a position that has never been written or has been erased. It displays
// as a blank but is never transmitted to the host.
const nullCell rune = 0

// Screen is the 3270 presentation space: a grid of characters, the field attribute
// positions that split it into fields, and the cursor and keyboard state. Every method
// takes the screen's lock, so the reader goroutine and local edits can share one Screen.
//
// An attribute slot is non-nil at every field start. On an unformatted screen, slots are
// also created by SA orders and by local typing, where they carry the MDT used by the
// builder to find modified positions.
type Screen struct {
	lock sync.Mutex

	rows, cols int
	cells      []rune
	attrs      []*FieldAttribute
	isField    []bool
	fieldCount int

	cursor         int
	cursorVisible  bool
	keyboardLocked bool
	insertMode     bool
	alarm          bool
	lastAID        AID
}

// NewScreen creates a blank screen. rows*cols must be positive and fit in the 12-bit
// buffer address space.
func NewScreen(rows, cols int) (*Screen, error) {
	if rows <= 0 || cols <= 0 || rows*cols > MaxPositions {
		return nil, fmt.Errorf("%dx%d: %w", cols, rows, ErrScreenTooLarge)
	}

	total := rows * cols
	s := &Screen{
		rows:    rows,
		cols:    cols,
		cells:   make([]rune, total),
		attrs:   make([]*FieldAttribute, total),
		isField: make([]bool, total),
		lastAID: AIDNone,
	}

	return s, nil
}

func (s *Screen) Rows() int { return s.rows }
func (s *Screen) Cols() int { return s.cols }

// Size is the number of positions on the screen
func (s *Screen) Size() int { return len(s.cells) }

// Clear blanks every position, removes all fields and homes the cursor
func (s *Screen) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.clearLocked()
}

func (s *Screen) clearLocked() {
	for i := range s.cells {
		s.cells[i] = nullCell
		s.attrs[i] = nil
		s.isField[i] = false
	}

	s.fieldCount = 0
	s.cursor = 0
	s.cursorVisible = false
}

func (s *Screen) wrap(pos int) int {
	total := len(s.cells)
	pos %= total
	if pos < 0 {
		pos += total
	}

	return pos
}

// Cursor returns the buffer address of the cursor
func (s *Screen) Cursor() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.cursor
}

// CursorRowCol returns the cursor as a zero-based row and column
func (s *Screen) CursorRowCol() (row, col int) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.cursor / s.cols, s.cursor % s.cols
}

// SetCursor moves the cursor, wrapping out of range addresses onto the screen
func (s *Screen) SetCursor(pos int) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.cursor = s.wrap(pos)
}

// CursorVisible is true once the host has placed the cursor with an IC order
func (s *Screen) CursorVisible() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.cursorVisible
}

func (s *Screen) KeyboardLocked() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.keyboardLocked
}

// SetKeyboardLocked is used by the session to lock input while waiting on the host
func (s *Screen) SetKeyboardLocked(locked bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.keyboardLocked = locked
}

// acquireKeyboard locks the keyboard for an attention key. It fails when the keyboard
// is already locked, unless aid is one of the keys allowed while locked.
func (s *Screen) acquireKeyboard(aid AID) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.keyboardLocked && !aid.AllowedWhileLocked() {
		return ErrKeyboardLocked
	}

	s.keyboardLocked = true
	return nil
}

func (s *Screen) InsertMode() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.insertMode
}

// LastAID is the attention key most recently sent to the host
func (s *Screen) LastAID() AID {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.lastAID
}

// Alarm reports whether the host has sounded the alarm since the last call to
// AcknowledgeAlarm
func (s *Screen) Alarm() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.alarm
}

func (s *Screen) AcknowledgeAlarm() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.alarm = false
}

// Formatted reports whether the host has defined any fields
func (s *Screen) Formatted() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.fieldCount > 0
}

// fieldStartFor returns the attribute position of the field owning pos, or -1 on an
// unformatted screen. An attribute position owns itself.
func (s *Screen) fieldStartFor(pos int) int {
	if s.fieldCount == 0 {
		return -1
	}

	total := len(s.cells)
	for i := 0; i < total; i++ {
		candidate := s.wrap(pos - i)
		if s.isField[candidate] {
			return candidate
		}
	}

	return -1
}

// nextFieldStart returns the first attribute position after pos, scanning cyclically.
// With a single field this is the field itself.
func (s *Screen) nextFieldStart(pos int) int {
	if s.fieldCount == 0 {
		return -1
	}

	total := len(s.cells)
	for i := 1; i <= total; i++ {
		candidate := s.wrap(pos + i)
		if s.isField[candidate] {
			return candidate
		}
	}

	return -1
}

// attributeFor returns the attribute governing pos: the owning field's attribute on a
// formatted screen, otherwise the position's own slot, which may be nil
func (s *Screen) attributeFor(pos int) *FieldAttribute {
	start := s.fieldStartFor(pos)
	if start < 0 {
		return s.attrs[pos]
	}

	return s.attrs[start]
}

func (s *Screen) setField(pos int, attr FieldAttribute) {
	if !s.isField[pos] {
		s.fieldCount++
	}

	s.isField[pos] = true
	s.attrs[pos] = &attr
	s.cells[pos] = nullCell
}

// removeField turns an attribute position back into an ordinary cell
func (s *Screen) removeField(pos int) {
	if !s.isField[pos] {
		return
	}

	s.isField[pos] = false
	s.attrs[pos] = nil
	s.fieldCount--
}

// putCell stores a character written by the host. Writing over an attribute position
// removes that field.
func (s *Screen) putCell(pos int, r rune) {
	s.removeField(pos)
	s.cells[pos] = r
}

func (s *Screen) resetModifiedLocked() {
	for _, attr := range s.attrs {
		if attr != nil {
			attr.Modified = false
		}
	}
}

// ResetModified clears the MDT of every field
func (s *Screen) ResetModified() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.resetModifiedLocked()
}

// displayRune is the character shown at pos under attr, the attribute governing it.
// Attribute positions and nulls are blank and characters in non-display fields are masked.
func (s *Screen) displayRune(pos int, attr *FieldAttribute) rune {
	if s.isField[pos] {
		return ' '
	}

	r := s.cells[pos]
	if r == nullCell {
		return ' '
	}

	if attr != nil && !attr.Visible() && r != ' ' {
		return '*'
	}

	return r
}

// displayRunes returns length displayed characters starting at pos, wrapping past the
// end of the screen. The owning field is looked up once and then followed forward.
func (s *Screen) displayRunes(pos, length int) []rune {
	runes := make([]rune, length)
	if length == 0 {
		return runes
	}

	current := s.fieldStartFor(pos)
	for i := range runes {
		p := s.wrap(pos + i)
		if s.isField[p] {
			current = p
		}

		attr := s.attrs[p]
		if current >= 0 {
			attr = s.attrs[current]
		}

		runes[i] = s.displayRune(p, attr)
	}

	return runes
}

// Rune returns the character displayed at pos
func (s *Screen) Rune(pos int) rune {
	s.lock.Lock()
	defer s.lock.Unlock()

	pos = s.wrap(pos)
	return s.displayRune(pos, s.attributeFor(pos))
}

// Row returns the displayed text of one row
func (s *Screen) Row(row int) string {
	s.lock.Lock()
	defer s.lock.Unlock()

	if row < 0 || row >= s.rows {
		return ""
	}

	return string(s.displayRunes(row*s.cols, s.cols))
}

// Text returns the displayed text of the whole screen, one line per row
func (s *Screen) Text() string {
	s.lock.Lock()
	defer s.lock.Unlock()

	runes := s.displayRunes(0, len(s.cells))

	var sb strings.Builder
	sb.Grow(len(runes) + s.rows)
	for row := 0; row < s.rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString(string(runes[row*s.cols : (row+1)*s.cols]))
	}

	return sb.String()
}

// String returns length displayed characters starting at pos, wrapping past the end of
// the screen
func (s *Screen) String(pos, length int) string {
	s.lock.Lock()
	defer s.lock.Unlock()

	if length <= 0 {
		return ""
	}

	return string(s.displayRunes(s.wrap(pos), length))
}

// AttributeAt returns the attribute governing a position. ok is false for a position
// with no attribute on an unformatted screen.
func (s *Screen) AttributeAt(pos int) (attr FieldAttribute, ok bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	a := s.attributeFor(s.wrap(pos))
	if a == nil {
		return FieldAttribute{}, false
	}

	return *a, true
}

// Cell is one position of the screen as it is displayed
type Cell struct {
	Rune rune
	// Attribute governs the cell. On an unformatted screen it is the zero value unless
	// the host set a character attribute with SA.
	Attribute FieldAttribute
	// FieldStart marks an attribute position, which always displays as a blank
	FieldStart bool
}

// Cells returns every position of the screen in a single pass, for renderers
func (s *Screen) Cells() []Cell {
	s.lock.Lock()
	defer s.lock.Unlock()

	cells := make([]Cell, len(s.cells))
	current := s.fieldStartFor(0)

	for pos := range s.cells {
		if s.isField[pos] {
			current = pos
		}

		attr := s.attrs[pos]
		if current >= 0 {
			attr = s.attrs[current]
		}

		cell := Cell{Rune: s.displayRune(pos, attr), FieldStart: s.isField[pos]}
		if attr != nil {
			cell.Attribute = *attr
		}

		cells[pos] = cell
	}

	return cells
}
