package tn3270

import "github.com/rivo/uniseg"

// Local editing. These are the operations of a 3270 operator's keyboard: they respect
// field boundaries and set the MDT of whatever they change, so the builder can find the
// modified data later.

func isNumericInput(r rune) bool {
	return (r >= '0' && r <= '9') || r == '.' || r == '-'
}

// PutString types text at the cursor and returns the number of characters placed. Each
// grapheme cluster fills one cell. On a formatted screen, typing skips attribute positions
// and protected fields, and stops when no input field is left. Non-numeric characters are
// dropped from numeric fields.
func (s *Screen) PutString(text string) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.keyboardLocked {
		return 0, ErrKeyboardLocked
	}

	placed := 0
	graphemes := uniseg.NewGraphemes(text)
	for graphemes.Next() {
		runes := graphemes.Runes()
		ok, stop := s.putRuneLocked(runes[0])
		if ok {
			placed++
		}

		if stop {
			break
		}
	}

	return placed, nil
}

// PutChar types a single character at the cursor
func (s *Screen) PutChar(r rune) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.keyboardLocked {
		return false, ErrKeyboardLocked
	}

	ok, _ := s.putRuneLocked(r)
	return ok, nil
}

func (s *Screen) putRuneLocked(r rune) (placed bool, stop bool) {
	if s.fieldCount == 0 {
		return s.putUnformattedLocked(r)
	}

	pos, ok := s.inputPositionLocked(s.cursor)
	if !ok {
		return false, true
	}

	s.cursor = pos
	field := s.fieldLocked(s.fieldStartFor(pos))
	attr := s.attrs[field.Position]

	if attr.Numeric && !isNumericInput(r) {
		return false, false
	}

	if s.insertMode {
		if s.cells[field.End] != nullCell {
			// Field is full
			return false, true
		}

		for i := field.End; i != pos; i = s.wrap(i - 1) {
			s.cells[i] = s.cells[s.wrap(i-1)]
		}
	}

	s.cells[pos] = r
	attr.Modified = true

	next := s.wrap(pos + 1)
	if s.isField[next] {
		tabbed, found := s.tabFromLocked(next)
		if found {
			next = tabbed
		}
	}

	s.cursor = next
	return true, false
}

func (s *Screen) putUnformattedLocked(r rune) (placed bool, stop bool) {
	pos := s.cursor
	attr := s.attrs[pos]
	if attr != nil && attr.Protected {
		return false, true
	}

	if s.insertMode {
		rowEnd := (pos/s.cols)*s.cols + s.cols - 1
		if s.cells[rowEnd] != nullCell {
			return false, true
		}

		for i := rowEnd; i > pos; i-- {
			s.cells[i] = s.cells[i-1]
			s.markCellModified(i)
		}
	}

	s.cells[pos] = r
	s.markCellModified(pos)
	s.cursor = s.wrap(pos + 1)

	return true, false
}

func (s *Screen) markCellModified(pos int) {
	if s.attrs[pos] == nil {
		s.attrs[pos] = &FieldAttribute{}
	}

	s.attrs[pos].Modified = true
}

// inputPositionLocked returns pos if it is a data position of an input field, and otherwise
// the start of the next input field
func (s *Screen) inputPositionLocked(pos int) (int, bool) {
	start := s.fieldStartFor(pos)
	if start >= 0 && start != pos && s.attrs[start].CanInput() {
		return pos, true
	}

	return s.tabFromLocked(pos)
}

// tabFromLocked returns the first data position of the first input field whose attribute
// sits at or after pos, wrapping to the top of the screen
func (s *Screen) tabFromLocked(pos int) (int, bool) {
	fields := s.inputFields()
	if len(fields) == 0 {
		return 0, false
	}

	for _, f := range fields {
		if f.Position >= pos {
			return f.Start, true
		}
	}

	return fields[0].Start, true
}

// inputFieldLocked returns the input field whose data contains the cursor
func (s *Screen) inputFieldLocked() (Field, bool) {
	start := s.fieldStartFor(s.cursor)
	if start < 0 || start == s.cursor || !s.attrs[start].CanInput() {
		return Field{}, false
	}

	return s.fieldLocked(start), true
}

// Backspace moves the cursor left within the current field and deletes the character
// found there
func (s *Screen) Backspace() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.keyboardLocked {
		return ErrKeyboardLocked
	}

	if s.fieldCount == 0 {
		if s.cursor%s.cols == 0 {
			return nil
		}

		s.cursor--
		s.deleteUnformattedLocked()
		return nil
	}

	field, ok := s.inputFieldLocked()
	if !ok || s.cursor == field.Start {
		return nil
	}

	s.cursor = s.wrap(s.cursor - 1)
	s.deleteInFieldLocked(field)
	return nil
}

// Delete removes the character under the cursor, shifting the rest of the field left
func (s *Screen) Delete() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.keyboardLocked {
		return ErrKeyboardLocked
	}

	if s.fieldCount == 0 {
		s.deleteUnformattedLocked()
		return nil
	}

	field, ok := s.inputFieldLocked()
	if !ok {
		return nil
	}

	s.deleteInFieldLocked(field)
	return nil
}

func (s *Screen) deleteInFieldLocked(field Field) {
	for i := s.cursor; i != field.End; i = s.wrap(i + 1) {
		s.cells[i] = s.cells[s.wrap(i+1)]
	}

	s.cells[field.End] = nullCell
	s.attrs[field.Position].Modified = true
}

func (s *Screen) deleteUnformattedLocked() {
	pos := s.cursor
	if s.attrs[pos] != nil && s.attrs[pos].Protected {
		return
	}

	rowEnd := (pos/s.cols)*s.cols + s.cols - 1
	for i := pos; i < rowEnd; i++ {
		if s.cells[i] != s.cells[i+1] {
			s.cells[i] = s.cells[i+1]
			s.markCellModified(i)
		}
	}

	if s.cells[rowEnd] != nullCell {
		s.cells[rowEnd] = nullCell
		s.markCellModified(rowEnd)
	}
}

// EraseEOF nulls the current field from the cursor to the field's end. On an unformatted
// screen it erases to the end of the screen.
func (s *Screen) EraseEOF() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.keyboardLocked {
		return ErrKeyboardLocked
	}

	if s.fieldCount == 0 {
		for i := s.cursor; i < len(s.cells); i++ {
			if s.cells[i] == nullCell || (s.attrs[i] != nil && s.attrs[i].Protected) {
				continue
			}

			s.cells[i] = nullCell
			s.markCellModified(i)
		}

		return nil
	}

	field, ok := s.inputFieldLocked()
	if !ok {
		return nil
	}

	for i := s.cursor; ; i = s.wrap(i + 1) {
		s.cells[i] = nullCell
		if i == field.End {
			break
		}
	}

	s.attrs[field.Position].Modified = true
	return nil
}

// EraseAllUnprotected nulls every input field, resets their MDTs and moves the cursor to
// the first input field
func (s *Screen) EraseAllUnprotected() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.keyboardLocked {
		return ErrKeyboardLocked
	}

	s.eraseUnprotectedLocked()
	return nil
}

func (s *Screen) eraseUnprotectedLocked() {
	if s.fieldCount == 0 {
		for i := range s.cells {
			attr := s.attrs[i]
			if attr != nil && attr.Protected {
				continue
			}

			s.cells[i] = nullCell
			if attr != nil {
				attr.Modified = false
			}
		}

		s.cursor = 0
		return
	}

	for _, field := range s.fieldsLocked() {
		if !field.Attribute.CanInput() {
			continue
		}

		for i := 0; i < field.Length; i++ {
			s.cells[s.wrap(field.Start+i)] = nullCell
		}

		s.attrs[field.Position].Modified = false
	}

	s.cursor = s.homeLocked()
}

// ToggleInsert switches between overwrite and insert typing
func (s *Screen) ToggleInsert() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.insertMode = !s.insertMode
	return s.insertMode
}

func (s *Screen) homeLocked() int {
	fields := s.inputFields()
	if len(fields) == 0 {
		return 0
	}

	return fields[0].Start
}

// Home moves the cursor to the first input field on the screen
func (s *Screen) Home() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.cursor = s.homeLocked()
	return s.cursor
}

// Tab moves the cursor to the start of the next input field
func (s *Screen) Tab() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.tabLocked()
	return s.cursor
}

func (s *Screen) tabLocked() {
	if s.fieldCount == 0 {
		s.cursor = 0
		return
	}

	pos, ok := s.tabFromLocked(s.wrap(s.cursor + 1))
	if ok {
		s.cursor = pos
	}
}

// BackTab moves the cursor to the start of the current input field, or of the previous
// input field when it is already there
func (s *Screen) BackTab() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	fields := s.inputFields()
	if len(fields) == 0 {
		return s.cursor
	}

	target := fields[len(fields)-1].Start
	for _, f := range fields {
		if f.Start < s.cursor {
			target = f.Start
		}
	}

	s.cursor = target
	return s.cursor
}

func (s *Screen) Up() int    { return s.moveCursor(-s.cols) }
func (s *Screen) Down() int  { return s.moveCursor(s.cols) }
func (s *Screen) Left() int  { return s.moveCursor(-1) }
func (s *Screen) Right() int { return s.moveCursor(1) }

func (s *Screen) moveCursor(delta int) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.cursor = s.wrap(s.cursor + delta)
	return s.cursor
}
