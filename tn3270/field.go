package tn3270

// Field is a snapshot of one field on a formatted screen. Position is the address of the
// attribute byte, and the field's data runs from Start for Length positions, wrapping past
// the end of the screen. End is the last data position; when Length is zero, End is the
// attribute position itself.
type Field struct {
	Position  int
	Start     int
	End       int
	Length    int
	Attribute FieldAttribute
	Modified  bool
	// Data holds the field's characters with nulls removed, exactly as it would be sent
	// to the host
	Data string
}

// Contains reports whether pos is one of the field's data positions
func (f Field) Contains(pos int, size int) bool {
	if f.Length == 0 {
		return false
	}

	offset := (pos - f.Start + size) % size
	return offset < f.Length
}

func (s *Screen) fieldLocked(pos int) Field {
	total := len(s.cells)
	next := s.nextFieldStart(pos)

	field := Field{
		Position:  pos,
		Start:     s.wrap(pos + 1),
		End:       s.wrap(next - 1),
		Length:    (next - pos - 1 + total) % total,
		Attribute: *s.attrs[pos],
		Modified:  s.attrs[pos].Modified,
	}

	field.Data = s.dataLocked(field.Start, field.Length)
	return field
}

// dataLocked returns length characters from start, dropping nulls
func (s *Screen) dataLocked(start, length int) string {
	runes := make([]rune, 0, length)
	for i := 0; i < length; i++ {
		r := s.cells[s.wrap(start+i)]
		if r != nullCell {
			runes = append(runes, r)
		}
	}

	return string(runes)
}

func (s *Screen) fieldsLocked() []Field {
	if s.fieldCount == 0 {
		return nil
	}

	fields := make([]Field, 0, s.fieldCount)
	for pos := range s.cells {
		if s.isField[pos] {
			fields = append(fields, s.fieldLocked(pos))
		}
	}

	return fields
}

// Fields returns every field in address order. An unformatted screen has none.
func (s *Screen) Fields() []Field {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.fieldsLocked()
}

// FieldAt returns the field owning pos, either through its attribute position or one of
// its data positions
func (s *Screen) FieldAt(pos int) (Field, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	start := s.fieldStartFor(s.wrap(pos))
	if start < 0 {
		return Field{}, false
	}

	return s.fieldLocked(start), true
}

// inputFields returns the fields the cursor can tab into
func (s *Screen) inputFields() []Field {
	var fields []Field
	for _, f := range s.fieldsLocked() {
		if f.Attribute.CanInput() && f.Length > 0 {
			fields = append(fields, f)
		}
	}

	return fields
}
