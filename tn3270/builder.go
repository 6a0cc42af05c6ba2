package tn3270

// BuilderConfig is passed to NewBuilder
type BuilderConfig struct {
	// Codepage translates screen characters to EBCDIC. The default code page is used
	// when nil.
	Codepage *Codepage
	// Terminator is appended to every stream the builder produces. Leave it nil when
	// the transport frames records itself, as telnet.Terminal.WriteRecord does.
	Terminator []byte
	// IncludeCursor places the two byte cursor address after the AID, the way a real
	// 3270 reports where the operator left the cursor
	IncludeCursor bool
}

// Builder produces the inbound 3270 data stream sent to the host when the operator
// presses an attention key, or when the host asks to read the screen
type Builder struct {
	screen        *Screen
	codepage      *Codepage
	terminator    []byte
	includeCursor bool
}

func NewBuilder(screen *Screen, config BuilderConfig) *Builder {
	codepage := config.Codepage
	if codepage == nil {
		codepage = mustLoadCodepage(DefaultCodepage)
	}

	return &Builder{
		screen:        screen,
		codepage:      codepage,
		terminator:    config.Terminator,
		includeCursor: config.IncludeCursor,
	}
}

// Build produces the stream for an attention key. Clear sends the AID alone and clears
// the screen. Any other key sends the modified fields, or the modified positions of an
// unformatted screen.
func (b *Builder) Build(aid AID) []byte {
	s := b.screen
	s.lock.Lock()
	defer s.lock.Unlock()

	s.lastAID = aid

	if aid == AIDClear {
		s.clearLocked()
		return b.terminate([]byte{byte(aid)})
	}

	return b.terminate(b.modifiedLocked(aid))
}

// BuildReadModified answers a READ_MODIFIED or READ_MODIFIED_ALL command from the host
// with the AID of the last attention key. Keys that never carry data only send the AID.
func (b *Builder) BuildReadModified(aid AID) []byte {
	s := b.screen
	s.lock.Lock()
	defer s.lock.Unlock()

	if aid.AllowedWhileLocked() {
		return b.terminate([]byte{byte(aid)})
	}

	return b.terminate(b.modifiedLocked(aid))
}

// BuildReadBuffer answers a READ_BUFFER command with the entire screen: every character,
// and an SF order with the attribute byte at each field position
func (b *Builder) BuildReadBuffer(aid AID) []byte {
	s := b.screen
	s.lock.Lock()
	defer s.lock.Unlock()

	cursor := EncodeAddress(s.cursor)
	out := make([]byte, 0, 3+len(s.cells)+len(b.terminator))
	out = append(out, byte(aid), cursor[0], cursor[1])

	for pos, r := range s.cells {
		if s.isField[pos] {
			out = append(out, OrderStartField, s.attrs[pos].Byte())
			continue
		}

		if r == nullCell {
			out = append(out, 0x00)
			continue
		}

		out = append(out, b.codepage.Encode(r))
	}

	return b.terminate(out)
}

func (b *Builder) terminate(out []byte) []byte {
	return append(out, b.terminator...)
}

func (b *Builder) header(aid AID) []byte {
	out := []byte{byte(aid)}
	if b.includeCursor {
		cursor := EncodeAddress(b.screen.cursor)
		out = append(out, cursor[0], cursor[1])
	}

	return out
}

func (b *Builder) modifiedLocked(aid AID) []byte {
	s := b.screen
	out := b.header(aid)

	if s.fieldCount == 0 {
		return b.appendModifiedRuns(out)
	}

	for _, field := range s.fieldsLocked() {
		if !field.Modified || field.Length == 0 {
			continue
		}

		start := EncodeAddress(field.Start)
		out = append(out, OrderSetBufferAddress, start[0], start[1])
		out = append(out, b.codepage.EncodeString(field.Data)...)
	}

	return out
}

// appendModifiedRuns sends every modified position of an unformatted screen. Each run of
// consecutive modified positions is introduced by an SBA.
func (b *Builder) appendModifiedRuns(out []byte) []byte {
	s := b.screen
	inRun := false

	for pos, r := range s.cells {
		attr := s.attrs[pos]
		if attr == nil || !attr.Modified {
			inRun = false
			continue
		}

		if !inRun {
			address := EncodeAddress(pos)
			out = append(out, OrderSetBufferAddress, address[0], address[1])
			inRun = true
		}

		if r != nullCell {
			out = append(out, b.codepage.Encode(r))
		}
	}

	return out
}
