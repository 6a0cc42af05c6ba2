package tn3270

import (
	"io"
	"log/slog"
)

// ParserConfig is passed to NewParser
type ParserConfig struct {
	// Codepage translates text bytes. The default code page is used when nil.
	Codepage *Codepage
	// Logger receives diagnostics about unknown codes and discarded bytes. Nothing is
	// logged when nil.
	Logger *slog.Logger
	// ReadHandler is called after a READ_BUFFER, READ_MODIFIED or READ_MODIFIED_ALL
	// command, outside the screen lock
	ReadHandler func(cmd Command)
	// AlarmHandler is called after a WCC that sounds the alarm, outside the screen lock
	AlarmHandler func()
}

type parserStage byte

const (
	stageCommand parserStage = iota
	stageWCC
	stageOrders
	stageDiscard
)

// parseEvents collects the callbacks owed for one Write, so they can run after the
// screen is unlocked
type parseEvents struct {
	read    Command
	hasRead bool
	alarm   bool
}

// Parser decodes the outbound 3270 data stream into a Screen. It is an io.Writer: bytes
// can arrive in any split, and an order whose operands are incomplete waits for the
// next Write. EndRecord marks the end of a record.
//
// A Parser is meant to be driven by a single goroutine. It takes the screen's lock while
// applying each Write, so the screen itself can be used concurrently.
type Parser struct {
	screen   *Screen
	codepage *Codepage
	logger   *slog.Logger

	readHandler  func(cmd Command)
	alarmHandler func()

	pending     []byte
	stage       parserStage
	command     Command
	lastCommand Command
}

func NewParser(screen *Screen, config ParserConfig) *Parser {
	codepage := config.Codepage
	if codepage == nil {
		codepage = mustLoadCodepage(DefaultCodepage)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Parser{
		screen:       screen,
		codepage:     codepage,
		logger:       logger,
		readHandler:  config.ReadHandler,
		alarmHandler: config.AlarmHandler,
	}
}

// Write parses as much of the record as has arrived. It always accepts all of p.
func (p *Parser) Write(data []byte) (int, error) {
	p.pending = append(p.pending, data...)

	var events parseEvents

	p.screen.lock.Lock()
	consumed := p.process(&events)
	p.screen.lock.Unlock()

	remaining := copy(p.pending, p.pending[consumed:])
	p.pending = p.pending[:remaining]

	if events.alarm && p.alarmHandler != nil {
		p.alarmHandler()
	}

	if events.hasRead && p.readHandler != nil {
		p.readHandler(events.read)
	}

	return len(data), nil
}

// EndRecord closes the current record. Bytes of an order that never received all of its
// operands are discarded.
func (p *Parser) EndRecord() {
	if len(p.pending) > 0 && p.stage != stageDiscard {
		p.logger.Warn("discarding incomplete order at end of record",
			"command", p.command.String(),
			"bytes", len(p.pending),
			"order", orderName(p.pending[0]),
		)
	}

	p.pending = p.pending[:0]
	p.stage = stageCommand
	p.command = 0
}

// LastCommand returns the command byte of the most recent record that had one
func (p *Parser) LastCommand() Command {
	return p.lastCommand
}

// ParseRecord parses one complete record
func (p *Parser) ParseRecord(record []byte) {
	_, _ = p.Write(record)
	p.EndRecord()
}

func orderName(b byte) string {
	name, ok := orderNames[b]
	if !ok {
		return "text"
	}

	return name
}

// process consumes pending bytes and returns how many were used
func (p *Parser) process(events *parseEvents) int {
	offset := 0

	for offset < len(p.pending) {
		data := p.pending[offset:]

		switch p.stage {
		case stageCommand:
			cmd := Command(data[0])
			if commandNames[cmd] != "" {
				p.lastCommand = cmd
			}

			switch {
			case cmd.isWrite():
				p.command = cmd
				p.stage = stageWCC
				offset++
			case cmd.isRead():
				p.command = cmd
				p.stage = stageDiscard
				events.read = cmd
				events.hasRead = true
				offset++
			case cmd == CommandWriteStructuredField:
				p.command = cmd
				p.stage = stageDiscard
				p.logger.Debug("structured fields are not interpreted")
				offset++
			default:
				// Continuation record without a command byte
				p.stage = stageOrders
			}

		case stageWCC:
			p.applyWCC(p.command, data[0], events)
			p.stage = stageOrders
			offset++

		case stageOrders:
			n := p.processOrder(data)
			if n == 0 {
				return offset
			}

			offset += n

		case stageDiscard:
			return len(p.pending)
		}
	}

	return offset
}

func (p *Parser) applyWCC(cmd Command, wcc byte, events *parseEvents) {
	s := p.screen

	switch cmd {
	case CommandEraseWrite, CommandEraseWriteAlternate:
		s.clearLocked()
	case CommandEraseAllUnprotected:
		s.eraseUnprotectedLocked()
	}

	if wcc&WCCResetMDT != 0 {
		s.resetModifiedLocked()
	}

	s.keyboardLocked = wcc&WCCKeyboardRestore == 0

	if wcc&WCCSoundAlarm != 0 {
		s.alarm = true
		events.alarm = true
	}
}

func (p *Parser) decodeText(b byte) rune {
	if b == 0x00 {
		return nullCell
	}

	return p.codepage.Decode(b)
}

// advance moves the cursor past the position just written
func (p *Parser) advance() {
	p.screen.cursor = p.screen.wrap(p.screen.cursor + 1)
}

// processOrder applies the order or text byte at the front of data and returns the number
// of bytes it used, or 0 when its operands have not all arrived
func (p *Parser) processOrder(data []byte) int {
	s := p.screen

	switch data[0] {
	case OrderStartField:
		if len(data) < 2 {
			return 0
		}

		s.setField(s.cursor, ParseAttribute(data[1]))
		p.advance()
		return 2

	case OrderStartFieldExtended:
		if len(data) < 2 {
			return 0
		}

		need := 2 + 2*int(data[1])
		if len(data) < need {
			return 0
		}

		var attr FieldAttribute
		for i := 2; i < need; i += 2 {
			if data[i] == attrTypeBasic {
				attr.replaceBasic(data[i+1])
				continue
			}

			p.logger.Debug("ignoring SFE attribute", "type", data[i], "value", data[i+1])
		}

		s.setField(s.cursor, attr)
		p.advance()
		return need

	case OrderSetBufferAddress:
		if len(data) < 3 {
			return 0
		}

		s.cursor = s.wrap(DecodeAddress(data[1], data[2]))
		return 3

	case OrderSetAttribute:
		if len(data) < 3 {
			return 0
		}

		p.setAttribute(data[1], data[2])
		return 3

	case OrderInsertCursor:
		if len(data) < 3 {
			return 0
		}

		s.cursor = s.wrap(DecodeAddress(data[1], data[2]))
		s.cursorVisible = true
		return 3

	case OrderProgramTab:
		p.programTab()
		return 1

	case OrderRepeatToAddress:
		if len(data) < 4 {
			return 0
		}

		fill := p.decodeText(data[3])
		used := 4
		if data[3] == OrderGraphicEscape {
			if len(data) < 5 {
				return 0
			}

			fill = rune(data[4])
			used = 5
		}

		end := s.wrap(DecodeAddress(data[1], data[2]))
		p.eachUntil(end, func(pos int) {
			s.putCell(pos, fill)
		})

		s.cursor = end
		return used

	case OrderEraseUnprotected:
		if len(data) < 3 {
			return 0
		}

		end := s.wrap(DecodeAddress(data[1], data[2]))
		p.eachUntil(end, func(pos int) {
			if s.isField[pos] {
				return
			}

			attr := s.attributeFor(pos)
			if attr != nil && attr.Protected {
				return
			}

			s.cells[pos] = nullCell
		})

		s.cursor = end
		return 3

	case OrderModifyField:
		if len(data) < 2 {
			return 0
		}

		need := 2 + 2*int(data[1])
		if len(data) < need {
			return 0
		}

		p.modifyField(data[2:need])
		return need

	case OrderGraphicEscape:
		if len(data) < 2 {
			return 0
		}

		s.putCell(s.cursor, rune(data[1]))
		p.advance()
		return 2
	}

	s.putCell(s.cursor, p.decodeText(data[0]))
	p.advance()
	return 1
}

// eachUntil visits every position from the cursor up to but not including end, wrapping
// past the last position. When end equals the cursor, the whole screen is visited.
func (p *Parser) eachUntil(end int, visit func(pos int)) {
	pos := p.screen.cursor
	for {
		visit(pos)
		pos = p.screen.wrap(pos + 1)
		if pos == end {
			return
		}
	}
}

func (p *Parser) programTab() {
	s := p.screen
	if s.fieldCount == 0 {
		s.cursor = 0
		return
	}

	pos, ok := s.tabFromLocked(s.wrap(s.cursor + 1))
	if ok {
		s.cursor = pos
	}
}

func (p *Parser) setAttribute(attrType, value byte) {
	s := p.screen

	attr := s.attributeFor(s.cursor)
	if attr == nil {
		attr = &FieldAttribute{}
		s.attrs[s.cursor] = attr
	}

	switch attrType {
	case attrTypeReset:
		attr.Highlighting = HighlightDefault
		attr.Color = ColorDefault
	case attrTypeHighlighting:
		if !Highlighting(value).valid() {
			p.logger.Debug("unknown highlighting", "value", value)
			return
		}

		attr.Highlighting = Highlighting(value)
	case attrTypeColor:
		if !Color(value).valid() {
			p.logger.Debug("unknown color", "value", value)
			return
		}

		attr.Color = Color(value)
	case attrTypeCharset, attrTypeBackground, attrTypeTransparency:
		p.logger.Debug("ignoring SA attribute", "type", attrType, "value", value)
	default:
		p.logger.Debug("unknown SA attribute type", "type", attrType, "value", value)
	}
}

func (p *Parser) modifyField(pairs []byte) {
	s := p.screen

	start := s.fieldStartFor(s.cursor)
	if start < 0 {
		p.logger.Debug("MF with no field at the cursor", "address", s.cursor)
		return
	}

	attr := s.attrs[start]
	for i := 0; i+1 < len(pairs); i += 2 {
		attrType, value := pairs[i], pairs[i+1]

		switch attrType {
		case attrTypeBasic:
			attr.replaceBasic(value)
		case attrTypeExtHilite:
			if Highlighting(value).valid() {
				attr.Highlighting = Highlighting(value)
			}
		case attrTypeExtColor:
			if Color(value).valid() {
				attr.Color = Color(value)
			}
		case attrTypeMDT:
			attr.Modified = value&attrModified != 0
		case attrTypeIntensity:
			switch value {
			case 0x00, 0xF0:
				attr.Intensity = IntensityNormal
			case 0xF1:
				attr.Intensity = IntensityHigh
			case 0xF2:
				attr.Intensity = IntensityNonDisplay
			default:
				p.logger.Debug("unknown intensity", "value", value)
			}
		case attrTypeExtCharset, attrTypeOutline, attrTypeExtBack, attrTypeValidation:
			p.logger.Debug("ignoring MF attribute", "type", attrType, "value", value)
		default:
			p.logger.Debug("unknown MF attribute type", "type", attrType, "value", value)
		}
	}

	attr.Modified = true
}
