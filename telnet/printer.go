package telnet

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const maxSubnegotiationLength = 4096

// TelnetPrinter is a Terminal subsidiary that reads from the remote peer. It strips
// negotiation out of the inbound stream and hands every command to the terminal, so that
// reading from the printer yields only the data the remote meant for the layer above.
type TelnetPrinter struct {
	source    *LookaheadReader
	terminal  *Terminal
	eventPump *terminalEventPump
}

func newTelnetPrinter(ctx context.Context, input io.Reader, terminal *Terminal, eventPump *terminalEventPump) *TelnetPrinter {
	return &TelnetPrinter{
		source:    NewLookaheadReader(ctx, input),
		terminal:  terminal,
		eventPump: eventPump,
	}
}

// Read fills p with unwrapped data. It blocks until at least one data byte is available,
// processing any commands that arrive first, and then returns without blocking again.
func (p *TelnetPrinter) Read(b []byte) (int, error) {
	n := 0

	for n < len(b) {
		if n > 0 && p.source.Buffered() == 0 {
			break
		}

		data, hasData, err := p.next()
		if err != nil {
			if n > 0 {
				return n, nil
			}

			return 0, err
		}

		if hasData {
			b[n] = data
			n++
		}
	}

	return n, nil
}

// next consumes one protocol unit from the source. It returns a data byte when the
// unit was data and hasData is false when the unit was a command.
func (p *TelnetPrinter) next() (data byte, hasData bool, err error) {
	c, err := p.source.PeekByte()
	if err != nil {
		return 0, false, err
	}

	if c != IAC {
		p.source.Discard(1)
		return c, true, nil
	}

	pair, err := p.source.Peek(2)
	if len(pair) < 2 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}

		if errors.Is(err, io.EOF) {
			// A lone IAC at the very end of the stream has nothing to command
			p.source.Discard(1)
			return IAC, true, nil
		}

		return 0, false, err
	}

	opCode := pair[1]
	if !IsRecognizedCommand(opCode) {
		// IAC followed by something we don't treat as a command, such as IAC EOR. The
		// IAC stays in the data stream for the layer above.
		p.source.Discard(1)
		return IAC, true, nil
	}

	if opCode == IAC {
		p.source.Discard(2)
		return IAC, true, nil
	}

	if opCode == SB {
		return 0, false, p.readSubnegotiation()
	}

	command := Command{OpCode: opCode}
	if command.hasOption() {
		frame, err := p.source.Peek(3)
		if len(frame) < 3 {
			return 0, false, err
		}

		command.Option = TelOptCode(frame[2])
		p.source.Discard(3)
	} else {
		p.source.Discard(2)
	}

	p.dispatch(command)
	return 0, false, nil
}

func (p *TelnetPrinter) readSubnegotiation() error {
	frame, err := p.source.Peek(3)
	if len(frame) < 3 {
		return err
	}

	command := Command{OpCode: SB, Option: TelOptCode(frame[2])}
	p.source.Discard(3)

	payload := make([]byte, 0, 16)
	truncated := false

	for {
		b, err := p.source.ReadByte()
		if err != nil {
			return err
		}

		if b == IAC {
			next, err := p.source.PeekByte()
			if err != nil {
				return err
			}

			if next == SE {
				p.source.Discard(1)
				break
			}

			if next != IAC {
				// An IAC inside a subnegotiation must be doubled; drop the stray one
				p.eventPump.EncounteredError(fmt.Errorf("subnegotiation for option %d contained unescaped IAC followed by %d", command.Option, next))
				continue
			}

			p.source.Discard(1)
		}

		if len(payload) >= maxSubnegotiationLength {
			truncated = true
			continue
		}

		payload = append(payload, b)
	}

	if truncated {
		p.eventPump.EncounteredError(fmt.Errorf("subnegotiation for option %d exceeded %d bytes and was truncated", command.Option, maxSubnegotiationLength))
	}

	command.Subnegotiation = payload
	p.dispatch(command)
	return nil
}

func (p *TelnetPrinter) dispatch(c Command) {
	p.eventPump.InboundCommand(c)

	err := p.terminal.processTelOptCommand(c)
	if err != nil {
		p.eventPump.EncounteredError(err)
	}
}

// Buffered returns the number of raw bytes that have been received but not yet processed
func (p *TelnetPrinter) Buffered() int {
	return p.source.Buffered()
}

func (p *TelnetPrinter) close() error {
	return p.source.Close()
}
