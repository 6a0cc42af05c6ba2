package telnet

import (
	"errors"
	"io"
	"net"
	"sync"
)

// TelnetKeyboard is a Terminal subsidiary that is in charge of sending outbound data
// to the remote peer. Every method writes one complete protocol unit while holding the
// keyboard lock, so negotiation replies sent by the reader never interleave with records
// sent by the consumer.
type TelnetKeyboard struct {
	lock         sync.Mutex
	outputStream io.Writer
	eventPump    *terminalEventPump
}

func newTelnetKeyboard(output io.Writer, eventPump *terminalEventPump) *TelnetKeyboard {
	return &TelnetKeyboard{
		outputStream: output,
		eventPump:    eventPump,
	}
}

func (k *TelnetKeyboard) writeOutput(b []byte) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	for len(b) > 0 {
		n, err := k.outputStream.Write(b)
		b = b[n:]

		if err == nil {
			continue
		}

		// Retry when error is temporary
		var netError net.Error
		if errors.As(err, &netError) && netError.Temporary() {
			continue
		}

		return err
	}

	return nil
}

// WriteCommand sends a single IAC command. Subnegotiation payloads are escaped.
func (k *TelnetKeyboard) WriteCommand(c Command) error {
	err := k.writeOutput(c.Bytes())
	if err != nil {
		return err
	}

	k.eventPump.OutboundCommand(c)
	return nil
}

// Write sends data to the remote, doubling every 0xFF byte
func (k *TelnetKeyboard) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	err := k.writeOutput(AppendEscaped(make([]byte, 0, len(p)+8), p))
	if err != nil {
		return 0, err
	}

	return len(p), nil
}

// WriteRecord sends data escaped like Write, followed by IAC EOR, as a single unit
func (k *TelnetKeyboard) WriteRecord(p []byte) error {
	b := AppendEscaped(make([]byte, 0, len(p)+8), p)
	b = append(b, IAC, EOR)

	err := k.writeOutput(b)
	if err != nil {
		return err
	}

	k.eventPump.OutboundCommand(Command{OpCode: EOR})
	return nil
}
