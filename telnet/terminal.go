package telnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
)

// Terminal is a wrapper around a byte stream to enable telnet communications
// over it. Telnet's base protocol doesn't distinguish between client and server,
// so there is only one terminal type for both sides of the connection.
//
// A telnet connection is best envisioned as two asynchronous datastreams: a printer
// that produces data from the remote peer, and a keyboard that sends data to the
// remote peer. Reading from the Terminal reads from the printer, which answers
// negotiation on the way and only returns the data meant for the layer above. Writing
// to the Terminal writes to the keyboard, which escapes IAC bytes.
//
// Negotiation is handled on the consumer's behalf using the TelOptPolicy records passed
// in the TerminalConfig. Registered hooks are called from the terminal's own event
// goroutine, so a slow hook delays other hooks but never delays reading or writing.
type Terminal struct {
	reader   io.Reader
	writer   io.Writer
	side     TerminalSide
	keyboard *TelnetKeyboard
	printer  *TelnetPrinter

	eventPump *terminalEventPump
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error

	policies   map[TelOptCode]TelOptPolicy
	optionLock sync.Mutex
	options    [256]OptionState

	inboundCommandHooks   *EventPublisher[Command]
	outboundCommandHooks  *EventPublisher[Command]
	encounteredErrorHooks *EventPublisher[error]
	telOptEventHooks      *EventPublisher[TelOptEvent]
}

// NewTerminal initializes a new terminal object over a network connection. Telopt
// negotiation begins with the remote immediately when this method is called.
//
// The terminal will continue until either the passed context is cancelled, or Close
// is called. Closing the terminal closes the connection.
func NewTerminal(ctx context.Context, conn net.Conn, config TerminalConfig) (*Terminal, error) {
	return NewTerminalFromPipes(ctx, conn, conn, config)
}

// NewTerminalFromPipes works like NewTerminal for a separate reader and writer. Either one
// is closed by Close if it implements io.Closer.
func NewTerminalFromPipes(ctx context.Context, reader io.Reader, writer io.Writer, config TerminalConfig) (*Terminal, error) {
	terminalCtx, cancel := context.WithCancel(ctx)

	pump := newEventPump()
	terminal := &Terminal{
		reader:    reader,
		writer:    writer,
		side:      config.Side,
		keyboard:  newTelnetKeyboard(writer, pump),
		eventPump: pump,
		ctx:       terminalCtx,
		cancel:    cancel,
		policies:  make(map[TelOptCode]TelOptPolicy),

		inboundCommandHooks:   NewPublisher(config.EventHooks.InboundCommand),
		outboundCommandHooks:  NewPublisher(config.EventHooks.OutboundCommand),
		encounteredErrorHooks: NewPublisher(config.EventHooks.EncounteredError),
		telOptEventHooks:      NewPublisher(config.EventHooks.TelOptEvent),
	}
	terminal.printer = newTelnetPrinter(terminalCtx, reader, terminal, pump)

	err := terminal.initTelopts(config.TelOpts)
	if err != nil {
		cancel()
		return nil, err
	}

	go pump.TerminalLoop(terminalCtx, terminal)

	// Kick off telopt negotiation by writing commands for our requested telopts
	err = terminal.writeTelOptRequests()
	if err != nil {
		_ = terminal.Close()
		return nil, fmt.Errorf("writing telopt requests: %w", err)
	}

	return terminal, nil
}

// Side returns a TerminalSide object indicating whether the
// terminal represents a client or server
func (t *Terminal) Side() TerminalSide {
	return t.side
}

// Keyboard returns the object that is used for sending outbound communications
func (t *Terminal) Keyboard() *TelnetKeyboard {
	return t.keyboard
}

// Printer returns the object that is used for receiving inbound communications
func (t *Terminal) Printer() *TelnetPrinter {
	return t.printer
}

// Read returns data received from the remote with all telnet commands removed. Commands
// found along the way are answered before Read returns. Only one goroutine may read
// at a time.
func (t *Terminal) Read(p []byte) (int, error) {
	return t.printer.Read(p)
}

// Write sends data to the remote, doubling any IAC bytes
func (t *Terminal) Write(p []byte) (int, error) {
	return t.keyboard.Write(p)
}

// WriteRecord sends data to the remote followed by IAC EOR
func (t *Terminal) WriteRecord(p []byte) error {
	return t.keyboard.WriteRecord(p)
}

// WriteCommand sends a single command to the remote. Negotiation commands sent this
// way bypass the option state, so RequestWill and RequestDo are usually preferable.
func (t *Terminal) WriteCommand(c Command) error {
	return t.keyboard.WriteCommand(c)
}

// Done is closed once the terminal has been closed or its context has been cancelled
func (t *Terminal) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Close stops the terminal and closes the underlying streams. Blocked reads return
// promptly. Hooks for events raised before Close are still delivered.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() {
		t.cancel()

		var errs []error
		errs = append(errs, t.printer.close())

		closer, ok := t.writer.(io.Closer)
		if ok && any(t.writer) != any(t.reader) {
			errs = append(errs, closer.Close())
		}

		t.closeErr = errors.Join(errs...)
	})

	return t.closeErr
}

// CommandString converts a Command object into a legible stream. This can be useful
// when logging a received command object
func (t *Terminal) CommandString(c Command) string {
	var sb strings.Builder
	sb.WriteString("IAC ")

	opCode, hasOpCode := commandCodes[c.OpCode]
	if !hasOpCode {
		opCode = strconv.Itoa(int(c.OpCode))
	}

	sb.WriteString(opCode)

	if !c.hasOption() {
		return sb.String()
	}

	sb.WriteByte(' ')

	policy, hasPolicy := t.policy(c.Option)
	if !hasPolicy {
		sb.WriteString("? Unknown Option ")
		sb.WriteString(strconv.Itoa(int(c.Option)))
		sb.WriteString("?")
	} else {
		sb.WriteString(policy.String())
	}

	if c.OpCode != SB {
		return sb.String()
	}

	sb.WriteByte(' ')

	if !hasPolicy || policy.SubnegotiationString == nil {
		sb.WriteString(fmt.Sprintf("%+v", c.Subnegotiation))
	} else {
		sb.WriteString(policy.SubnegotiationString(c.Subnegotiation))
	}

	sb.WriteString(" IAC SE")
	return sb.String()
}

// RegisterInboundCommandHook will register an event to be called when a command
// has been received from the remote, including commands that carry no negotiation
// such as NOP or AYT.
func (t *Terminal) RegisterInboundCommandHook(inboundCommand CommandHandler) {
	t.inboundCommandHooks.Register(EventHook[Command](inboundCommand))
}

// RegisterOutboundCommandHook will register an event to be called when a command
// has been sent from the keyboard. This is primarily useful for debug logging.
func (t *Terminal) RegisterOutboundCommandHook(outboundCommand CommandHandler) {
	t.outboundCommandHooks.Register(EventHook[Command](outboundCommand))
}

// RegisterEncounteredErrorHook will register an event to be called when an error
// was encountered by the terminal or one of its subsidiaries. Not all errors will
// be sent via this hook: just errors that are not returned to the user immediately.
func (t *Terminal) RegisterEncounteredErrorHook(encounteredError ErrorHandler) {
	t.encounteredErrorHooks.Register(EventHook[error](encounteredError))
}

// RegisterTelOptEventHook will register an event to be called when a telopt changes
// state or answers a subnegotiation.
func (t *Terminal) RegisterTelOptEventHook(telOptEvent TelOptEventHandler) {
	t.telOptEventHooks.Register(EventHook[TelOptEvent](telOptEvent))
}
