package tn3270

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/moodclient/tn3270/telnet"
	"github.com/moodclient/tn3270/telnet/telopts"
	"golang.org/x/sync/errgroup"
)

var ErrNotConnected = errors.New("session is not connected")
var ErrAlreadyConnected = errors.New("session is already connected")

// Session is a TN3270 client: one telnet terminal feeding one screen. Records from the
// host are parsed on a reader goroutine, while the caller edits the screen and sends
// attention keys from its own goroutines.
//
// The screen outlives the connection, so it can still be inspected after Disconnect or
// after the host drops the connection.
type Session struct {
	config SessionConfig

	screen  *Screen
	parser  *Parser
	builder *Builder

	lock          sync.Mutex
	terminal      *telnet.Terminal
	cancel        context.CancelFunc
	group         *errgroup.Group
	connected     atomic.Bool
	disconnecting atomic.Bool

	screenUpdatedHooks    *sessionPublisher[ScreenUpdate]
	alarmHooks            *sessionPublisher[ScreenUpdate]
	encounteredErrorHooks *sessionPublisher[error]
}

// NewSession creates a disconnected session with a blank screen
func NewSession(config SessionConfig) (*Session, error) {
	config = config.withDefaults()

	screen, err := NewScreen(config.Rows, config.Cols)
	if err != nil {
		return nil, err
	}

	codepage, err := LoadCodepage(config.CodePage)
	if err != nil {
		return nil, err
	}

	session := &Session{
		config: config,
		screen: screen,

		screenUpdatedHooks:    newSessionPublisher(config.EventHooks.ScreenUpdated),
		alarmHooks:            newSessionPublisher(config.EventHooks.Alarm),
		encounteredErrorHooks: newSessionPublisher(config.EventHooks.EncounteredError),
	}

	session.parser = NewParser(screen, ParserConfig{
		Codepage:    codepage,
		Logger:      config.Logger,
		ReadHandler: session.answerRead,
		AlarmHandler: func() {
			session.alarmHooks.Fire(session, ScreenUpdate{Command: session.parser.LastCommand()})
		},
	})

	session.builder = NewBuilder(screen, BuilderConfig{
		Codepage:      codepage,
		IncludeCursor: config.SendCursorAddress,
	})

	return session, nil
}

func (s *Session) policies() []telnet.TelOptPolicy {
	policies := []telnet.TelOptPolicy{
		telopts.TTYPE(telnet.TelOptAllowLocal, s.config.TerminalType),
		telopts.TRANSMITBINARY(telnet.TelOptEverywhere),
		telopts.EOR(telnet.TelOptEverywhere),
	}

	if s.config.UseSGA {
		policies = append(policies, telopts.SUPPRESSGOAHEAD(telnet.TelOptEverywhere))
	}

	if s.config.UseNAWS {
		policies = append(policies, telopts.NAWS(telnet.TelOptAllowLocal, s.config.Cols, s.config.Rows))
	}

	if s.config.UseEcho {
		policies = append(policies, telopts.ECHO(telnet.TelOptAllowRemote))
	}

	return policies
}

// Connect starts a session over a connection the caller has already dialed. The
// connection is closed when the session ends.
func (s *Session) Connect(ctx context.Context, conn net.Conn) error {
	return s.ConnectPipes(ctx, conn, conn)
}

// ConnectPipes works like Connect for a separate reader and writer
func (s *Session) ConnectPipes(ctx context.Context, reader io.Reader, writer io.Writer) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.connected.Load() {
		return ErrAlreadyConnected
	}

	sessionCtx, cancel := context.WithCancel(ctx)

	terminal, err := telnet.NewTerminalFromPipes(sessionCtx, reader, writer, telnet.TerminalConfig{
		Side:       telnet.SideClient,
		TelOpts:    s.policies(),
		EventHooks: s.config.TerminalHooks,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("starting telnet terminal: %w", err)
	}

	group, groupCtx := errgroup.WithContext(sessionCtx)

	s.terminal = terminal
	s.cancel = cancel
	s.group = group
	s.disconnecting.Store(false)
	s.connected.Store(true)

	group.Go(func() error {
		defer cancel()
		return s.readRecords(groupCtx, terminal)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		return terminal.Close()
	})

	return nil
}

func (s *Session) readRecords(ctx context.Context, terminal *telnet.Terminal) error {
	defer s.connected.Store(false)

	scanner := NewRecordScanner(terminal)
	for scanner.Scan(ctx) {
		record := scanner.Record()
		s.parser.ParseRecord(record)
		s.screenUpdatedHooks.Fire(s, ScreenUpdate{Command: s.parser.LastCommand(), Bytes: len(record)})
	}

	err := scanner.Err()
	// Once the session context is done, a closed pipe is the expected way out
	if s.disconnecting.Load() || ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}

	if err == nil {
		return io.EOF
	}

	return fmt.Errorf("reading from host: %w", err)
}

// answerRead replies to a read command from the host. It runs on the reader goroutine.
func (s *Session) answerRead(cmd Command) {
	var record []byte
	if cmd == CommandReadBuffer {
		record = s.builder.BuildReadBuffer(s.screen.LastAID())
	} else {
		record = s.builder.BuildReadModified(s.screen.LastAID())
	}

	terminal := s.currentTerminal()
	if terminal == nil {
		return
	}

	err := terminal.WriteRecord(record)
	if err != nil {
		s.encounteredErrorHooks.Fire(s, fmt.Errorf("answering %s: %w", cmd, err))
	}
}

func (s *Session) currentTerminal() *telnet.Terminal {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.terminal
}

// SendAID sends the screen's modified data to the host along with an attention key,
// then locks the keyboard until the host restores it. While the keyboard is locked only
// Clear, SysReq and the PA keys can be sent.
func (s *Session) SendAID(aid AID) error {
	terminal := s.currentTerminal()
	if terminal == nil || !s.connected.Load() {
		return ErrNotConnected
	}

	err := s.screen.acquireKeyboard(aid)
	if err != nil {
		return err
	}

	record := s.builder.Build(aid)

	err = terminal.WriteRecord(record)
	if err != nil {
		return fmt.Errorf("sending %s: %w", aid, err)
	}

	return nil
}

// PutString types text at the cursor. See Screen.PutString.
func (s *Session) PutString(text string) (int, error) {
	return s.screen.PutString(text)
}

// Text returns the displayed screen, one line per row
func (s *Session) Text() string {
	return s.screen.Text()
}

// Row returns one displayed row of the screen
func (s *Session) Row(row int) string {
	return s.screen.Row(row)
}

// Screen returns the session's screen for direct editing and inspection
func (s *Session) Screen() *Screen {
	return s.screen
}

// Terminal returns the telnet terminal of the current connection, or nil
func (s *Session) Terminal() *telnet.Terminal {
	return s.currentTerminal()
}

// Connected reports whether the session is reading from a host
func (s *Session) Connected() bool {
	return s.connected.Load()
}

// Disconnect stops the reader goroutine and closes the transport. The screen keeps
// its contents.
func (s *Session) Disconnect() error {
	s.lock.Lock()
	terminal := s.terminal
	cancel := s.cancel
	s.lock.Unlock()

	if terminal == nil {
		return ErrNotConnected
	}

	s.disconnecting.Store(true)
	cancel()

	err := terminal.Close()
	s.connected.Store(false)
	return err
}

// Wait blocks until the session ends and returns the error that ended it. A session
// ended by Disconnect returns nil, and a host that closes the connection returns io.EOF.
func (s *Session) Wait() error {
	s.lock.Lock()
	group := s.group
	s.lock.Unlock()

	if group == nil {
		return ErrNotConnected
	}

	err := group.Wait()
	if s.disconnecting.Load() {
		return nil
	}

	return err
}

// RegisterScreenUpdatedHook will register an event to be called after each record from
// the host has been applied to the screen
func (s *Session) RegisterScreenUpdatedHook(screenUpdated ScreenUpdatedHandler) {
	s.screenUpdatedHooks.Register(SessionHook[ScreenUpdate](screenUpdated))
}

// RegisterAlarmHook will register an event to be called when the host sounds the alarm
func (s *Session) RegisterAlarmHook(alarm AlarmHandler) {
	s.alarmHooks.Register(SessionHook[ScreenUpdate](alarm))
}

// RegisterEncounteredErrorHook will register an event to be called when the session
// hits an error that is not returned to a caller
func (s *Session) RegisterEncounteredErrorHook(encounteredError SessionErrorHandler) {
	s.encounteredErrorHooks.Register(SessionHook[error](encounteredError))
}
