package telnet

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type outputBuffer struct {
	lock   sync.Mutex
	buffer bytes.Buffer
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.buffer.Write(p)
}

func (b *outputBuffer) Bytes() []byte {
	b.lock.Lock()
	defer b.lock.Unlock()

	return bytes.Clone(b.buffer.Bytes())
}

func newTestTerminal(input []byte, config TerminalConfig) (*Terminal, *outputBuffer) {
	output := &outputBuffer{}
	terminal, err := NewTerminalFromPipes(context.Background(), bytes.NewReader(input), output, config)
	So(err, ShouldBeNil)

	Reset(func() {
		_ = terminal.Close()
	})

	return terminal, output
}

func readAll(terminal *Terminal) []byte {
	data, err := io.ReadAll(terminal)
	So(err, ShouldBeNil)

	return data
}

func TestNegotiationRepliesOnce(t *testing.T) {
	tests := []struct {
		name   string
		usage  TelOptUsage
		input  []byte
		output []byte
	}{
		{
			name:   "A repeated DO",
			usage:  TelOptAllowLocal,
			input:  []byte{IAC, DO, 24, IAC, DO, 24},
			output: []byte{IAC, WILL, 24},
		},
		{
			name:   "A repeated WILL",
			usage:  TelOptAllowRemote,
			input:  []byte{IAC, WILL, 3, IAC, WILL, 3},
			output: []byte{IAC, DO, 3},
		},
		{
			name:   "A repeated refused DO",
			usage:  0,
			input:  []byte{IAC, DO, 24, IAC, DO, 24},
			output: []byte{IAC, WONT, 24},
		},
		{
			name:   "A repeated refused WILL",
			usage:  TelOptAllowLocal,
			input:  []byte{IAC, WILL, 24, IAC, WILL, 24},
			output: []byte{IAC, DONT, 24},
		},
	}

	Convey("Negotiation is answered once", t, func() {
		for _, tt := range tests {
			Convey(tt.name, func() {
				terminal, output := newTestTerminal(tt.input, TerminalConfig{
					TelOpts: []TelOptPolicy{{Code: 24, Name: "TTYPE", Usage: tt.usage}, {Code: 3, Usage: tt.usage}},
				})

				readAll(terminal)
				So(output.Bytes(), ShouldResemble, tt.output)
			})
		}
	})
}

func TestRefusals(t *testing.T) {
	Convey("Options that are not allowed locally are refused", t, func() {
		for _, code := range []byte{0, 1, 24, 200} {
			terminal, output := newTestTerminal([]byte{IAC, DO, code}, TerminalConfig{
				TelOpts: []TelOptPolicy{{Code: TelOptCode(code), Usage: TelOptAllowRemote}},
			})

			readAll(terminal)
			So(output.Bytes(), ShouldResemble, []byte{IAC, WONT, code})

			state := terminal.OptionState(TelOptCode(code))
			So(state.SentWill, ShouldBeFalse)
			So(state.ReceivedDo, ShouldBeTrue)
		}
	})

	Convey("Unregistered options are refused", t, func() {
		terminal, output := newTestTerminal([]byte{IAC, DO, 42, IAC, WILL, 43}, TerminalConfig{})

		readAll(terminal)
		So(output.Bytes(), ShouldResemble, []byte{IAC, WONT, 42, IAC, DONT, 43})
	})

	Convey("DONT deactivates an option once", t, func() {
		terminal, output := newTestTerminal([]byte{IAC, DO, 25, IAC, DONT, 25, IAC, DONT, 25}, TerminalConfig{
			TelOpts: []TelOptPolicy{{Code: 25, Usage: TelOptAllowLocal}},
		})

		readAll(terminal)
		So(output.Bytes(), ShouldResemble, []byte{IAC, WILL, 25, IAC, WONT, 25})
		So(terminal.OptionState(25), ShouldResemble, OptionState{})
	})

	Convey("A refusal of our own request is not answered", t, func() {
		terminal, output := newTestTerminal([]byte{IAC, WONT, 25}, TerminalConfig{
			TelOpts: []TelOptPolicy{{Code: 25, Usage: TelOptRequestRemote}},
		})

		readAll(terminal)
		So(output.Bytes(), ShouldResemble, []byte{IAC, DO, 25})
		So(terminal.OptionState(25).Remote(), ShouldEqual, TelOptInactive)
	})
}

func TestStartupRequests(t *testing.T) {
	Convey("Startup requests are sent in policy order", t, func() {
		terminal, output := newTestTerminal(nil, TerminalConfig{
			TelOpts: []TelOptPolicy{
				{Code: 0, Usage: TelOptEverywhere},
				{Code: 25, Usage: TelOptRequestRemote},
				{Code: 31, Usage: TelOptAllowLocal},
			},
		})

		So(output.Bytes(), ShouldResemble, []byte{IAC, WILL, 0, IAC, DO, 0, IAC, DO, 25})

		state := terminal.OptionState(0)
		So(state.Local(), ShouldEqual, TelOptRequested)
		So(state.Remote(), ShouldEqual, TelOptRequested)

		Convey("Requests still waiting for an answer are not sent again", func() {
			So(terminal.RequestWill(0), ShouldBeNil)
			So(terminal.RequestDo(0), ShouldBeNil)
			So(terminal.RequestDo(25), ShouldBeNil)

			So(output.Bytes(), ShouldResemble, []byte{IAC, WILL, 0, IAC, DO, 0, IAC, DO, 25})
		})

		Convey("A new request is sent for an option nobody asked for", func() {
			So(terminal.RequestWill(31), ShouldBeNil)
			So(terminal.RequestWill(31), ShouldBeNil)

			So(output.Bytes(), ShouldResemble, []byte{IAC, WILL, 0, IAC, DO, 0, IAC, DO, 25, IAC, WILL, 31})
		})
	})

	Convey("The answer to our own request is not acknowledged again", t, func() {
		terminal, output := newTestTerminal([]byte{IAC, DO, 25, IAC, WILL, 25}, TerminalConfig{
			TelOpts: []TelOptPolicy{{Code: 25, Usage: TelOptEverywhere}},
		})

		readAll(terminal)
		So(output.Bytes(), ShouldResemble, []byte{IAC, WILL, 25, IAC, DO, 25})

		state := terminal.OptionState(25)
		So(state.Local(), ShouldEqual, TelOptActive)
		So(state.Remote(), ShouldEqual, TelOptActive)

		Convey("Requesting an active option sends nothing", func() {
			So(terminal.RequestWill(25), ShouldBeNil)
			So(terminal.RequestDo(25), ShouldBeNil)
			So(output.Bytes(), ShouldResemble, []byte{IAC, WILL, 25, IAC, DO, 25})
		})
	})

	Convey("An option refused by the remote can be requested again", t, func() {
		terminal, output := newTestTerminal([]byte{IAC, DONT, 25}, TerminalConfig{
			TelOpts: []TelOptPolicy{{Code: 25, Usage: TelOptRequestLocal}},
		})

		readAll(terminal)
		So(terminal.RequestWill(25), ShouldBeNil)
		So(output.Bytes(), ShouldResemble, []byte{IAC, WILL, 25, IAC, WILL, 25})
	})
}

func TestSubnegotiation(t *testing.T) {
	Convey("Subnegotiation on an active option is answered", t, func() {
		policy := TelOptPolicy{
			Code:  24,
			Usage: TelOptAllowLocal,
			Subnegotiate: func(payload []byte) []byte {
				return append([]byte{0}, payload[1:]...)
			},
		}

		input := []byte{IAC, DO, 24, IAC, SB, 24, 1, IAC, IAC, IAC, SE}
		terminal, output := newTestTerminal(input, TerminalConfig{TelOpts: []TelOptPolicy{policy}})

		So(readAll(terminal), ShouldBeEmpty)
		So(output.Bytes(), ShouldResemble, []byte{IAC, WILL, 24, IAC, SB, 24, 0, IAC, IAC, IAC, SE})
	})

	Convey("Subnegotiation on an inactive option is ignored", t, func() {
		called := false
		policy := TelOptPolicy{
			Code:  24,
			Usage: TelOptAllowLocal,
			Subnegotiate: func(payload []byte) []byte {
				called = true
				return []byte{1}
			},
		}

		terminal, output := newTestTerminal([]byte{IAC, SB, 24, 1, IAC, SE, 'z'}, TerminalConfig{TelOpts: []TelOptPolicy{policy}})

		So(readAll(terminal), ShouldResemble, []byte("z"))
		So(called, ShouldBeFalse)
		So(output.Bytes(), ShouldBeEmpty)
	})

	Convey("Activation can send a subnegotiation", t, func() {
		policy := TelOptPolicy{
			Code:  31,
			Usage: TelOptAllowLocal,
			Activated: func(side TelOptSide) []byte {
				if side != TelOptSideLocal {
					return nil
				}

				return []byte{0, 80, 0, 24}
			},
		}

		terminal, output := newTestTerminal([]byte{IAC, DO, 31}, TerminalConfig{TelOpts: []TelOptPolicy{policy}})
		readAll(terminal)

		So(output.Bytes(), ShouldResemble, []byte{IAC, WILL, 31, IAC, SB, 31, 0, 80, 0, 24, IAC, SE})
	})
}

func TestInputFraming(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{"Plain data", []byte("hello"), []byte("hello")},
		{"A doubled IAC", []byte{'a', IAC, IAC, 'b'}, []byte{'a', IAC, 'b'}},
		{"Negotiation", []byte{'a', IAC, WONT, 99, 'b'}, []byte("ab")},
		{"Single byte commands", []byte{'a', IAC, NOP, IAC, GA, IAC, AYT, 'b'}, []byte("ab")},
		{"Subnegotiation", []byte{'a', IAC, SB, 99, 1, 2, IAC, SE, 'b'}, []byte("ab")},
		{"A record marker", []byte{0xF5, 0xC3, IAC, EOR, 0xF1}, []byte{0xF5, 0xC3, IAC, EOR, 0xF1}},
		{"An unrecognized byte after IAC", []byte{IAC, ABORT}, []byte{IAC, ABORT}},
		{"A trailing IAC", []byte{'a', IAC}, []byte{'a', IAC}},
	}

	Convey("Reading strips telnet commands from the data", t, func() {
		for _, tt := range tests {
			Convey(tt.name, func() {
				terminal, _ := newTestTerminal(tt.input, TerminalConfig{})
				So(readAll(terminal), ShouldResemble, tt.want)
			})
		}
	})
}

func TestInboundCommandHook(t *testing.T) {
	Convey("Every inbound command reaches the hook", t, func() {
		commands := make(chan Command, 4)
		config := TerminalConfig{
			EventHooks: EventHooks{
				InboundCommand: []CommandHandler{func(_ *Terminal, c Command) { commands <- c }},
			},
		}

		terminal, _ := newTestTerminal([]byte{IAC, AYT, IAC, SB, 5, 9, IAC, IAC, IAC, SE}, config)
		readAll(terminal)

		for _, want := range []Command{{OpCode: AYT}, {OpCode: SB, Option: 5, Subnegotiation: []byte{9, IAC}}} {
			var got Command
			select {
			case got = <-commands:
			case <-time.After(time.Second):
			}

			So(got.OpCode, ShouldEqual, want.OpCode)
			So(got.Option, ShouldEqual, want.Option)
			So(bytes.Equal(got.Subnegotiation, want.Subnegotiation), ShouldBeTrue)
		}
	})
}

func TestWriting(t *testing.T) {
	Convey("Written data has IAC doubled and records end with IAC EOR", t, func() {
		terminal, output := newTestTerminal(nil, TerminalConfig{})

		_, err := terminal.Write([]byte{1, IAC, 2})
		So(err, ShouldBeNil)
		So(terminal.WriteRecord([]byte{IAC}), ShouldBeNil)

		So(output.Bytes(), ShouldResemble, []byte{1, IAC, IAC, 2, IAC, IAC, IAC, EOR})
	})
}

func TestTerminalLifecycle(t *testing.T) {
	Convey("A telopt may only be registered once", t, func() {
		_, err := NewTerminalFromPipes(context.Background(), bytes.NewReader(nil), io.Discard, TerminalConfig{
			TelOpts: []TelOptPolicy{{Code: 24}, {Code: 24}},
		})
		So(err, ShouldNotBeNil)
	})

	Convey("Close unblocks a pending Read", t, func() {
		reader, writer := io.Pipe()
		defer writer.Close()

		terminal, err := NewTerminalFromPipes(context.Background(), reader, io.Discard, TerminalConfig{})
		So(err, ShouldBeNil)

		errs := make(chan error, 1)
		go func() {
			_, err := terminal.Read(make([]byte, 16))
			errs <- err
		}()

		_ = terminal.Close()

		var readErr error
		select {
		case readErr = <-errs:
		case <-time.After(time.Second):
		}
		So(readErr, ShouldNotBeNil)

		closed := false
		select {
		case <-terminal.Done():
			closed = true
		default:
		}
		So(closed, ShouldBeTrue)
	})
}

func TestCommandString(t *testing.T) {
	Convey("Commands are described with option names", t, func() {
		terminal, _ := newTestTerminal(nil, TerminalConfig{
			TelOpts: []TelOptPolicy{{
				Code: 24,
				Name: "TTYPE",
				SubnegotiationString: func(payload []byte) string {
					return "SEND"
				},
			}},
		})

		So(terminal.CommandString(Command{OpCode: NOP}), ShouldEqual, "IAC NOP")
		So(terminal.CommandString(Command{OpCode: DO, Option: 24}), ShouldEqual, "IAC DO TTYPE")
		So(terminal.CommandString(Command{OpCode: WILL, Option: 7}), ShouldEqual, "IAC WILL ? Unknown Option 7?")
		So(terminal.CommandString(Command{OpCode: SB, Option: 24, Subnegotiation: []byte{1}}), ShouldEqual, "IAC SB TTYPE SEND IAC SE")
	})
}
