package tn3270

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/moodclient/tn3270/telnet"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeHost is the far end of a net.Pipe. Everything the session sends is collected
// in the background so the session never blocks on a write.
type fakeHost struct {
	conn net.Conn

	lock     sync.Mutex
	received bytes.Buffer
	done     chan struct{}
}

func newFakeHost(conn net.Conn) *fakeHost {
	host := &fakeHost{
		conn: conn,
		done: make(chan struct{}),
	}

	go func() {
		defer close(host.done)

		buffer := make([]byte, 1024)
		for {
			n, err := conn.Read(buffer)
			host.lock.Lock()
			host.received.Write(buffer[:n])
			host.lock.Unlock()

			if err != nil {
				return
			}
		}
	}()

	return host
}

func (h *fakeHost) Received() []byte {
	h.lock.Lock()
	defer h.lock.Unlock()

	return bytes.Clone(h.received.Bytes())
}

// waitFor polls until the session has sent expected, and returns false on timeout
func (h *fakeHost) waitFor(expected []byte) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if bytes.Contains(h.Received(), expected) {
			return true
		}

		time.Sleep(5 * time.Millisecond)
	}

	return false
}

func (h *fakeHost) send(data ...[]byte) {
	_, err := h.conn.Write(stream(data...))
	if err != nil {
		panic(err)
	}
}

func waitForUpdate(updates <-chan ScreenUpdate) (ScreenUpdate, bool) {
	select {
	case update := <-updates:
		return update, true
	case <-time.After(2 * time.Second):
		return ScreenUpdate{}, false
	}
}

func newConnectedSession(ctx context.Context) (*Session, *fakeHost, <-chan ScreenUpdate) {
	updates := make(chan ScreenUpdate, 10)
	session, err := NewSession(SessionConfig{
		EventHooks: SessionHooks{
			ScreenUpdated: []ScreenUpdatedHandler{
				func(s *Session, update ScreenUpdate) {
					updates <- update
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}

	client, server := net.Pipe()
	host := newFakeHost(server)

	err = session.Connect(ctx, client)
	if err != nil {
		panic(err)
	}

	return session, host, updates
}

func TestSessionLifecycle(t *testing.T) {
	Convey("A session that was never connected", t, func() {
		session, err := NewSession(SessionConfig{})
		So(err, ShouldBeNil)
		So(session.Connected(), ShouldBeFalse)
		So(session.Terminal(), ShouldBeNil)
		So(errors.Is(session.SendAID(AIDEnter), ErrNotConnected), ShouldBeTrue)
		So(errors.Is(session.Disconnect(), ErrNotConnected), ShouldBeTrue)
		So(errors.Is(session.Wait(), ErrNotConnected), ShouldBeTrue)

		Convey("Still accepts local typing", func() {
			placed, err := session.PutString("hello")
			So(err, ShouldBeNil)
			So(placed, ShouldEqual, 5)
			So(session.Row(0)[:5], ShouldEqual, "hello")
		})
	})

	Convey("Sessions reject screens that do not fit the address space", t, func() {
		_, err := NewSession(SessionConfig{Rows: 100, Cols: 100})
		So(errors.Is(err, ErrScreenTooLarge), ShouldBeTrue)
	})

	Convey("Sessions reject unknown code pages", t, func() {
		_, err := NewSession(SessionConfig{CodePage: "not-a-codepage"})
		So(err, ShouldNotBeNil)
	})
}

func TestSessionExchange(t *testing.T) {
	Convey("Given a session connected to a host", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		session, host, updates := newConnectedSession(ctx)
		defer func() {
			_ = session.Disconnect()
		}()

		So(session.Connected(), ShouldBeTrue)
		So(errors.Is(session.Connect(ctx, nil), ErrAlreadyConnected), ShouldBeTrue)

		Convey("Binary and EOR are requested on both sides", func() {
			So(host.waitFor([]byte{
				telnet.IAC, telnet.WILL, 0, telnet.IAC, telnet.DO, 0,
				telnet.IAC, telnet.WILL, 25, telnet.IAC, telnet.DO, 25,
			}), ShouldBeTrue)
		})

		Convey("The terminal type is reported when the host asks", func() {
			host.send([]byte{telnet.IAC, telnet.DO, 24})
			So(host.waitFor([]byte{telnet.IAC, telnet.WILL, 24}), ShouldBeTrue)

			host.send([]byte{telnet.IAC, telnet.SB, 24, 1, telnet.IAC, telnet.SE})
			So(host.waitFor(stream(
				[]byte{telnet.IAC, telnet.SB, 24, 0},
				[]byte(DefaultTerminalType),
				[]byte{telnet.IAC, telnet.SE},
			)), ShouldBeTrue)
		})

		Convey("A record from the host is drawn and the reply carries the typed field", func() {
			host.send(
				[]byte{0xF5, 0x02, 0x1D, 0x60}, ebcdic("LOGON"),
				[]byte{0x1D, 0x40, OrderInsertCursor}, addr(7),
				[]byte{0xFF, 0xEF},
			)

			update, ok := waitForUpdate(updates)
			So(ok, ShouldBeTrue)
			So(update.Command, ShouldEqual, CommandEraseWrite)
			So(session.Row(0)[:6], ShouldEqual, " LOGON")
			So(session.Screen().Cursor(), ShouldEqual, 7)
			So(session.Screen().KeyboardLocked(), ShouldBeFalse)

			_, err := session.PutString("USER")
			So(err, ShouldBeNil)
			So(session.SendAID(AIDEnter), ShouldBeNil)

			So(host.waitFor(stream([]byte{byte(AIDEnter)}, sba(7), ebcdic("USER"), []byte{0xFF, 0xEF})), ShouldBeTrue)
			So(session.Screen().KeyboardLocked(), ShouldBeTrue)
			So(errors.Is(session.SendAID(AIDEnter), ErrKeyboardLocked), ShouldBeTrue)

			Convey("PA keys can still be sent while the keyboard is locked", func() {
				So(session.SendAID(AIDPA1), ShouldBeNil)
				So(host.waitFor(stream([]byte{byte(AIDPA1)}, sba(7), ebcdic("USER"), []byte{0xFF, 0xEF})), ShouldBeTrue)
				So(session.Screen().LastAID(), ShouldEqual, AIDPA1)
			})

			Convey("A read modified from the host is answered with the last AID", func() {
				host.send([]byte{byte(CommandReadModified), 0xFF, 0xEF})

				update, ok := waitForUpdate(updates)
				So(ok, ShouldBeTrue)
				So(update.Command, ShouldEqual, CommandReadModified)

				expected := stream([]byte{byte(AIDEnter)}, sba(7), ebcdic("USER"), []byte{0xFF, 0xEF})
				So(host.waitFor(append(append([]byte(nil), expected...), expected...)), ShouldBeTrue)
			})
		})

		Convey("Only one of several simultaneous attention keys gets through", func() {
			host.send([]byte{0xF5, 0x02, 0x1D, 0x40}, []byte{0xFF, 0xEF})
			_, ok := waitForUpdate(updates)
			So(ok, ShouldBeTrue)

			var wait sync.WaitGroup
			errs := make(chan error, 8)
			for i := 0; i < 8; i++ {
				wait.Add(1)
				go func() {
					defer wait.Done()
					errs <- session.SendAID(AIDEnter)
				}()
			}
			wait.Wait()
			close(errs)

			sent, locked := 0, 0
			for err := range errs {
				switch {
				case err == nil:
					sent++
				case errors.Is(err, ErrKeyboardLocked):
					locked++
				}
			}

			So(sent, ShouldEqual, 1)
			So(locked, ShouldEqual, 7)
		})
	})
}

func TestSessionShutdown(t *testing.T) {
	Convey("Disconnecting ends the session cleanly", t, func() {
		session, host, updates := newConnectedSession(context.Background())

		host.send([]byte{0xF5, 0x02}, ebcdic("HI"), []byte{0xFF, 0xEF})
		_, ok := waitForUpdate(updates)
		So(ok, ShouldBeTrue)

		So(session.Disconnect(), ShouldBeNil)
		So(session.Wait(), ShouldBeNil)
		So(session.Connected(), ShouldBeFalse)
		So(session.Row(0)[:2], ShouldEqual, "HI")
		So(errors.Is(session.SendAID(AIDEnter), ErrNotConnected), ShouldBeTrue)
	})

	Convey("A host that hangs up ends the session with EOF", t, func() {
		session, host, _ := newConnectedSession(context.Background())

		So(host.conn.Close(), ShouldBeNil)
		So(errors.Is(session.Wait(), io.EOF), ShouldBeTrue)
		So(session.Connected(), ShouldBeFalse)
	})

	Convey("Cancelling the context ends the session", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		session, _, _ := newConnectedSession(ctx)

		cancel()
		So(session.Wait(), ShouldBeNil)
	})
}
