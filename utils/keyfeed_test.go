package utils

import (
	"context"
	"strings"
	"testing"

	"github.com/moodclient/tn3270/tn3270"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKeyDecoder(t *testing.T) {
	Convey("Decoding keyboard input", t, func() {
		decoder := NewKeyDecoder()

		Convey("Characters are merged into one typing action", func() {
			So(decoder.Decode([]byte("logon")), ShouldResemble, []KeyEvent{
				{Action: ActionType, Text: "logon"},
			})
		})

		Convey("Control keys map to 3270 keys", func() {
			So(decoder.Decode([]byte("ab\tc\r")), ShouldResemble, []KeyEvent{
				{Action: ActionType, Text: "ab"},
				{Action: ActionTab},
				{Action: ActionType, Text: "c"},
				{Action: ActionAID, AID: tn3270.AIDEnter},
			})

			So(decoder.Decode([]byte{0x7F, 0x05, 0x0C, 0x12, 0x03}), ShouldResemble, []KeyEvent{
				{Action: ActionBackspace},
				{Action: ActionEraseEOF},
				{Action: ActionAID, AID: tn3270.AIDClear},
				{Action: ActionReset},
				{Action: ActionQuit},
			})
		})

		Convey("Cursor keys and function keys are decoded from escape sequences", func() {
			So(decoder.Decode([]byte("\x1b[A\x1b[D\x1b[Z\x1b[3~\x1b[24~")), ShouldResemble, []KeyEvent{
				{Action: ActionUp},
				{Action: ActionLeft},
				{Action: ActionBackTab},
				{Action: ActionDelete},
				{Action: ActionAID, AID: tn3270.AIDPF12},
			})
		})

		Convey("F1 through F4 arrive as SS3 sequences", func() {
			So(decoder.Decode([]byte("\x1bOP\x1bOS")), ShouldResemble, []KeyEvent{
				{Action: ActionAID, AID: tn3270.AIDPF1},
				{Action: ActionAID, AID: tn3270.AIDPF4},
			})

			Convey("But a plain P is still typed", func() {
				So(decoder.Decode([]byte("P")), ShouldResemble, []KeyEvent{
					{Action: ActionType, Text: "P"},
				})
			})
		})

		Convey("A sequence split across reads completes on the second read", func() {
			So(decoder.Decode([]byte("\x1b[1")), ShouldBeEmpty)
			So(decoder.Decode([]byte("5~")), ShouldResemble, []KeyEvent{
				{Action: ActionAID, AID: tn3270.AIDPF5},
			})

			So(decoder.Decode([]byte{0x1b}), ShouldBeEmpty)
			So(decoder.Decode([]byte("OQx")), ShouldResemble, []KeyEvent{
				{Action: ActionAID, AID: tn3270.AIDPF2},
				{Action: ActionType, Text: "x"},
			})
		})

		Convey("A stray escape does not swallow the sequence after it", func() {
			So(decoder.Decode([]byte("\x1b\x1b[B")), ShouldResemble, []KeyEvent{
				{Action: ActionDown},
			})
		})

		Convey("Multibyte characters are typed whole", func() {
			So(decoder.Decode([]byte("né")), ShouldResemble, []KeyEvent{
				{Action: ActionType, Text: "né"},
			})
		})
	})
}

func TestApplyKey(t *testing.T) {
	Convey("Given a session that is not connected", t, func() {
		session, err := tn3270.NewSession(tn3270.SessionConfig{})
		So(err, ShouldBeNil)

		Convey("Typing and editing change the screen", func() {
			So(ApplyKey(session, KeyEvent{Action: ActionType, Text: "abc"}), ShouldBeNil)
			So(ApplyKey(session, KeyEvent{Action: ActionBackspace}), ShouldBeNil)
			So(session.Row(0)[:3], ShouldEqual, "ab ")

			So(ApplyKey(session, KeyEvent{Action: ActionDown}), ShouldBeNil)
			So(session.Screen().Cursor(), ShouldEqual, 82)
		})

		Convey("Attention keys report the missing connection", func() {
			err := ApplyKey(session, KeyEvent{Action: ActionAID, AID: tn3270.AIDEnter})
			So(err, ShouldEqual, tn3270.ErrNotConnected)
		})

		Convey("Reset unlocks the keyboard and leaves insert mode", func() {
			session.Screen().SetKeyboardLocked(true)
			So(ApplyKey(session, KeyEvent{Action: ActionInsert}), ShouldBeNil)
			So(session.Screen().InsertMode(), ShouldBeTrue)

			So(ApplyKey(session, KeyEvent{Action: ActionReset}), ShouldBeNil)
			So(session.Screen().KeyboardLocked(), ShouldBeFalse)
			So(session.Screen().InsertMode(), ShouldBeFalse)
		})
	})
}

func TestKeyFeed(t *testing.T) {
	Convey("Feeding keys until the operator quits", t, func() {
		session, err := tn3270.NewSession(tn3270.SessionConfig{})
		So(err, ShouldBeNil)

		changes := 0
		feed, err := NewKeyFeed(session, strings.NewReader("hi\r\x03ignored"), func() {
			changes++
		})
		So(err, ShouldBeNil)
		defer feed.Close()

		So(feed.FeedLoop(context.Background()), ShouldBeNil)
		So(session.Row(0)[:2], ShouldEqual, "hi")
		So(session.Row(0)[2:9], ShouldEqual, "       ")
		So(changes, ShouldEqual, 0)
	})

	Convey("Feeding keys until the input ends", t, func() {
		session, err := tn3270.NewSession(tn3270.SessionConfig{})
		So(err, ShouldBeNil)

		changes := 0
		feed, err := NewKeyFeed(session, strings.NewReader("hi"), func() {
			changes++
		})
		So(err, ShouldBeNil)
		defer feed.Close()

		So(feed.FeedLoop(context.Background()), ShouldBeNil)
		So(session.Row(0)[:2], ShouldEqual, "hi")
		So(changes, ShouldEqual, 1)
	})
}
