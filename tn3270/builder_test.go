package tn3270

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBuilder(t *testing.T) {
	Convey("Given a screen with one input field", t, func() {
		screen, parser := newTestScreen()
		parser.ParseRecord(stream([]byte{0xF5, 0x02, 0x1D, 0x40}, sba(10), []byte{0x1D, 0x60}))
		screen.SetCursor(0)

		terminator := []byte{0xFF, 0xEF}
		builder := NewBuilder(screen, BuilderConfig{Terminator: terminator})

		Convey("Typed text is sent after an SBA to the field's first position", func() {
			placed, err := screen.PutString("AB")
			So(err, ShouldBeNil)
			So(placed, ShouldEqual, 2)

			out := builder.Build(AIDEnter)
			So(out, ShouldResemble, stream([]byte{byte(AIDEnter)}, sba(1), ebcdic("AB"), terminator))
			So(screen.LastAID(), ShouldEqual, AIDEnter)
		})

		Convey("Unmodified fields are not sent", func() {
			So(builder.Build(AIDPF3), ShouldResemble, stream([]byte{byte(AIDPF3)}, terminator))
		})

		Convey("Clear sends the AID alone and clears the screen", func() {
			_, _ = screen.PutString("AB")

			So(builder.Build(AIDClear), ShouldResemble, stream([]byte{byte(AIDClear)}, terminator))
			So(screen.Formatted(), ShouldBeFalse)
			So(screen.Rune(1), ShouldEqual, ' ')
		})

		Convey("The cursor address follows the AID when requested", func() {
			_, _ = screen.PutString("AB")

			withCursor := NewBuilder(screen, BuilderConfig{IncludeCursor: true})
			So(withCursor.Build(AIDEnter), ShouldResemble, stream([]byte{byte(AIDEnter)}, addr(3), sba(1), ebcdic("AB")))
		})

		Convey("Read modified sends nothing but the AID for short read keys", func() {
			_, _ = screen.PutString("AB")

			So(builder.BuildReadModified(AIDPA1), ShouldResemble, stream([]byte{byte(AIDPA1)}, terminator))
			So(builder.BuildReadModified(AIDEnter), ShouldResemble, stream([]byte{byte(AIDEnter)}, sba(1), ebcdic("AB"), terminator))
		})
	})

	Convey("Given an unformatted screen", t, func() {
		screen, _ := newTestScreen()
		builder := NewBuilder(screen, BuilderConfig{})

		Convey("Each run of modified positions starts with an SBA", func() {
			_, _ = screen.PutString("AB")
			screen.SetCursor(10)
			_, _ = screen.PutString("C")

			So(builder.Build(AIDEnter), ShouldResemble, stream(
				[]byte{byte(AIDEnter)},
				sba(0), ebcdic("AB"),
				sba(10), ebcdic("C"),
			))
		})
	})

	Convey("Read buffer dumps every position", t, func() {
		screen, err := NewScreen(1, 4)
		So(err, ShouldBeNil)

		parser := NewParser(screen, ParserConfig{})
		parser.ParseRecord(stream([]byte{0xF5, 0x02, 0x1D, 0x60}, ebcdic("A")))

		builder := NewBuilder(screen, BuilderConfig{})
		So(builder.BuildReadBuffer(AIDNone), ShouldResemble, []byte{
			byte(AIDNone), 0x40, 0x40,
			OrderStartField, 0x60,
			0xC1, 0x00, 0x00,
		})
	})
}
