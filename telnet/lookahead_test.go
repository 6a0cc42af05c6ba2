package telnet

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLookaheadReader(t *testing.T) {
	Convey("Given a reader over a short buffer", t, func() {
		reader := NewLookaheadReader(context.Background(), bytes.NewReader([]byte("abcdef")))

		Convey("Peeking does not consume", func() {
			peeked, err := reader.Peek(3)
			So(err, ShouldBeNil)
			So(string(peeked), ShouldEqual, "abc")

			b, err := reader.ReadByte()
			So(err, ShouldBeNil)
			So(b, ShouldEqual, 'a')

			So(reader.Discard(2), ShouldEqual, 2)

			rest := make([]byte, 10)
			n, err := reader.Read(rest)
			So(err, ShouldBeNil)
			So(string(rest[:n]), ShouldEqual, "def")
			So(reader.Buffered(), ShouldEqual, 0)
		})

		Convey("A peek past the end returns what there is", func() {
			So(reader.Discard(4), ShouldEqual, 4)

			peeked, err := reader.Peek(4)
			So(errors.Is(err, io.EOF), ShouldBeTrue)
			So(string(peeked), ShouldEqual, "ef")
			So(reader.Discard(5), ShouldEqual, 2)
		})
	})

	Convey("A peek waits for bytes that arrive in separate reads", t, func() {
		source, sink := io.Pipe()
		reader := NewLookaheadReader(context.Background(), source)

		go func() {
			_, _ = sink.Write([]byte{1})
			_, _ = sink.Write([]byte{2, 3})
			_ = sink.Close()
		}()

		peeked, err := reader.Peek(3)
		So(err, ShouldBeNil)
		So(peeked, ShouldResemble, []byte{1, 2, 3})
	})

	Convey("Cancelling the context ends a blocked peek", t, func() {
		source, sink := io.Pipe()
		defer sink.Close()

		ctx, cancel := context.WithCancel(context.Background())
		reader := NewLookaheadReader(ctx, source)

		errs := make(chan error, 1)
		go func() {
			_, err := reader.PeekByte()
			errs <- err
		}()

		cancel()

		var err error
		select {
		case err = <-errs:
		case <-time.After(time.Second):
		}

		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}
