package telnet

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestQueue(t *testing.T) {
	Convey("A queue grows past its initial capacity", t, func() {
		q := newQueue[byte](4)

		for i := 0; i < 100; i++ {
			q.Queue(byte(i))
		}
		So(q.Len(), ShouldEqual, 100)

		for i := 0; i < 10; i++ {
			So(q.Dequeue(), ShouldEqual, byte(i))
		}

		q.DropElements(89)
		So(q.Buffer(), ShouldResemble, []byte{99})

		q.DropElements(5)
		So(q.Len(), ShouldEqual, 0)
		So(q.Dequeue(), ShouldEqual, byte(0))
	})

	Convey("A queue compacts instead of growing when the front is free", t, func() {
		q := newQueue[byte](8)
		q.Queue(1, 2, 3, 4, 5)
		q.DropElements(4)
		q.Queue(6, 7, 8, 9)

		So(q.Buffer(), ShouldResemble, []byte{5, 6, 7, 8, 9})
	})
}
