package telnet

// queue is a growable FIFO that compacts in place before it reallocates
type queue[T any] struct {
	buffer     []T
	startIndex int
	endIndex   int
}

func newQueue[T any](size int) *queue[T] {
	return &queue[T]{
		buffer: make([]T, size),
	}
}

func (q *queue[T]) straighten() {
	if q.startIndex == 0 {
		return
	}

	length := q.endIndex - q.startIndex

	if length > 0 {
		copy(q.buffer[:length], q.buffer[q.startIndex:q.endIndex])
	}

	q.startIndex = 0
	q.endIndex = length
}

func (q *queue[T]) Queue(elements ...T) {
	if q.endIndex+len(elements) > len(q.buffer) {
		q.straighten()
	}

	if needed := q.endIndex + len(elements); needed*100/len(q.buffer) > 80 {
		newSize := len(q.buffer) * 2
		for needed*100/newSize > 80 {
			newSize *= 2
		}

		newBuffer := make([]T, newSize)
		copy(newBuffer, q.buffer[:q.endIndex])
		q.buffer = newBuffer
	}

	copy(q.buffer[q.endIndex:], elements)
	q.endIndex += len(elements)
}

func (q *queue[T]) Dequeue() T {
	if q.startIndex == q.endIndex {
		var zero T
		return zero
	}

	value := q.buffer[q.startIndex]
	q.startIndex++
	return value
}

func (q *queue[T]) DropElements(n int) {
	newStart := q.startIndex + n
	if newStart > q.endIndex {
		q.startIndex = q.endIndex
	} else {
		q.startIndex = newStart
	}
}

func (q *queue[T]) Buffer() []T {
	return q.buffer[q.startIndex:q.endIndex]
}

func (q *queue[T]) Len() int {
	return q.endIndex - q.startIndex
}
