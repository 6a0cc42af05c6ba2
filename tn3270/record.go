package tn3270

import (
	"bufio"
	"bytes"
	"context"
	"io"
)

// endOfRecord is IAC EOR. The telnet layer passes it upward as data because EOR is not
// one of the commands it consumes.
var endOfRecord = []byte{0xFF, 0xEF}

// maxRecordSize bounds a single record. The largest 3270 write, a full 4096 position
// buffer with an order before each position, fits comfortably.
const maxRecordSize = 64 * 1024

// ScanRecords is a bufio.SplitFunc that returns one 3270 record per token, with the
// IAC EOR marker removed. A partial record at EOF is returned as a final token.
func ScanRecords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil
	}

	markerIndex := bytes.Index(data, endOfRecord)
	if markerIndex >= 0 {
		return markerIndex + len(endOfRecord), data[:markerIndex], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	// Wait for the rest of the record
	return 0, nil, nil
}

// RecordScanner reads 3270 records from the unwrapped telnet stream
type RecordScanner struct {
	scanner    *bufio.Scanner
	scanResult chan bool
	err        error
}

func NewRecordScanner(input io.Reader) *RecordScanner {
	scan := bufio.NewScanner(input)
	scan.Buffer(make([]byte, 0, 4096), maxRecordSize)
	scan.Split(ScanRecords)

	return &RecordScanner{
		scanner:    scan,
		scanResult: make(chan bool, 1),
	}
}

// Record returns the most recent record. The slice is only valid until the next Scan.
func (s *RecordScanner) Record() []byte {
	return s.scanner.Bytes()
}

func (s *RecordScanner) Err() error {
	if s.err != nil {
		return s.err
	}

	return s.scanner.Err()
}

// Scan advances to the next record. It returns false when the input ends, fails, or ctx
// is cancelled.
func (s *RecordScanner) Scan(ctx context.Context) bool {
	go func() {
		s.scanResult <- s.scanner.Scan()
	}()

	select {
	case result := <-s.scanResult:
		return result
	case <-ctx.Done():
		s.err = ctx.Err()
		return false
	}
}
