package llm

import (
	"bufio"
	"io"
	"strings"
)

// maxEventSize bounds a single SSE data line; response.completed events
// repeat the full output.
const maxEventSize = 1 << 20

// serverSentEventScanner reads Server-Sent Events from a stream.
type serverSentEventScanner struct {
	scanner *bufio.Scanner
	data    string
}

// newServerSentEventScanner creates a new SSE scanner.
func newServerSentEventScanner(r io.Reader) *serverSentEventScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxEventSize)
	return &serverSentEventScanner{scanner: sc}
}

// Next advances to the next data payload, skipping event names, comments
// and blank separators.
func (s *serverSentEventScanner) Next() bool {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			s.data = strings.TrimPrefix(data, " ")
			return true
		}
	}
	return false
}

// Data returns the last data payload.
func (s *serverSentEventScanner) Data() string {
	return s.data
}

// Err returns the first non-EOF read error.
func (s *serverSentEventScanner) Err() error {
	return s.scanner.Err()
}
