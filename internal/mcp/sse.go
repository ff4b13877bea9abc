package mcp

import (
	"bufio"
	"io"
	"strings"
)

// maxEventSize bounds a single SSE line. Tool results can be large, so this
// is well above bufio's 64KB default.
const maxEventSize = 4 << 20

// Event is a single dispatched Server-Sent Event.
type Event struct {
	Type string
	Data string
	ID   string
}

// EventReader decodes a text/event-stream body into events.
type EventReader struct {
	scanner *bufio.Scanner
}

// NewEventReader returns an EventReader reading from r.
func NewEventReader(r io.Reader) *EventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	scanner.Split(scanLines)
	return &EventReader{scanner: scanner}
}

// Next blocks until the next event is dispatched. It returns io.EOF when the
// stream ends cleanly; an event left incomplete at end of stream is dropped.
func (r *EventReader) Next() (*Event, error) {
	var (
		eventType string
		id        string
		data      []string
		hasData   bool
	)

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if !hasData {
				eventType = ""
				continue
			}
			if eventType == "" {
				eventType = "message"
			}
			return &Event{Type: eventType, Data: strings.Join(data, "\n"), ID: id}, nil
		}

		// Comment line.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			eventType = value
		case "data":
			data = append(data, value)
			hasData = true
		case "id":
			id = value
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// scanLines splits on \n, \r\n or a lone \r as the event-stream format
// allows.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		switch b {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if atEOF {
				return i + 1, data[:i], nil
			}
			// Need more data to know whether \n follows.
			return 0, nil, nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
