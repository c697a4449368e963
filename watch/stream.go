package watch

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// Named events on the live channel.
const (
	eventProgress = "progress"
	eventComplete = "complete"
	eventError    = "error"
)

type streamEvent struct {
	name string
	data []byte
}

// decodeEvents reads server-sent events from r and invokes handle for each
// complete one. It returns when the stream ends, the reader fails, or handle
// returns false. Comment lines and id/retry fields are skipped; multi-line
// data fields are joined with newlines per the protocol.
func decodeEvents(r io.Reader, handle func(streamEvent) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name string
	var data bytes.Buffer

	dispatch := func() bool {
		if name == "" && data.Len() == 0 {
			return true
		}
		ev := streamEvent{name: name, data: append([]byte(nil), data.Bytes()...)}
		name = ""
		data.Reset()
		return handle(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if !dispatch() {
				return nil
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			value := strings.TrimPrefix(line, "data:")
			data.WriteString(strings.TrimPrefix(value, " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Stream ended mid-event: deliver what we have.
	dispatch()
	return nil
}
