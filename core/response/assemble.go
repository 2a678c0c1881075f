package response

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Fallback replaces an assembled reply that carries no text.
const Fallback = "I apologize, but I couldn't generate a response. Please try again."

const (
	dataPrefix     = "data:"
	paragraphBreak = "\n\n"
	maxRecordBytes = 4 << 20
)

// RawEvents is the undecoded body returned by the agent runtime. Streaming
// marks a line-delimited event stream rather than one aggregate document.
type RawEvents struct {
	Data      []byte
	Streaming bool
}

// Assemble turns raw runtime output into the reply shown to the user.
// Identical input always yields identical output.
func Assemble(raw RawEvents) string {
	if raw.Streaming {
		return AssembleStream(bytes.NewReader(raw.Data))
	}
	return AssembleAggregate(raw.Data)
}

// AssembleStream joins the text of every record in an event stream with a
// paragraph break between records. Lines that do not start with "data:"
// are ignored and records that fail to decode are skipped.
func AssembleStream(r io.Reader) string {
	return finish(strings.Join(StreamFragments(r), paragraphBreak))
}

// StreamFragments returns one fragment per text-bearing record, in arrival
// order. Records longer than maxRecordBytes are skipped like malformed ones.
// A read failure ends the scan and keeps the fragments read so far.
func StreamFragments(r io.Reader) []string {
	br := bufio.NewReaderSize(r, 64*1024)

	var fragments []string
	for {
		line, ok, err := readRecord(br)
		if ok {
			if text, found := recordText(line); found {
				fragments = append(fragments, text)
			}
		}
		if err != nil {
			return fragments
		}
	}
}

// readRecord reads one line. ok is false when the line exceeded
// maxRecordBytes; the rest of it is consumed so the next call starts on
// the following line.
func readRecord(br *bufio.Reader) (line []byte, ok bool, err error) {
	ok = true
	for {
		chunk, err := br.ReadSlice('\n')
		if ok && len(line)+len(chunk) > maxRecordBytes {
			ok, line = false, nil
		}
		if ok {
			line = append(line, chunk...)
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return line, ok, err
		}
	}
}

func recordText(line []byte) (string, bool) {
	trimmed := strings.TrimSpace(string(line))
	if !strings.HasPrefix(trimmed, dataPrefix) {
		return "", false
	}

	payload := strings.TrimSpace(strings.TrimPrefix(trimmed, dataPrefix))
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return "", false
	}
	if !event.HasText() {
		return "", false
	}
	return event.Text(), true
}

type aggregateRecord struct {
	Content  *Content `json:"content"`
	Response *string  `json:"response"`
}

// AssembleAggregate concatenates the text of a single JSON document that
// holds either one event or a list of events. An object without content
// text falls back to its top-level "response" string. A body that is not
// JSON but looks like an event stream is assembled as one.
func AssembleAggregate(data []byte) string {
	trimmed := bytes.TrimSpace(data)

	var b strings.Builder
	switch {
	case len(trimmed) == 0:
	case trimmed[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			break
		}
		for _, item := range items {
			var rec aggregateRecord
			if err := json.Unmarshal(item, &rec); err != nil {
				continue
			}
			b.WriteString(Event{Content: rec.Content}.Text())
		}
	case trimmed[0] == '{':
		var rec aggregateRecord
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			break
		}
		text := Event{Content: rec.Content}.Text()
		if text == "" && rec.Response != nil {
			text = *rec.Response
		}
		b.WriteString(text)
	case bytes.HasPrefix(trimmed, []byte(dataPrefix)):
		return AssembleStream(bytes.NewReader(trimmed))
	}

	return finish(b.String())
}

func finish(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback
	}
	return text
}
