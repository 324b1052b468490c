package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/set-night/mindchat/internal/domain"
)

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// Sink receives the events of a turn in order.
type Sink interface {
	Send(ev domain.Event) error
}

// SetHeaders prepares an HTTP response for an event stream.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Writer frames events as server-sent event records.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
	closed  bool
}

func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

func (w *Writer) Send(ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.EventType(), err)
	}
	return w.WriteRecord(data)
}

// WriteRecord writes one pre-encoded record.
func (w *Writer) WriteRecord(data []byte) error {
	if w.closed {
		return errors.New("write record: stream closed")
	}
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.flush()
	return nil
}

// Close terminates the stream with the [DONE] marker. It is safe to call twice.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if _, err := w.w.Write([]byte("data: [DONE]\n\n")); err != nil {
		return fmt.Errorf("write done: %w", err)
	}
	w.flush()
	return nil
}

func (w *Writer) flush() {
	if w.flusher != nil {
		w.flusher.Flush()
	}
}

// Reader decodes records written by Writer, independent of read boundaries.
type Reader struct {
	r    *bufio.Reader
	done bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadRecord returns the payload of the next record, or io.EOF after [DONE]
// or at the end of input.
func (r *Reader) ReadRecord() ([]byte, error) {
	if r.done {
		return nil, io.EOF
	}

	var data []byte
	for {
		line, err := r.r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		eof := errors.Is(err, io.EOF)

		line = bytes.TrimRight(line, "\r\n")
		switch {
		case len(line) == 0:
			if data != nil {
				return r.finish(data)
			}
		case bytes.HasPrefix(line, dataPrefix):
			payload := bytes.TrimPrefix(line[len(dataPrefix):], []byte(" "))
			if data != nil {
				data = append(data, '\n')
			}
			data = append(data, payload...)
		}

		if eof {
			if data != nil {
				return r.finish(data)
			}
			r.done = true
			return nil, io.EOF
		}
	}
}

func (r *Reader) finish(data []byte) ([]byte, error) {
	if bytes.Equal(data, doneMarker) {
		r.done = true
		return nil, io.EOF
	}
	return data, nil
}

// Next decodes the next event.
func (r *Reader) Next() (domain.Event, error) {
	data, err := r.ReadRecord()
	if err != nil {
		return nil, err
	}
	return domain.DecodeEvent(data)
}

// ReadAll decodes events until the end of the stream.
func ReadAll(rd io.Reader) ([]domain.Event, error) {
	r := NewReader(rd)
	var events []domain.Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}
