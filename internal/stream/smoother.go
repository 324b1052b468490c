package stream

import (
	"context"
	"regexp"
	"strings"
	"time"
)

var wordChunk = regexp.MustCompile(`^\s*\S+\s+`)

// Smoother regroups model deltas into whole words followed by their trailing whitespace.
type Smoother struct {
	buf strings.Builder
}

// Push buffers delta and returns the complete word chunks now available.
func (s *Smoother) Push(delta string) []string {
	s.buf.WriteString(delta)
	pending := s.buf.String()

	var out []string
	for {
		loc := wordChunk.FindStringIndex(pending)
		if loc == nil {
			break
		}
		out = append(out, pending[:loc[1]])
		pending = pending[loc[1]:]
	}

	s.buf.Reset()
	s.buf.WriteString(pending)
	return out
}

// Flush returns whatever is left in the buffer.
func (s *Smoother) Flush() string {
	rest := s.buf.String()
	s.buf.Reset()
	return rest
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
