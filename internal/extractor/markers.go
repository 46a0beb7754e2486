package extractor

import "strings"

const (
	beginMarker = "BEGIN_JSON_DATA"
	endMarker   = "END_JSON_DATA"

	// infoPrefix tags stderr lines that are logs rather than errors.
	infoPrefix = "INFO:"
)

type collectorState int

const (
	stateOutside collectorState = iota
	stateCollecting
)

// payloadCollector assembles the marker-delimited payload block out of a
// line sequence. Lines outside the markers are ignored, so the tool is free
// to print incidental output around the block. A second begin marker
// restarts collection; the last completed block wins.
type payloadCollector struct {
	state   collectorState
	lines   []string
	payload string
	closed  bool
}

func (c *payloadCollector) consume(line string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == beginMarker:
		c.state = stateCollecting
		c.lines = c.lines[:0]
	case trimmed == endMarker:
		if c.state == stateCollecting {
			c.payload = strings.Join(c.lines, "")
			c.closed = true
		}
		c.state = stateOutside
	case c.state == stateCollecting && trimmed != "":
		c.lines = append(c.lines, trimmed)
	}
}

// result returns the captured payload and whether a complete block was seen.
func (c *payloadCollector) result() (string, bool) {
	return c.payload, c.closed
}

// stderrSink partitions stderr lines: informational lines are forwarded to
// logf, everything else accumulates as error text.
type stderrSink struct {
	logf   func(format string, args ...any)
	errors strings.Builder
}

func (s *stderrSink) consume(line string) {
	if strings.HasPrefix(line, infoPrefix) {
		if s.logf != nil {
			s.logf("extractor: %s", strings.TrimSpace(line))
		}
		return
	}
	if strings.TrimSpace(line) == "" {
		return
	}
	s.errors.WriteString(line)
	s.errors.WriteString("\n")
}

func (s *stderrSink) errorText() string {
	return strings.TrimSpace(s.errors.String())
}
