package process

import (
	"bufio"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

// LogEvent is one structured record surfaced to the UI/log viewer, decoded
// from either a Log4J XML <log4j:Event> frame or passed through as a plain
// line when the game has no logging config (pre-1.7 versions).
type LogEvent struct {
	Logger    string
	Thread    string
	Level     string
	Message   string
	TimeMS    int64
	Plain     bool // true when this carries an unparsed raw line
	RawLine   string
}

// FormattedTime renders the event's timestamp for display, matching the
// upstream log viewer's HH:MM:SS formatting.
func (e LogEvent) FormattedTime() string {
	if e.TimeMS == 0 {
		return ""
	}
	return time.UnixMilli(e.TimeMS).Local().Format("15:04:05")
}

type log4jEvent struct {
	XMLName xml.Name `xml:"Event"`
	Logger  string   `xml:"logger,attr"`
	Timestamp string `xml:"timestamp,attr"`
	Level   string   `xml:"level,attr"`
	Thread  string   `xml:"thread,attr"`
	Message struct {
		Text string `xml:",chardata"`
	} `xml:"Message"`
}

// LogReader accumulates a game process's stdout into discrete LogEvents.
// It mirrors the upstream reader's framing: lines are buffered until a
// closing "</log4j:Event>" tag is seen, the "log4j:" namespace prefix is
// stripped before decoding (Go's xml package does not resolve it the way
// the original's hand-rolled scanner expected), and a frame that still
// fails to parse is retried once with non-ASCII bytes replaced before
// falling back to a plain passthrough line. Only the first such failure is
// logged; subsequent ones are suppressed to avoid flooding the console.
type LogReader struct {
	scanner         *bufio.Scanner
	pending         strings.Builder
	inEvent         bool
	warnedOnFailure bool
	OnDiagnostic    func(error)
}

func NewLogReader(r io.Reader) *LogReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &LogReader{scanner: s}
}

// Next returns the next decoded event, or (nil, io.EOF) when the stream
// ends. Malformed frames never produce an error: they degrade to a plain
// LogEvent instead of aborting the read loop, matching §4.I's "a single bad
// frame must not kill the reader" requirement. A failure of the underlying
// stream (including a line longer than 1 MiB) is returned as a
// *qerrors.ReadError.
func (r *LogReader) Next() (*LogEvent, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()

		if !r.inEvent {
			if strings.Contains(line, "<log4j:Event") {
				r.inEvent = true
				r.pending.Reset()
				r.pending.WriteString(stripLog4jPrefix(line))
				r.pending.WriteString("\n")
				if strings.Contains(line, "</log4j:Event>") {
					return r.finishEvent()
				}
				continue
			}
			return &LogEvent{Plain: true, RawLine: line}, nil
		}

		r.pending.WriteString(stripLog4jPrefix(line))
		r.pending.WriteString("\n")
		if strings.Contains(line, "</log4j:Event>") {
			return r.finishEvent()
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, &qerrors.ReadError{Io: &qerrors.Io{Path: "<process stdout>", Cause: err}}
	}
	return nil, io.EOF
}

func (r *LogReader) finishEvent() (*LogEvent, error) {
	r.inEvent = false
	frame := r.pending.String()
	r.pending.Reset()

	ev, err := decodeLog4jFrame(frame)
	if err == nil {
		return ev, nil
	}

	ev, err2 := decodeLog4jFrame(asciiTransliterate(frame))
	if err2 == nil {
		return ev, nil
	}

	if !r.warnedOnFailure {
		r.warnedOnFailure = true
		if r.OnDiagnostic != nil {
			r.OnDiagnostic(&qerrors.ReadError{Json: &qerrors.Json{Text: frame, Cause: err}})
		}
	}
	return &LogEvent{Plain: true, RawLine: strings.TrimSpace(frame)}, nil
}

func stripLog4jPrefix(line string) string {
	return strings.ReplaceAll(line, "log4j:", "")
}

func decodeLog4jFrame(frame string) (*LogEvent, error) {
	var ev log4jEvent
	if err := xml.Unmarshal([]byte(frame), &ev); err != nil {
		return nil, err
	}
	ms := parseLog4jTimestamp(ev.Timestamp)
	return &LogEvent{
		Logger:  ev.Logger,
		Thread:  ev.Thread,
		Level:   ev.Level,
		Message: strings.TrimSpace(ev.Message.Text),
		TimeMS:  ms,
	}, nil
}

func parseLog4jTimestamp(s string) int64 {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return ms
}

// asciiTransliterate replaces every character outside the printable ASCII
// range (other than newline and tab) with '?',
// the same crude recovery strategy the original reader used for frames
// corrupted by a mod printing raw non-UTF8 bytes to stdout.
func asciiTransliterate(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 32 && r < 127 || r == '\n' || r == '\t' {
			b.WriteRune(r)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

// IsSessionIDLine reports whether line is the "Session ID is ..." token
// Mojang's client prints, which callers must redact before persisting or
// displaying logs (§4.I / §7 token-redaction requirement).
func IsSessionIDLine(line string) bool {
	return strings.Contains(line, "Session ID is")
}

// RedactSessionID blanks out the token portion of a "Session ID is X" line.
func RedactSessionID(line string) string {
	if !IsSessionIDLine(line) {
		return line
	}
	idx := strings.Index(line, "Session ID is")
	return line[:idx] + "Session ID is <redacted>"
}

// RedactCensored strips every string in censor out of line, replacing each
// occurrence with "<redacted>". Used to keep access tokens out of every
// LogEvent a reader emits, per §4.I's "redact every line against a
// caller-provided censor list before it leaves the reader."
func RedactCensored(line string, censor []string) string {
	for _, c := range censor {
		if c == "" {
			continue
		}
		line = strings.ReplaceAll(line, c, "<redacted>")
	}
	return line
}
