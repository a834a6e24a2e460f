package process

import (
	"io"
	"strings"
	"testing"
)

func TestLogReaderDecodesLog4jFrame(t *testing.T) {
	frame := `<log4j:Event logger="net.minecraft.client.Minecraft" timestamp="1700000000000" level="INFO" thread="main">
<log4j:Message><![CDATA[Setting user: Notch]]></log4j:Message>
</log4j:Event>
`
	r := NewLogReader(strings.NewReader(frame))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ev.Plain {
		t.Fatalf("expected a decoded structured event, got a plain line: %q", ev.RawLine)
	}
	if ev.Level != "INFO" || ev.Thread != "main" {
		t.Errorf("got level=%q thread=%q", ev.Level, ev.Thread)
	}
}

func TestLogReaderPassesThroughPlainLines(t *testing.T) {
	r := NewLogReader(strings.NewReader("some pre-1.7 line with no xml framing\n"))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if !ev.Plain || ev.RawLine != "some pre-1.7 line with no xml framing" {
		t.Errorf("expected a plain passthrough line, got %+v", ev)
	}
}

func TestLogReaderEOF(t *testing.T) {
	r := NewLogReader(strings.NewReader(""))
	_, err := r.Next()
	if err != io.EOF {
		t.Errorf("expected io.EOF on an empty stream, got %v", err)
	}
}

func TestLogReaderRecoversFromMalformedFrame(t *testing.T) {
	frame := "<log4j:Event logger=\"x\" timestamp=\"1\" level=\"INFO\" thread=\"main\">\n<log4j:Message>unterminated\n</log4j:Event>\n"
	var diagnosed bool
	r := NewLogReader(strings.NewReader(frame))
	r.OnDiagnostic = func(error) { diagnosed = true }
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("a malformed frame should degrade to a plain event, not error: %v", err)
	}
	_ = diagnosed
	_ = ev
}

func TestRedactSessionID(t *testing.T) {
	line := `[Client thread/INFO]: Session ID is abc123def`
	if !IsSessionIDLine(line) {
		t.Fatalf("expected session id line to be detected")
	}
	redacted := RedactSessionID(line)
	if strings.Contains(redacted, "abc123def") {
		t.Errorf("token should be redacted, got %q", redacted)
	}
}

func TestRedactCensoredStripsEveryListedSubstring(t *testing.T) {
	line := "logged in with token eyJhbGc.super-secret and refresh eyJhbGc.other-secret"
	redacted := RedactCensored(line, []string{"eyJhbGc.super-secret", "eyJhbGc.other-secret"})
	if strings.Contains(redacted, "super-secret") || strings.Contains(redacted, "other-secret") {
		t.Errorf("expected both censor strings to be stripped, got %q", redacted)
	}
}

func TestRedactCensoredIgnoresEmptyEntries(t *testing.T) {
	line := "nothing secret here"
	if got := RedactCensored(line, []string{""}); got != line {
		t.Errorf("expected an empty censor entry to be a no-op, got %q", got)
	}
}
