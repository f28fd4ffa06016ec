package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	jww "github.com/spf13/jwalterweatherman"
)

func TestNewWritesFormattedLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, logrus.InfoLevel)
	l.Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("output = %q, want to contain %q", buf.String(), "hello")
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, logrus.WarnLevel)
	l.Info("should be suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below configured level, got %q", buf.String())
	}
}

func TestInformationalFramesMessage(t *testing.T) {
	got := Informational("node1 reset")
	want := "\r\n<ConMan> node1 reset.\r\n"
	if string(got) != want {
		t.Fatalf("Informational() = %q, want %q", got, want)
	}
}

func TestBridgeViperDiagnosticsForwardsToLogrus(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, logrus.DebugLevel)
	BridgeViperDiagnostics(l)

	jww.INFO.Println("merging config from file")
	if !strings.Contains(buf.String(), "merging config from file") {
		t.Fatalf("output = %q, want to contain the bridged jww message", buf.String())
	}
}
