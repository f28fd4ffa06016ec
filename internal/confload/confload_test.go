package confload

import (
	"strings"
	"testing"
)

func TestParseServerAndGlobalDirectives(t *testing.T) {
	src := "SERVER PORT=7890 ADDR='0.0.0.0'\nGLOBAL LOGDIR=\"/var/log/conman\"\n"
	f, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if f.Server["PORT"] != "7890" || f.Server["ADDR"] != "0.0.0.0" {
		t.Fatalf("Server = %+v", f.Server)
	}
	if f.Global["LOGDIR"] != "/var/log/conman" {
		t.Fatalf("Global = %+v", f.Global)
	}
}

func TestParseConsoleDirective(t *testing.T) {
	src := `CONSOLE NAME="node1" DEV="/dev/ttyS0" LOG="/var/log/conman/&" SEROPTS="9600,8N1"` + "\n"
	f, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(f.Consoles) != 1 {
		t.Fatalf("Consoles = %+v, want 1 entry", f.Consoles)
	}
	c := f.Consoles[0]
	if c.Name != "node1" || c.Dev != "/dev/ttyS0" || c.SerOpts != "9600,8N1" {
		t.Fatalf("console = %+v", c)
	}
}

func TestParseConsoleMissingNameErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(`CONSOLE DEV="/dev/ttyS0"` + "\n"))
	if err == nil {
		t.Fatalf("expected error for missing NAME")
	}
}

func TestParseSkipsCommentsAndBlankLines(t *testing.T) {
	src := "# a comment\n\nSERVER PORT=7890\n"
	f, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if f.Server["PORT"] != "7890" {
		t.Fatalf("Server = %+v", f.Server)
	}
}

func TestParseUnrecognizedDirectiveErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("BOGUS X=1\n"))
	if err == nil {
		t.Fatalf("expected error for unrecognized directive")
	}
}

func TestClassifyDev(t *testing.T) {
	cases := map[string]DevKind{
		"host1:7000":      DevTelnet,
		"/dev/ttyS0":      DevSerial,
		"ipmi:bmc1":       DevIPMI,
		"unix:/tmp/sock":  DevUnixSock,
		"test:":           DevTest,
		"/usr/bin/script": DevProcess,
	}
	for dev, want := range cases {
		if got := ClassifyDev(dev); got != want {
			t.Fatalf("ClassifyDev(%q) = %v, want %v", dev, got, want)
		}
	}
}

func TestParseSerOptsValid(t *testing.T) {
	o, err := ParseSerOpts("9600,8N1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.BPS != 9600 || o.DataBits != 8 || o.Parity != 'N' || o.StopBits != 1 {
		t.Fatalf("ParseSerOpts() = %+v", o)
	}
}

func TestParseSerOptsInvalidParity(t *testing.T) {
	_, err := ParseSerOpts("9600,8X1")
	if err == nil {
		t.Fatalf("expected error for invalid parity")
	}
}

func TestParseLogOptsTogglesLastWins(t *testing.T) {
	o := ParseLogOpts("sanitize,timestamp,nosanitize")
	if o.Sanitize {
		t.Fatalf("Sanitize = true, want false (nosanitize wins)")
	}
	if !o.Timestamp {
		t.Fatalf("Timestamp = false, want true")
	}
}

func TestParseIPMIOptsAllKeys(t *testing.T) {
	o, err := ParseIPMIOpts("U:admin,P:secret,K:0xdead,L:ADMIN,C:3,W:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.User != "admin" || o.Pass != "secret" || o.Kg != "0xdead" {
		t.Fatalf("ParseIPMIOpts() = %+v", o)
	}
}

func TestParseIPMIOptsUnknownKeyErrors(t *testing.T) {
	_, err := ParseIPMIOpts("X:1")
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestParseIPMIOptsEmptyIsZeroValue(t *testing.T) {
	o, err := ParseIPMIOpts("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o != (IPMIOpts{}) {
		t.Fatalf("expected zero value, got %+v", o)
	}
}
