package wire

import (
	"testing"

	"github.com/dun/conman-sub000/internal/errcode"
)

func TestParseRequestConnectWithOptions(t *testing.T) {
	req, errc := ParseRequest([]byte(`CONNECT CONSOLE="foo1" USER=alice FORCE QUIET`))
	if errc != nil {
		t.Fatalf("unexpected error: %v", errc)
	}
	if req.Verb != VerbConnect || req.Console != "foo1" || req.User != "alice" {
		t.Fatalf("got %+v", req)
	}
	if !req.Options[OptForce] || !req.Options[OptQuiet] {
		t.Fatalf("expected FORCE and QUIET options set, got %+v", req.Options)
	}
	if req.Options[OptBroadcast] {
		t.Fatalf("did not expect BROADCAST set")
	}
}

func TestParseRequestUnknownVerbIsBadRequest(t *testing.T) {
	_, errc := ParseRequest([]byte("BOGUS CONSOLE=foo"))
	if errc == nil || errc.Code != errcode.BadRequest {
		t.Fatalf("expected BadRequest, got %v", errc)
	}
}

func TestParseRequestLineTooLong(t *testing.T) {
	huge := make([]byte, MaxLine+1)
	for i := range huge {
		huge[i] = 'a'
	}
	_, errc := ParseRequest(huge)
	if errc == nil || errc.Code != errcode.BadRequest {
		t.Fatalf("expected BadRequest for oversized line, got %v", errc)
	}
}

func TestRequestEncodeParseRoundTrip(t *testing.T) {
	req := &Request{
		Verb:    VerbConnect,
		Console: "b10",
		User:    "alice",
		Options: map[Option]bool{OptForce: true},
	}
	line := req.Encode()
	parsed, errc := ParseRequest([]byte(line))
	if errc != nil {
		t.Fatalf("unexpected error: %v", errc)
	}
	if parsed.Console != "b10" || parsed.User != "alice" || !parsed.Options[OptForce] {
		t.Fatalf("round trip mismatch: %+v", parsed)
	}
}

func TestResponseEncodeError(t *testing.T) {
	resp := ErrResponse(errcode.New(errcode.BusyConsoles, ""))
	line := resp.Encode()
	parsed, err := ParseResponse([]byte(line))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.OK || parsed.Code != errcode.BusyConsoles {
		t.Fatalf("got %+v", parsed)
	}
}

func TestResponseEncodeOKWithExtras(t *testing.T) {
	resp := OKResponse(map[string]string{"CONSOLE": "foo1"})
	line := resp.Encode()
	parsed, err := ParseResponse([]byte(line))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !parsed.OK || parsed.Extra["CONSOLE"] != "foo1" {
		t.Fatalf("got %+v", parsed)
	}
}

func TestParseRequestQuotedValueWithEmbeddedQuote(t *testing.T) {
	raw := `CONNECT CONSOLE=` + Quote(`it's`)
	req, errc := ParseRequest([]byte(raw))
	if errc != nil {
		t.Fatalf("unexpected error: %v", errc)
	}
	if req.Console != "it's" {
		t.Fatalf("got console=%q, want it's", req.Console)
	}
}
