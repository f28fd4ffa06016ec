package logfile

import "testing"

func TestSanitizeLFEmitsCRLF(t *testing.T) {
	var s Sanitizer
	got := s.Sanitize(nil, []byte("\n"))
	if string(got) != "\r\n" {
		t.Fatalf("Sanitize(\\n) = %q, want %q", got, "\r\n")
	}
}

func TestSanitizeCRCoalesces(t *testing.T) {
	var s Sanitizer
	got := s.Sanitize(nil, []byte("\r\r\r"))
	if len(got) != 0 {
		t.Fatalf("Sanitize(\\r\\r\\r) = %q, want empty (coalesced, pending)", got)
	}
}

func TestSanitizeCRThenOtherEmitsCRLFFirst(t *testing.T) {
	var s Sanitizer
	got := s.Sanitize(nil, []byte("\rA"))
	if string(got) != "\r\nA" {
		t.Fatalf("Sanitize(\\rA) = %q, want %q", got, "\r\nA")
	}
}

func TestSanitizeControlCharEscaped(t *testing.T) {
	var s Sanitizer
	got := s.Sanitize(nil, []byte{0x01})
	if string(got) != "^A" {
		t.Fatalf("Sanitize(0x01) = %q, want %q", got, "^A")
	}
}

func TestSanitizeDEL(t *testing.T) {
	var s Sanitizer
	got := s.Sanitize(nil, []byte{0x7F})
	if string(got) != "^?" {
		t.Fatalf("Sanitize(0x7F) = %q, want %q", got, "^?")
	}
}

func TestSanitizeHighBitStripped(t *testing.T) {
	var s Sanitizer
	got := s.Sanitize(nil, []byte{'A' | 0x80})
	if string(got) != "A" {
		t.Fatalf("Sanitize(0x80|'A') = %q, want %q", got, "A")
	}
}

func TestSanitizePrintablePassthrough(t *testing.T) {
	var s Sanitizer
	got := s.Sanitize(nil, []byte("hello"))
	if string(got) != "hello" {
		t.Fatalf("Sanitize(hello) = %q, want %q", got, "hello")
	}
}

func TestSanitizeOutputBoundedByTwiceInput(t *testing.T) {
	var s Sanitizer
	in := make([]byte, 16)
	for i := range in {
		in[i] = 0x01
	}
	got := s.Sanitize(nil, in)
	if len(got) > 2*len(in) {
		t.Fatalf("Sanitize output len %d exceeds 2x input %d", len(got), 2*len(in))
	}
}
