package hexkey

import "testing"

func TestDecodeEmptyIsNilKey(t *testing.T) {
	k, err := Decode("")
	if err != nil || k != nil {
		t.Fatalf("Decode(\"\") = %v, %v, want nil, nil", k, err)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	enc := Encode(want)
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("round trip = %x, want %x", got, want)
	}
}

func TestDecodeInvalidHex(t *testing.T) {
	if _, err := Decode("not-hex!!"); err == nil {
		t.Fatalf("expected error decoding invalid hex")
	}
}

func TestDecodeTooLong(t *testing.T) {
	long := make([]byte, (MaxLen+1)*2)
	for i := range long {
		long[i] = '0'
	}
	if _, err := Decode(string(long)); err == nil {
		t.Fatalf("expected error decoding oversized key")
	}
}
