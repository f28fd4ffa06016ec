package wire

import "testing"

func tokens(t *testing.T, src string) []Token {
	t.Helper()
	lx := New([]byte(src))
	var out []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			t.Fatalf("lex error: %v", err)
		}
		if tok.Kind == TokEOF {
			break
		}
		out = append(out, tok)
	}
	return out
}

func TestLexKeywordCaseInsensitive(t *testing.T) {
	toks := tokens(t, "query console")
	if len(toks) != 2 || toks[0].Kind != TokKeyword || toks[0].Text != "QUERY" {
		t.Fatalf("got %+v", toks)
	}
	if toks[1].Kind != TokKeyword || toks[1].Text != "CONSOLE" {
		t.Fatalf("got %+v", toks)
	}
}

func TestLexCommentToEOL(t *testing.T) {
	toks := tokens(t, "QUERY # this is ignored\n")
	if len(toks) != 1 || toks[0].Text != "QUERY" {
		t.Fatalf("expected comment stripped, got %+v", toks)
	}
}

func TestLexQuotedStringNoEmbeddedQuote(t *testing.T) {
	toks := tokens(t, `"hello world"`)
	if len(toks) != 1 || toks[0].Kind != TokString || toks[0].Text != "hello world" {
		t.Fatalf("got %+v", toks)
	}
}

func TestLexHighBitQuoteDecoded(t *testing.T) {
	// A literal high-bit-set quote byte embedded inside a quoted string
	// must decode back to a plain quote character.
	encoded := []byte{'"', 'a', '\'' | 0x80, 'b', '"'}
	lx := New(encoded)
	tok, err := lx.Next()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	if tok.Text != "a'b" {
		t.Fatalf("got %q, want %q", tok.Text, "a'b")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	orig := `it's a "test"`
	enc := Encode(orig)
	dec := Decode(enc)
	if dec != orig {
		t.Fatalf("round trip = %q, want %q", dec, orig)
	}
}

func TestLexInteger(t *testing.T) {
	toks := tokens(t, "-42 7890")
	if len(toks) != 2 || toks[0].Kind != TokInt || toks[0].Int != -42 {
		t.Fatalf("got %+v", toks)
	}
	if toks[1].Kind != TokInt || toks[1].Int != 7890 {
		t.Fatalf("got %+v", toks)
	}
}

func TestLexUnterminatedStringErrors(t *testing.T) {
	lx := New([]byte(`"unterminated`))
	if _, err := lx.Next(); err == nil {
		t.Fatalf("expected error on unterminated string")
	}
}

func TestLexBackslashNewlineContinuation(t *testing.T) {
	lx := New([]byte("QUERY \\\nCONSOLE=foo\n"))
	tok1, _ := lx.Next()
	tok2, _ := lx.Next()
	if tok1.Text != "QUERY" || tok2.Text != "CONSOLE" {
		t.Fatalf("expected continuation across escaped newline, got %+v %+v", tok1, tok2)
	}
	if lx.Line() != 2 {
		t.Fatalf("expected line counter to advance past the escaped newline, got %d", lx.Line())
	}
}
