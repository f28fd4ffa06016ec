package session

import "testing"

func TestEscapeOnlyRecognisedAfterLineTerminator(t *testing.T) {
	e := NewEscape('&')
	out, cmds := e.Feed(nil, nil, []byte("x&."))
	if string(out) != "x&." {
		t.Fatalf("Feed() out = %q, want passthrough %q (no preceding EOL)", out, "x&.")
	}
	if len(cmds) != 0 {
		t.Fatalf("expected no commands, got %v", cmds)
	}
}

func TestEscapeAfterLFTriggersCommand(t *testing.T) {
	e := NewEscape('&')
	out, cmds := e.Feed(nil, nil, []byte("\n&."))
	if string(out) != "\n" {
		t.Fatalf("Feed() out = %q, want %q", out, "\n")
	}
	if len(cmds) != 1 || cmds[0] != CmdClose {
		t.Fatalf("Feed() cmds = %v, want [CmdClose]", cmds)
	}
}

func TestEscapeDoubledForwardsLiteralByte(t *testing.T) {
	e := NewEscape('&')
	out, cmds := e.Feed(nil, nil, []byte("\n&&"))
	if string(out) != "\n&" {
		t.Fatalf("Feed() out = %q, want %q", out, "\n&")
	}
	if len(cmds) != 0 {
		t.Fatalf("expected no commands for doubled escape, got %v", cmds)
	}
}

func TestEscapeUnknownByteReportsUnknown(t *testing.T) {
	e := NewEscape('&')
	_, cmds := e.Feed(nil, nil, []byte("\n&X"))
	if len(cmds) != 1 || cmds[0] != CmdUnknown {
		t.Fatalf("Feed() cmds = %v, want [CmdUnknown]", cmds)
	}
}

func TestEscapeAllCommandLetters(t *testing.T) {
	cases := map[byte]Cmd{
		'.': CmdClose, '?': CmdHelp, 'B': CmdBreak, 'F': CmdForce,
		'J': CmdJoin, 'M': CmdMonitor, 'L': CmdLogReplay, 'Q': CmdQuiet,
		'R': CmdReset, 'Z': CmdSuspend,
	}
	for b, want := range cases {
		e := NewEscape('&')
		_, cmds := e.Feed(nil, nil, []byte{'\n', '&', b})
		if len(cmds) != 1 || cmds[0] != want {
			t.Fatalf("byte %q: cmds = %v, want [%v]", b, cmds, want)
		}
	}
}

func TestEscapeStateResetsAfterCRLF(t *testing.T) {
	e := NewEscape('&')
	out, cmds := e.Feed(nil, nil, []byte("abc\r\n&.\r\ndef"))
	if string(out) != "abc\r\n\r\ndef" {
		t.Fatalf("Feed() out = %q, want %q", out, "abc\r\n\r\ndef")
	}
	if len(cmds) != 1 || cmds[0] != CmdClose {
		t.Fatalf("Feed() cmds = %v, want [CmdClose]", cmds)
	}
}

func TestEscapeFeedAcrossMultipleCalls(t *testing.T) {
	e := NewEscape('&')
	out, cmds := e.Feed(nil, nil, []byte("\n"))
	out, cmds = e.Feed(out, cmds, []byte("&."))
	if string(out) != "\n" || len(cmds) != 1 || cmds[0] != CmdClose {
		t.Fatalf("split Feed() out=%q cmds=%v", out, cmds)
	}
}
