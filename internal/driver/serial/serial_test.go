package serial

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/dun/conman-sub000/internal/object"
)

func TestNewDriverStartsClosed(t *testing.T) {
	obj := object.NewObject("s1", object.KindSerial, 256)
	d := New(obj, "/dev/ttyDoesNotExist", Options{BPS: 9600, DataBits: 8, Parity: ParityNone, StopBits: 1})

	if d.FD() != -1 {
		t.Fatalf("expected fd -1 before Open, got %d", d.FD())
	}
}

func TestInterestEmptyWhenClosed(t *testing.T) {
	obj := object.NewObject("s1", object.KindSerial, 256)
	d := New(obj, "/dev/ttyDoesNotExist", Options{BPS: 9600, DataBits: 8, Parity: ParityNone, StopBits: 1})

	got := d.Interest()
	if got.Read || got.Write {
		t.Fatalf("expected zero Interest before Open, got %+v", got)
	}
}

func TestOpenMissingDeviceErrors(t *testing.T) {
	obj := object.NewObject("s1", object.KindSerial, 256)
	d := New(obj, "/dev/conman-test-missing-tty", Options{BPS: 9600, DataBits: 8, Parity: ParityNone, StopBits: 1})

	if err := d.Open(); err == nil {
		t.Fatalf("expected error opening a non-existent device")
	}
	if d.FD() != -1 {
		t.Fatalf("expected fd to remain -1 after failed Open")
	}
}

func TestSendBreakWithoutOpenErrors(t *testing.T) {
	obj := object.NewObject("s1", object.KindSerial, 256)
	d := New(obj, "/dev/ttyDoesNotExist", Options{BPS: 9600, DataBits: 8, Parity: ParityNone, StopBits: 1})

	if err := d.SendBreak(); err == nil {
		t.Fatalf("expected error sending break on unopened device")
	}
}

func TestCloseWithoutOpenIsNoop(t *testing.T) {
	obj := object.NewObject("s1", object.KindSerial, 256)
	d := New(obj, "/dev/ttyDoesNotExist", Options{BPS: 9600, DataBits: 8, Parity: ParityNone, StopBits: 1})

	if err := d.Close(); err != nil {
		t.Fatalf("Close() on unopened driver: %v", err)
	}
}

func TestApplyOptionsRejectsUnsupportedBPS(t *testing.T) {
	var raw unix.Termios
	err := applyOptions(&raw, Options{BPS: 1234567, DataBits: 8, Parity: ParityNone, StopBits: 1})
	if err == nil {
		t.Fatalf("expected error for unsupported bps")
	}
}

func TestApplyOptionsSetsParityBits(t *testing.T) {
	var raw unix.Termios
	if err := applyOptions(&raw, Options{BPS: 9600, DataBits: 8, Parity: ParityEven, StopBits: 1}); err != nil {
		t.Fatalf("applyOptions: %v", err)
	}
	if raw.Cflag&unix.PARENB == 0 {
		t.Fatalf("expected PARENB set for even parity")
	}
	if raw.Cflag&unix.PARODD != 0 {
		t.Fatalf("expected PARODD clear for even parity")
	}
}

func TestApplyOptionsRejectsBadDataBits(t *testing.T) {
	var raw unix.Termios
	if err := applyOptions(&raw, Options{BPS: 9600, DataBits: 9, Parity: ParityNone, StopBits: 1}); err == nil {
		t.Fatalf("expected error for unsupported data bits")
	}
}

func TestCfmakerawClearsCanonicalAndEcho(t *testing.T) {
	raw := unix.Termios{
		Iflag: unix.ICRNL | unix.IXON,
		Oflag: unix.OPOST,
		Lflag: unix.ECHO | unix.ICANON | unix.ISIG,
		Cflag: unix.PARENB,
	}
	cfmakeraw(&raw)

	if raw.Lflag&(unix.ECHO|unix.ICANON|unix.ISIG) != 0 {
		t.Fatalf("expected canonical/echo/signal bits cleared, got Lflag=%x", raw.Lflag)
	}
	if raw.Oflag&unix.OPOST != 0 {
		t.Fatalf("expected OPOST cleared, got Oflag=%x", raw.Oflag)
	}
	if raw.Cflag&unix.CS8 == 0 {
		t.Fatalf("expected CS8 set, got Cflag=%x", raw.Cflag)
	}
	if raw.Cc[unix.VMIN] != 1 || raw.Cc[unix.VTIME] != 0 {
		t.Fatalf("expected VMIN=1 VTIME=0, got %d/%d", raw.Cc[unix.VMIN], raw.Cc[unix.VTIME])
	}
}
