package listener

import (
	"net"
	"strconv"
	"testing"

	"golang.org/x/sys/unix"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer l.Close()
	_, portStr, _ := net.SplitHostPort(l.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return port
}

func TestNewBindsAndListens(t *testing.T) {
	port := freePort(t)
	l, err := New(Options{Addr: "127.0.0.1", Port: port}, nil, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer l.Close()

	if l.FD() < 0 {
		t.Fatalf("FD() = %d, want >= 0", l.FD())
	}
}

func TestInterestAlwaysReadOnly(t *testing.T) {
	port := freePort(t)
	l, err := New(Options{Addr: "127.0.0.1", Port: port}, nil, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer l.Close()

	in := l.Interest()
	if !in.Read || in.Write {
		t.Fatalf("Interest() = %+v, want Read-only", in)
	}
}

func TestOnReadableAcceptsConnection(t *testing.T) {
	port := freePort(t)
	accepted := make(chan Accepted, 1)
	l, err := New(Options{Addr: "127.0.0.1", Port: port}, nil, func(a Accepted) {
		accepted <- a
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer l.Close()

	conn, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	// Give the kernel a moment to complete the handshake so Accept
	// succeeds on the first pass rather than hitting EAGAIN.
	for i := 0; i < 100; i++ {
		l.OnReadable()
		select {
		case a := <-accepted:
			if a.FD < 0 {
				t.Fatalf("accepted fd = %d, want >= 0", a.FD)
			}
			unix.Close(a.FD)
			return
		default:
		}
	}
	t.Fatalf("connection was never accepted")
}

func TestInvalidAddressRejected(t *testing.T) {
	_, err := New(Options{Addr: "not-an-ip", Port: freePort(t)}, nil, nil)
	if err == nil {
		t.Fatalf("expected error for invalid address")
	}
}
