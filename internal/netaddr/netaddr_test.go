package netaddr

import "testing"

func TestSplitHostPortBasic(t *testing.T) {
	hp, err := SplitHostPort("host.example.com:7000", 0)
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	if hp.Host != "host.example.com" || hp.Port != 7000 {
		t.Fatalf("got %+v", hp)
	}
}

func TestSplitHostPortIPv6Brackets(t *testing.T) {
	hp, err := SplitHostPort("[::1]:623", 0)
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	if hp.Host != "::1" || hp.Port != 623 {
		t.Fatalf("got %+v", hp)
	}
}

func TestSplitHostPortMissingPortUsesDefault(t *testing.T) {
	hp, err := SplitHostPort("bmc.example.com", 623)
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	if hp.Host != "bmc.example.com" || hp.Port != 623 {
		t.Fatalf("got %+v", hp)
	}
}

func TestSplitHostPortMissingPortNoDefaultErrors(t *testing.T) {
	if _, err := SplitHostPort("bmc.example.com", 0); err == nil {
		t.Fatalf("expected an error with no default port and no port in the address")
	}
}

func TestSplitHostPortInvalidPort(t *testing.T) {
	if _, err := SplitHostPort("host:notaport", 0); err == nil {
		t.Fatalf("expected an error for a non-numeric port")
	}
}

func TestLoopbackOnly(t *testing.T) {
	if !LoopbackOnly("127.0.0.1") {
		t.Fatalf("expected 127.0.0.1 to be loopback")
	}
	if LoopbackOnly("0.0.0.0") {
		t.Fatalf("expected 0.0.0.0 to not be loopback")
	}
}

func TestHostPortString(t *testing.T) {
	hp := HostPort{Host: "node1", Port: 7890}
	if got := hp.String(); got != "node1:7890" {
		t.Fatalf("String() = %q", got)
	}
}
