package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBytesTotalCountsByConsoleAndDirection(t *testing.T) {
	BytesTotal.Reset()
	BytesTotal.WithLabelValues("node1", "read").Add(10)
	BytesTotal.WithLabelValues("node1", "write").Add(3)

	if got := testutil.ToFloat64(BytesTotal.WithLabelValues("node1", "read")); got != 10 {
		t.Fatalf("read bytes = %v, want 10", got)
	}
	if got := testutil.ToFloat64(BytesTotal.WithLabelValues("node1", "write")); got != 3 {
		t.Fatalf("write bytes = %v, want 3", got)
	}
}

func TestClientsConnectedIncDec(t *testing.T) {
	ClientsConnected.Reset()
	ClientsConnected.WithLabelValues("node1").Inc()
	ClientsConnected.WithLabelValues("node1").Inc()
	ClientsConnected.WithLabelValues("node1").Dec()

	if got := testutil.ToFloat64(ClientsConnected.WithLabelValues("node1")); got != 1 {
		t.Fatalf("ClientsConnected = %v, want 1", got)
	}
}

func TestConsoleStateTracksNumericEncoding(t *testing.T) {
	ConsoleState.Reset()
	ConsoleState.WithLabelValues("node1").Set(2)

	if got := testutil.ToFloat64(ConsoleState.WithLabelValues("node1")); got != 2 {
		t.Fatalf("ConsoleState = %v, want 2", got)
	}
}

func TestReconnectsTotalCountsByConsoleAndDriver(t *testing.T) {
	ReconnectsTotal.Reset()
	ReconnectsTotal.WithLabelValues("node1", "telnet").Inc()
	ReconnectsTotal.WithLabelValues("node1", "telnet").Inc()

	if got := testutil.ToFloat64(ReconnectsTotal.WithLabelValues("node1", "telnet")); got != 2 {
		t.Fatalf("ReconnectsTotal = %v, want 2", got)
	}
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	BytesTotal.Reset()
	BytesTotal.WithLabelValues("node1", "read").Add(5)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "conmand_object_bytes_total") {
		t.Fatalf("response missing conmand_object_bytes_total metric")
	}
}
