package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/bft-labs/tcpmirror/internal/adapters/prom"
	"github.com/bft-labs/tcpmirror/pkg/log"
)

func TestMetricsServer_ServesRecorder(t *testing.T) {
	rec := prom.NewRecorder()
	rec.IncChunks("127.0.0.1:4000")
	rec.ObserveSize("127.0.0.1:4000", 5)

	s := NewMetricsServer("127.0.0.1:0", rec.Registry(), log.NewNoopLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Shutdown(context.Background())

	resp, err := http.Get("http://" + s.Addr().String() + MetricsPath)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`message_count{server="127.0.0.1:4000"} 1`,
		`size_data_bytes_count{server="127.0.0.1:4000"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsServer_StartFailsOnBusyPort(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	s := NewMetricsServer(busy.Addr().String(), prom.NewRecorder().Registry(), log.NewNoopLogger())
	if err := s.Start(); err == nil {
		_ = s.Shutdown(context.Background())
		t.Fatal("Start() succeeded on a busy port")
	}
}

func TestNewMetricsServer_DefaultAddr(t *testing.T) {
	s := NewMetricsServer("", prom.NewRecorder().Registry(), log.NewNoopLogger())
	if s.addr != DefaultMetricsAddr {
		t.Errorf("addr = %s, want %s", s.addr, DefaultMetricsAddr)
	}
	if s.Addr() != nil {
		t.Error("Addr() before Start should be nil")
	}
}
