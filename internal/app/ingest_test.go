package app

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/tcpmirror/internal/domain"
)

type ingestHarness struct {
	ingester *Ingester
	workers  []*Worker
	states   *stateLog
	recorder *mockRecorder
	accepted chan string
	done     chan error
	cancel   context.CancelFunc
}

func startIngester(t *testing.T, targets ...*downstream) *ingestHarness {
	t.Helper()
	h := &ingestHarness{
		states:   newStateLog(),
		recorder: newMockRecorder(),
		accepted: make(chan string, 1),
		done:     make(chan error, 1),
	}
	for _, ds := range targets {
		h.workers = append(h.workers, NewWorker(targetOf(t, ds.ln.Addr()), fastWorkerConfig(), nil, mockLogger{}, h.states))
	}
	h.ingester = NewIngester(IngesterConfig{
		ListenAddr: "127.0.0.1:0",
		OnAccept:   func(peer string) { h.accepted <- peer },
	}, h.workers, h.recorder, mockLogger{})

	if err := h.ingester.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.ingester.Serve(ctx) }()
	t.Cleanup(cancel)
	return h
}

// connect dials the ingester and waits until every worker is connected.
func (h *ingestHarness) connect(t *testing.T) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", h.ingester.Addr().String())
	if err != nil {
		t.Fatalf("dial ingester: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	select {
	case <-h.accepted:
	case <-time.After(waitTimeout):
		t.Fatal("ingester never accepted")
	}
	if !h.states.waitFor(StateConnected, len(h.workers), waitTimeout) {
		t.Fatal("workers never connected")
	}
	return conn
}

func (h *ingestHarness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestIngester_MirrorsToTarget(t *testing.T) {
	ds := newDownstream(t)
	h := startIngester(t, ds)
	conn := h.connect(t)

	if _, err := conn.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !ds.waitReceived("hello", waitTimeout) {
		t.Fatalf("target received %q, want hello", ds.received())
	}

	_ = conn.Close()
	if err := h.wait(t); err != nil {
		t.Errorf("Serve() = %v, want nil after inbound EOF", err)
	}
}

func TestIngester_FansOutFullCopies(t *testing.T) {
	targets := []*downstream{newDownstream(t), newDownstream(t), newDownstream(t)}
	h := startIngester(t, targets...)
	conn := h.connect(t)

	var want bytes.Buffer
	for i := 0; i < 10; i++ {
		s := strings.Repeat(string(rune('a'+i)), 100+i)
		want.WriteString(s)
		if _, err := conn.Write([]byte(s)); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	for i, ds := range targets {
		if !ds.waitReceived(want.String(), waitTimeout) {
			t.Errorf("target %d received %d bytes, want %d", i, len(ds.received()), want.Len())
		}
	}

	chunks, observations, total := h.recorder.totals()
	if chunks == 0 || chunks != observations {
		t.Errorf("chunks = %d, observations = %d; want one observation per chunk", chunks, observations)
	}
	if total != want.Len() {
		t.Errorf("observed %d bytes, want %d regardless of target count", total, want.Len())
	}
	if len(h.recorder.counts) != 1 {
		t.Errorf("metrics labeled with %d peers, want 1", len(h.recorder.counts))
	}

	_ = conn.Close()
	if err := h.wait(t); err != nil {
		t.Errorf("Serve() = %v", err)
	}
}

func TestIngester_LabelsMetricsWithPeerAddress(t *testing.T) {
	ds := newDownstream(t)
	h := startIngester(t, ds)
	conn := h.connect(t)

	if _, err := conn.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !ds.waitReceived("x", waitTimeout) {
		t.Fatal("chunk not delivered")
	}

	h.recorder.mu.Lock()
	got := h.recorder.counts[conn.LocalAddr().String()]
	h.recorder.mu.Unlock()
	if got != 1 {
		t.Errorf("count for %s = %d, want 1", conn.LocalAddr(), got)
	}
}

func TestIngester_AcceptsOnlyOneConnection(t *testing.T) {
	ds := newDownstream(t)
	h := startIngester(t, ds)
	conn := h.connect(t)
	addr := h.ingester.Addr().String()

	second, err := net.DialTimeout("tcp", addr, time.Second)
	if err == nil {
		_ = second.Close()
		t.Fatal("second inbound connection was accepted")
	}

	_ = conn.Close()
	if err := h.wait(t); err != nil {
		t.Errorf("Serve() = %v", err)
	}

	if third, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
		_ = third.Close()
		t.Error("connection accepted after the inbound stream ended")
	}
}

func TestIngester_ClosesDownstreamsOnEOF(t *testing.T) {
	ds := newDownstream(t)
	h := startIngester(t, ds)
	conn := h.connect(t)
	downConn := <-ds.conns

	_ = conn.Close()
	if err := h.wait(t); err != nil {
		t.Fatalf("Serve() = %v", err)
	}

	_ = downConn.SetReadDeadline(time.Now().Add(waitTimeout))
	buf := make([]byte, 1)
	if _, err := downConn.Read(buf); err == nil {
		t.Error("downstream connection still open after shutdown")
	}
	for _, w := range h.workers {
		if w.State() == StateConnected {
			t.Errorf("worker %s still connected after shutdown", w.Target())
		}
	}
}

func TestIngester_CancelWhileMirroring(t *testing.T) {
	ds := newDownstream(t)
	h := startIngester(t, ds)
	h.connect(t)

	h.cancel()
	if err := h.wait(t); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}

func TestIngester_CancelWhileWaitingForConnection(t *testing.T) {
	ds := newDownstream(t)
	h := startIngester(t, ds)

	time.Sleep(20 * time.Millisecond)
	h.cancel()
	if err := h.wait(t); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if n := ds.acceptCount(); n != 0 {
		t.Errorf("workers connected %d times before any inbound connection", n)
	}
}

func TestIngester_ListenFailsWhenPortInUse(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	in := NewIngester(IngesterConfig{ListenAddr: busy.Addr().String()}, nil, nil, mockLogger{})
	err = in.Listen()
	if !errors.Is(err, domain.ErrListen) {
		t.Fatalf("Listen() = %v, want ErrListen", err)
	}
	if in.Addr() != nil {
		t.Error("Addr() should be nil when Listen failed")
	}
	if err := in.Serve(context.Background()); !errors.Is(err, domain.ErrListen) {
		t.Errorf("Serve() = %v, want ErrListen", err)
	}
}

func TestListenAddr(t *testing.T) {
	if got := ListenAddr(9100); got != "0.0.0.0:9100" {
		t.Errorf("ListenAddr(9100) = %s", got)
	}
}

func TestNewIngester_Defaults(t *testing.T) {
	in := NewIngester(IngesterConfig{}, nil, nil, mockLogger{})
	if in.config.ReadSize != domain.MaxChunkSize {
		t.Errorf("ReadSize = %d, want %d", in.config.ReadSize, domain.MaxChunkSize)
	}
	if in.recorder == nil {
		t.Error("recorder is nil")
	}
}
