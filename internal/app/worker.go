package app

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/tcpmirror/internal/domain"
	"github.com/bft-labs/tcpmirror/internal/ports"
	"github.com/bft-labs/tcpmirror/internal/queue"
)

// Default worker timings.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultSendTimeout  = time.Second
	DefaultProbeTimeout = time.Second
	DefaultProbeSize    = 1 << 10
)

// WorkerConfig contains the timings of one downstream worker.
type WorkerConfig struct {
	// Backoff is the fixed pause after a failed connect attempt.
	Backoff time.Duration

	// DialTimeout bounds a single connect attempt.
	DialTimeout time.Duration

	// SendTimeout bounds each write of a chunk.
	SendTimeout time.Duration

	// ProbeTimeout bounds the liveness read that follows every send.
	ProbeTimeout time.Duration

	// ProbeSize is the largest read attempted by the liveness probe.
	ProbeSize int

	// Clock drives the backoff; nil means the wall clock.
	Clock clockwork.Clock
}

// DefaultWorkerConfig returns the standard worker timings.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Backoff:      DefaultBackoff,
		DialTimeout:  DefaultDialTimeout,
		SendTimeout:  DefaultSendTimeout,
		ProbeTimeout: DefaultProbeTimeout,
		ProbeSize:    DefaultProbeSize,
	}
}

func (c *WorkerConfig) setDefaults() {
	d := DefaultWorkerConfig()
	if c.Backoff <= 0 {
		c.Backoff = d.Backoff
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = d.ProbeTimeout
	}
	if c.ProbeSize <= 0 {
		c.ProbeSize = d.ProbeSize
	}
}

// Worker owns the connection to one downstream target and the delivery queue
// that feeds it. It cycles Disconnected -> Connecting -> Connected until its
// context is cancelled.
type Worker struct {
	target   domain.Target
	queue    *queue.Queue
	dialer   ports.Dialer
	logger   ports.Logger
	observer StateObserver
	config   WorkerConfig
	backoff  *backoff

	state atomic.Int32

	mu   sync.Mutex
	conn net.Conn
}

// NewWorker creates a worker for target with an empty queue.
// A nil dialer means a plain *net.Dialer; observer may be nil.
func NewWorker(
	target domain.Target,
	config WorkerConfig,
	dialer ports.Dialer,
	logger ports.Logger,
	observer StateObserver,
) *Worker {
	config.setDefaults()
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	return &Worker{
		target:   target,
		queue:    queue.New(),
		dialer:   dialer,
		logger:   logger.With(ports.String("target", target.Addr())),
		observer: observer,
		config:   config,
		backoff:  newBackoff(config.Backoff, config.Clock),
	}
}

// Target returns the downstream endpoint served by this worker.
func (w *Worker) Target() domain.Target { return w.target }

// Queue returns the worker's delivery queue. The ingestion loop is its only
// producer.
func (w *Worker) Queue() *queue.Queue { return w.queue }

// State returns the current connection state. Safe for concurrent use.
func (w *Worker) State() WorkerState { return WorkerState(w.state.Load()) }

// Stop closes the current downstream connection, if any. An in-flight send or
// probe fails and the worker drops to Disconnected. It does not end Run: the
// worker reconnects unless its context is cancelled.
func (w *Worker) Stop() {
	w.logger.Info("closing downstream connection")
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Run executes the connect/send/reconnect loop until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started")
	defer w.logger.Debug("worker exited")

	for ctx.Err() == nil {
		w.transition(StateConnecting)

		conn, err := w.connect(ctx)
		if err != nil {
			w.disconnect()
			if ctx.Err() != nil {
				return
			}
			var ce *domain.ConnectError
			if errors.As(err, &ce) {
				w.logger.Debug("connection failed", ports.String("reason", ce.Failure.String()), ports.Err(ce.Err))
			}
			if err := w.backoff.Wait(ctx); err != nil {
				return
			}
			continue
		}

		w.logger.Info("connection established")
		w.transition(StateConnected)
		w.serve(ctx, conn)
		w.release(conn)
		w.disconnect()
	}
}

// connect dials the target and installs the connection.
func (w *Worker) connect(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, w.config.DialTimeout)
	defer cancel()

	conn, err := w.dialer.DialContext(dialCtx, "tcp", w.target.Addr())
	if err != nil {
		return nil, connectError(w.target, err)
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	return conn, nil
}

// release closes conn and forgets it.
func (w *Worker) release(conn net.Conn) {
	w.logger.Debug("closing connection")
	w.mu.Lock()
	if w.conn == conn {
		w.conn = nil
	}
	w.mu.Unlock()
	_ = conn.Close()
}

// disconnect enters Disconnected and discards everything queued so that no
// stale data is replayed after the outage.
func (w *Worker) disconnect() {
	if n := w.queue.Drain(); n > 0 {
		w.logger.Debug("dropped stale chunks", ports.Int("chunks", n))
	}
	w.transition(StateDisconnected)
}

func (w *Worker) transition(next WorkerState) {
	prev := WorkerState(w.state.Swap(int32(next)))
	if prev == next {
		return
	}
	if w.observer != nil {
		w.observer.OnWorkerState(w.target, prev, next)
	}
}

// serve delivers chunks until the connection is judged dead or ctx ends.
func (w *Worker) serve(ctx context.Context, conn net.Conn) {
	probe := make([]byte, w.config.ProbeSize)
	for {
		c, err := w.queue.Pop(ctx)
		if err != nil {
			return
		}
		if !w.deliver(conn, c, probe) {
			return
		}
	}
}

// deliver sends one chunk and probes the peer. It reports whether the
// connection is still usable.
func (w *Worker) deliver(conn net.Conn, c domain.Chunk, probe []byte) bool {
	sent, err := w.send(conn, c.Bytes())
	if err != nil {
		switch {
		case isTimeout(err) && sent > 0:
			w.logger.Warn("send timed out, dropping remainder of chunk",
				ports.Int("sent", sent), ports.Int("bytes", c.Len()))
			return true
		case isTimeout(err):
			w.logger.Error("send timed out with nothing sent", ports.Err(err))
		default:
			w.logger.Error("disconnection", ports.Err(err))
		}
		return false
	}
	w.logger.Debug("data sent", ports.Int("bytes", sent))

	return w.probe(conn, probe, sent)
}

// send writes p, retrying transient would-block conditions.
func (w *Worker) send(conn net.Conn, p []byte) (int, error) {
	sent := 0
	for sent < len(p) {
		_ = conn.SetWriteDeadline(time.Now().Add(w.config.SendTimeout))
		n, err := conn.Write(p[sent:])
		sent += n
		if err != nil {
			if isWouldBlock(err) {
				continue
			}
			return sent, err
		}
	}
	return sent, nil
}

// probe performs a bounded read to detect a peer that closed its side.
// Data returned by the peer is discarded.
func (w *Worker) probe(conn net.Conn, buf []byte, sent int) bool {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(w.config.ProbeTimeout))
		n, err := conn.Read(buf)
		if n > 0 {
			w.logger.Debug("discarded peer data", ports.Int("bytes", n))
			return true
		}
		switch {
		case err == nil:
			return true
		case isWouldBlock(err):
			continue
		case isTimeout(err):
			if sent > 0 {
				return true
			}
			w.logger.Error("probe timed out with nothing sent")
			return false
		case errors.Is(err, io.EOF):
			w.logger.Error("disconnection", ports.String("reason", "peer closed"))
			return false
		case isPeerClosed(err):
			w.logger.Error("disconnection", ports.Err(err))
			return false
		default:
			w.logger.Error("probe failed", ports.Err(err))
			return false
		}
	}
}
