package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/bft-labs/tcpmirror/internal/domain"
	"github.com/bft-labs/tcpmirror/internal/ports"
)

// ListenAddr returns the all-interfaces address for port.
func ListenAddr(port int) string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(port))
}

// IngesterConfig contains configuration for the ingestion loop.
type IngesterConfig struct {
	// ListenAddr is the TCP address to bind, normally ListenAddr(port).
	ListenAddr string

	// ReadSize is the largest chunk read at once. Defaults to domain.MaxChunkSize.
	ReadSize int

	// OnAccept is called with the peer address once the inbound connection
	// is accepted. Optional.
	OnAccept func(peer string)
}

// Ingester accepts the single inbound connection and fans every chunk it
// reads out to all workers.
type Ingester struct {
	config   IngesterConfig
	workers  []*Worker
	recorder ports.Recorder
	logger   ports.Logger

	mu       sync.Mutex
	listener net.Listener
	conn     net.Conn
}

// NewIngester creates an ingestion loop feeding workers.
// A nil recorder discards metrics.
func NewIngester(config IngesterConfig, workers []*Worker, recorder ports.Recorder, logger ports.Logger) *Ingester {
	if config.ReadSize <= 0 {
		config.ReadSize = domain.MaxChunkSize
	}
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	return &Ingester{
		config:   config,
		workers:  workers,
		recorder: recorder,
		logger:   logger,
	}
}

// Listen binds the listening socket. It fails with domain.ErrListen when the
// address is unavailable, for example because the port is already in use.
func (in *Ingester) Listen() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", in.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrListen, in.config.ListenAddr, err)
	}
	in.listener = ln
	return nil
}

// Close releases the listening socket. It is only needed when Serve will
// never be called after a successful Listen.
func (in *Ingester) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.listener == nil {
		return nil
	}
	return in.listener.Close()
}

// Addr returns the bound address, or nil before Listen.
func (in *Ingester) Addr() net.Addr {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.listener == nil {
		return nil
	}
	return in.listener.Addr()
}

// Serve accepts exactly one inbound connection, starts every worker, and
// mirrors the stream until the peer closes it or ctx is cancelled.
// It returns nil when the inbound peer ends the stream and ctx.Err() when
// cancelled. Workers have exited by the time Serve returns.
func (in *Ingester) Serve(ctx context.Context) error {
	if err := in.Listen(); err != nil {
		return err
	}

	in.logger.Info("waiting for incoming connection", ports.String("addr", in.Addr().String()))
	conn, err := in.accept(ctx)
	if err != nil {
		return err
	}
	peer := conn.RemoteAddr().String()
	in.logger.Info("incoming connection", ports.String("peer", peer))
	if in.config.OnAccept != nil {
		in.config.OnAccept(peer)
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, w := range in.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Run(workerCtx)
		}(w)
	}
	defer func() {
		cancelWorkers()
		wg.Wait()
	}()

	stopClose := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopClose()

	in.readLoop(ctx, conn, peer)
	in.stop()
	return ctx.Err()
}

// accept waits for the first inbound connection and then closes the
// listener so that no second connection is ever accepted.
func (in *Ingester) accept(ctx context.Context) (net.Conn, error) {
	in.mu.Lock()
	ln := in.listener
	in.mu.Unlock()

	stopClose := context.AfterFunc(ctx, func() { _ = ln.Close() })
	conn, err := ln.Accept()
	stopClose()
	_ = ln.Close()

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("accept: %w", err)
	}

	in.mu.Lock()
	in.conn = conn
	in.mu.Unlock()
	return conn, nil
}

func (in *Ingester) readLoop(ctx context.Context, conn net.Conn, peer string) {
	buf := make([]byte, in.config.ReadSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			in.dispatch(peer, domain.NewChunk(buf[:n]))
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				in.logger.Info("connection is closing", ports.String("peer", peer))
			case ctx.Err() != nil:
				in.logger.Info("shutdown requested, closing inbound connection")
			default:
				in.logger.Error("inbound read failed", ports.Err(err))
			}
			return
		}
	}
}

// dispatch records metrics once and pushes c to every queue without waiting
// on any of them.
func (in *Ingester) dispatch(peer string, c domain.Chunk) {
	in.logger.Debug("data received", ports.Int("bytes", c.Len()))
	in.recorder.IncChunks(peer)
	in.recorder.ObserveSize(peer, c.Len())
	for _, w := range in.workers {
		w.Queue().Push(c)
	}
}

// stop closes the inbound connection and every worker's connection.
func (in *Ingester) stop() {
	in.mu.Lock()
	conn := in.conn
	in.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	for _, w := range in.workers {
		w.Stop()
	}
	in.logger.Info("connection closed")
}
