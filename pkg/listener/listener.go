// Package listener implements the accept loop: binds up to two
// ports (plain and TLS), offers accepted connections to the queue, and
// grows the worker pool on backlog up to a hard cap. It also reclaims idle
// workers back down to a floor.
package listener

import (
	"crypto/tls"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cqc-go/webcore/pkg/connqueue"
)

// WorkerSpawner starts one more worker goroutine bound to the shared queue,
// running until shutdown fires.
type WorkerSpawner func(shutdown <-chan struct{})

// Config bundles a Listener's dependencies and bounds.
type Config struct {
	PlainAddr string
	TLSAddr string
	TLSConfig *tls.Config

	Queue *connqueue.Queue

	SpawnWorker WorkerSpawner
	WorkerPoolFloor int
	WorkerPoolCap int
	WorkerIdleGrace time.Duration

	AcceptWait time.Duration
	Logger *slog.Logger
}

// Pool tracks the live worker count this listener has spawned, growing on
// backlog and shrinking idle workers back to the floor.
// Mutated only by the listener goroutine.
type Pool struct {
	mu sync.Mutex
	size int
	floor int
	cap int
	lastGrow time.Time
}

func newPool(floor, cap int) *Pool {
	if floor < 1 {
		floor = 1
	}
	if cap < floor {
		cap = floor
	}
	return &Pool{size: floor, floor: floor, cap: cap}
}

// Size returns the current worker count.
func (p *Pool) Size()int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// tryGrow adds one worker if below cap, returning whether it grew.
func (p *Pool) tryGrow()bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.size >= p.cap {
		return false
	}
	p.size++
	p.lastGrow = time.Now()
	return true
}

// shrinkToFloor removes workers down to the floor; it is the caller's
// responsibility to actually stop that many worker goroutines. Returns how
// many should be stopped. Only called after WorkerIdleGrace has elapsed
// since the last growth, so the pool doesn't thrash.
func (p *Pool) shrinkToFloor(idleGrace time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.size <= p.floor {
		return 0
	}
	if time.Since(p.lastGrow) < idleGrace {
		return 0
	}
	removable:= p.size - p.floor
	p.size = p.floor
	return removable
}

// Listener runs the accept loop.
type Listener struct {
	cfg Config
	pool *Pool
	log *slog.Logger
}

// New returns a Listener. Worker goroutines up to WorkerPoolFloor should be
// started by the caller before calling Run; Run grows beyond that on
// backlog.
func New(cfg Config) *Listener {
	log:= cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.WorkerIdleGrace <= 0 {
		cfg.WorkerIdleGrace = 30 * time.Second
	}
	return &Listener{
		cfg: cfg,
		pool: newPool(cfg.WorkerPoolFloor, cfg.WorkerPoolCap),
		log: log.With("component", "listener"),
	}
}

// Pool exposes the worker pool for observability/metrics wiring.
func (l *Listener) Pool()*Pool { return l.pool }

// Run binds the configured listeners and loops accepting connections until
// shutdown is closed. It never performs I/O on the accepted connection
// beyond accept.
func (l *Listener) Run(shutdown <-chan struct{}) error {
	var wg sync.WaitGroup
	errs:= make(chan error, 2)

	if l.cfg.PlainAddr != "" {
		ln, err:= net.Listen("tcp", l.cfg.PlainAddr)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.acceptLoop(ln, connqueue.Plain, shutdown)
		}()
	}

	if l.cfg.TLSAddr != "" {
		ln, err:= net.Listen("tcp", l.cfg.TLSAddr)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.acceptLoop(ln, connqueue.TLS, shutdown)
		}()
	}

	go l.reclaimLoop(shutdown)

	wg.Wait()
	close(errs)
	for err:= range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *Listener) acceptLoop(ln net.Listener, kind connqueue.Kind, shutdown <-chan struct{}) {
	defer ln.Close()
	go func() {
		<-shutdown
		ln.Close()
	}()

	acceptWait:= l.cfg.AcceptWait
	if acceptWait <= 0 {
		acceptWait = 250 * time.Millisecond
	}

	for {
		select {
		case <-shutdown:
			return
		default:
		}

		if dl, ok:= ln.(interface{ SetDeadline(time.Time) error }); ok {
			dl.SetDeadline(time.Now().Add(acceptWait))
		}

		conn, err:= ln.Accept()
		if err != nil {
			if ne, ok:= err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-shutdown:
				return
			default:
				l.log.Warn("accept failed", "err", err)
				continue
			}
		}

		l.dispatch(connqueue.Conn{Raw: conn, Kind: kind, RemoteAddr: conn.RemoteAddr().String()}, shutdown)
	}
}

// dispatch enqueues conn, growing the worker pool first if the queue
// already has backlog and the pool is below its hard cap.
func (l *Listener) dispatch(c connqueue.Conn, shutdown <-chan struct{}) {
	if l.cfg.Queue.Len() >= 1 && l.pool.tryGrow() {
		if l.cfg.SpawnWorker != nil {
			go l.cfg.SpawnWorker(shutdown)
		}
	}

	if err:= l.cfg.Queue.Offer(c); err != nil {
		l.log.Warn("connection queue full, dropping connection", "remote", c.RemoteAddr)
		c.Raw.Close()
	}
}

// reclaimLoop periodically shrinks the worker pool back to its floor once
// workers have sat idle past WorkerIdleGrace. It only
// adjusts the tracked pool size; actually stopping the corresponding worker
// goroutines is the spawner's responsibility via its own idle-exit logic.
func (l *Listener) reclaimLoop(shutdown <-chan struct{}) {
	ticker:= time.NewTicker(l.cfg.WorkerIdleGrace)
	defer ticker.Stop()
	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			l.pool.shrinkToFloor(l.cfg.WorkerIdleGrace)
		}
	}
}
