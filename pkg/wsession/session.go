// Package wsession implements the per-session state machine: the
// output queue, ping/timeout liveness, field-polling fan-in, and the
// variant dispatch hooks that script-language and RIVA sessions plug into.
package wsession

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cqc-go/webcore/pkg/config"
	"github.com/cqc-go/webcore/pkg/httpmsg"
	"github.com/cqc-go/webcore/pkg/polling"
	"github.com/cqc-go/webcore/pkg/wsproto"
)

// State is the session lifecycle state.
type State int

const (
	StateConnecting State = iota
	StateInMsg
	StateReady
	StateWaitClientEnd
	StateEnd
)

func (s State) String()string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateInMsg:
		return "InMsg"
	case StateReady:
		return "Ready"
	case StateWaitClientEnd:
		return "WaitClientEnd"
	case StateEnd:
		return "End"
	default:
		return "Unknown"
	}
}

// Variant is the per-WebSocket-type behavior the session loop dispatches
// into, replacing virtual inheritance with a closed set at the session
// level.
type Variant interface {
	// Connected is called once after handshake, before the loop starts.
	Connected(s *Session)

	// ProcessMessage handles one complete, UTF-8-decoded text/binary
	// message. op distinguishes text (wsproto.OpText) from binary.
	ProcessMessage(s *Session, op wsproto.Opcode, text string)

	// FieldChanged is called once per changed subscribed field, serialised
	// one poll cycle at a time.
	FieldChanged(s *Session, moniker, name string, valid bool, formatted string)

	// Idle is called once per loop iteration when neither egress nor
	// ingress had anything ready.
	Idle(s *Session)

	// Disconnected is called on any exit path, exactly once.
	Disconnected(s *Session)
}

// FieldSubscription is one polled (device, field) pair with its last-seen
// value.
type FieldSubscription struct {
	Moniker string
	Field string
	LastValue string
	Valid bool
}

// Session is the WebSocket session core shared by every variant.
type Session struct {
	conn net.Conn
	reader *bufio.Reader

	cfg config.SessionConfig
	variant Variant
	pollSvc polling.Service
	egressCap int
	log *slog.Logger

	mu sync.Mutex
	state State

	egress [][]byte
	egressPaused bool

	lastIn time.Time
	pongPending bool
	pingCookie uint32

	nextFieldPoll time.Time
	fields []FieldSubscription

	ingressBuf []byte
	assembler wsproto.Assembler

	shutdownRequested bool
	localInitiatedClose bool

	// PeerQuery holds the parsed upgrade URL query parameters.
	PeerQuery httpmsg.Params

	onFrameSent func(op wsproto.Opcode)
	onFrameReceived func(op wsproto.Opcode)
}

// New constructs a Session. pollSvc may be nil if the variant registers no
// field subscriptions.
func New(conn net.Conn, cfg config.SessionConfig, variant Variant, pollSvc polling.Service, egressCap int, peerQuery httpmsg.Params, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		conn: conn,
		reader: bufio.NewReaderSize(conn, 16*1024),
		cfg: cfg,
		variant: variant,
		pollSvc: pollSvc,
		egressCap: egressCap,
		log: log.With("component", "session"),
		state: StateConnecting,
		PeerQuery: peerQuery,
	}
}

// Rebind reinitializes s for reuse with a fresh connection, discarding any
// state left over from its previous active lifetime.
func (s *Session) Rebind(conn net.Conn, peerQuery httpmsg.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	s.reader = bufio.NewReaderSize(conn, 16*1024)
	s.state = StateConnecting
	s.egress = nil
	s.egressPaused = false
	s.pongPending = false
	s.pingCookie = 0
	s.fields = nil
	s.ingressBuf = nil
	s.assembler = wsproto.Assembler{}
	s.shutdownRequested = false
	s.localInitiatedClose = false
	s.PeerQuery = peerQuery
}

// OnFrameSent/OnFrameReceived let callers (metrics wiring) observe frame
// traffic without the session depending on pkg/metrics directly.
func (s *Session) OnFrameSent(f func(op wsproto.Opcode)) { s.onFrameSent = f }
func (s *Session) OnFrameReceived(f func(op wsproto.Opcode)) { s.onFrameReceived = f }

// State returns the current lifecycle state.
func (s *Session) State()State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// RequestShutdown asks the session loop to end at its next iteration.
func (s *Session) RequestShutdown(){
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
}

// RegisterFields sets the field-subscription list polled once per second
// after warm-up.
func (s *Session) RegisterFields(fields []FieldSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = fields
}

// SendText enqueues a UTF-8 text message for delivery.
func (s *Session) SendText(text string) {
	s.enqueue(wsproto.OpText, []byte(text))
}

// SendBinary enqueues a binary message.
func (s *Session) SendBinary(payload []byte) {
	s.enqueue(wsproto.OpBinary, payload)
}

func (s *Session) enqueue(op wsproto.Opcode, payload []byte) {
	for _, f:= range wsproto.FragmentMessage(op, payload) {
		s.mu.Lock()
		if len(s.egress) >= s.egressCap {
			s.log.Warn("egress queue at capacity, dropping oldest", "cap", s.egressCap)
			s.egress = s.egress[1:]
		}
		s.egress = append(s.egress, wsproto.EncodeFrame(f))
		s.mu.Unlock()
	}
}

// PauseEgress/ResumeEgress implement RIVA's "output is paused" check
// (e.g. while the client's tab is hidden).
func (s *Session) PauseEgress(){
	s.mu.Lock()
	s.egressPaused = true
	s.mu.Unlock()
}

func (s *Session) ResumeEgress(){
	s.mu.Lock()
	s.egressPaused = false
	s.mu.Unlock()
}

// Run drives the session loop until the session ends. It is intended to be
// called on its own goroutine, which becomes "the session thread".
func (s *Session) Run(){
	now:= time.Now()
	s.lastIn = now
	s.nextFieldPoll = now.Add(s.cfg.FieldPollWarmup)

	s.setState(StateReady)
	s.variant.Connected(s)

	defer func() {
		s.setState(StateEnd)
		s.variant.Disconnected(s)
		s.conn.Close()
	}()

	for {
		if s.loopOnce() || s.State() == StateEnd {
			return
		}
	}
}

// loopOnce runs one iteration 's numbered steps, returning true if
// the session should end.
func (s *Session) loopOnce()bool {
	s.mu.Lock()
	shutdown:= s.shutdownRequested
	s.mu.Unlock()
	if shutdown {
		s.failAndClose(wsproto.CloseExiting, "exiting")
		return true
	}

	now:= time.Now()
	if now.Sub(s.lastIn) > s.cfg.InactivityTimeout {
		s.failAndClose(wsproto.CloseTimeout, "timeout")
		return true
	}
	if now.Sub(s.lastIn) > s.cfg.PingInterval && !s.pongPending {
		s.sendPing()
	}

	if s.pollSvc != nil && !now.Before(s.nextFieldPoll) {
		s.pollFields()
		s.nextFieldPoll = now.Add(s.cfg.FieldPollInterval)
	}

	s.mu.Lock()
	hasEgress:= !s.egressPaused && len(s.egress) > 0
	s.mu.Unlock()
	if hasEgress {
		return s.drainOneEgressMessage()
	}

	s.conn.SetReadDeadline(time.Now().Add(s.cfg.LoopWait))
	frame, hadFrame, ended:= s.tryReadFrame()
	if ended {
		return true
	}
	if hadFrame {
		return s.dispatchFrame(frame)
	}

	s.variant.Idle(s)
	return false
}

// drainOneEgressMessage sends exactly one queued buffer.
func (s *Session) drainOneEgressMessage()bool {
	s.mu.Lock()
	if s.egressPaused || len(s.egress) == 0 {
		s.mu.Unlock()
		return false
	}
	buf:= s.egress[0]
	s.egress = s.egress[1:]
	s.mu.Unlock()

	if _, err:= s.conn.Write(buf); err != nil {
		s.log.Info("send failed, ending session", "err", err)
		s.setState(StateEnd)
		return true
	}
	return false
}

// tryReadFrame decodes one frame from already-buffered bytes if possible,
// otherwise reads more from the socket (bounded by the deadline the caller
// already set) and retries. hadFrame is false, ended is false when the
// bounded read simply timed out with no complete frame yet available.
func (s *Session) tryReadFrame()(frame *wsproto.Frame, hadFrame, ended bool) {
	for {
		f, n, err:= wsproto.DecodeFrame(s.ingressBuf, s.cfg.MaxFragmentSize)
		if err != nil {
			if perr, ok:= err.(*wsproto.ProtocolError); ok {
				s.failAndClose(perr.Code, perr.Reason)
			} else {
				s.failAndClose(wsproto.CloseProtocolError, err.Error())
			}
			return nil, false, true
		}
		if f != nil {
			s.ingressBuf = append([]byte(nil), s.ingressBuf[n:]...)
			s.lastIn = time.Now()
			if s.onFrameReceived != nil {
				s.onFrameReceived(f.Opcode)
			}
			return f, true, false
		}

		tmp:= make([]byte, 4096)
		k, readErr:= s.reader.Read(tmp)
		if k > 0 {
			s.ingressBuf = append(s.ingressBuf, tmp[:k]...)
			continue
		}
		if readErr != nil {
			if ne, ok:= readErr.(net.Error); ok && ne.Timeout() {
				return nil, false, false
			}
			s.setState(StateEnd)
			return nil, false, true
		}
		return nil, false, false
	}
}

// dispatchFrame handles one decoded frame per opcode.
func (s *Session) dispatchFrame(f *wsproto.Frame) bool {
	switch f.Opcode {
	case wsproto.OpClose:
		if s.localInitiatedClose {
			s.setState(StateEnd)
			return true
		}
		s.sendCloseFrame(wsproto.CloseNormal)
		s.drainEgressBestEffort()
		s.setState(StateEnd)
		return true
	case wsproto.OpPing:
		s.enqueue(wsproto.OpPong, f.Payload)
		return false
	case wsproto.OpPong:
		s.pongPending = false
		return false
	default:
		op, payload, err:= s.assembler.Feed(f)
		if err == wsproto.ErrNoCompleteMessage {
			return false
		}
		if err != nil {
			if perr, ok:= err.(*wsproto.ProtocolError); ok {
				s.failAndClose(perr.Code, perr.Reason)
			}
			return true
		}
		if op == wsproto.OpText && !utf8.Valid(payload) {
			s.failAndClose(wsproto.CloseInvalidPayload, "bad data")
			return true
		}
		s.variant.ProcessMessage(s, op, string(payload))
		return false
	}
}

func (s *Session) sendPing(){
	s.pingCookie++
	cookie:= s.pingCookie
	payload:= []byte{byte(cookie >> 24), byte(cookie >> 16), byte(cookie >> 8), byte(cookie)}
	s.enqueue(wsproto.OpPing, payload)
	s.pongPending = true
}

func (s *Session) sendCloseFrame(code wsproto.FailureCode) {
	payload:= []byte{byte(code >> 8), byte(code)}
	s.enqueue(wsproto.OpClose, payload)
	if s.onFrameSent != nil {
		s.onFrameSent(wsproto.OpClose)
	}
}

// failAndClose sends a close frame with code, then waits up to
// GracefulCloseWait for the peer's own close frame before forcing the
// session to StateEnd.
func (s *Session) failAndClose(code wsproto.FailureCode, reason string) {
	s.log.Info("ending session", "code", code, "reason", reason)
	s.localInitiatedClose = true
	s.setState(StateWaitClientEnd)
	s.sendCloseFrame(code)
	s.drainEgressBestEffort()
	s.waitForPeerClose(s.cfg.GracefulCloseWait)
	s.setState(StateEnd)
}

// drainEgressBestEffort flushes whatever is already queued (including the
// close frame just enqueued) before the session stops reading new input.
func (s *Session) drainEgressBestEffort(){
	s.mu.Lock()
	pending:= s.egress
	s.egress = nil
	s.mu.Unlock()
	for _, buf:= range pending {
		if _, err:= s.conn.Write(buf); err != nil {
			return
		}
	}
}

// waitForPeerClose polls the socket in short bursts until the peer's close
// frame arrives or timeout elapses.
func (s *Session) waitForPeerClose(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	deadline:= time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		f, n, err:= wsproto.DecodeFrame(s.ingressBuf, s.cfg.MaxFragmentSize)
		if err != nil {
			return
		}
		if f != nil {
			s.ingressBuf = append([]byte(nil), s.ingressBuf[n:]...)
			if f.Opcode == wsproto.OpClose {
				return
			}
			continue
		}

		s.conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		tmp:= make([]byte, 4096)
		k, readErr:= s.reader.Read(tmp)
		if k > 0 {
			s.ingressBuf = append(s.ingressBuf, tmp[:k]...)
			continue
		}
		if readErr != nil {
			if ne, ok:= readErr.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
	}
}

func (s *Session) pollFields(){
	s.mu.Lock()
	fields:= append([]FieldSubscription(nil), s.fields...)
	s.mu.Unlock()

	ctx:= context.Background()
	for i, f:= range fields {
		sub:= polling.Subscription{Moniker: f.Moniker, Field: f.Field}
		val, changed, err:= s.pollSvc.UpdateValue(ctx, sub)
		if err != nil || !changed {
			continue
		}
		fields[i].LastValue = val.Formatted
		fields[i].Valid = val.Valid
		s.variant.FieldChanged(s, f.Moniker, f.Field, val.Valid, val.Formatted)
	}

	s.mu.Lock()
	s.fields = fields
	s.mu.Unlock()
}
