package wsession

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/cqc-go/webcore/pkg/config"
	"github.com/cqc-go/webcore/pkg/polling"
	"github.com/cqc-go/webcore/pkg/wsproto"
)

type recordingVariant struct {
	mu sync.Mutex
	connected bool
	messages []string
	changed []string
	idles int
	done chan struct{}
}

func newRecordingVariant()*recordingVariant {
	return &recordingVariant{done: make(chan struct{})}
}

func (v *recordingVariant) Connected(s *Session) {
	v.mu.Lock()
	v.connected = true
	v.mu.Unlock()
}

func (v *recordingVariant) ProcessMessage(s *Session, op wsproto.Opcode, text string) {
	v.mu.Lock()
	v.messages = append(v.messages, text)
	v.mu.Unlock()
	s.SendText("echo:" + text)
}

func (v *recordingVariant) FieldChanged(s *Session, moniker, name string, valid bool, formatted string) {
	v.mu.Lock()
	v.changed = append(v.changed, moniker+"."+name+"="+formatted)
	v.mu.Unlock()
}

func (v *recordingVariant) Idle(s *Session) {
	v.mu.Lock()
	v.idles++
	v.mu.Unlock()
}

func (v *recordingVariant) Disconnected(s *Session) {
	close(v.done)
}

func testConfig()config.SessionConfig {
	c:= config.DefaultSessionConfig()
	c.LoopWait = 20 * time.Millisecond
	c.InactivityTimeout = time.Second
	c.PingInterval = 500 * time.Millisecond
	c.GracefulCloseWait = 100 * time.Millisecond
	return c
}

func writeFrame(t *testing.T, conn net.Conn, op wsproto.Opcode, payload []byte) {
	t.Helper()
	frames:= wsproto.FragmentMessage(op, payload)
	for _, f:= range frames {
		if _, err:= conn.Write(wsproto.EncodeFrame(f)); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
}

// readFrame reads and reassembles one complete message (possibly spanning
// several fragments), returning a synthetic Frame carrying the assembled
// opcode and payload with Fin set.
func readFrame(t *testing.T, conn net.Conn) *wsproto.Frame {
	t.Helper()
	buf:= make([]byte, 0, 256)
	tmp:= make([]byte, 4096)
	var asm wsproto.Assembler
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		f, n, err:= wsproto.DecodeFrame(buf, 1<<20)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if f != nil {
			buf = append([]byte(nil), buf[n:]...)
			if f.Opcode.IsControl() {
				return f
			}
			op, payload, err:= asm.Feed(f)
			if err == wsproto.ErrNoCompleteMessage {
				continue
			}
			if err != nil {
				t.Fatalf("assemble: %v", err)
			}
			return &wsproto.Frame{Fin: true, Opcode: op, Payload: payload}
		}
		k, err:= conn.Read(tmp)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		buf = append(buf, tmp[:k]...)
	}
}

func TestSessionEchoesTextMessage(t *testing.T) {
	clientConn, serverConn:= net.Pipe()
	defer clientConn.Close()

	v:= newRecordingVariant()
	s:= New(serverConn, testConfig(), v, nil, 16, nil, nil)
	go s.Run()

	writeFrame(t, clientConn, wsproto.OpText, []byte("hello"))

	f:= readFrame(t, clientConn)
	if f.Opcode != wsproto.OpText || string(f.Payload) != "echo:hello" {
		t.Fatalf("got opcode=%v payload=%q", f.Opcode, f.Payload)
	}

	s.RequestShutdown()
	select {
	case <-v.done:
	case <-time.After(2 * time.Second):
		t.Fatal("session never disconnected")
	}
}

func TestSessionFragmentsLargeOutgoingMessage(t *testing.T) {
	clientConn, serverConn:= net.Pipe()
	defer clientConn.Close()

	v:= newRecordingVariant()
	s:= New(serverConn, testConfig(), v, nil, 16, nil, nil)
	go s.Run()

	big:= make([]byte, wsproto.MaxFragmentSize*2+10)
	for i:= range big {
		big[i] = 'a'
	}
	writeFrame(t, clientConn, wsproto.OpBinary, big)

	f:= readFrame(t, clientConn)
	want:= "echo:" + string(big)
	if f.Opcode != wsproto.OpText || string(f.Payload) != want {
		t.Fatalf("got payload len=%d, want len=%d", len(f.Payload), len(want))
	}

	s.RequestShutdown()
	<-v.done
}

func TestSessionRespondsToPing(t *testing.T) {
	clientConn, serverConn:= net.Pipe()
	defer clientConn.Close()

	v:= newRecordingVariant()
	s:= New(serverConn, testConfig(), v, nil, 16, nil, nil)
	go s.Run()

	writeFrame(t, clientConn, wsproto.OpPing, []byte("cookie"))

	f:= readFrame(t, clientConn)
	if f.Opcode != wsproto.OpPong || string(f.Payload) != "cookie" {
		t.Fatalf("got opcode=%v payload=%q, want pong/cookie", f.Opcode, f.Payload)
	}

	s.RequestShutdown()
	<-v.done
}

func TestSessionClosesOnPeerClose(t *testing.T) {
	clientConn, serverConn:= net.Pipe()
	defer clientConn.Close()

	v:= newRecordingVariant()
	s:= New(serverConn, testConfig(), v, nil, 16, nil, nil)
	go s.Run()

	writeFrame(t, clientConn, wsproto.OpClose, []byte{0x03, 0xE8})

	f:= readFrame(t, clientConn)
	if f.Opcode != wsproto.OpClose {
		t.Fatalf("got opcode=%v, want close", f.Opcode)
	}

	select {
	case <-v.done:
	case <-time.After(2 * time.Second):
		t.Fatal("session never disconnected after peer close")
	}
}

type staticPollService struct {
	mu sync.Mutex
	values map[string]string
}

func (p *staticPollService) RegisterField(ctx context.Context, sub polling.Subscription) error {
	return nil
}

func (p *staticPollService) UpdateValue(ctx context.Context, sub polling.Subscription) (polling.Value, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key:= sub.Moniker + "." + sub.Field
	cur:= p.values[key]
	changed:= cur != ""
	return polling.Value{Formatted: cur, Valid: cur != ""}, changed, nil
}

func TestSessionPollsSubscribedFields(t *testing.T) {
	clientConn, serverConn:= net.Pipe()
	defer clientConn.Close()

	svc:= &staticPollService{values: map[string]string{}}
	v:= newRecordingVariant()
	cfg:= testConfig()
	cfg.FieldPollWarmup = 0
	cfg.FieldPollInterval = 10 * time.Millisecond

	s:= New(serverConn, cfg, v, svc, 16, nil, nil)
	s.RegisterFields([]FieldSubscription{{Moniker: "Thermostat1", Field: "Temp"}})
	go s.Run()

	time.Sleep(20 * time.Millisecond)
	svc.mu.Lock()
	svc.values["Thermostat1.Temp"] = "72.0"
	svc.mu.Unlock()

	deadline:= time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		v.mu.Lock()
		n:= len(v.changed)
		v.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.changed) == 0 {
		t.Fatal("expected at least one FieldChanged callback")
	}
	if v.changed[0] != "Thermostat1.Temp=72.0" {
		t.Fatalf("got %v", v.changed)
	}

	s.RequestShutdown()
}
