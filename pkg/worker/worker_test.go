package worker

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/cqc-go/webcore/pkg/authdigest"
	"github.com/cqc-go/webcore/pkg/connqueue"
	"github.com/cqc-go/webcore/pkg/httpmsg"
	"github.com/cqc-go/webcore/pkg/router"
)

type echoHandler struct{}

func (echoHandler) AllowedMethod(method string) bool { return true }
func (echoHandler) ServeHTTP(req *httpmsg.Request, remainder string) *httpmsg.Response {
	return httpmsg.NewResponse().WithStatus(200).WithBody([]byte("hello:" + remainder))
}

func stubReader(method, path string) RequestReader {
	return func(conn net.Conn, deadline time.Time) (*httpmsg.Request, error) {
		return &httpmsg.Request{Method: method, Path: path, Header: httpmsg.NewHeader()}, nil
	}
}

func readResponseLine(t *testing.T, conn net.Conn) string {
	t.Helper()
	r:= bufio.NewReader(conn)
	line, err:= r.ReadString('\n')
	if err != nil {
		t.Fatalf("read response line: %v", err)
	}
	return strings.TrimSpace(line)
}

func TestWorkerRoutesToHandler(t *testing.T) {
	r:= router.New()
	r.Register("/hello", func() router.Handler { return echoHandler{} })
	handlers:= router.NewWorkerHandlers(r)

	clientConn, serverConn:= net.Pipe()
	defer clientConn.Close()

	cfg:= Config{
		Handlers: handlers,
		ReadRequest: stubReader("GET", "/hello/world"),
	}
	w:= New(cfg, connqueue.New(1))

	done:= make(chan struct{})
	go func() {
		w.handleExchange(connqueue.Conn{Raw: serverConn, RemoteAddr: "1.2.3.4:5"})
		close(done)
	}()

	line:= readResponseLine(t, clientConn)
	if !strings.HasPrefix(line, "HTTP/1.1 200") {
		t.Fatalf("got %q", line)
	}
	<-done
}

func TestWorkerRequiresAuthUnderSecurePrefix(t *testing.T) {
	r:= router.New()
	r.Register("/Secure/Admin", func() router.Handler { return echoHandler{} })
	handlers:= router.NewWorkerHandlers(r)

	clientConn, serverConn:= net.Pipe()
	defer clientConn.Close()

	cfg:= Config{
		Handlers: handlers,
		ReadRequest: stubReader("GET", "/Secure/Admin/x"),
		SecureNamespacePrefix: "/Secure",
		PasswordLookup: func(user string) (string, authdigest.Role, bool) { return "", authdigest.RoleNone, false },
	}
	w:= New(cfg, connqueue.New(1))

	done:= make(chan struct{})
	go func() {
		w.handleExchange(connqueue.Conn{Raw: serverConn, RemoteAddr: "1.2.3.4:5"})
		close(done)
	}()

	line:= readResponseLine(t, clientConn)
	if !strings.HasPrefix(line, "HTTP/1.1 401") {
		t.Fatalf("got %q, want 401 challenge", line)
	}
	<-done
}

func TestWorkerReturns404ForUnmatchedPath(t *testing.T) {
	r:= router.New()
	handlers:= router.NewWorkerHandlers(r)

	clientConn, serverConn:= net.Pipe()
	defer clientConn.Close()

	cfg:= Config{Handlers: handlers, ReadRequest: stubReader("GET", "/nowhere")}
	w:= New(cfg, connqueue.New(1))

	done:= make(chan struct{})
	go func() {
		w.handleExchange(connqueue.Conn{Raw: serverConn, RemoteAddr: "1.2.3.4:5"})
		close(done)
	}()

	line:= readResponseLine(t, clientConn)
	if !strings.HasPrefix(line, "HTTP/1.1 404") {
		t.Fatalf("got %q", line)
	}
	<-done
}
