// Package worker implements the per-request exchange pipeline: read
// request, authenticate under the secure namespace, route to a handler or
// upgrade to a WebSocket session, write the reply.
package worker

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/cqc-go/webcore/pkg/authdigest"
	"github.com/cqc-go/webcore/pkg/connqueue"
	"github.com/cqc-go/webcore/pkg/httpmsg"
	"github.com/cqc-go/webcore/pkg/router"
	"github.com/cqc-go/webcore/pkg/wsproto"
)

// RequestReader reads one HTTP request off conn, bounded by a read
// deadline, standing in for the HTTP/1.x wire parser this core treats as an
// external collaborator.
type RequestReader func(conn net.Conn, deadline time.Time) (*httpmsg.Request, error)

// UpgradeHandoff is invoked once a WebSocket upgrade has been validated and
// the 101 response written; it takes ownership of conn for the lifetime of
// the session and must not return until the session ends.
type UpgradeHandoff func(conn net.Conn, req *httpmsg.Request, role authdigest.Role, user string)

// Config bundles a Worker's collaborators.
type Config struct {
	Handlers *router.WorkerHandlers
	ReadRequest RequestReader
	SecureNamespacePrefix string
	PasswordLookup authdigest.PasswordLookup
	WebsockPrefix string
	Upgrade UpgradeHandoff
	ServerHeader string
	Logger *slog.Logger
}

// Worker pulls connections from a queue and runs the exchange pipeline on
// each, one at a time, for its entire lifetime.
type Worker struct {
	cfg Config
	queue *connqueue.Queue
	log *slog.Logger
}

// New returns a Worker reading from queue.
func New(cfg Config, queue *connqueue.Queue) *Worker {
	log:= cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Worker{cfg: cfg, queue: queue, log: log.With("component", "worker")}
}

// Run loops taking connections and handling one exchange each until
// shutdown is closed. takeWait bounds each dequeue attempt so shutdown is
// observed within that bound.
func (w *Worker) Run(shutdown <-chan struct{}, takeWait time.Duration) {
	for {
		select {
		case <-shutdown:
			return
		default:
		}
		conn, ok:= w.queue.Take(takeWait)
		if !ok {
			continue
		}
		w.handleExchange(conn)
	}
}

// handleExchange runs exactly one HTTP exchange to completion (or an
// upgrade hand-off), regardless of outcome, failure contract.
func (w *Worker) handleExchange(conn connqueue.Conn) {
	req, err:= w.cfg.ReadRequest(conn.Raw, time.Now().Add(30*time.Second))
	if err != nil {
		w.log.Info("request read failed, closing", "remote", conn.RemoteAddr, "err", err)
		conn.Raw.Close()
		return
	}
	req.RemoteAddr = conn.RemoteAddr
	req.Secure = conn.Kind == connqueue.TLS

	if strings.Contains(req.ContentType, "application/x-www-form-urlencoded") {
		mergeFormBody(req)
	}

	var role authdigest.Role
	var user string
	if w.cfg.SecureNamespacePrefix != "" && strings.HasPrefix(req.Path, w.cfg.SecureNamespacePrefix) {
		var resp *httpmsg.Response
		resp, role, user = w.authenticate(req)
		if resp != nil {
			w.writeResponse(conn.Raw, req, resp)
			conn.Raw.Close()
			return
		}
	}

	if w.cfg.WebsockPrefix != "" && strings.HasPrefix(req.Path, w.cfg.WebsockPrefix) {
		accept, err:= wsproto.ValidateUpgrade(req)
		if err != nil {
			resp:= httpmsg.NewResponse().WithStatus(400).WithBody([]byte("bad websocket upgrade"))
			w.writeResponse(conn.Raw, req, resp)
			conn.Raw.Close()
			return
		}
		resp:= &httpmsg.Response{Status: 101, Reason: httpmsg.ReasonPhrase(101), Header: wsproto.UpgradeResponseHeaders(accept)}
		w.writeResponse(conn.Raw, req, resp)
		w.cfg.Upgrade(conn.Raw, req, role, user)
		return
	}

	handler, remainder, ok:= w.cfg.Handlers.Resolve(req.Path)
	if !ok {
		resp:= httpmsg.NewResponse().WithStatus(404).WithBody([]byte("404 not found"))
		w.writeResponse(conn.Raw, req, resp)
		conn.Raw.Close()
		return
	}
	if !handler.AllowedMethod(req.Method) {
		resp:= httpmsg.NewResponse().WithStatus(400).WithBody([]byte("method not allowed"))
		w.writeResponse(conn.Raw, req, resp)
		conn.Raw.Close()
		return
	}

	resp:= w.invokeHandler(handler, req, remainder)
	if req.Method == "HEAD" {
		resp.Body = nil
	}
	w.writeResponse(conn.Raw, req, resp)
	conn.Raw.Close()
}

// invokeHandler calls the handler, catching any panic at the worker
// boundary and translating it to a 5xx reply
func (w *Worker) invokeHandler(h router.Handler, req *httpmsg.Request, remainder string) (resp *httpmsg.Response) {
	defer func() {
		if r:= recover(); r != nil {
			w.log.Error("handler panic", "path", req.Path, "panic", r)
			resp = httpmsg.NewResponse().WithStatus(500).WithBody([]byte("internal error"))
		}
	}()
	return h.ServeHTTP(req, remainder)
}

func (w *Worker) authenticate(req *httpmsg.Request) (*httpmsg.Response, authdigest.Role, string) {
	gate:= authdigest.GateForPath(req.Path)
	if gate == authdigest.RoleNone {
		return nil, authdigest.RoleNone, ""
	}

	host:= req.Header.Get("Host")
	header:= req.Header.Get("Authorization")
	if header == "" {
		return w.challenge(req.Path, host, false), authdigest.RoleNone, ""
	}

	parsed, ok:= authdigest.ParseAuthorization(header)
	if !ok {
		resp:= httpmsg.NewResponse().WithStatus(400).WithBody([]byte("bad digest fields"))
		return resp, authdigest.RoleNone, ""
	}

	outcome, role, user:= authdigest.Verify(time.Now(), req.Method, host, parsed, w.cfg.PasswordLookup)
	switch outcome {
	case authdigest.OutcomeOK:
		if !role.Satisfies(gate) {
			return w.challenge(req.Path, host, false), role, user
		}
		req.Query = append(req.Query, httpmsg.Param{Name: "_authUser", Value: user})
		return nil, role, user
	case authdigest.OutcomeStale:
		return w.challenge(req.Path, host, true), authdigest.RoleNone, user
	default:
		return w.challenge(req.Path, host, false), authdigest.RoleNone, user
	}
}

func (w *Worker) challenge(path, host string, stale bool) *httpmsg.Response {
	ch:= authdigest.NewChallenge(time.Now(), path, host)
	resp:= httpmsg.NewResponse().WithStatus(401).WithBody([]byte("401 unauthorized"))
	resp.Header.Set("WWW-Authenticate", ch.Header(stale))
	return resp
}

func (w *Worker) writeResponse(conn net.Conn, req *httpmsg.Request, resp *httpmsg.Response) {
	resp.Header.Set("Date", time.Now().UTC().Format(time.RFC1123))
	if w.cfg.ServerHeader != "" {
		resp.Header.Set("Server", w.cfg.ServerHeader)
	}
	resp.Header.Set("Connection", "Close")
	if resp.Reason == "" {
		resp.Reason = httpmsg.ReasonPhrase(resp.Status)
	}
	writeHTTPResponse(conn, resp)
}

// mergeFormBody decodes an application/x-www-form-urlencoded body into
// req.Query,: "the worker parses the body into the same
// query-parameter list the handler receives".
func mergeFormBody(req *httpmsg.Request) {
	values, err:= url.ParseQuery(string(req.Body))
	if err != nil {
		return
	}
	for key, vs:= range values {
		for _, v:= range vs {
			req.Query = append(req.Query, httpmsg.Param{Name: key, Value: v})
		}
	}
}
