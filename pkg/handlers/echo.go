// Package handlers implements the concrete URL-prefix handlers: Echo,
// image, CMLBin (script-code), and a catch-all file handler. The Echo
// handler is a plain config-file request router with no intent parsing,
// while image/CMLBin bodies remain thin wrappers over their respective
// external-collaborator façades.
package handlers

import (
	"encoding/json"

	"github.com/cqc-go/webcore/pkg/httpmsg"
)

// EchoReply is the JSON envelope every Echo response carries, success or
// failure.
type EchoReply struct {
	Reply string `json:"Reply"`
	Ok bool `json:"Ok"`
}

// EchoRouteTable maps a recognized request phrase to a canned reply,
// standing in for the original's config-file-driven phrase router.
type EchoRouteTable map[string]string

// EchoHandler is the plain config-file request router named here It
// performs no intent parsing: an unrecognized phrase is simply "not found",
// not an error.
type EchoHandler struct {
	routes EchoRouteTable
}

// NewEchoHandler returns a factory producing an EchoHandler bound to routes.
func NewEchoHandler(routes EchoRouteTable) func() *EchoHandler {
	return func() *EchoHandler { return &EchoHandler{routes: routes} }
}

func (h *EchoHandler) AllowedMethod(method string) bool {
	return method == "GET" || method == "POST"
}

func (h *EchoHandler) ServeHTTP(req *httpmsg.Request, remainder string) *httpmsg.Response {
	phrase:= req.Query.GetDefault("phrase", remainder)

	reply, ok:= h.routes[phrase]
	envelope:= EchoReply{Ok: ok}
	if ok {
		envelope.Reply = reply
	} else {
		envelope.Reply = "unrecognized request"
	}

	body, err:= json.Marshal(envelope)
	if err != nil {
		return httpmsg.NewResponse().WithStatus(500).WithBody([]byte(`{"Reply":"internal error","Ok":false}`))
	}

	resp:= httpmsg.NewResponse().WithStatus(200).WithBody(body)
	resp.Header.Set("Content-Type", "application/json; charset=utf-8")
	return resp
}
