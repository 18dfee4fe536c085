package handlers

import (
	"github.com/cqc-go/webcore/pkg/httpmsg"
)

// ScriptRunner is the external collaborator that compiles/executes a
// CMLBin-style script identified by path, consuming request query
// parameters.
type ScriptRunner interface {
	Run(path string, params httpmsg.Params) (contentType string, body []byte, err error)
}

// CMLHandler serves the script-code endpoint. It decides per-method
//: GET and POST are both routed to the script, which sees any
// form-decoded POST body merged into the query parameters by the worker.
type CMLHandler struct {
	runner ScriptRunner
}

// NewCMLHandler returns a factory producing a CMLHandler backed by runner.
func NewCMLHandler(runner ScriptRunner) func() *CMLHandler {
	return func() *CMLHandler { return &CMLHandler{runner: runner} }
}

func (h *CMLHandler) AllowedMethod(method string) bool {
	return method == "GET" || method == "POST"
}

func (h *CMLHandler) ServeHTTP(req *httpmsg.Request, remainder string) *httpmsg.Response {
	contentType, body, err:= h.runner.Run(remainder, req.Query)
	if err != nil {
		resp:= httpmsg.NewResponse().WithStatus(500).WithBody([]byte("script error"))
		resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
		return resp
	}
	resp:= httpmsg.NewResponse().WithStatus(200).WithBody(body)
	resp.Header.Set("Content-Type", contentType)
	return resp
}
