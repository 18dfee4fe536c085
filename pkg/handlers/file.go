package handlers

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/cqc-go/webcore/pkg/httpmsg"
	"github.com/cqc-go/webcore/pkg/imgrepo"
)

// TokenSubstitution resolves a %%TOKEN%% placeholder found in a served HTML
// file's content. It returns the substituted value and whether the token
// was recognized.
type TokenSubstitution func(token string) (string, bool)

// FileHandler is the catch-all static file handler named here: registered
// under the shortest prefix, "/", so it serves only paths no other prefix
// matches.
type FileHandler struct {
	repo imgrepo.Repository
	substitute TokenSubstitution
}

// NewFileHandler returns a factory producing a FileHandler backed by repo.
// substitute may be nil to skip token processing.
func NewFileHandler(repo imgrepo.Repository, substitute TokenSubstitution) func() *FileHandler {
	return func() *FileHandler { return &FileHandler{repo: repo, substitute: substitute} }
}

func (h *FileHandler) AllowedMethod(method string) bool {
	return method == "GET" || method == "HEAD"
}

func (h *FileHandler) ServeHTTP(req *httpmsg.Request, remainder string) *httpmsg.Response {
	path:= remainder
	if path == "" || path == "/" {
		path = "/index.html"
	}

	inSerial:= conditionalSerial(req)
	result, err:= h.repo.ReadImage(path, inSerial, "")
	if err != nil {
		resp:= httpmsg.NewResponse().WithStatus(404).WithBody([]byte("404 not found"))
		resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
		return resp
	}
	if result.Unchanged {
		resp:= httpmsg.NewResponse().WithStatus(304)
		resp.Header.Set("Last-Modified", imgrepo.SerialTag(result.NewSerial))
		return resp
	}

	body:= result.Buffer
	contentType:= mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if strings.HasPrefix(contentType, "text/") || strings.Contains(contentType, "html") {
		if !strings.Contains(contentType, "charset") {
			contentType += "; charset=utf-8"
		}
		if h.substitute != nil {
			body = []byte(substituteTokens(string(body), h.substitute))
		}
	}

	resp:= httpmsg.NewResponse().WithStatus(200).WithBody(body)
	resp.Header.Set("Content-Type", contentType)
	resp.Header.Set("Last-Modified", imgrepo.SerialTag(result.NewSerial))
	resp.Header.Set("Cache-Control", "no-cache")
	return resp
}

// conditionalSerial extracts the CQCRepoSerNum serial from an
// If-Modified-Since header, returning -1 if absent or unparseable so the
// repository always treats the request as a fresh fetch.
func conditionalSerial(req *httpmsg.Request) int64 {
	v:= req.Header.Get("If-Modified-Since")
	if v == "" {
		return -1
	}
	if serial, ok:= imgrepo.ParseSerialTag(v); ok {
		return serial
	}
	return -1
}

// substituteTokens replaces every %%TOKEN%% occurrence in body using
// resolve, leaving unrecognized tokens untouched.
func substituteTokens(body string, resolve TokenSubstitution) string {
	var out strings.Builder
	rest:= body
	for {
		start:= strings.Index(rest, "%%")
		if start < 0 {
			out.WriteString(rest)
			break
		}
		end:= strings.Index(rest[start+2:], "%%")
		if end < 0 {
			out.WriteString(rest)
			break
		}
		token:= rest[start+2: start+2+end]
		out.WriteString(rest[:start])
		if val, ok:= resolve(token); ok {
			out.WriteString(val)
		} else {
			out.WriteString("%%" + token + "%%")
		}
		rest = rest[start+2+end+2:]
	}
	return out.String()
}
