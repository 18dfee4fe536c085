// Package router implements the static longest-prefix-match URL router
// described here: a fixed (prefix, factory) list, tried in order, with
// one lazily-created handler instance cached per worker.
package router

import (
	"strings"

	"github.com/cqc-go/webcore/pkg/httpmsg"
)

// Handler serves one HTTP exchange for a matched prefix.
type Handler interface {
	// ServeHTTP handles req and returns the response to write. remainder is
	// the portion of the path after the matched prefix.
	ServeHTTP(req *httpmsg.Request, remainder string) *httpmsg.Response

	// AllowedMethod reports whether method is acceptable for this handler;
	// the image and file handlers reject anything but GET.
	AllowedMethod(method string) bool
}

// Factory lazily constructs a Handler. Each worker keeps its own set of
// instances.
type Factory func() Handler

type route struct {
	prefix string
	factory Factory
}

// Router is a static, ordered list of (prefix, factory) routes.
type Router struct {
	routes []route
}

// New builds an empty Router. Match picks the longest matching prefix, so
// registration order only decides between routes with prefixes of equal
// length (the earlier one wins).
func New()*Router {
	return &Router{}
}

// Register adds a route. Prefix matching is case-sensitive and matches on
// path segment boundaries or an exact match.
func (r *Router) Register(prefix string, factory Factory) {
	r.routes = append(r.routes, route{prefix: prefix, factory: factory})
}

// Match finds the best route for path using longest-prefix-wins semantics
// among all routes whose prefix matches; on a tie in prefix length,
// registration order wins. It returns the matched prefix, the factory, and
// the path remainder (path with the prefix stripped), or ok=false.
func (r *Router) Match(path string) (prefix string, factory Factory, remainder string, ok bool) {
	bestLen:= -1
	for _, rt:= range r.routes {
		if !prefixMatches(path, rt.prefix) {
			continue
		}
		if len(rt.prefix) > bestLen {
			bestLen = len(rt.prefix)
			prefix = rt.prefix
			factory = rt.factory
			ok = true
		}
	}
	if ok {
		remainder = strings.TrimPrefix(path, prefix)
	}
	return prefix, factory, remainder, ok
}

func prefixMatches(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	// Require a segment boundary so "/Img" doesn't match "/ImgFoo".
	return prefix == "/" || path[len(prefix)] == '/'
}

// WorkerHandlers lazily instantiates and caches one Handler per prefix for
// a single worker: one handler instance per worker, lazily created.
type WorkerHandlers struct {
	router *Router
	instances map[string]Handler
}

// NewWorkerHandlers returns a per-worker handler cache bound to router.
func NewWorkerHandlers(router *Router) *WorkerHandlers {
	return &WorkerHandlers{router: router, instances: make(map[string]Handler)}
}

// Resolve matches path and returns the worker's cached Handler instance for
// that route (constructing it on first use), the remainder, and ok.
func (w *WorkerHandlers) Resolve(path string) (handler Handler, remainder string, ok bool) {
	prefix, factory, remainder, ok:= w.router.Match(path)
	if !ok {
		return nil, "", false
	}
	if h, cached:= w.instances[prefix]; cached {
		return h, remainder, true
	}
	h:= factory()
	w.instances[prefix] = h
	return h, remainder, true
}
