// Package httpmsg holds the request/response data model for one HTTP
// exchange on one worker. The wire-level HTTP/1.x parsing itself is an
// external collaborator; this package only
// shapes what a worker passes to a handler and what a handler hands back.
package httpmsg

import (
	"mime"
	"net/textproto"
	"strconv"
	"strings"
)

// Request is one HTTP exchange's inbound half. Headers preserve the order
// they arrived in for iteration, but are looked up case-insensitively.
type Request struct {
	Method string
	Path string
	RawQuery string
	Proto string // "HTTP/1.0" or "HTTP/1.1"
	Header Header
	ContentType string
	Charset string
	Body []byte

	// Query is the parsed query-parameter list. For POST requests with
	// application/x-www-form-urlencoded bodies, the worker merges the body
	// into this same list before invoking a handler.
	Query Params

	RemoteAddr string
	Secure bool
}

// ContentLength reports the length of Body.
func (r *Request) ContentLength()int {
	return len(r.Body)
}

// Header is an ordered, case-insensitively-keyed header map.
type Header struct {
	keys []string
	values map[string][]string
}

// NewHeader returns an empty Header.
func NewHeader()Header {
	return Header{values: make(map[string][]string)}
}

// Add appends a value for key, preserving first-seen key order.
func (h *Header) Add(key, value string) {
	if h.values == nil {
		h.values = make(map[string][]string)
	}
	ck:= textproto.CanonicalMIMEHeaderKey(key)
	if _, ok:= h.values[ck]; !ok {
		h.keys = append(h.keys, ck)
	}
	h.values[ck] = append(h.values[ck], value)
}

// Set replaces any existing values for key.
func (h *Header) Set(key, value string) {
	ck:= textproto.CanonicalMIMEHeaderKey(key)
	if h.values == nil {
		h.values = make(map[string][]string)
	}
	if _, ok:= h.values[ck]; !ok {
		h.keys = append(h.keys, ck)
	}
	h.values[ck] = []string{value}
}

// Get returns the first value for key, or "".
func (h Header) Get(key string) string {
	vs:= h.values[textproto.CanonicalMIMEHeaderKey(key)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns all values for key in arrival order.
func (h Header) Values(key string) []string {
	return h.values[textproto.CanonicalMIMEHeaderKey(key)]
}

// Keys returns header names in first-seen order.
func (h Header) Keys()[]string {
	return h.keys
}

// ParseContentType splits a Content-Type header into type and charset.
func ParseContentType(raw string) (contentType, charset string) {
	if raw == "" {
		return "", ""
	}
	mt, params, err:= mime.ParseMediaType(raw)
	if err != nil {
		return strings.TrimSpace(raw), ""
	}
	return mt, params["charset"]
}

// Param is a single name/value query or form parameter. Duplicate names are
// preserved in order, matching the worker's merge of form-body params into
// the URL query-parameter list.
type Param struct {
	Name string
	Value string
}

// Params is an ordered list of parameters with case-sensitive name lookup
// (query/form parameter names are meaningful verbatim, unlike headers).
type Params []Param

// Get returns the first value for name, and whether it was present.
func (p Params) Get(name string) (string, bool) {
	for _, kv:= range p {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return "", false
}

// GetDefault returns the first value for name or def if absent.
func (p Params) GetDefault(name, def string) string {
	if v, ok:= p.Get(name); ok {
		return v
	}
	return def
}

// Append returns a new Params with (name, value) appended.
func (p Params) Append(name, value string) Params {
	return append(p, Param{Name: name, Value: value})
}

// ParseQuery parses an encoded query string ("a=1&b=2") into Params, in
// arrival order, preserving duplicates.
func ParseQuery(raw string) Params {
	var out Params
	for _, pair:= range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		var name, value string
		if idx:= strings.IndexByte(pair, '='); idx >= 0 {
			name, value = pair[:idx], pair[idx+1:]
		} else {
			name = pair
		}
		out = append(out, Param{Name: queryUnescape(name), Value: queryUnescape(value)})
	}
	return out
}

// queryUnescape is a permissive x-www-form-urlencoded decoder: invalid
// escapes pass through literally rather than failing the whole request,
// matching the forgiving posture expected of embedded-device clients.
func queryUnescape(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	var b strings.Builder
	b.Grow(len(s))
	for i:= 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err:= strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
