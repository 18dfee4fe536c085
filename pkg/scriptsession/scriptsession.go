// Package scriptsession implements the script-language WebSocket session
// variant: it resolves a hosted script class from the upgrade URL,
// constructs it once, and dispatches the session loop's lifecycle
// callbacks into it.
package scriptsession

import (
	"log/slog"
	"strings"

	"github.com/cqc-go/webcore/pkg/security"
	"github.com/cqc-go/webcore/pkg/wsession"
	"github.com/cqc-go/webcore/pkg/wsproto"
)

// Handler is a hosted script-language object reachable at a resolved class
// path. Implementations typically wrap an embedded scripting-language
// engine instance; this package only owns the dispatch contract.
type Handler interface {
	Connected(s *wsession.Session)
	ProcessMessage(s *wsession.Session, text string)
	FieldChanged(s *wsession.Session, moniker, field string, valid bool, formatted string)
	Disconnected(s *wsession.Session)
}

// Loader constructs a Handler bound to the given fully-qualified class
// path, e.g. "MEng.User.Websock.Foo.Bar".
type Loader func(classPath string) (Handler, error)

// ResolveClassPath converts an upgrade URL path under /WebSock/User/... or
// /WebSock/System/... into the dotted class path the script engine loads,
// matching the base-path rules the original macro engine loader enforces.
func ResolveClassPath(urlPath string) (string, bool) {
	const (
		userPrefix = "/websock/user/"
		systemPrefix = "/websock/system/"
	)
	lower:= strings.ToLower(urlPath)

	var base, rest string
	switch {
	case strings.HasPrefix(lower, userPrefix):
		base, rest = "User.Websock.", urlPath[len(userPrefix):]
	case strings.HasPrefix(lower, systemPrefix):
		base, rest = "System.Websock.", urlPath[len(systemPrefix):]
	default:
		return "", false
	}

	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", false
	}
	dotted:= strings.ReplaceAll(rest, "/", ".")
	return "MEng." + base + dotted, true
}

// Variant implements wsession.Variant, hosting one Handler for the lifetime
// of a session.
type Variant struct {
	classPath string
	load Loader
	security security.Service
	log *slog.Logger

	handler Handler
}

// New returns a Variant that will load classPath via load when the session
// connects.
func New(classPath string, load Loader, sec security.Service, log *slog.Logger) *Variant {
	if log == nil {
		log = slog.Default()
	}
	return &Variant{
		classPath: classPath,
		load: load,
		security: sec,
		log: log.With("component", "scriptsession", "class", classPath),
	}
}

func (v *Variant) Connected(s *wsession.Session) {
	h, err:= v.load(v.classPath)
	if err != nil {
		v.log.Warn("failed to load script class", "err", err)
		s.RequestShutdown()
		return
	}
	v.handler = h
	h.Connected(s)
}

func (v *Variant) ProcessMessage(s *wsession.Session, op wsproto.Opcode, text string) {
	if v.handler == nil {
		return
	}
	v.handler.ProcessMessage(s, text)
}

func (v *Variant) FieldChanged(s *wsession.Session, moniker, field string, valid bool, formatted string) {
	if v.handler == nil {
		return
	}
	v.handler.FieldChanged(s, moniker, field, valid, formatted)
}

func (v *Variant) Idle(s *wsession.Session) {}

func (v *Variant) Disconnected(s *wsession.Session) {
	if v.handler == nil {
		return
	}
	v.handler.Disconnected(s)
}
