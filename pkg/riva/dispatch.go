// Package riva implements the RIVA WebSocket session variant: the
// two-thread cooperative faux-GUI model, GUI event dedup, the shadow
// graphics/image pipeline, and the login/input protocols.
package riva

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/cqc-go/webcore/pkg/renderengine"
	"github.com/cqc-go/webcore/pkg/security"
	"github.com/cqc-go/webcore/pkg/wsession"
	"github.com/cqc-go/webcore/pkg/wsproto"
)

// State is the RIVA-specific session state machine named here, distinct
// from wsession.State because RIVA's first state waits for a SessionState
// message rather than going straight to Ready.
type State int

const (
	StateWaitSessState State = iota
	StateReady
	StateWaitClientEnd
	StateEnd
)

// Authenticator is the narrower login shape RIVA needs: a direct
// username/password check, as FakeService.ValidateUser provides, rather
// than the worker's Digest challenge/response exchange.
type Authenticator interface {
	ValidateUser(user, password string) (security.Token, security.Account, error)
}

// TemplateLoader resolves the default template path to load for an
// authenticated user.
type TemplateLoader func(user string) string

// Config bundles a Variant's dependencies and bounds.
type Config struct {
	Engine renderengine.Engine
	Auth Authenticator
	DefaultTemplate TemplateLoader
	VirtualSize renderengine.Size
	BreakoutBox int
	GUIJoinWait time.Duration
	Log *slog.Logger
}

// Variant implements wsession.Variant for RIVA sessions.
type Variant struct {
	cfg Config
	log *slog.Logger

	queue *Queue
	shadow *ShadowDevice
	cache *ImageCache
	view renderengine.View

	mu sync.Mutex
	state State

	token security.Token
	account security.Account

	pressActive bool
	pressOrigin renderengine.Point
	gestureMoved bool

	guiDone chan struct{}
}

// New returns a Variant ready to be handed to wsession.New() as its Variant.
func New(cfg Config) *Variant {
	if cfg.BreakoutBox <= 0 {
		cfg.BreakoutBox = 8
	}
	if cfg.GUIJoinWait <= 0 {
		cfg.GUIJoinWait = 8 * time.Second
	}
	log:= cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Variant{cfg: cfg, log: log.With("component", "riva")}
}

func (v *Variant) State()State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Variant) setState(st State) {
	v.mu.Lock()
	v.state = st
	v.mu.Unlock()
}

func (v *Variant) Connected(s *wsession.Session) {
	v.shadow = NewShadowDevice(v.cfg.VirtualSize)
	v.cache = NewImageCache()
	v.queue = NewQueue()
	v.view = v.cfg.Engine.NewView()
	v.setState(StateWaitSessState)

	v.guiDone = make(chan struct{})
	go v.runFauxGUI(s)
}

// runFauxGUI drains the GUI event queue on its own goroutine, the "faux
// GUI" thread, until bailout.
func (v *Variant) runFauxGUI(s *wsession.Session) {
	defer close(v.guiDone)
	for {
		ev, ok:= v.queue.Pop()
		if !ok {
			return
		}
		v.handleGUIEvent(s, ev)
	}
}

func (v *Variant) handleGUIEvent(s *wsession.Session, ev Event) {
	switch ev.Kind {
	case EventActiveUpdate:
		v.view.DoActiveUpdatePass()
	case EventValueUpdate:
		v.view.DoUpdatePass()
	case EventCheckTimeout:
		v.view.CheckTimeout()
	case EventEventUpdate:
		// periodic event-log flush point; no rendering-engine call of its own.
	case EventSizeChange:
		v.shadow.Resize(ev.Size)
		v.view.NewSize(ev.Size)
	case EventHotKey:
		v.view.HotKey(ev.Key)
	case EventRedraw:
		v.view.Redraw(nil)
	case EventDispatchAction:
		result:= DispatchOK
		if err:= ev.Action(); err != nil {
			v.log.Warn("dispatch action failed", "err", err)
		}
		if ev.Done != nil {
			ev.Done <- result
		}
	case EventAsyncDataCallback:
		if ev.Callback != nil {
			ev.Callback()
		}
	case EventExitLoop:
		return
	}
}

func (v *Variant) ProcessMessage(s *wsession.Session, op wsproto.Opcode, text string) {
	typ, err:= DecodeType([]byte(text))
	if err != nil {
		v.log.Warn("malformed RIVA message", "err", err)
		return
	}

	if v.State() == StateWaitSessState {
		if typ != MsgSessionState {
			s.RequestShutdown()
			return
		}
		v.handleSessionState(s, text)
		return
	}

	switch typ {
	case MsgPress:
		v.handlePress(text)
	case MsgMove:
		v.handleMove(s, text)
	case MsgRelease:
		v.handleRelease(s, text)
	case MsgCancelInput:
		v.pressActive = false
	case MsgSetVisState:
		v.handleSetVisState(s, text)
	case MsgPing:
		s.SendText(text)
	default:
		v.log.Debug("unhandled RIVA message", "type", typ)
	}
}

func (v *Variant) handleSessionState(s *wsession.Session, text string) {
	var msg SessionStateMsg
	if err:= json.Unmarshal([]byte(text), &msg); err != nil {
		v.sendLoginResult(s, false, "malformed session state")
		v.closeLoginFailed(s)
		return
	}

	user:= s.PeerQuery.GetDefault("user", "")
	password:= s.PeerQuery.GetDefault("password", "")

	if v.cfg.Auth != nil {
		tok, account, err:= v.cfg.Auth.ValidateUser(user, password)
		if err != nil {
			v.sendLoginResult(s, false, "invalid credentials")
			v.closeLoginFailed(s)
			return
		}
		v.token = tok
		v.account = account
	}

	if msg.CachingEnabled {
		v.cache.ResetFromManifest(msg.ImageManifest)
	}

	tmpl:= ""
	if v.cfg.DefaultTemplate != nil {
		tmpl = v.cfg.DefaultTemplate(user)
	}
	var errs renderengine.Errors
	if err:= v.view.Initialize(tmpl, &errs); err != nil {
		v.sendLoginResult(s, false, err.Error())
		v.closeLoginFailed(s)
		return
	}

	v.setState(StateReady)
	v.sendLoginResult(s, true, "")
}

func (v *Variant) sendLoginResult(s *wsession.Session, ok bool, message string) {
	body, err:= json.Marshal(LoginResultMsg{Type: MsgLoginResult, Ok: ok, Message: message})
	if err != nil {
		return
	}
	s.SendText(string(body))
}

func (v *Variant) closeLoginFailed(s *wsession.Session) {
	v.setState(StateEnd)
	s.RequestShutdown()
}

func (v *Variant) handlePress(text string) {
	var msg PointerMsg
	if err:= json.Unmarshal([]byte(text), &msg); err != nil {
		return
	}
	v.pressActive = true
	v.gestureMoved = false
	v.pressOrigin = renderengine.Point{X: msg.X, Y: msg.Y}
	v.queue.Push(Event{Kind: EventPress, Point: v.pressOrigin})
}

func (v *Variant) handleMove(s *wsession.Session, text string) {
	if !v.pressActive {
		return
	}
	var msg PointerMsg
	if err:= json.Unmarshal([]byte(text), &msg); err != nil {
		return
	}
	pt:= renderengine.Point{X: msg.X, Y: msg.Y}
	if v.outsideBreakoutBox(pt) {
		v.gestureMoved = true
	}
	v.queue.Push(Event{Kind: EventMove, Point: pt})
}

func (v *Variant) handleRelease(s *wsession.Session, text string) {
	if !v.pressActive {
		return
	}
	var msg PointerMsg
	if err:= json.Unmarshal([]byte(text), &msg); err != nil {
		return
	}
	pt:= renderengine.Point{X: msg.X, Y: msg.Y}
	v.pressActive = false

	if !v.gestureMoved && !v.outsideBreakoutBox(pt) {
		v.queue.Push(Event{Kind: EventDispatchAction, Action: func() error {
			v.view.Clicked(v.pressOrigin)
			return nil
		}})
		return
	}

	v.queue.Push(Event{Kind: EventRelease, Point: pt})
}

// outsideBreakoutBox reports whether pt has left the small square around
// the remembered press origin, the click/gesture discriminator
// ("a release without leaving a small breakout box around that point
// becomes a click; otherwise the movement sequence is treated as a
// gesture").
func (v *Variant) outsideBreakoutBox(pt renderengine.Point) bool {
	dx:= pt.X - v.pressOrigin.X
	if dx < 0 {
		dx = -dx
	}
	dy:= pt.Y - v.pressOrigin.Y
	if dy < 0 {
		dy = -dy
	}
	return dx > v.cfg.BreakoutBox || dy > v.cfg.BreakoutBox
}

func (v *Variant) handleSetVisState(s *wsession.Session, text string) {
	var msg SetVisStateMsg
	if err:= json.Unmarshal([]byte(text), &msg); err != nil {
		return
	}
	if msg.Visible {
		s.ResumeEgress()
	} else {
		s.PauseEgress()
	}
}

func (v *Variant) FieldChanged(s *wsession.Session, moniker, field string, valid bool, formatted string) {
	v.queue.Push(Event{Kind: EventValueUpdate})
}

func (v *Variant) Idle(s *wsession.Session) {
	v.queue.Push(Event{Kind: EventCheckTimeout})
}

// Disconnected implements the bailout invariant: set bailout,
// join the faux-GUI thread with a bound, and release the shadow device.
func (v *Variant) Disconnected(s *wsession.Session) {
	v.setState(StateEnd)
	v.queue.Bailout()

	select {
	case <-v.guiDone:
	case <-time.After(v.cfg.GUIJoinWait):
		v.log.Warn("faux-GUI thread did not join within bound")
	}

	v.shadow = nil
}
