// Package renderengine models the rendering-engine collaborator: a headless
// view hosted per RIVA session, whose graphics calls the shadow device
// intercepts. This package only defines the interface
// contract and widget identity; drawing is performed by pkg/riva against a
// shadow device, and a FakeEngine here stands in for the real engine so the
// RIVA variant can be built and tested without it.
package renderengine

import (
	"image"

	"github.com/cqc-go/webcore/pkg/polling"
)

// WidgetID identifies one widget within a template.
type WidgetID uint32

// Point and Size are in virtual-display pixel coordinates.
type Point = image.Point
type Size = image.Point

// FlickDirection is the direction of a remote-mode flick gesture.
type FlickDirection int

const (
	FlickNone FlickDirection = iota
	FlickUp
	FlickDown
	FlickLeft
	FlickRight
)

// Errors is a sink for initialize template-load diagnostics.
type Errors struct {
	Messages []string
}

// Add appends a diagnostic message.
func (e *Errors) Add(msg string) { e.Messages = append(e.Messages, msg) }

// View is the per-session handle the session loop drives.
type View interface {
	Initialize(template string, errs *Errors) error
	DoActiveUpdatePass()
	DoUpdatePass()
	CheckTimeout()
	Redraw(area *image.Rectangle)
	NewSize(size Size)
	Clicked(pt Point)
	ProcessFlick(dir FlickDirection, start Point)
	HotKey(key string)
	HasPopups() bool

	// RunModalLoop re-enters the faux-GUI drain loop on the calling
	// goroutine at a deeper nesting level, returning when the popup closes
	// or breakFlag is observed set. noEscape disables the Escape-key
	// shortcut for closing the popup.
	RunModalLoop(breakFlag *bool, noEscape bool)

	// Widget looks up a widget by its unique id, or ok=false if none.
	Widget(id WidgetID) (Widget, bool)
}

// Widget is one addressable element within a template.
type Widget interface {
	ID() WidgetID
	// Invoke runs a named command against the widget (e.g. a press/click
	// dispatch); result carries back whatever the command produces.
	Invoke(command string, args ...any) (result any, err error)
}

// Engine is the process-wide rendering-engine handle: started once by the
// facility and handed a polling-service collaborator, stopped at shutdown.
type Engine interface {
	Start(svc polling.Service) error
	Stop()

	// NewView constructs a per-session View.
	NewView() View
}
