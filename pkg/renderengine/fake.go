package renderengine

import (
	"errors"
	"image"
	"sync"

	"github.com/cqc-go/webcore/pkg/polling"
)

// FakeEngine is a minimal Engine usable in tests and local runs without the
// real headless rendering process.
type FakeEngine struct {
	mu sync.Mutex
	started bool
}

// NewFakeEngine returns a stopped FakeEngine.
func NewFakeEngine()*FakeEngine { return &FakeEngine{} }

func (e *FakeEngine) Start(svc polling.Service) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = true
	return nil
}

func (e *FakeEngine) Stop(){
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = false
}

func (e *FakeEngine) NewView()View {
	return &fakeView{widgets: make(map[WidgetID]*fakeWidget)}
}

type fakeView struct {
	mu sync.Mutex
	widgets map[WidgetID]*fakeWidget
	nextID WidgetID
	popups int
	lastSize Size
}

func (v *fakeView) Initialize(template string, errs *Errors) error {
	if template == "" {
		errs.Add("empty template name")
		return errors.New("renderengine: empty template")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextID++
	v.widgets[WidgetID(v.nextID)] = &fakeWidget{id: WidgetID(v.nextID)}
	return nil
}

func (v *fakeView) DoActiveUpdatePass(){}
func (v *fakeView) DoUpdatePass(){}
func (v *fakeView) CheckTimeout(){}
func (v *fakeView) Redraw(area *image.Rectangle) {}
func (v *fakeView) NewSize(size Size) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastSize = size
}
func (v *fakeView) Clicked(pt Point) {}
func (v *fakeView) ProcessFlick(dir FlickDirection, start Point) {}
func (v *fakeView) HotKey(key string) {}

func (v *fakeView) HasPopups()bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.popups > 0
}

// RunModalLoop in the fake just marks a popup open and returns immediately;
// a real engine would block draining the GUI queue at a deeper nesting
// level until the popup's own close path runs.
func (v *fakeView) RunModalLoop(breakFlag *bool, noEscape bool) {
	v.mu.Lock()
	v.popups++
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.popups--
		v.mu.Unlock()
	}()
}

func (v *fakeView) Widget(id WidgetID) (Widget, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	w, ok:= v.widgets[id]
	return w, ok
}

type fakeWidget struct {
	id WidgetID
}

func (w *fakeWidget) ID()WidgetID { return w.id }

func (w *fakeWidget) Invoke(command string, args ...any) (any, error) {
	return nil, nil
}
