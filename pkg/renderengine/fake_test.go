package renderengine

import "testing"

func TestFakeEngineLifecycle(t *testing.T) {
	e:= NewFakeEngine()
	if err:= e.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	view:= e.NewView()

	var errs Errors
	if err:= view.Initialize("MainTemplate", &errs); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, ok:= view.Widget(1); !ok {
		t.Fatal("expected widget 1 to exist after Initialize")
	}
	e.Stop()
}

func TestFakeViewInitializeRejectsEmptyTemplate(t *testing.T) {
	view:= NewFakeEngine().NewView()
	var errs Errors
	if err:= view.Initialize("", &errs); err == nil {
		t.Fatal("expected an error for an empty template name")
	}
	if len(errs.Messages) == 0 {
		t.Fatal("expected a diagnostic message")
	}
}

func TestFakeViewModalLoopTracksPopups(t *testing.T) {
	view:= NewFakeEngine().NewView()
	if view.HasPopups() {
		t.Fatal("expected no popups initially")
	}
	brk:= false
	done:= make(chan struct{})
	go func() {
		view.RunModalLoop(&brk, false)
		close(done)
	}()
	<-done
	if view.HasPopups() {
		t.Fatal("expected no popups after RunModalLoop returns")
	}
}
