package facility

import (
	"testing"

	"github.com/cqc-go/webcore/pkg/config"
	"github.com/cqc-go/webcore/pkg/polling"
	"github.com/cqc-go/webcore/pkg/renderengine"
)

func TestNewAssemblesCollaborators(t *testing.T) {
	f:= New(Options{
		ServerConfig: config.DefaultServerConfig(),
		SessionConfig: config.DefaultSessionConfig(),
		Polling: polling.NewMemoryService(nil),
		Engine: renderengine.NewFakeEngine(),
	})

	if f.Queue == nil {
		t.Fatal("expected connection queue to be constructed")
	}
	if f.Sessions == nil {
		t.Fatal("expected session pool to be constructed")
	}
	if err:= f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.Stop()
}

func TestStartIsNoOpWithoutEngine(t *testing.T) {
	f:= New(Options{ServerConfig: config.DefaultServerConfig(), SessionConfig: config.DefaultSessionConfig()})
	if err:= f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.Stop()
}
