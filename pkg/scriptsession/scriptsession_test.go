package scriptsession

import (
	"errors"
	"net"
	"testing"

	"github.com/cqc-go/webcore/pkg/config"
	"github.com/cqc-go/webcore/pkg/wsession"
)

func TestResolveClassPath(t *testing.T) {
	cases:= []struct {
		in string
		want string
		wantOk bool
	}{
		{"/WebSock/User/Foo/Bar", "MEng.User.Websock.Foo.Bar", true},
		{"/websock/system/Lib/Thing", "MEng.System.Websock.Lib.Thing", true},
		{"/WebSock/User/", "", false},
		{"/Images/foo.png", "", false},
	}
	for _, c:= range cases {
		got, ok:= ResolveClassPath(c.in)
		if ok != c.wantOk || got != c.want {
			t.Errorf("ResolveClassPath(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.wantOk)
		}
	}
}

type fakeHandler struct {
	connected bool
	messages []string
	disconnected bool
}

func (h *fakeHandler) Connected(s *wsession.Session) { h.connected = true }
func (h *fakeHandler) ProcessMessage(s *wsession.Session, text string) {
	h.messages = append(h.messages, text)
}
func (h *fakeHandler) FieldChanged(s *wsession.Session, moniker, field string, valid bool, formatted string) {
}
func (h *fakeHandler) Disconnected(s *wsession.Session) { h.disconnected = true }

func TestVariantDispatchesToLoadedHandler(t *testing.T) {
	_, server:= net.Pipe()
	defer server.Close()

	h:= &fakeHandler{}
	v:= New("MEng.User.Websock.Foo", func(classPath string) (Handler, error) {
		if classPath != "MEng.User.Websock.Foo" {
			t.Fatalf("unexpected class path %q", classPath)
		}
		return h, nil
	}, nil, nil)

	s:= wsession.New(server, config.DefaultSessionConfig(), v, nil, 16, nil, nil)
	v.Connected(s)
	if !h.connected {
		t.Fatal("expected handler Connected to run")
	}

	v.ProcessMessage(s, 0, "hi")
	if len(h.messages) != 1 || h.messages[0] != "hi" {
		t.Fatalf("got messages %v", h.messages)
	}

	v.Disconnected(s)
	if !h.disconnected {
		t.Fatal("expected handler Disconnected to run")
	}
}

func TestVariantInstallsNoHandlerWhenLoadFails(t *testing.T) {
	_, server:= net.Pipe()
	defer server.Close()

	v:= New("MEng.User.Websock.Missing", func(classPath string) (Handler, error) {
		return nil, errors.New("class not found")
	}, nil, nil)

	s:= wsession.New(server, config.DefaultSessionConfig(), v, nil, 16, nil, nil)
	v.Connected(s)
	if v.handler != nil {
		t.Fatal("expected no handler to be installed on load failure")
	}
}
