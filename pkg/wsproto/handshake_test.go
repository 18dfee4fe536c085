package wsproto

import (
	"testing"

	"github.com/cqc-go/webcore/pkg/httpmsg"
)

func TestValidateUpgradeS4(t *testing.T) {
	req:= &httpmsg.Request{Method: "GET", Header: httpmsg.NewHeader()}
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

	accept, err:= ValidateUpgrade(req)
	if err != nil {
		t.Fatalf("ValidateUpgrade: %v", err)
	}
	const want = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if accept != want {
		t.Fatalf("accept = %q, want %q", accept, want)
	}
}

func TestValidateUpgradeRejectsNonGET(t *testing.T) {
	req:= &httpmsg.Request{Method: "POST", Header: httpmsg.NewHeader()}
	if _, err:= ValidateUpgrade(req); err != ErrUnsupportedMeth {
		t.Fatalf("err = %v, want ErrUnsupportedMeth", err)
	}
}

func TestValidateUpgradeMissingKey(t *testing.T) {
	req:= &httpmsg.Request{Method: "GET", Header: httpmsg.NewHeader()}
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	if _, err:= ValidateUpgrade(req); err != ErrMissingKey {
		t.Fatalf("err = %v, want ErrMissingKey", err)
	}
}
