package handlers

import (
	"os"
	"testing"

	"github.com/cqc-go/webcore/pkg/httpmsg"
	"github.com/cqc-go/webcore/pkg/imgrepo"
)

func TestImageHandlerS3Scenario(t *testing.T) {
	dir:= t.TempDir()
	os.WriteFile(dir+"/Foo.png", []byte("pixels"), 0o644)
	h:= NewImageHandler(imgrepo.NewLocalRepository(dir))()

	req:= &httpmsg.Request{Method: "GET", Header: httpmsg.NewHeader()}
	first:= h.ServeHTTP(req, "/Foo.png")
	if first.Status != 200 || first.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("status=%d content-type=%q", first.Status, first.Header.Get("Content-Type"))
	}

	tag:= first.Header.Get("Last-Modified")
	req2:= &httpmsg.Request{Method: "GET", Header: httpmsg.NewHeader()}
	req2.Header.Set("If-Modified-Since", tag)
	second:= h.ServeHTTP(req2, "/Foo.png")
	if second.Status != 304 {
		t.Fatalf("status = %d, want 304", second.Status)
	}
	if second.Header.Get("ETag") != tag {
		t.Fatalf("ETag = %q, want %q", second.Header.Get("ETag"), tag)
	}
}

func TestImageHandlerRejectsNonGET(t *testing.T) {
	h:= NewImageHandler(imgrepo.NewLocalRepository(t.TempDir()))()
	if h.AllowedMethod("POST") {
		t.Fatal("expected POST to be rejected")
	}
}
