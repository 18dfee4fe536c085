package adminhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cqc-go/webcore/pkg/connqueue"
)

func TestHealthzReportsOK(t *testing.T) {
	s:= New(connqueue.New(4), nil, nil, nil)

	req:= httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec:= httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestStatuszReportsQueueLength(t *testing.T) {
	q:= connqueue.New(4)
	q.Offer(connqueue.Conn{})

	s:= New(q, nil, nil, nil)
	req:= httptest.NewRequest(http.MethodGet, "/statusz", nil)
	rec:= httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected a JSON body")
	}
	var status Status
	if err:= json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if status.QueueLen != 1 {
		t.Fatalf("queueLen = %d, want 1", status.QueueLen)
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	s:= New(connqueue.New(4), nil, nil, nil)

	req:= httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec:= httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
