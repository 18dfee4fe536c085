package wsession

import (
	"net"
	"testing"
)

func TestPoolAcquireReleaseRoundTrip(t *testing.T) {
	p:= NewPool()
	client, server:= net.Pipe()
	defer client.Close()
	defer server.Close()

	v:= newRecordingVariant()
	s:= New(server, testConfig(), v, nil, 16, nil, nil)
	p.Track("script", s)

	if p.ActiveCount() != 1 {
		t.Fatalf("active count = %d, want 1", p.ActiveCount())
	}
	if got:= p.Acquire("script"); got != nil {
		t.Fatal("expected no idle session available while active")
	}

	p.Release(s)
	if p.ActiveCount() != 0 {
		t.Fatalf("active count after release = %d, want 0", p.ActiveCount())
	}
	if p.IdleCount("script") != 1 {
		t.Fatalf("idle count = %d, want 1", p.IdleCount("script"))
	}

	got:= p.Acquire("script")
	if got != s {
		t.Fatal("expected to reacquire the same session instance")
	}
	if p.IdleCount("script") != 0 {
		t.Fatal("idle bucket should be empty after acquire")
	}
}

func TestPoolDiscardRemovesWithoutParkingIdle(t *testing.T) {
	p:= NewPool()
	client, server:= net.Pipe()
	defer client.Close()
	defer server.Close()

	v:= newRecordingVariant()
	s:= New(server, testConfig(), v, nil, 16, nil, nil)
	p.Track("riva", s)
	p.Discard(s)

	if p.ActiveCount() != 0 {
		t.Fatal("expected active count to drop after discard")
	}
	if p.IdleCount("riva") != 0 {
		t.Fatal("discarded session must not be parked idle")
	}
}
