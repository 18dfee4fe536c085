package authdigest

import (
	"fmt"
	"testing"
	"time"
)

func clientResponse(user, realm, password, method, uri, nonce, nc, cnonce, qop string) string {
	a1:= md5Hex(fmt.Sprintf("%s:%s:%s", user, realm, password))
	a2:= md5Hex(fmt.Sprintf("%s:%s", method, uri))
	return md5Hex(fmt.Sprintf("%s:%s:%s:%s:%s:%s", a1, nonce, nc, cnonce, qop, a2))
}

func TestNonceStableWithinHour(t *testing.T) {
	base:= time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	later:= base.Add(59 * time.Minute)
	if Nonce(currentHour(base), "/Secure/Normal/x", "host") != Nonce(currentHour(later), "/Secure/Normal/x", "host") {
		t.Fatal("nonce should be stable within the same hour bucket")
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	now:= time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	host:= "cqc.example"
	uri:= "/Secure/Power/Rooms/Kitchen"
	nonce:= Nonce(currentHour(now), uri, host)

	lookup:= func(user string) (string, Role, bool) {
		if user == "jsmith" {
			return "hunter2", RolePowerUser, true
		}
		return "", RoleNone, false
	}

	resp:= Response{
		User: "jsmith", Realm: Realm, Nonce: nonce, URI: uri,
		Qop: "auth", NC: "00000001", CNonce: "abc123",
	}
	resp.Response = clientResponse(resp.User, Realm, "hunter2", "GET", uri, nonce, resp.NC, resp.CNonce, resp.Qop)

	outcome, role, user:= Verify(now, "GET", host, resp, lookup)
	if outcome != OutcomeOK {
		t.Fatalf("outcome = %v, want OutcomeOK", outcome)
	}
	if role != RolePowerUser {
		t.Fatalf("role = %v, want RolePowerUser", role)
	}
	if user != "jsmith" {
		t.Fatalf("user = %q", user)
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	now:= time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	host:= "cqc.example"
	uri:= "/Secure/Normal/x"
	nonce:= Nonce(currentHour(now), uri, host)

	lookup:= func(user string) (string, Role, bool) { return "correct", RoleNormalUser, true }

	resp:= Response{
		User: "u", Realm: Realm, Nonce: nonce, URI: uri,
		Qop: "auth", NC: "00000001", CNonce: "c",
	}
	resp.Response = clientResponse(resp.User, Realm, "wrong", "GET", uri, nonce, resp.NC, resp.CNonce, resp.Qop)

	outcome, _, _:= Verify(now, "GET", host, resp, lookup)
	if outcome != OutcomeUnauthorized {
		t.Fatalf("outcome = %v, want OutcomeUnauthorized", outcome)
	}
}

func TestVerifyStaleNonceFromPreviousHour(t *testing.T) {
	prev:= time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	now:= time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	host:= "cqc.example"
	uri:= "/Secure/Normal/x"
	staleNonce:= Nonce(currentHour(prev), uri, host)

	lookup:= func(user string) (string, Role, bool) { return "pw", RoleNormalUser, true }
	resp:= Response{
		User: "u", Realm: Realm, Nonce: staleNonce, URI: uri,
		Qop: "auth", NC: "00000001", CNonce: "c",
	}
	resp.Response = clientResponse(resp.User, Realm, "pw", "GET", uri, staleNonce, resp.NC, resp.CNonce, resp.Qop)

	outcome, _, _:= Verify(now, "GET", host, resp, lookup)
	if outcome != OutcomeStale {
		t.Fatalf("outcome = %v, want OutcomeStale", outcome)
	}
}

func TestGateForPathRoles(t *testing.T) {
	cases:= map[string]Role{
		"/Secure/Admin/x": RoleSystemAdmin,
		"/Secure/Power/x": RolePowerUser,
		"/Secure/Normal/x": RoleNormalUser,
		"/Public/x": RoleNone,
	}
	for path, want:= range cases {
		if got:= GateForPath(path); got != want {
			t.Errorf("GateForPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestRoleSatisfies(t *testing.T) {
	if !RoleSystemAdmin.Satisfies(RoleNormalUser) {
		t.Fatal("admin should satisfy a normal-user gate")
	}
	if RoleNormalUser.Satisfies(RolePowerUser) {
		t.Fatal("normal user should not satisfy a power-user gate")
	}
}

func TestParseAuthorizationMissingField(t *testing.T) {
	if _, ok:= ParseAuthorization(`Digest username="u", realm="r"`); ok {
		t.Fatal("expected ok=false with missing required fields")
	}
}

func TestParseAuthorizationFull(t *testing.T) {
	header:= `Digest username="jsmith", realm="CQC Automation System", nonce="abc", uri="/Secure/Normal/x", response="def", qop=auth, nc=00000001, cnonce="xyz", opaque="op1"`
	resp, ok:= ParseAuthorization(header)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if resp.User != "jsmith" || resp.URI != "/Secure/Normal/x" || resp.NC != "00000001" || resp.Opaque != "op1" {
		t.Fatalf("got %+v", resp)
	}
}
