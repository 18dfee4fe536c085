package security

import (
	"testing"

	"github.com/cqc-go/webcore/pkg/authdigest"
)

func newTestService()*FakeService {
	return NewFakeService([]byte("test-signing-key"), map[string]struct {
		Password string
		Role authdigest.Role
	}{
		"jsmith": {Password: "hunter2", Role: authdigest.RolePowerUser},
	})
}

func TestValidateUserRoundTrip(t *testing.T) {
	svc:= newTestService()
	tok, acct, err:= svc.ValidateUser("jsmith", "hunter2")
	if err != nil {
		t.Fatalf("ValidateUser: %v", err)
	}
	if tok.IsZero() {
		t.Fatal("expected non-zero token")
	}
	if acct.Role != authdigest.RolePowerUser {
		t.Fatalf("role = %v", acct.Role)
	}

	parsed, err:= svc.ParseToken(tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if parsed.User != "jsmith" || parsed.Role != authdigest.RolePowerUser {
		t.Fatalf("got %+v", parsed)
	}
}

func TestValidateUserWrongPassword(t *testing.T) {
	svc:= newTestService()
	if _, _, err:= svc.ValidateUser("jsmith", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestQueryWebAccountAndAdaptedLookup(t *testing.T) {
	svc:= newTestService()
	lookup:= AdaptPasswordLookup(svc, Token{})
	pw, role, ok:= lookup("jsmith")
	if !ok || pw != "hunter2" || role != authdigest.RolePowerUser {
		t.Fatalf("got (%q,%v,%v)", pw, role, ok)
	}
	if _, _, ok:= lookup("nobody"); ok {
		t.Fatal("expected lookup failure for unknown user")
	}
}

func TestLoginRequestUnknownUser(t *testing.T) {
	svc:= newTestService()
	if _, err:= svc.LoginRequest("nobody"); err != ErrInvalidCredentials {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}
