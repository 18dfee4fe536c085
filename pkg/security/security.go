// Package security models the security-service collaborator named here:
// login challenge/response, password lookup for Digest auth, and the
// encrypted token a session carries once authenticated.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/cqc-go/webcore/pkg/authdigest"
	"github.com/golang-jwt/jwt/v5"
)

// Account is what the security service knows about one web account.
type Account struct {
	User string
	Role authdigest.Role
}

// Challenge is an opaque nonce the client must answer to authenticate a
// full (non-Digest) login, e.g. a RIVA session's query-parameter login.
type Challenge struct {
	Value string
}

var ErrInvalidCredentials = errors.New("security: invalid credentials")

// Service is the façade consumed by the worker (Digest auth) and by RIVA/
// script sessions (full login). A production implementation talks to a
// separate process over RPC; FakeService below is an in-memory stand-in
// usable in tests and local runs.
type Service interface {
	// LoginRequest issues a fresh login challenge for user.
	LoginRequest(user string) (Challenge, error)

	// Validate checks a challenge/password-hash pair and, on success,
	// mints a Token carrying the account's identity and role.
	Validate(challenge Challenge, passwordHash string) (Token, Account, error)

	// QueryWebAccount returns the encrypted password and role for user,
	// consumed by pkg/authdigest's PasswordLookup via AdaptPasswordLookup below. adminToken
	// authorizes the lookup.
	QueryWebAccount(user string, adminToken Token) (encryptedPassword string, role authdigest.Role, err error)
}

// Token is the security context carried by an authenticated session,
// serialized as a signed JWT so it can be logged or handed to a
// downstream collaborator without re-deriving identity.
type Token struct {
	raw string
}

// String returns the token's wire form.
func (t Token) String()string { return t.raw }

// IsZero reports whether the token was never issued.
func (t Token) IsZero()bool { return t.raw == "" }

// claims is the JWT payload minted for an authenticated session.
type claims struct {
	jwt.RegisteredClaims
	Role authdigest.Role `json:"role"`
}

// FakeService is a fixed-roster in-memory Service, standing in for the
// remote security server this core treats as an external collaborator.
type FakeService struct {
	signingKey []byte
	accounts map[string]fakeAccount
}

type fakeAccount struct {
	password string // plaintext in this stand-in; a real service stores it encrypted
	role authdigest.Role
}

// NewFakeService builds a FakeService with the given signing key and
// account roster (user -> {password, role}).
func NewFakeService(signingKey []byte, roster map[string]struct {
	Password string
	Role authdigest.Role
}) *FakeService {
	accounts:= make(map[string]fakeAccount, len(roster))
	for user, a:= range roster {
		accounts[user] = fakeAccount{password: a.Password, role: a.Role}
	}
	return &FakeService{signingKey: signingKey, accounts: accounts}
}

func (s *FakeService) LoginRequest(user string) (Challenge, error) {
	if _, ok:= s.accounts[user]; !ok {
		return Challenge{}, ErrInvalidCredentials
	}
	var buf [16]byte
	if _, err:= rand.Read(buf[:]); err != nil {
		return Challenge{}, err
	}
	return Challenge{Value: hex.EncodeToString(buf[:])}, nil
}

// Validate checks password against the roster directly (the fake stands in
// for a challenge/response cryptographic exchange a real service performs).
func (s *FakeService) Validate(challenge Challenge, password string) (Token, Account, error) {
	for user, acct:= range s.accounts {
		if acct.password == password {
			tok, err:= s.mint(user, acct.role)
			return tok, Account{User: user, Role: acct.role}, err
		}
	}
	return Token{}, Account{}, ErrInvalidCredentials
}

// ValidateUser authenticates a specific user/password pair, as used by
// RIVA/script session login where the username is already known.
func (s *FakeService) ValidateUser(user, password string) (Token, Account, error) {
	acct, ok:= s.accounts[user]
	if !ok || acct.password != password {
		return Token{}, Account{}, ErrInvalidCredentials
	}
	tok, err:= s.mint(user, acct.role)
	return tok, Account{User: user, Role: acct.role}, err
}

func (s *FakeService) QueryWebAccount(user string, adminToken Token) (string, authdigest.Role, error) {
	acct, ok:= s.accounts[user]
	if !ok {
		return "", authdigest.RoleNone, ErrInvalidCredentials
	}
	return acct.password, acct.role, nil
}

func (s *FakeService) mint(user string, role authdigest.Role) (Token, error) {
	now:= time.Now()
	c:= claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user,
			IssuedAt: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(12 * time.Hour)),
		},
		Role: role,
	}
	tok:= jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err:= tok.SignedString(s.signingKey)
	if err != nil {
		return Token{}, err
	}
	return Token{raw: signed}, nil
}

// ParseToken verifies and decodes a previously minted Token.
func (s *FakeService) ParseToken(t Token) (Account, error) {
	parsed, err:= jwt.ParseWithClaims(t.raw, &claims{}, func(*jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return Account{}, ErrInvalidCredentials
	}
	c:= parsed.Claims.(*claims)
	return Account{User: c.Subject, Role: c.Role}, nil
}

// AdaptPasswordLookup adapts a Service's QueryWebAccount to the
// authdigest.PasswordLookup shape, using adminToken to authorize the lookup.
func AdaptPasswordLookup(svc Service, adminToken Token) authdigest.PasswordLookup {
	return func(user string) (string, authdigest.Role, bool) {
		pw, role, err:= svc.QueryWebAccount(user, adminToken)
		if err != nil {
			return "", authdigest.RoleNone, false
		}
		return pw, role, true
	}
}
