// Package authdigest implements the HTTP Digest authentication
// challenge/verify cycle: an hour-bucketed nonce, A1/A2/response
// verification, and the three-tier role gate under the secure namespace.
package authdigest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const Realm = "CQC Automation System"

// Role is a web-account privilege tier. Higher values satisfy gates that
// require a weaker tier.
type Role int

const (
	RoleNone Role = iota
	RoleNormalUser
	RolePowerUser
	RoleSystemAdmin
)

// GateForPath returns the role a request path requires, or RoleNone if the
// path isn't under a recognized secure-namespace tier.
func GateForPath(path string) Role {
	switch {
	case strings.HasPrefix(path, "/Secure/Admin/"):
		return RoleSystemAdmin
	case strings.HasPrefix(path, "/Secure/Power/"):
		return RolePowerUser
	case strings.HasPrefix(path, "/Secure/Normal/"):
		return RoleNormalUser
	default:
		return RoleNone
	}
}

// Satisfies reports whether a user holding actual can pass a gate requiring
// required.
func (actual Role) Satisfies(required Role) bool {
	return actual >= required
}

// Outcome is the result of verifying a Digest response.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeBadRequest
	OutcomeUnauthorized
	OutcomeStale
)

// PasswordLookup fetches and decrypts a web account's password
// (query_web_account → encrypted_password, decrypted with the server's
// password hash as a symmetric key).
type PasswordLookup func(user string) (password string, role Role, ok bool)

// Nonce computes the hexadecimal MD5 of {hour, path, host}, so any nonce
// issued in a given UTC hour remains valid until the top of the next hour.
func Nonce(hour int64, path, host string) string {
	sum:= md5.Sum([]byte(fmt.Sprintf("%d:%s:%s", hour, path, host)))
	return hex.EncodeToString(sum[:])
}

func currentHour(now time.Time) int64 {
	return now.UTC().Unix() / 3600
}

// Challenge is the set of values needed to build a WWW-Authenticate header.
type Challenge struct {
	Realm string
	Qop string
	Domain string
	Nonce string
	Opaque string
}

// NewChallenge issues a fresh challenge for the current hour.
func NewChallenge(now time.Time, path, host string) Challenge {
	return Challenge{
		Realm: Realm,
		Qop: "auth",
		Domain: path,
		Nonce: Nonce(currentHour(now), path, host),
		Opaque: uuid.NewString(),
	}
}

// Header renders the challenge as a WWW-Authenticate: Digest header value.
// If stale is true, stale=yes is appended /S2.
func (c Challenge) Header(stale bool) string {
	h:= fmt.Sprintf(`Digest realm=%q, qop=%s, domain=%q, nonce=%q, opaque=%q`,
		c.Realm, c.Qop, c.Domain, c.Nonce, c.Opaque)
	if stale {
		h += `, stale=yes`
	}
	return h
}

// Response is a client's parsed Authorization: Digest header.
type Response struct {
	User, Realm, Nonce, URI, Response string
	Qop, NC, CNonce, Opaque string
}

// ParseAuthorization parses an Authorization header value into a Response.
// It returns ok=false if required fields are missing.
func ParseAuthorization(header string) (Response, bool) {
	var r Response
	if !strings.HasPrefix(header, "Digest ") {
		return r, false
	}
	fields:= parseDigestFields(header[len("Digest "):])
	r.User = fields["username"]
	r.Realm = fields["realm"]
	r.Nonce = fields["nonce"]
	r.URI = fields["uri"]
	r.Response = fields["response"]
	r.Qop = fields["qop"]
	r.NC = fields["nc"]
	r.CNonce = fields["cnonce"]
	r.Opaque = fields["opaque"]

	required:= []string{r.User, r.Realm, r.Nonce, r.URI, r.Response, r.Qop, r.NC, r.CNonce}
	for _, v:= range required {
		if v == "" {
			return r, false
		}
	}
	return r, true
}

func parseDigestFields(s string) map[string]string {
	out:= make(map[string]string)
	for _, part:= range splitDigestList(s) {
		idx:= strings.IndexByte(part, '=')
		if idx < 0 {
			continue
		}
		key:= strings.TrimSpace(part[:idx])
		val:= strings.TrimSpace(part[idx+1:])
		val = strings.Trim(val, `"`)
		out[key] = val
	}
	return out
}

// splitDigestList splits a comma-separated Digest field list, respecting
// commas embedded inside quoted values.
func splitDigestList(s string) []string {
	var out []string
	var cur strings.Builder
	inQuotes:= false
	for i:= 0; i < len(s); i++ {
		c:= s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == ',' && !inQuotes:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func md5Hex(s string) string {
	sum:= md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the client's response from the method, the server's
// password lookup, and the parsed Authorization header, per the A1/A2/
// response formula.
func Verify(now time.Time, method, host string, resp Response, lookup PasswordLookup) (Outcome, Role, string) {
	hour:= currentHour(now)
	expectedNonce:= Nonce(hour, resp.URI, host)
	if resp.Nonce != expectedNonce {
		// Could still be a nonce from the previous hour bucket.
		prevNonce:= Nonce(hour-1, resp.URI, host)
		if resp.Nonce == prevNonce {
			return OutcomeStale, RoleNone, resp.User
		}
		return OutcomeUnauthorized, RoleNone, resp.User
	}

	password, role, ok:= lookup(resp.User)
	if !ok {
		return OutcomeUnauthorized, RoleNone, resp.User
	}

	a1:= md5Hex(fmt.Sprintf("%s:%s:%s", resp.User, Realm, password))
	a2:= md5Hex(fmt.Sprintf("%s:%s", method, resp.URI))
	want:= md5Hex(fmt.Sprintf("%s:%s:%s:%s:%s:%s", a1, resp.Nonce, resp.NC, resp.CNonce, resp.Qop, a2))

	if want != resp.Response {
		return OutcomeUnauthorized, RoleNone, resp.User
	}
	return OutcomeOK, role, resp.User
}
