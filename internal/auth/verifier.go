// Package auth validates the JWT bearer tokens presented by clients opening
// a translation streaming session.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned when a token is missing, malformed, expired, or
// fails signature/issuer verification. The transport maps it to WS close
// code 4001.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Principal identifies the authenticated user behind a session.
type Principal struct {
	// UserID is the token's subject claim.
	UserID string
}

// claims is the JWT payload this service expects. The subject claim carries
// the user ID; no custom claims are required beyond the registered set.
type claims struct {
	jwt.RegisteredClaims
}

// Verifier validates HS256 JWTs signed with a shared secret. It is safe for
// concurrent use.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier returns a Verifier using secret for HMAC signature checks. When
// issuer is non-empty, tokens must carry a matching "iss" claim.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// VerifyToken parses and validates a raw JWT string, returning the
// authenticated Principal. Any failure is wrapped in [ErrUnauthorized].
func (v *Verifier) VerifyToken(tokenString string) (Principal, error) {
	if tokenString == "" {
		return Principal{}, fmt.Errorf("%w: empty token", ErrUnauthorized)
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return Principal{}, fmt.Errorf("%w: token not valid", ErrUnauthorized)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok {
		return Principal{}, fmt.Errorf("%w: unexpected claims type", ErrUnauthorized)
	}
	if v.issuer != "" && c.Issuer != v.issuer {
		return Principal{}, fmt.Errorf("%w: issuer mismatch", ErrUnauthorized)
	}
	if c.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject claim", ErrUnauthorized)
	}

	return Principal{UserID: c.Subject}, nil
}

// VerifyRequest extracts a token from the Authorization header ("Bearer
// <token>") or, failing that, the "token" query parameter, and validates it.
func (v *Verifier) VerifyRequest(r *http.Request) (Principal, error) {
	if tok := bearerToken(r); tok != "" {
		return v.VerifyToken(tok)
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return v.VerifyToken(tok)
	}
	return Principal{}, fmt.Errorf("%w: no token presented", ErrUnauthorized)
}

// HasHeaderToken reports whether r carries a non-empty "Bearer " token in its
// Authorization header (any other header value counts as absent), so the
// transport can decide whether to reject before or after accepting the
// WebSocket handshake.
func HasHeaderToken(r *http.Request) bool {
	return bearerToken(r) != ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}
