package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSessionMismatch is returned when a valid token names another session.
var ErrSessionMismatch = errors.New("callback token issued for a different session")

// CallbackClaims bind a callback URL to one session
type CallbackClaims struct {
	jwt.RegisteredClaims
}

// CallbackSigner issues and checks the token appended to callback URLs.
// A signer with an empty secret is disabled.
type CallbackSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCallbackSigner(secret string, ttl time.Duration) *CallbackSigner {
	return &CallbackSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Enabled reports whether callback URLs are signed.
func (s *CallbackSigner) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Sign returns an HS256 token whose subject is sessionID.
func (s *CallbackSigner) Sign(sessionID string) (string, error) {
	now := s.now()
	claims := CallbackClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  sessionID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the token signature, expiry and subject.
func (s *CallbackSigner) Verify(tokenString, sessionID string) error {
	token, err := jwt.ParseWithClaims(tokenString, &CallbackClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return err
	}

	claims, ok := token.Claims.(*CallbackClaims)
	if !ok || !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	if claims.Subject != sessionID {
		return ErrSessionMismatch
	}
	return nil
}
