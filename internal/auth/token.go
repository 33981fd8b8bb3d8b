package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/party-queue-client/internal/errors"
	"github.com/party-queue-client/internal/role"
)

const DefaultTTL = 12 * time.Hour

type Claims struct {
	UserID      string `json:"uid"`
	DisplayName string `json:"name"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 session tokens.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret, now: time.Now}
}

// Verify parses a session token into an identity. Any failure, including a
// token whose role is not one of host, listener or guest, is a session error.
func (v *Verifier) Verify(raw string) (role.Identity, error) {
	const op = "verify session"
	if raw == "" {
		return role.Identity{}, apperrors.Session(op, "missing session token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil || !token.Valid {
		return role.Identity{}, apperrors.Wrap(err, apperrors.KindSession, op, "invalid session token")
	}

	r := role.Parse(claims.Role)
	if !r.Valid() {
		return role.Identity{}, apperrors.Session(op, "session has no role")
	}
	return role.Identity{UserID: claims.UserID, DisplayName: claims.DisplayName, Role: r}, nil
}

// Issue signs a token for id.
func (v *Verifier) Issue(id role.Identity, ttl time.Duration) (string, error) {
	return IssueToken(v.secret, id, ttl, v.now())
}

func IssueToken(secret []byte, id role.Identity, ttl time.Duration, now time.Time) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	claims := &Claims{
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
		Role:        string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
