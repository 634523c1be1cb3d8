package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/models"

	"github.com/dgrijalva/jwt-go"
)

// Claims are the access token claims. Subject holds the user ID.
type Claims struct {
	jwt.StandardClaims
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// Principal is the authenticated caller.
type Principal struct {
	UserID   int64
	Username string
	Role     models.Role
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration, issuer string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// Issue signs an access token for user and returns it with its expiry.
func (i *TokenIssuer) Issue(user *models.User) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    i.issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: expires.Unix(),
		},
		Username: user.Username,
		Role:     user.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error while signing token: %w", err)
	}
	return signed, expires, nil
}

// Parse validates signature and expiry and returns the principal.
func (i *TokenIssuer) Parse(tokenString string) (*Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, apperrors.NewUnauthorizedError(err.Error())
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || !claims.Role.Valid() {
		return nil, apperrors.NewUnauthorizedError("malformed token claims")
	}
	return &Principal{UserID: id, Username: claims.Username, Role: claims.Role}, nil
}

// Authenticate reads a Bearer token from the Authorization header.
func (i *TokenIssuer) Authenticate(r *http.Request) (*Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return nil, apperrors.NewUnauthorizedError("missing bearer token")
	}
	return i.Parse(strings.TrimPrefix(header, "Bearer "))
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}

// HasRole reports whether p holds one of roles. An empty list allows any
// authenticated principal.
func (p *Principal) HasRole(roles ...models.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
