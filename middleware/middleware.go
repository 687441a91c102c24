package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"musa/globals"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

// JWT claims of a storefront token. The token only names a session; the
// backend tokens stay in the session store.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthenticator(secret []byte, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Authenticator{secret: secret, ttl: ttl}
}

// IssueToken signs a storefront token for a session.
func (a *Authenticator) IssueToken(sessionID string) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Subject:   sessionID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken parses a bare token (no "Bearer " prefix).
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("invalid token")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}
	if !token.Valid || claims.SessionID == "" {
		return nil, errors.New("unauthorized: no session")
	}
	return claims, nil
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 8 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	return h[7:], true
}

func (a *Authenticator) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}
		tokenString, ok := bearer(r)
		if !ok {
			http.Error(w, "Invalid token format", http.StatusUnauthorized)
			return
		}
		claims, err := a.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), globals.SessionIDKey, claims.SessionID)
		next(w, r.WithContext(ctx), ps)
	}
}

// OptionalAuth attaches the session id when a valid token is present and
// proceeds either way.
func (a *Authenticator) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if tokenString, ok := bearer(r); ok {
			if claims, err := a.ValidateToken(tokenString); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), globals.SessionIDKey, claims.SessionID))
			}
		}
		next(w, r, ps)
	}
}

func GetSessionID(ctx context.Context) string {
	sid, _ := ctx.Value(globals.SessionIDKey).(string)
	return sid
}
