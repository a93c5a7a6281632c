package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"unihive/globals"
	"unihive/utils"
)

// JWT claims
type Claims struct {
	Username string   `json:"username"`
	UserID   string   `json:"userId"`
	Role     []string `json:"role"`
	jwt.RegisteredClaims
}

var (
	secretMu  sync.RWMutex
	jwtSecret = []byte("dev-secret-change-me")
)

// SetSecret replaces the HMAC key used to sign and verify tokens.
func SetSecret(secret []byte) {
	secretMu.Lock()
	defer secretMu.Unlock()
	jwtSecret = append([]byte(nil), secret...)
}

func secret() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return jwtSecret
}

// IssueToken signs an HS256 token for a user.
func IssueToken(userID, username string, roles []string, ttl time.Duration) (string, error) {
	claims := &Claims{
		Username: username,
		UserID:   userID,
		Role:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
}

// ParseToken validates a bare token (no "Bearer " prefix).
func ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("missing token")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("unauthorized: invalid token")
	}
	return claims, nil
}

// ValidateJWT validates an Authorization header value.
func ValidateJWT(header string) (*Claims, error) {
	tok, ok := bearer(header)
	if !ok {
		return nil, errors.New("invalid token format")
	}
	return ParseToken(tok)
}

func bearer(header string) (string, bool) {
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(header[7:]), true
}

func withClaims(r *http.Request, claims *Claims) *http.Request {
	ctx := context.WithValue(r.Context(), globals.UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, globals.UsernameKey, claims.Username)
	ctx = context.WithValue(ctx, globals.RoleKey, claims.Role)
	return r.WithContext(ctx)
}

func Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Browsers cannot set headers on websocket upgrades; the token rides in the query.
		header := r.Header.Get("Authorization")
		if header == "" && websocket.IsWebSocketUpgrade(r) {
			if tok := r.URL.Query().Get("token"); tok != "" {
				header = "Bearer " + tok
			}
		}
		if header == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing token")
			return
		}
		tok, ok := bearer(header)
		if !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token format")
			return
		}
		claims, err := ParseToken(tok)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next(w, withClaims(r, claims), ps)
	}
}

func OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if tok, ok := bearer(r.Header.Get("Authorization")); ok {
			if claims, err := ParseToken(tok); err == nil {
				r = withClaims(r, claims)
			}
		}
		// Proceed regardless of token state
		next(w, r, ps)
	}
}
