package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is the type of context keys set by this package.
type ContextKey string

// UserIDCtxKey holds the authenticated user id.
const UserIDCtxKey = ContextKey("user_id")

// Claims are the JWT claims issued by user-service.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

var (
	errMissingToken = errors.New("missing authorization header")
	errBadHeader    = errors.New("invalid authorization header format")
)

// JWTAuth rejects requests without a valid bearer token.
func JWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authenticate(r, secret)
			if err != nil {
				writeUnauthorized(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserIDCtxKey, userID)))
		})
	}
}

// OptionalJWTAuth sets the user id when a valid token is present and lets
// every other request through as anonymous.
func OptionalJWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := authenticate(r, secret); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), UserIDCtxKey, userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns the authenticated user id, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(UserIDCtxKey).(string)
	return id
}

func authenticate(r *http.Request, secret string) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return "", errBadHeader
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("token expired")
		}
		return "", errors.New("invalid token")
	}
	if !token.Valid || claims.UserID == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.UserID, nil
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
