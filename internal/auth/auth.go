// Package auth provides middleware and helpers for JWT-based sessions.
// The token travels in an HttpOnly cookie, an `Authorization: Bearer` header
// is accepted as well. Tokens are signed with the first configured key and
// verified against all of them.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

type userKeeper interface {
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
}

// Auth issues, clears and verifies session tokens.
type Auth struct {
	// db is used to check that the user behind a valid token still exists.
	db userKeeper

	cookieName string

	// signingKeys holds the HMAC keys, the first one signs new tokens.
	signingKeys [][]byte

	ttl time.Duration

	// secure marks the cookie as HTTPS-only.
	secure bool
}

// Claims represents the JWT claims used by the system.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// ErrInvalidTokenOrJwtParsing is returned when no key verifies the token.
var ErrInvalidTokenOrJwtParsing = errors.New("invalid token or JWT parsing error")

// SigningKeySize is the length in bytes of keys made by NewSigningKey.
const SigningKeySize = 32

// NewSigningKey returns a random HMAC key for processes started without
// configured keys. Sessions signed with it end when the process exits.
func NewSigningKey() ([]byte, error) {
	key := make([]byte, SigningKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("in internal/auth/auth.go/NewSigningKey(): error while `rand.Read()` calling: %w", err)
	}

	return key, nil
}

// New creates an Auth. signingKeys must contain at least one key.
func New(
	db userKeeper,
	cookieName string,
	signingKeys [][]byte,
	ttl time.Duration,
	secure bool,
) (*Auth, error) {
	if len(signingKeys) == 0 {
		return nil, errors.New("at least one session signing key is required")
	}

	return &Auth{
		db:          db,
		cookieName:  cookieName,
		signingKeys: signingKeys,
		ttl:         ttl,
		secure:      secure,
	}, nil
}

// AuthenticateUser is an HTTP middleware that resolves the session of the request.
// A missing, tampered or expired token, or a token of a user that no longer
// exists, leaves the request anonymous. It never rejects the request.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString := a.getTokenStringFromAuthorizationHeaderOrCookie(request)
		if tokenString == "" {
			h.ServeHTTP(response, request)
			return
		}

		userID, err := a.GetUserIDFromToken(tokenString)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.GetUserIDFromToken()`: ", zap.Error(err))
			h.ServeHTTP(response, request)
			return
		}

		usr, err := a.db.GetUserByID(request.Context(), userID)
		if errors.Is(err, models.ErrUserNotFound) {
			h.ServeHTTP(response, request)
			return
		}
		if err != nil {
			logger.Log.Debugln("Error calling the `a.db.GetUserByID()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, usr.ID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// LogIn issues a fresh session for userID.
func (a *Auth) LogIn(response http.ResponseWriter, userID string) error {
	now := time.Now()
	JWTString, err := a.BuildJWTString(&Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	})
	if err != nil {
		return fmt.Errorf("in internal/auth/auth.go/LogIn(): error while `a.BuildJWTString()` calling: %w", err)
	}

	http.SetCookie(response, a.cookie(JWTString, int(a.ttl.Seconds())))

	return nil
}

// LogOut removes the session cookie.
func (a *Auth) LogOut(response http.ResponseWriter) {
	http.SetCookie(response, a.cookie("", -1))
}

func (a *Auth) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     a.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// UserIDFromContext returns the id stored by AuthenticateUser, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)

	return userID
}

func (a *Auth) getTokenStringFromAuthorizationHeaderOrCookie(request *http.Request) string {
	header := request.Header.Get("Authorization")
	if tokenString, ok := strings.CutPrefix(header, "Bearer "); ok && tokenString != "" {
		return tokenString
	}

	cookie, err := request.Cookie(a.cookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}

// GetUserIDFromToken verifies tokenString against every signing key in order.
func (a *Auth) GetUserIDFromToken(tokenString string) (string, error) {
	var lastErr error
	for _, key := range a.signingKeys {
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(
			tokenString,
			claims,
			func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return key, nil
			},
		)
		if err != nil {
			lastErr = err
			continue
		}
		if !token.Valid || claims.UserID == "" {
			return "", ErrInvalidTokenOrJwtParsing
		}

		return claims.UserID, nil
	}

	return "", fmt.Errorf("%w: %v", ErrInvalidTokenOrJwtParsing, lastErr)
}

// BuildJWTString signs claims with the current (first) key.
func (a *Auth) BuildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.signingKeys[0])
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
