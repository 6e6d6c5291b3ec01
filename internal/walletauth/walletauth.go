// Package walletauth issues and validates the signed session cookies that
// bind an HTTP caller to a connected wallet. Sessions are stateless: the
// wallet address and the selected display currency travel inside an HS256
// token, and changing the currency re-issues the cookie.
package walletauth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSessionConfig indicates the manager was constructed with an
	// unusable configuration.
	ErrInvalidSessionConfig = errors.New("invalid session configuration")
	// ErrInvalidSessionToken indicates a cookie that does not carry a valid
	// wallet session.
	ErrInvalidSessionToken = errors.New("invalid session token")
)

const defaultSessionTTL = 12 * time.Hour

// Claims is the session payload. Wallet is required; Currency is empty when
// the caller never picked one and the network default applies.
type Claims struct {
	Wallet   string `json:"wallet"`
	Currency string `json:"currency,omitempty"`
	jwt.RegisteredClaims
}

// Config carries the signing material for session cookies.
type Config struct {
	SigningKey []byte
	Issuer     string
	CookieName string
	TTL        time.Duration
}

// Manager issues, parses, and enforces wallet session cookies.
type Manager struct {
	config Config
	nowFn  func() time.Time
}

// New validates the configuration and wires a Manager. A zero TTL falls back
// to twelve hours.
func New(config Config, now func() time.Time) (*Manager, error) {
	if len(config.SigningKey) == 0 {
		return nil, fmt.Errorf("%w: signing key is required", ErrInvalidSessionConfig)
	}
	if strings.TrimSpace(config.Issuer) == "" {
		return nil, fmt.Errorf("%w: issuer is required", ErrInvalidSessionConfig)
	}
	if strings.TrimSpace(config.CookieName) == "" {
		return nil, fmt.Errorf("%w: cookie name is required", ErrInvalidSessionConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidSessionConfig)
	}
	if config.TTL <= 0 {
		config.TTL = defaultSessionTTL
	}
	return &Manager{config: config, nowFn: now}, nil
}

// CookieName reports the configured cookie name.
func (manager *Manager) CookieName() string {
	return manager.config.CookieName
}

// Issue signs a session for the wallet and wraps it in a cookie ready for
// http.SetCookie.
func (manager *Manager) Issue(wallet string, currency string) (*http.Cookie, error) {
	if strings.TrimSpace(wallet) == "" {
		return nil, fmt.Errorf("%w: wallet is required", ErrInvalidSessionToken)
	}
	issuedAt := manager.nowFn().UTC()
	expiresAt := issuedAt.Add(manager.config.TTL)
	claims := &Claims{
		Wallet:   wallet,
		Currency: currency,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    manager.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(manager.config.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	return &http.Cookie{
		Name:     manager.config.CookieName,
		Value:    signedToken,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Expire returns a cookie that clears the session on the client.
func (manager *Manager) Expire() *http.Cookie {
	return &http.Cookie{
		Name:     manager.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Parse verifies the signature, issuer, and expiry of a session token and
// returns its claims.
func (manager *Manager) Parse(tokenText string) (Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenText,
		claims,
		func(*jwt.Token) (interface{}, error) { return manager.config.SigningKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(manager.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(manager.nowFn),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Wallet) == "" {
		return Claims{}, fmt.Errorf("%w: wallet claim is missing", ErrInvalidSessionToken)
	}
	return *claims, nil
}

// GinMiddleware rejects requests without a valid session cookie and stores
// the parsed claims under contextKey for downstream handlers.
func (manager *Manager) GinMiddleware(contextKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, found := manager.claimsFromRequest(ctx)
		if !found {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "missing session",
				},
			})
			return
		}
		ctx.Set(contextKey, claims)
		ctx.Next()
	}
}

// OptionalGinMiddleware stores claims when a valid session cookie is present
// and lets the request through either way. A stale or tampered cookie counts
// as no session.
func (manager *Manager) OptionalGinMiddleware(contextKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if claims, found := manager.claimsFromRequest(ctx); found {
			ctx.Set(contextKey, claims)
		}
		ctx.Next()
	}
}

func (manager *Manager) claimsFromRequest(ctx *gin.Context) (*Claims, bool) {
	cookie, err := ctx.Cookie(manager.config.CookieName)
	if err != nil || cookie == "" {
		return nil, false
	}
	claims, err := manager.Parse(cookie)
	if err != nil {
		return nil, false
	}
	return &claims, true
}
