package walletauth_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/AmaanSayyad/Arbnomo/internal/walletauth"
)

const (
	sessionWalletValue = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	signingKeyValue    = "test-signing-key"
	issuerValue        = "arbnomo"
	cookieNameValue    = "arbnomo_session"
	claimsContextKey   = "wallet_claims"
)

func standardConfig() walletauth.Config {
	return walletauth.Config{
		SigningKey: []byte(signingKeyValue),
		Issuer:     issuerValue,
		CookieName: cookieNameValue,
		TTL:        time.Hour,
	}
}

func newTestManager(test *testing.T, now func() time.Time) *walletauth.Manager {
	test.Helper()
	manager, err := walletauth.New(standardConfig(), now)
	if err != nil {
		test.Fatalf("build manager: %v", err)
	}
	return manager
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newProbeRouter(middleware gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/probe", middleware, func(ctx *gin.Context) {
		wallet := ""
		if value, exists := ctx.Get(claimsContextKey); exists {
			claims := value.(*walletauth.Claims)
			wallet = claims.Wallet
		}
		ctx.JSON(http.StatusOK, gin.H{"wallet": wallet})
	})
	return router
}

func TestNewRequiresConfig(test *testing.T) {
	test.Parallel()

	clock := fixedClock(time.Unix(1000, 0))
	testCases := []struct {
		name   string
		config walletauth.Config
		now    func() time.Time
	}{
		{name: "missing signing key", config: walletauth.Config{Issuer: issuerValue, CookieName: cookieNameValue}, now: clock},
		{name: "missing issuer", config: walletauth.Config{SigningKey: []byte(signingKeyValue), CookieName: cookieNameValue}, now: clock},
		{name: "missing cookie name", config: walletauth.Config{SigningKey: []byte(signingKeyValue), Issuer: issuerValue}, now: clock},
		{name: "missing clock", config: standardConfig(), now: nil},
	}

	for _, testCase := range testCases {
		test.Run(testCase.name, func(test *testing.T) {
			if _, err := walletauth.New(testCase.config, testCase.now); !errors.Is(err, walletauth.ErrInvalidSessionConfig) {
				test.Fatalf("expected %v, got %v", walletauth.ErrInvalidSessionConfig, err)
			}
		})
	}
}

func TestIssueAndParseRoundTrip(test *testing.T) {
	test.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0).UTC()
	manager := newTestManager(test, fixedClock(issuedAt))

	cookie, err := manager.Issue(sessionWalletValue, "ARBNOMO")
	if err != nil {
		test.Fatalf("issue session: %v", err)
	}
	if cookie.Name != cookieNameValue {
		test.Fatalf("expected cookie name %q, got %q", cookieNameValue, cookie.Name)
	}
	if !cookie.HttpOnly {
		test.Fatalf("expected http-only cookie")
	}
	if !cookie.Expires.Equal(issuedAt.Add(time.Hour)) {
		test.Fatalf("expected expiry %v, got %v", issuedAt.Add(time.Hour), cookie.Expires)
	}

	claims, err := manager.Parse(cookie.Value)
	if err != nil {
		test.Fatalf("parse session: %v", err)
	}
	if claims.Wallet != sessionWalletValue {
		test.Fatalf("expected wallet %q, got %q", sessionWalletValue, claims.Wallet)
	}
	if claims.Currency != "ARBNOMO" {
		test.Fatalf("expected currency ARBNOMO, got %q", claims.Currency)
	}
	if claims.Issuer != issuerValue {
		test.Fatalf("expected issuer %q, got %q", issuerValue, claims.Issuer)
	}
}

func TestIssueRequiresWallet(test *testing.T) {
	test.Parallel()

	manager := newTestManager(test, fixedClock(time.Unix(1000, 0)))
	if _, err := manager.Issue("  ", ""); !errors.Is(err, walletauth.ErrInvalidSessionToken) {
		test.Fatalf("expected %v, got %v", walletauth.ErrInvalidSessionToken, err)
	}
}

func TestParseRejectsTamperedToken(test *testing.T) {
	test.Parallel()

	clock := fixedClock(time.Unix(1000, 0))
	manager := newTestManager(test, clock)

	foreignConfig := standardConfig()
	foreignConfig.SigningKey = []byte("another-signing-key")
	foreignManager, err := walletauth.New(foreignConfig, clock)
	if err != nil {
		test.Fatalf("build foreign manager: %v", err)
	}
	cookie, err := foreignManager.Issue(sessionWalletValue, "")
	if err != nil {
		test.Fatalf("issue session: %v", err)
	}

	if _, err := manager.Parse(cookie.Value); !errors.Is(err, walletauth.ErrInvalidSessionToken) {
		test.Fatalf("expected %v, got %v", walletauth.ErrInvalidSessionToken, err)
	}
}

func TestParseRejectsWrongIssuer(test *testing.T) {
	test.Parallel()

	clock := fixedClock(time.Unix(1000, 0))
	manager := newTestManager(test, clock)

	foreignConfig := standardConfig()
	foreignConfig.Issuer = "someone-else"
	foreignManager, err := walletauth.New(foreignConfig, clock)
	if err != nil {
		test.Fatalf("build foreign manager: %v", err)
	}
	cookie, err := foreignManager.Issue(sessionWalletValue, "")
	if err != nil {
		test.Fatalf("issue session: %v", err)
	}

	if _, err := manager.Parse(cookie.Value); !errors.Is(err, walletauth.ErrInvalidSessionToken) {
		test.Fatalf("expected %v, got %v", walletauth.ErrInvalidSessionToken, err)
	}
}

func TestParseRejectsExpiredToken(test *testing.T) {
	test.Parallel()

	current := time.Unix(1_700_000_000, 0).UTC()
	manager := newTestManager(test, func() time.Time { return current })

	cookie, err := manager.Issue(sessionWalletValue, "")
	if err != nil {
		test.Fatalf("issue session: %v", err)
	}

	current = current.Add(2 * time.Hour)
	if _, err := manager.Parse(cookie.Value); !errors.Is(err, walletauth.ErrInvalidSessionToken) {
		test.Fatalf("expected %v, got %v", walletauth.ErrInvalidSessionToken, err)
	}
}

func TestParseRejectsMissingWalletClaim(test *testing.T) {
	test.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0).UTC()
	manager := newTestManager(test, fixedClock(issuedAt))

	claims := &walletauth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerValue,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKeyValue))
	if err != nil {
		test.Fatalf("sign token: %v", err)
	}

	if _, err := manager.Parse(token); !errors.Is(err, walletauth.ErrInvalidSessionToken) {
		test.Fatalf("expected %v, got %v", walletauth.ErrInvalidSessionToken, err)
	}
}

func TestGinMiddlewareRejectsMissingCookie(test *testing.T) {
	manager := newTestManager(test, fixedClock(time.Unix(1000, 0)))
	router := newProbeRouter(manager.GinMiddleware(claimsContextKey))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/probe", nil)
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		test.Fatalf("expected status %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
}

func TestGinMiddlewareAcceptsSessionCookie(test *testing.T) {
	issuedAt := time.Unix(1_700_000_000, 0).UTC()
	manager := newTestManager(test, fixedClock(issuedAt))
	router := newProbeRouter(manager.GinMiddleware(claimsContextKey))

	cookie, err := manager.Issue(sessionWalletValue, "")
	if err != nil {
		test.Fatalf("issue session: %v", err)
	}

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/probe", nil)
	request.AddCookie(cookie)
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		test.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	var payload struct {
		Wallet string `json:"wallet"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		test.Fatalf("decode probe payload: %v", err)
	}
	if payload.Wallet != sessionWalletValue {
		test.Fatalf("expected wallet %q, got %q", sessionWalletValue, payload.Wallet)
	}
}

func TestOptionalMiddlewareToleratesBadCookie(test *testing.T) {
	manager := newTestManager(test, fixedClock(time.Unix(1000, 0)))
	router := newProbeRouter(manager.OptionalGinMiddleware(claimsContextKey))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/probe", nil)
	request.AddCookie(&http.Cookie{Name: cookieNameValue, Value: "not-a-token"})
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		test.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	var payload struct {
		Wallet string `json:"wallet"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		test.Fatalf("decode probe payload: %v", err)
	}
	if payload.Wallet != "" {
		test.Fatalf("expected no wallet, got %q", payload.Wallet)
	}
}

func TestExpireClearsCookie(test *testing.T) {
	test.Parallel()

	manager := newTestManager(test, fixedClock(time.Unix(1000, 0)))
	cookie := manager.Expire()
	if cookie.MaxAge >= 0 {
		test.Fatalf("expected negative max age, got %d", cookie.MaxAge)
	}
	if cookie.Value != "" {
		test.Fatalf("expected empty value, got %q", cookie.Value)
	}
	if cookie.Name != cookieNameValue {
		test.Fatalf("expected cookie name %q, got %q", cookieNameValue, cookie.Name)
	}
}
