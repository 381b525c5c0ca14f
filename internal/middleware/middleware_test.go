package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/technosupport/vms-analytics/internal/middleware"
	"github.com/technosupport/vms-analytics/internal/tokens"
)

var (
	testCompany = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testUser    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

// Mock Token Validator
type MockTokenValidator struct{}

func (m MockTokenValidator) ValidateToken(token string) (*tokens.Claims, error) {
	switch token {
	case "valid-access":
		c := &tokens.Claims{CompanyID: testCompany.String(), UserID: testUser.String(), TokenType: tokens.Access}
		c.ID = "jti-ok"
		return c, nil
	case "revoked-access":
		c := &tokens.Claims{CompanyID: testCompany.String(), UserID: testUser.String(), TokenType: tokens.Access}
		c.ID = "revoked-jti"
		return c, nil
	case "refresh-token":
		return &tokens.Claims{CompanyID: testCompany.String(), UserID: testUser.String(), TokenType: tokens.Refresh}, nil
	case "bad-company":
		return &tokens.Claims{CompanyID: "tenant-1", UserID: testUser.String(), TokenType: tokens.Access}, nil
	}
	return nil, tokens.ErrInvalidToken
}

// Mock Blacklist
type MockBlacklist struct {
	err error
}

func (m MockBlacklist) IsBlacklisted(ctx context.Context, company, jti string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return jti == "revoked-jti", nil
}

func (m MockBlacklist) AddToBlacklist(ctx context.Context, company, jti string, ttl time.Duration) error {
	return nil
}

func serveWithToken(mw *middleware.JWTAuth, header string, next http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	mw.Middleware(next).ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware_Success(t *testing.T) {
	mw := middleware.NewJWTAuth(MockTokenValidator{}, MockBlacklist{})

	w := serveWithToken(mw, "Bearer valid-access", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := middleware.GetAuthContext(r.Context())
		if !ok || ac.UserID != testUser || ac.CompanyID != testCompany || ac.TokenID != "jti-ok" {
			t.Errorf("AuthContext missing or invalid: %+v", ac)
		}
		w.WriteHeader(http.StatusOK)
	}))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	cases := map[string]struct {
		header    string
		blacklist MockBlacklist
	}{
		"missing header":     {header: ""},
		"not bearer":         {header: "Basic abc"},
		"invalid token":      {header: "Bearer nope"},
		"refresh token":      {header: "Bearer refresh-token"},
		"non uuid company":   {header: "Bearer bad-company"},
		"revoked":            {header: "Bearer revoked-access"},
		"blacklist unusable": {header: "Bearer valid-access", blacklist: MockBlacklist{err: errors.New("redis down")}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			mw := middleware.NewJWTAuth(MockTokenValidator{}, tc.blacklist)
			w := serveWithToken(mw, tc.header, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("next handler must not run")
			}))
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", w.Code)
			}
		})
	}
}

func TestJWTAuthMiddleware_NilBlacklist(t *testing.T) {
	mw := middleware.NewJWTAuth(MockTokenValidator{}, nil)
	w := serveWithToken(mw, "Bearer revoked-access", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := middleware.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.GetRequestID(r.Context()) != "req-42" {
			t.Errorf("request id not propagated")
		}
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/api/v1/clients", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") != "req-42" {
		t.Errorf("Expected X-Request-ID echoed")
	}
	out := buf.String()
	for _, want := range []string{`"message":"inside"`, `"req_id":"req-42"`, `"status":418`, `"message":"request completed"`} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestCORS(t *testing.T) {
	handler := middleware.CORS([]string{"https://console.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("OPTIONS", "/api/v1/clients", nil)
	req.Header.Set("Origin", "https://console.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://console.example.com" {
		t.Errorf("Expected origin to be allowed")
	}

	req = httptest.NewRequest("GET", "/api/v1/clients", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("Unexpected CORS header for foreign origin")
	}
}
