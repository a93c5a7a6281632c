package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unihive/utils"
)

func echoUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"user": utils.GetUserIDFromRequest(r)})
}

func TestIssueAndParseToken(t *testing.T) {
	SetSecret([]byte("test-secret"))
	tok, err := IssueToken("u1", "alice", []string{"student"}, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, []string{"student"}, claims.Role)
}

func TestParseToken_Rejects(t *testing.T) {
	SetSecret([]byte("test-secret"))
	expired, err := IssueToken("u1", "alice", nil, -time.Minute)
	require.NoError(t, err)

	SetSecret([]byte("other-secret"))
	foreign, err := IssueToken("u1", "alice", nil, time.Hour)
	require.NoError(t, err)
	SetSecret([]byte("test-secret"))

	for name, tok := range map[string]string{
		"empty":   "",
		"garbage": "not.a.token",
		"expired": expired,
		"foreign": foreign,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tok)
			assert.Error(t, err)
		})
	}

	_, err = ValidateJWT("Token abc")
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	SetSecret([]byte("test-secret"))
	tok, err := IssueToken("u42", "bob", nil, time.Hour)
	require.NoError(t, err)
	h := Authenticate(echoUser)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"bad format", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"ok", "Bearer " + tok, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h(rr, req, nil)
			assert.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"user":"u42"}`, rr.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	SetSecret([]byte("test-secret"))
	tok, err := IssueToken("u7", "carol", nil, time.Hour)
	require.NoError(t, err)
	h := OptionalAuth(echoUser)

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"user":""}`, rr.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	h(rr, req, nil)
	assert.JSONEq(t, `{"user":"u7"}`, rr.Body.String())
}

func TestSecurityHeadersAndLogging(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := SecurityHeaders(Logging(func(*http.Request) string { return "/teapot" })(inner))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}
