package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unihive/middleware"
	"unihive/models"
	"unihive/rdx"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]models.User // by email
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]models.User{}}
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return u, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

func (f *fakeUsers) Insert(_ context.Context, u models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return ErrUserExists
	}
	f.users[u.Email] = u
	return nil
}

func (f *fakeUsers) mutate(email string, fn func(*models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return ErrUserNotFound
	}
	fn(&u)
	f.users[email] = u
	return nil
}

func (f *fakeUsers) MarkVerified(_ context.Context, email string) error {
	return f.mutate(email, func(u *models.User) { u.EmailVerified = true })
}

func (f *fakeUsers) SetPassword(_ context.Context, email, hash string) error {
	return f.mutate(email, func(u *models.User) { u.Password = hash })
}

func (f *fakeUsers) TouchLogin(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, u := range f.users {
		if u.UserID == userID {
			u.LastLogin = at
			f.users[k] = u
			return nil
		}
	}
	return ErrUserNotFound
}

type captureMailer struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureMailer) Send(_ context.Context, to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, body)
	return nil
}

var codeRe = regexp.MustCompile(`\d{6}`)

func (c *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent)
	code := codeRe.FindString(c.sent[len(c.sent)-1])
	require.NotEmpty(t, code)
	return code
}

type fixture struct {
	h     *Handler
	users *fakeUsers
	mail  *captureMailer
	mr    *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdx.Conn = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdx.Conn.Close() })
	middleware.SetSecret([]byte("auth-test"))

	users := newFakeUsers()
	mail := &captureMailer{}
	return &fixture{
		h:     NewHandler(users, RedisOTPStore{TTL: 10 * time.Minute}, mail, time.Hour),
		users: users,
		mail:  mail,
		mr:    mr,
	}
}

func call(h httprouter.Handle, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	rr := httptest.NewRecorder()
	h(rr, req, nil)
	return rr
}

func decodeAuth(t *testing.T, rr *httptest.ResponseRecorder) authResponse {
	t.Helper()
	var out authResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func (f *fixture) register(t *testing.T) {
	t.Helper()
	rr := call(f.h.Register, map[string]string{
		"username": "alice", "email": "Alice@Uni.edu", "password": "s3cretpass", "university": "<b>MIT</b>",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestRegisterVerifyLogin(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	stored, err := f.users.FindByEmail(context.Background(), "alice@uni.edu")
	require.NoError(t, err)
	assert.False(t, stored.EmailVerified)
	assert.Equal(t, "MIT", stored.University)
	assert.NotEqual(t, "s3cretpass", stored.Password)

	// unverified accounts cannot log in
	rr := call(f.h.Login, map[string]string{"username": "alice", "password": "s3cretpass"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(f.h.VerifyOTP, map[string]string{"email": "alice@uni.edu", "otp": f.mail.lastCode(t)})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotEmpty(t, decodeAuth(t, rr).Token)

	rr = call(f.h.Login, map[string]string{"username": "alice@uni.edu", "password": "s3cretpass"})
	require.Equal(t, http.StatusOK, rr.Code)
	out := decodeAuth(t, rr)
	require.NotNil(t, out.User)
	assert.Equal(t, "alice", out.User.Username)

	claims, err := middleware.ParseToken(out.Token)
	require.NoError(t, err)
	assert.Equal(t, out.User.UserID, claims.UserID)
}

func TestRegister_Rejects(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	rr := call(f.h.Register, map[string]string{"username": "alice2", "email": "alice@uni.edu", "password": "s3cretpass"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = call(f.h.Register, map[string]string{"username": "b", "email": "nope", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "username")
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "password")

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.h.Register(rec, req, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	require.NoError(t, f.users.MarkVerified(context.Background(), "alice@uni.edu"))

	rr := call(f.h.Login, map[string]string{"username": "alice", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = call(f.h.Login, map[string]string{"username": "nobody", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestVerifyOTP_WrongAndExpired(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	code := f.mail.lastCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	rr := call(f.h.VerifyOTP, map[string]string{"email": "alice@uni.edu", "otp": wrong})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	f.mr.FastForward(11 * time.Minute)
	rr = call(f.h.VerifyOTP, map[string]string{"email": "alice@uni.edu", "otp": code})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequestOTP(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	first := f.mail.lastCode(t)

	rr := call(f.h.RequestOTP, map[string]string{"email": "alice@uni.edu"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, f.mail.sent, 2)
	second := f.mail.lastCode(t)

	if first != second {
		rr = call(f.h.VerifyOTP, map[string]string{"email": "alice@uni.edu", "otp": first})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr = call(f.h.VerifyOTP, map[string]string{"email": "alice@uni.edu", "otp": second})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = call(f.h.RequestOTP, map[string]string{"email": "alice@uni.edu"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = call(f.h.RequestOTP, map[string]string{"email": "ghost@uni.edu"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, f.mail.sent, 2)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	verifyCode := f.mail.lastCode(t)

	rr := call(f.h.ForgotPassword, map[string]string{"email": "alice@uni.edu"})
	require.Equal(t, http.StatusOK, rr.Code)
	resetCode := f.mail.lastCode(t)

	// a verification code is not a reset code
	if verifyCode != resetCode {
		rr = call(f.h.ResetPassword, map[string]string{"email": "alice@uni.edu", "otp": verifyCode, "password": "newpassword"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}

	rr = call(f.h.ResetPassword, map[string]string{"email": "alice@uni.edu", "otp": resetCode, "password": "newpassword"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = call(f.h.Login, map[string]string{"username": "alice", "password": "newpassword"})
	assert.Equal(t, http.StatusOK, rr.Code)

	// codes are single use
	rr = call(f.h.ResetPassword, map[string]string{"email": "alice@uni.edu", "otp": resetCode, "password": "another1"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRedisOTPStore_AttemptLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := RedisOTPStore{TTL: time.Minute}

	code, err := store.Issue(ctx, PurposeVerify, "x@uni.edu")
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < maxOTPAttempts; i++ {
		assert.ErrorIs(t, store.Consume(ctx, PurposeVerify, "x@uni.edu", wrong), ErrInvalidOTP)
	}
	// the right code no longer works once the attempts are spent
	assert.ErrorIs(t, store.Consume(ctx, PurposeVerify, "x@uni.edu", code), ErrInvalidOTP)
	assert.False(t, f.mr.Exists(otpKey(PurposeVerify, "x@uni.edu")))
}
