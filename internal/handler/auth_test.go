package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/ykravets/contacts-api/internal/auth"
	"github.com/ykravets/contacts-api/internal/config"
	"github.com/ykravets/contacts-api/internal/handler"
	"github.com/ykravets/contacts-api/internal/model"
	"github.com/ykravets/contacts-api/internal/queue"
	"github.com/ykravets/contacts-api/internal/repository"
	"github.com/ykravets/contacts-api/internal/router"
)

// memStore backs the endpoints with a map instead of MySQL.
type memStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[string]model.User
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, users: map[string]model.User{}}
}

func (s *memStore) Create(ctx context.Context, username, email, passwordHash string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return model.User{}, repository.ErrEmailExists
	}
	u := model.User{
		ID:           s.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.nextID++
	s.users[email] = u
	return u, nil
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return model.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func (s *memStore) SaveRefreshToken(ctx context.Context, userID uint64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, u := range s.users {
		if u.ID == userID {
			u.RefreshToken = token
			s.users[email] = u
		}
	}
	return nil
}

func (s *memStore) MarkConfirmed(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.Confirmed = true
	s.users[email] = u
	return nil
}

func (s *memStore) confirm(email string) { _ = s.MarkConfirmed(context.Background(), email) }

// testApp is a fully routed echo instance with the RabbitMQ publisher
// replaced by an in-memory recorder.
type testApp struct {
	e      *echo.Echo
	store  *memStore
	codec  *auth.TokenCodec
	events []queue.EmailVerificationEvent
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	codec, err := auth.NewTokenCodec("test-secret", "HS256", 0, 0, 0)
	require.NoError(t, err)
	store := newMemStore()
	hasher := auth.NewHasher(4)
	authn := auth.NewAuthenticator(codec, hasher, store, nil, 0)

	app := &testApp{e: echo.New(), store: store, codec: codec}
	h := handler.NewAuthHandler(config.Config{}, authn, codec, hasher, store)
	h.Publish = func(ctx context.Context, ev queue.EmailVerificationEvent) error {
		app.events = append(app.events, ev)
		return nil
	}
	router.RegisterRoutes(app.e)
	router.RegisterAuth(app.e, h, authn, nil)
	return app
}

func (a *testApp) do(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

const signupBody = `{"username":"alice","email":"alice@example.com","password":"s3cret-password"}`
const loginBody = `{"email":"alice@example.com","password":"s3cret-password"}`

func TestSignupCreatesUserAndQueuesMail(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/auth/signup", signupBody, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "alice@example.com", user["email"])

	// The queued event carries a token that resolves back to the address.
	require.Len(t, app.events, 1)
	ev := app.events[0]
	require.Equal(t, "alice@example.com", ev.Email)
	subject, err := app.codec.DecodeEmailToken(ev.Token)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", subject)

	// The account starts unconfirmed.
	u, err := app.store.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.False(t, u.Confirmed)
}

func TestSignupDuplicateEmail(t *testing.T) {
	app := newTestApp(t)

	require.Equal(t, http.StatusCreated, app.do(t, http.MethodPost, "/api/auth/signup", signupBody, "").Code)
	rec := app.do(t, http.MethodPost, "/api/auth/signup", signupBody, "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignupRejectsMissingFields(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/auth/signup", `{"username":"alice"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginAndMeFlow(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusCreated, app.do(t, http.MethodPost, "/api/auth/signup", signupBody, "").Code)
	app.store.confirm("alice@example.com")

	rec := app.do(t, http.MethodPost, "/api/auth/login", loginBody, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "bearer", body["token_type"])
	access, _ := body["access_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, body["refresh_token"])

	me := app.do(t, http.MethodGet, "/api/users/me", "", access)
	require.Equal(t, http.StatusOK, me.Code)
	require.Equal(t, "alice@example.com", decodeBody(t, me)["email"])

	// Without a bearer token the protected route refuses.
	require.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/users/me", "", "").Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusCreated, app.do(t, http.MethodPost, "/api/auth/signup", signupBody, "").Code)

	// Unconfirmed account.
	require.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodPost, "/api/auth/login", loginBody, "").Code)

	app.store.confirm("alice@example.com")

	// Wrong password.
	rec := app.do(t, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"nope"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid credentials", decodeBody(t, rec)["error"])

	// Unknown address.
	rec = app.do(t, http.MethodPost, "/api/auth/login", `{"email":"nobody@example.com","password":"nope"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusCreated, app.do(t, http.MethodPost, "/api/auth/signup", signupBody, "").Code)
	app.store.confirm("alice@example.com")

	login := app.do(t, http.MethodPost, "/api/auth/login", loginBody, "")
	require.Equal(t, http.StatusOK, login.Code)
	refresh, _ := decodeBody(t, login)["refresh_token"].(string)
	require.NotEmpty(t, refresh)

	rec := app.do(t, http.MethodPost, "/api/auth/refresh_token", fmt.Sprintf(`{"refresh_token":%q}`, refresh), "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	access, _ := body["access_token"].(string)
	require.NotEmpty(t, access)
	require.Empty(t, body["refresh_token"], "refresh responses carry the access token only")

	// The fresh access token works on the protected route.
	require.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/users/me", "", access).Code)

	// Garbage is a 401, a missing field a 400.
	require.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodPost, "/api/auth/refresh_token", `{"refresh_token":"garbage"}`, "").Code)
	require.Equal(t, http.StatusBadRequest, app.do(t, http.MethodPost, "/api/auth/refresh_token", `{}`, "").Code)
}

func TestConfirmEmailFlow(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusCreated, app.do(t, http.MethodPost, "/api/auth/signup", signupBody, "").Code)
	require.Len(t, app.events, 1)
	token := app.events[0].Token

	rec := app.do(t, http.MethodGet, "/api/auth/confirmed_email/"+token, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "email confirmed", decodeBody(t, rec)["message"])

	u, err := app.store.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.True(t, u.Confirmed)

	// Confirming again is a friendly no-op.
	rec = app.do(t, http.MethodGet, "/api/auth/confirmed_email/"+token, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "your email is already confirmed", decodeBody(t, rec)["message"])

	// A mangled token is unprocessable.
	rec = app.do(t, http.MethodGet, "/api/auth/confirmed_email/garbage", "", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRequestEmailNeverRevealsRegistration(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusCreated, app.do(t, http.MethodPost, "/api/auth/signup", signupBody, "").Code)
	app.events = nil

	// Unconfirmed account: a mail is queued.
	rec := app.do(t, http.MethodPost, "/api/auth/request_email", `{"email":"alice@example.com"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, app.events, 1)

	// Unknown address: same response, no mail.
	rec = app.do(t, http.MethodPost, "/api/auth/request_email", `{"email":"nobody@example.com"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, app.events, 1)

	// Already confirmed: same response, no mail.
	app.store.confirm("alice@example.com")
	rec = app.do(t, http.MethodPost, "/api/auth/request_email", `{"email":"alice@example.com"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, app.events, 1)
}

func TestHealthAndRoot(t *testing.T) {
	app := newTestApp(t)

	require.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/healthz", "", "").Code)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/", "", "").Code)
}
