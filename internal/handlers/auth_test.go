package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/smartvillageshub/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthRouter(repo *fakeUserRepo) http.Handler {
	router := chi.NewRouter()
	router.Route("/backend/auth", func(r chi.Router) {
		AuthRouter(r, services.NewUserService(repo), testSecret)
	})
	return router
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func accessTokenCookie(t *testing.T, recorder *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == AccessTokenCookie {
			return cookie
		}
	}
	return nil
}

func TestSignupThenSignin(t *testing.T) {
	repo := newFakeUserRepo()
	router := newAuthRouter(repo)

	resp := postJSON(t, router, "/backend/auth/signup", SignupRequest{
		Username: "alice",
		Email:    "a@x.com",
		Password: "pw123",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	var created MessageResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.True(t, created.Success)
	assert.Equal(t, "User created successfully", created.Message)
	assert.Equal(t, 1, repo.count())

	resp = postJSON(t, router, "/backend/auth/signin", SigninRequest{
		Email:    "a@x.com",
		Password: "pw123",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	cookie := accessTokenCookie(t, resp)
	require.NotNil(t, cookie, "signin must set the session cookie")
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	subject, err := parseTokenSubject(cookie.Value, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "1", subject)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "a@x.com", body["email"])
	assertNoPasswordHash(t, resp.Body.String(), body)
}

func TestSignupDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	router := newAuthRouter(repo)

	resp := postJSON(t, router, "/backend/auth/signup", SignupRequest{
		Username: "alice", Email: "a@x.com", Password: "pw123",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = postJSON(t, router, "/backend/auth/signup", SignupRequest{
		Username: "alice2", Email: "a@x.com", Password: "pw456",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	assert.False(t, errResp.Success)
	assert.Equal(t, http.StatusBadRequest, errResp.StatusCode)
	assert.Equal(t, "Email already in use", errResp.Message)
	assert.Equal(t, 1, repo.count(), "duplicate signup must not create a second record")
}

func TestSignupMissingFields(t *testing.T) {
	router := newAuthRouter(newFakeUserRepo())

	resp := postJSON(t, router, "/backend/auth/signup", SignupRequest{Username: "alice"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSigninUnknownEmail(t *testing.T) {
	router := newAuthRouter(newFakeUserRepo())

	resp := postJSON(t, router, "/backend/auth/signin", SigninRequest{
		Email: "nobody@x.com", Password: "pw123",
	})
	require.Equal(t, http.StatusNotFound, resp.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	assert.Equal(t, "User does not exist", errResp.Message)
	assert.Nil(t, accessTokenCookie(t, resp))
}

func TestSigninWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	router := newAuthRouter(repo)

	resp := postJSON(t, router, "/backend/auth/signup", SignupRequest{
		Username: "alice", Email: "a@x.com", Password: "pw123",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = postJSON(t, router, "/backend/auth/signin", SigninRequest{
		Email: "a@x.com", Password: "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	assert.Equal(t, "Wrong credentials", errResp.Message)
	assert.Nil(t, accessTokenCookie(t, resp), "failed signin must not issue a cookie")
}

func TestGoogleFirstSignInProvisionsAccount(t *testing.T) {
	repo := newFakeUserRepo()
	router := newAuthRouter(repo)

	resp := postJSON(t, router, "/backend/auth/google", GoogleRequest{
		Email: "bob@x.com",
		Name:  "Bob The Builder",
		Photo: "https://example.com/bob.png",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, 1, repo.count())

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "bob@x.com", body["email"])
	assert.Equal(t, "https://example.com/bob.png", body["avatar"])

	username, ok := body["username"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(username, "bobthebuilder"))
	assert.Len(t, username, len("bobthebuilder")+4)

	cookie := accessTokenCookie(t, resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly, "federated sign-in must set HttpOnly too")
	assertNoPasswordHash(t, resp.Body.String(), body)
}

func TestGoogleIdempotent(t *testing.T) {
	repo := newFakeUserRepo()
	router := newAuthRouter(repo)

	first := postJSON(t, router, "/backend/auth/google", GoogleRequest{
		Email: "bob@x.com", Name: "Bob", Photo: "p",
	})
	require.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, router, "/backend/auth/google", GoogleRequest{
		Email: "bob@x.com", Name: "Bob", Photo: "p",
	})
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, 1, repo.count(), "repeated federated sign-in must reuse the account")

	var firstBody, secondBody map[string]any
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstBody))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondBody))
	assert.Equal(t, firstBody["id"], secondBody["id"])
}

func TestGoogleSkipsCredentialCheckForExistingUser(t *testing.T) {
	repo := newFakeUserRepo()
	router := newAuthRouter(repo)

	resp := postJSON(t, router, "/backend/auth/signup", SignupRequest{
		Username: "alice", Email: "a@x.com", Password: "pw123",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = postJSON(t, router, "/backend/auth/google", GoogleRequest{
		Email: "a@x.com", Name: "Alice",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, accessTokenCookie(t, resp))

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "alice", body["username"], "existing account is reused as-is")
}

func TestSignOut(t *testing.T) {
	router := newAuthRouter(newFakeUserRepo())

	resp := postJSON(t, router, "/backend/auth/signout", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "User has been logged out!", body)

	cookie := accessTokenCookie(t, resp)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge, "signout must expire the cookie")
}

func TestAuthScenario(t *testing.T) {
	repo := newFakeUserRepo()
	router := newAuthRouter(repo)

	resp := postJSON(t, router, "/backend/auth/signup", SignupRequest{
		Username: "alice", Email: "a@x.com", Password: "pw123",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = postJSON(t, router, "/backend/auth/signup", SignupRequest{
		Username: "alice2", Email: "a@x.com", Password: "pw456",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Email already in use")

	resp = postJSON(t, router, "/backend/auth/signin", SigninRequest{
		Email: "a@x.com", Password: "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Wrong credentials")

	resp = postJSON(t, router, "/backend/auth/signin", SigninRequest{
		Email: "a@x.com", Password: "pw123",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"email":"a@x.com"`)
	assert.NotContains(t, resp.Body.String(), "password")
	require.NotNil(t, accessTokenCookie(t, resp))
}

func TestRequireAuth(t *testing.T) {
	protected := requireAuth([]byte(testSecret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := userIDFromContext(r.Context())
		require.NoError(t, err)
		writeJSON(w, http.StatusOK, subject)
	}))

	t.Run("no credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		recorder := httptest.NewRecorder()
		protected.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "not-a-jwt"})
		recorder := httptest.NewRecorder()
		protected.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("valid cookie", func(t *testing.T) {
		token, err := issueToken(42, []byte(testSecret), defaultTokenTTL)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
		recorder := httptest.NewRecorder()
		protected.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "42\n", recorder.Body.String())
	})

	t.Run("valid bearer", func(t *testing.T) {
		token, err := issueToken(7, []byte(testSecret), defaultTokenTTL)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()
		protected.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := issueToken(42, []byte("other-secret"), defaultTokenTTL)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
		recorder := httptest.NewRecorder()
		protected.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

// assertNoPasswordHash checks the serialized body never leaks the hash
// under any key.
func assertNoPasswordHash(t *testing.T, raw string, body map[string]any) {
	t.Helper()
	assert.NotContains(t, raw, "password")
	assert.NotContains(t, raw, "$2a$")
	for key := range body {
		assert.NotEqual(t, "password_hash", key)
		assert.NotEqual(t, "passwordHash", key)
	}
}
