package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avelichko/vidstream/internal/handlers/middleware"
	"github.com/avelichko/vidstream/internal/logger"
	"github.com/avelichko/vidstream/internal/models"
	"github.com/avelichko/vidstream/internal/repository/memory"
	"github.com/avelichko/vidstream/internal/service/auth"
	"github.com/avelichko/vidstream/internal/service/auth/tokenmanager"
	"github.com/avelichko/vidstream/internal/service/user"
)

// Allow to use a function as media storage
type mediaFunc func(ctx context.Context, name string, contentType string, r io.Reader) (string, error)

func (f mediaFunc) Upload(ctx context.Context, name string, contentType string, r io.Reader) (string, error) {
	return f(ctx, name, contentType, r)
}

var fakeMedia = mediaFunc(func(ctx context.Context, name string, contentType string, r io.Reader) (string, error) {
	return "https://cdn.example.com/" + name, nil
})

type testApp struct {
	URL   string
	Auth  *auth.AuthService
	Users *user.UserService
}

// Run http server with the full production router wired to in-memory
// storage and fake media uploads
func startTestApp(t *testing.T) testApp {
	t.Helper()

	storage := memory.NewStorage()

	tm, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  "access-test-secret",
		RefreshSecret: "refresh-test-secret",
	})
	require.NoError(t, err, "token manager should be created without errors")

	authService, err := auth.NewService(auth.Config{}, tm, storage)
	require.NoError(t, err, "auth service starting error")

	userService, err := user.NewService(nil, storage, fakeMedia)
	require.NoError(t, err, "user service starting error")

	l := logger.NewNoOp()
	router := NewRouter(
		NewAuth(authService, l),
		NewUser(userService, l),
		middleware.AuthMiddleware(authService),
		middleware.OptionalAuthMiddleware(authService),
		middleware.LoggerMiddleware(l),
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return testApp{
		URL:   srv.URL + "/api/v1/users",
		Auth:  authService,
		Users: userService,
	}
}

// Register user through the service layer, not over http
func (a testApp) createUser(t *testing.T, username string, password string) models.User {
	t.Helper()

	created, err := a.Users.Register(t.Context(), user.RegisterParams{
		FullName: "Test User",
		Email:    username + "@example.com",
		Username: username,
		Password: password,
		Avatar:   user.File{Name: "avatar.png", ContentType: "image/png", Content: bytes.NewReader([]byte("png"))},
	})
	require.NoError(t, err)

	return created
}

// Issue a token pair for the user, for cookie or header auth in requests
func (a testApp) login(t *testing.T, username string, password string) models.TokenPair {
	t.Helper()

	u, pair, err := a.Auth.Login(t.Context(), username, password)
	require.NoError(t, err)
	require.Equal(t, username, u.Username)

	return pair
}

// Build the multipart registration form the register handler expects
func registerForm(t *testing.T, fields map[string]string, files map[string]string) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	for field, filename := range files {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("file content"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func doRequest(t *testing.T, method string, url string, body io.Reader, mutate ...func(*http.Request)) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	for _, m := range mutate {
		m(req)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(respBody)
}

func withJSON() func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Content-Type", "application/json")
	}
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withCookie(name string, value string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}
