package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegisterFields(username string) map[string]string {
	return map[string]string{
		"fullName": "Ann Lee",
		"email":    username + "@example.com",
		"username": username,
		"password": "StrongEnoughPassword",
	}
}

func Test_UserHandler_Register(t *testing.T) {
	t.Parallel()

	t.Run("register ok", func(t *testing.T) {
		app := startTestApp(t)

		form, contentType := registerForm(t, validRegisterFields("AnnL"), map[string]string{"avatar": "avatar.png"})
		resp, body := doRequest(t, http.MethodPost, app.URL+"/register", form,
			func(r *http.Request) { r.Header.Set("Content-Type", contentType) },
		)

		require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &parsed))
		assert.Equal(t, "annl", parsed["username"], "username should be lowercased")
		assert.Equal(t, "annl@example.com", parsed["email"])
		assert.Equal(t, "Ann Lee", parsed["fullName"])
		assert.Equal(t, "https://cdn.example.com/avatar.png", parsed["avatarUrl"])
		assert.NotEmpty(t, parsed["id"])

		// Secrets never leak into responses
		assert.NotContains(t, body, "passwordHash")
		assert.NotContains(t, body, "password_hash")
		assert.NotContains(t, body, "refreshToken")
	})

	t.Run("register with cover", func(t *testing.T) {
		app := startTestApp(t)

		form, contentType := registerForm(t, validRegisterFields("annl"),
			map[string]string{"avatar": "avatar.png", "cover": "cover.png"},
		)
		resp, body := doRequest(t, http.MethodPost, app.URL+"/register", form,
			func(r *http.Request) { r.Header.Set("Content-Type", contentType) },
		)

		require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &parsed))
		assert.Equal(t, "https://cdn.example.com/cover.png", parsed["coverUrl"])
	})

	t.Run("register without avatar", func(t *testing.T) {
		app := startTestApp(t)

		form, contentType := registerForm(t, validRegisterFields("annl"), nil)
		resp, body := doRequest(t, http.MethodPost, app.URL+"/register", form,
			func(r *http.Request) { r.Header.Set("Content-Type", contentType) },
		)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error": "service_error", "message": "Please upload an avatar"}`, body)
	})

	t.Run("register validation failed", func(t *testing.T) {
		app := startTestApp(t)

		fields := validRegisterFields("annl")
		fields["email"] = "not-an-email"
		fields["password"] = "short"

		form, contentType := registerForm(t, fields, map[string]string{"avatar": "avatar.png"})
		resp, body := doRequest(t, http.MethodPost, app.URL+"/register", form,
			func(r *http.Request) { r.Header.Set("Content-Type", contentType) },
		)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `
			{
				"error": "validation_failed",
				"message": "Request validation failed",
				"fields": {
					"email": "Invalid email address",
					"password": "Value is too short (minimum 8)"
				}
			}`, body)
	})

	t.Run("register not multipart", func(t *testing.T) {
		app := startTestApp(t)

		resp, body := doRequest(t, http.MethodPost, app.URL+"/register",
			strings.NewReader(`{"username": "annl"}`), withJSON(),
		)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error": "service_error", "message": "Expected multipart form data"}`, body)
	})

	t.Run("register duplicate", func(t *testing.T) {
		app := startTestApp(t)
		app.createUser(t, "annl", "StrongEnoughPassword")

		form, contentType := registerForm(t, validRegisterFields("AnnL"), map[string]string{"avatar": "avatar.png"})
		resp, body := doRequest(t, http.MethodPost, app.URL+"/register", form,
			func(r *http.Request) { r.Header.Set("Content-Type", contentType) },
		)

		require.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.JSONEq(t, `{"error": "service_error", "message": "User already exists"}`, body)
	})
}

func Test_UserHandler_Profile(t *testing.T) {
	t.Parallel()

	t.Run("me ok", func(t *testing.T) {
		app := startTestApp(t)
		app.createUser(t, "annl", "StrongEnoughPassword")
		pair := app.login(t, "annl", "StrongEnoughPassword")

		resp, body := doRequest(t, http.MethodGet, app.URL+"/me", nil, withBearer(pair.Access.Value))

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &parsed))
		assert.Equal(t, "annl", parsed["username"])
		assert.NotContains(t, body, "passwordHash")
	})

	t.Run("me with access cookie", func(t *testing.T) {
		app := startTestApp(t)
		app.createUser(t, "annl", "StrongEnoughPassword")
		pair := app.login(t, "annl", "StrongEnoughPassword")

		resp, _ := doRequest(t, http.MethodGet, app.URL+"/me", nil,
			withCookie("accessToken", pair.Access.Value),
		)

		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("me unauthorized", func(t *testing.T) {
		app := startTestApp(t)

		resp, body := doRequest(t, http.MethodGet, app.URL+"/me", nil)

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.JSONEq(t, `{"error": "service_error", "message": "Unauthorized"}`, body)
	})

	t.Run("update account ok", func(t *testing.T) {
		app := startTestApp(t)
		app.createUser(t, "annl", "StrongEnoughPassword")
		pair := app.login(t, "annl", "StrongEnoughPassword")

		data := `{"fullName": "Ann Lee-Smith", "email": "Ann.Smith@Example.com"}`
		resp, body := doRequest(t, http.MethodPatch, app.URL+"/account", strings.NewReader(data),
			withJSON(), withBearer(pair.Access.Value),
		)

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &parsed))
		assert.Equal(t, "Ann Lee-Smith", parsed["fullName"])
		assert.Equal(t, "ann.smith@example.com", parsed["email"])
	})

	t.Run("update account email taken", func(t *testing.T) {
		app := startTestApp(t)
		app.createUser(t, "annl", "StrongEnoughPassword")
		app.createUser(t, "other", "StrongEnoughPassword")
		pair := app.login(t, "annl", "StrongEnoughPassword")

		data := `{"fullName": "Ann Lee", "email": "other@example.com"}`
		resp, body := doRequest(t, http.MethodPatch, app.URL+"/account", strings.NewReader(data),
			withJSON(), withBearer(pair.Access.Value),
		)

		require.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.JSONEq(t, `{"error": "service_error", "message": "Email already taken"}`, body)
	})

	t.Run("update avatar ok", func(t *testing.T) {
		app := startTestApp(t)
		app.createUser(t, "annl", "StrongEnoughPassword")
		pair := app.login(t, "annl", "StrongEnoughPassword")

		form, contentType := registerForm(t, nil, map[string]string{"avatar": "new-avatar.png"})
		resp, body := doRequest(t, http.MethodPatch, app.URL+"/avatar", form,
			func(r *http.Request) { r.Header.Set("Content-Type", contentType) },
			withBearer(pair.Access.Value),
		)

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &parsed))
		assert.Equal(t, "https://cdn.example.com/new-avatar.png", parsed["avatarUrl"])
	})

	t.Run("update cover ok", func(t *testing.T) {
		app := startTestApp(t)
		app.createUser(t, "annl", "StrongEnoughPassword")
		pair := app.login(t, "annl", "StrongEnoughPassword")

		form, contentType := registerForm(t, nil, map[string]string{"cover": "new-cover.png"})
		resp, body := doRequest(t, http.MethodPatch, app.URL+"/cover", form,
			func(r *http.Request) { r.Header.Set("Content-Type", contentType) },
			withBearer(pair.Access.Value),
		)

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &parsed))
		assert.Equal(t, "https://cdn.example.com/new-cover.png", parsed["coverUrl"])
	})

	t.Run("update avatar missing file", func(t *testing.T) {
		app := startTestApp(t)
		app.createUser(t, "annl", "StrongEnoughPassword")
		pair := app.login(t, "annl", "StrongEnoughPassword")

		form, contentType := registerForm(t, map[string]string{"unrelated": "field"}, nil)
		resp, body := doRequest(t, http.MethodPatch, app.URL+"/avatar", form,
			func(r *http.Request) { r.Header.Set("Content-Type", contentType) },
			withBearer(pair.Access.Value),
		)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error": "service_error", "message": "Please upload a file"}`, body)
	})
}

func Test_UserHandler_Channel(t *testing.T) {
	t.Parallel()

	// Channel owner plus a logged in viewer subscribed to it
	setup := func(t *testing.T) (app testApp, viewerAccess string) {
		t.Helper()

		app = startTestApp(t)
		app.createUser(t, "channel", "StrongEnoughPassword")
		viewer := app.createUser(t, "viewer", "StrongEnoughPassword")
		pair := app.login(t, "viewer", "StrongEnoughPassword")

		require.NoError(t, app.Users.Subscribe(t.Context(), viewer.ID, "channel"))

		return app, pair.Access.Value
	}

	t.Run("profile for subscriber", func(t *testing.T) {
		app, access := setup(t)

		resp, body := doRequest(t, http.MethodGet, app.URL+"/channel/channel", nil, withBearer(access))

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &parsed))
		assert.Equal(t, "channel", parsed["username"])
		assert.Equal(t, float64(1), parsed["subscriberCount"])
		assert.Equal(t, float64(0), parsed["subscribedToCount"])
		assert.Equal(t, true, parsed["isSubscribed"])
	})

	t.Run("profile for anonymous", func(t *testing.T) {
		app, _ := setup(t)

		resp, body := doRequest(t, http.MethodGet, app.URL+"/channel/channel", nil)

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &parsed))
		assert.Equal(t, float64(1), parsed["subscriberCount"])
		assert.Equal(t, false, parsed["isSubscribed"])
	})

	t.Run("profile not found", func(t *testing.T) {
		app, _ := setup(t)

		resp, body := doRequest(t, http.MethodGet, app.URL+"/channel/ghost", nil)

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.JSONEq(t, `{"error": "service_error", "message": "Channel not found"}`, body)
	})

	t.Run("subscribe over http", func(t *testing.T) {
		app := startTestApp(t)
		app.createUser(t, "channel", "StrongEnoughPassword")
		app.createUser(t, "viewer", "StrongEnoughPassword")
		pair := app.login(t, "viewer", "StrongEnoughPassword")

		resp, body := doRequest(t, http.MethodPost, app.URL+"/channel/channel/subscribe", nil,
			withBearer(pair.Access.Value),
		)

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		assert.JSONEq(t, `{"message": "Subscribed successfully"}`, body)

		profile, err := app.Users.GetChannelProfile(t.Context(), "channel", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), profile.SubscriberCount)
	})

	t.Run("unsubscribe over http", func(t *testing.T) {
		app, access := setup(t)

		resp, body := doRequest(t, http.MethodDelete, app.URL+"/channel/channel/subscribe", nil,
			withBearer(access),
		)

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		assert.JSONEq(t, `{"message": "Unsubscribed successfully"}`, body)

		profile, err := app.Users.GetChannelProfile(t.Context(), "channel", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), profile.SubscriberCount)
	})

	t.Run("subscribe to unknown channel", func(t *testing.T) {
		app := startTestApp(t)
		app.createUser(t, "viewer", "StrongEnoughPassword")
		pair := app.login(t, "viewer", "StrongEnoughPassword")

		resp, body := doRequest(t, http.MethodPost, app.URL+"/channel/ghost/subscribe", nil,
			withBearer(pair.Access.Value),
		)

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.JSONEq(t, `{"error": "service_error", "message": "Channel not found"}`, body)
	})

	t.Run("subscribe requires auth", func(t *testing.T) {
		app := startTestApp(t)
		app.createUser(t, "channel", "StrongEnoughPassword")

		resp, _ := doRequest(t, http.MethodPost, app.URL+"/channel/channel/subscribe", nil)

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
