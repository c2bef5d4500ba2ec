package handlers

import (
	"net/http"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	auth *AuthHandler,
	users *UserHandler,
	authMiddleware func(http.Handler) http.Handler,
	optionalAuthMiddleware func(http.Handler) http.Handler,
	loggerMiddleware func(http.Handler) http.Handler,
) http.Handler {
	withAuth := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}

	apiusers := http.NewServeMux()

	apiusers.Handle("POST /register", http.HandlerFunc(users.register))
	apiusers.Handle("POST /login", http.HandlerFunc(auth.login))
	apiusers.Handle("POST /refresh", http.HandlerFunc(auth.refresh))

	apiusers.Handle("POST /logout", withAuth(auth.logout))
	apiusers.Handle("POST /change-password", withAuth(auth.changePassword))
	apiusers.Handle("GET /me", withAuth(users.me))
	apiusers.Handle("PATCH /account", withAuth(users.updateAccount))
	apiusers.Handle("PATCH /avatar", withAuth(users.updateAvatar))
	apiusers.Handle("PATCH /cover", withAuth(users.updateCover))

	apiusers.Handle("POST /channel/{username}/subscribe", withAuth(users.subscribe))
	apiusers.Handle("DELETE /channel/{username}/subscribe", withAuth(users.unsubscribe))

	// Channel profile works for anonymous callers too, the viewer identity
	// only affects the isSubscribed flag
	apiusers.Handle("GET /channel/{username}", optionalAuthMiddleware(http.HandlerFunc(users.channelProfile)))

	root := http.NewServeMux()
	root.Handle("/api/v1/users/", http.StripPrefix("/api/v1/users", apiusers))

	return chain(root, loggerMiddleware)
}
