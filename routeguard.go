package blogsync

import "strings"

// RouteDecision is the outcome of guarding one navigation.
type RouteDecision string

const (
	RouteAllow    RouteDecision = "allow"
	RouteToSignIn RouteDecision = "redirect-to-signin"
	RouteToHome   RouteDecision = "redirect-to-home"
)

// Paths the guard redirects to.
const (
	SignInPath = "/auth/signin"
	HomePath   = "/home"
)

const (
	authRoutePrefix    = "/auth"
	privateRoutePrefix = "/posts/create"
)

// GuardRoute decides how a navigation resolves given the requested path and
// whether a session credential is present. Private-prefixed paths without a
// credential redirect to sign-in; auth-prefixed paths with a credential
// redirect to home; everything else is allowed. The guard retains no state
// and is evaluated once per navigation.
func GuardRoute(path string, authenticated bool) RouteDecision {
	if !authenticated && strings.HasPrefix(path, privateRoutePrefix) {
		return RouteToSignIn
	}
	if authenticated && strings.HasPrefix(path, authRoutePrefix) {
		return RouteToHome
	}
	return RouteAllow
}

// Guard applies the route guard with the client's current session.
func (c *Client) Guard(path string) RouteDecision {
	return GuardRoute(path, c.session.Authenticated())
}
