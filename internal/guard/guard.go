// Package guard gates access to views that require an authenticated session.
package guard

import "yaothink/internal/session"

// Decision is the outcome of a guard check. When access is denied the caller
// should navigate to RedirectTo and may use From to return after login.
type Decision struct {
	Allowed    bool
	RedirectTo string
	From       string
}

// Guard checks session state before protected navigation. Each denied check
// fires the onAuthRequired callback so the caller can open the login surface.
type Guard struct {
	sessions       *session.Store
	onAuthRequired func(from string)
}

// Option customizes a Guard.
type Option func(*Guard)

// WithOnAuthRequired sets the callback fired on every denied check.
func WithOnAuthRequired(fn func(from string)) Option {
	return func(g *Guard) { g.onAuthRequired = fn }
}

// New creates a guard over the given session store.
func New(sessions *session.Store, opts ...Option) *Guard {
	g := &Guard{sessions: sessions}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check decides whether the session may enter the protected location. It is
// purely session-state driven; token validity is the server's concern.
func (g *Guard) Check(location string) Decision {
	if g.sessions.IsAuthenticated() {
		return Decision{Allowed: true}
	}
	if g.onAuthRequired != nil {
		g.onAuthRequired(location)
	}
	return Decision{Allowed: false, RedirectTo: "/", From: location}
}
