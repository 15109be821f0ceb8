// Package identity describes the external identity provider: who signed in,
// their session, and the sign-in/sign-out notifications.
package identity

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

type User struct {
	ID             string
	Email          string
	FullName       *string
	EmailConfirmed bool
	Role           string
}

// Session is an authenticated provider session. Token carries the access and
// refresh tokens and their expiry.
type Session struct {
	User  User
	Token *oauth2.Token
}

type EventType string

const (
	SignedIn  EventType = "SIGNED_IN"
	SignedOut EventType = "SIGNED_OUT"
)

type Event struct {
	Type    EventType
	Session *Session
}

// Provider is the part of the identity provider the application calls.
type Provider interface {
	SignUp(ctx context.Context, email, password string, fullName *string) (*User, *Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*Session, error)
	ResendConfirmation(ctx context.Context, email string) error
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
	ResetPassword(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, password string) error
	OnAuthStateChange(fn func(context.Context, Event)) (unsubscribe func())
}

// Notifier fans auth events out to listeners. Listeners run synchronously on
// the publishing goroutine, in registration order.
type Notifier struct {
	mu        sync.RWMutex
	nextID    int
	listeners []listener
}

type listener struct {
	id int
	fn func(context.Context, Event)
}

func (n *Notifier) OnAuthStateChange(fn func(context.Context, Event)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	n.listeners = append(n.listeners, listener{id: id, fn: fn})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, l := range n.listeners {
			if l.id == id {
				n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
				return
			}
		}
	}
}

func (n *Notifier) Publish(ctx context.Context, ev Event) {
	n.mu.RLock()
	fns := make([]func(context.Context, Event), len(n.listeners))
	for i, l := range n.listeners {
		fns[i] = l.fn
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(ctx, ev)
	}
}
