// Package provisioning makes sure every signed-in identity has an account row
// and an active subscription.
package provisioning

import (
	"context"
	"fmt"
	"log"

	"resumeiq-backend/internal/domain/identity"
	"resumeiq-backend/internal/domain/subscriptions"
	"resumeiq-backend/internal/domain/users"
)

type Provisioner struct {
	users *users.Service
	subs  *subscriptions.Service
}

func New(u *users.Service, s *subscriptions.Service) *Provisioner {
	return &Provisioner{users: u, subs: s}
}

// Subscribe attaches the provisioner to an identity provider's auth events.
func (p *Provisioner) Subscribe(src interface {
	OnAuthStateChange(func(context.Context, identity.Event)) func()
}) func() {
	return src.OnAuthStateChange(p.HandleAuthEvent)
}

// HandleAuthEvent provisions on SIGNED_IN. Failures are logged; the next
// sign-in or a lazy /me lookup retries.
func (p *Provisioner) HandleAuthEvent(ctx context.Context, ev identity.Event) {
	if ev.Type != identity.SignedIn || ev.Session == nil {
		return
	}
	if _, err := p.Provision(ctx, ev.Session.User); err != nil {
		log.Printf("❌ provisioning %s failed: %v", ev.Session.User.ID, err)
	}
}

// Provision ensures the user row (3 starting credits) and a free subscription
// exist, then refreshes the cached plan. Every step is safe to repeat.
func (p *Provisioner) Provision(ctx context.Context, u identity.User) (*users.User, error) {
	user, created, err := p.users.EnsureUser(ctx, u.ID, u.Email, u.FullName)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	if created {
		log.Printf("👤 created account %s", user.ID)
	}

	if _, _, err := p.subs.EnsureSubscription(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("ensure subscription: %w", err)
	}
	if err := p.subs.SyncUserPlan(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("sync plan: %w", err)
	}

	fresh, err := p.users.GetUserByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return user, nil
	}
	return fresh, nil
}
