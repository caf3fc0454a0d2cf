// Package principal carries the caller identity resolved at the edge.
package principal

import (
	"context"
	"strings"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
	// RoleSystem is used by schedulers and other in-process callers.
	RoleSystem = "system"
)

type Principal struct {
	ID    string
	Roles []string
}

func (p Principal) HasRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return false
	}
	for _, r := range p.Roles {
		if strings.ToLower(r) == role {
			return true
		}
	}
	return false
}

// Actor is how the principal appears in order history.
func (p Principal) Actor() string {
	if p.ID == "" {
		return "anonymous"
	}
	return p.ID
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// System returns ctx acting as the named internal job.
func System(ctx context.Context, name string) context.Context {
	return WithPrincipal(ctx, Principal{ID: "system:" + name, Roles: []string{RoleSystem, RoleAdmin}})
}
