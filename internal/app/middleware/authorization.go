package middleware

import (
	"context"
	"errors"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/queries"
)

var (
	ErrUnauthenticated = errors.New("middleware: authentication required")
	ErrForbidden       = errors.New("middleware: insufficient permissions")
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RoleRestricted messages name the role their caller must hold.
type RoleRestricted interface {
	RequiredRole() string
}

// Anonymous messages may be served without a caller, e.g. catalog browsing.
type Anonymous interface {
	AllowAnonymous() bool
}

// RoleAuthorizer checks the principal in context against RequiredRole.
// Messages that are not RoleRestricted only need an authenticated caller.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	if open, ok := message.(Anonymous); ok && open.AllowAnonymous() {
		return nil
	}
	p, ok := principal.FromContext(ctx)
	if !ok || p.ID == "" {
		return ErrUnauthenticated
	}
	restricted, ok := message.(RoleRestricted)
	if !ok || restricted.RequiredRole() == "" {
		return nil
	}
	if !p.HasRole(restricted.RequiredRole()) {
		return ErrForbidden
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
