package middleware

import (
	"context"
	"errors"
	"log/slog"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/locks"
	"stagerent/internal/app/uow"
)

// LockScoped commands declare the lock keys they need. LockScope runs against
// a read-only unit before the write transaction opens.
type LockScoped interface {
	commands.Command
	LockScope(ctx context.Context, unit uow.UnitOfWork) ([]string, error)
}

// Locking holds the command's keys from before the transaction begins until
// after it commits. If the handler reports locks.ErrScopeChanged the scope is
// resolved again and the command retried once.
func Locking(locker locks.Locker, factory uow.UoWFactory, logger *slog.Logger) CommandMiddleware {
	if locker == nil {
		panic("middleware: locker required")
	}
	if factory == nil {
		panic("middleware: uow factory required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			scoped, ok := cmd.(LockScoped)
			if !ok {
				return nextFn(ctx, cmd)
			}
			var lastErr error
			for attempt := 0; attempt < 2; attempt++ {
				res, err := runLocked(ctx, locker, factory, scoped, nextFn)
				if !errors.Is(err, locks.ErrScopeChanged) {
					return res, err
				}
				logger.Info("lock scope changed, retrying", "command", cmd.Key(), "attempt", attempt+1)
				lastErr = err
			}
			return nil, lastErr
		})
	}
}

func runLocked(ctx context.Context, locker locks.Locker, factory uow.UoWFactory, cmd LockScoped, next commandFunc) (any, error) {
	keys, err := resolveScope(ctx, factory, cmd)
	if err != nil {
		return nil, err
	}
	lease, err := locker.Acquire(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lease.Release(context.WithoutCancel(ctx))
	}()
	return next(locks.WithScope(ctx, keys), cmd)
}

func resolveScope(ctx context.Context, factory uow.UoWFactory, cmd LockScoped) ([]string, error) {
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	readCtx := uow.Bind(ctx, unit)
	defer func() { _ = unit.Rollback(readCtx) }()
	keys, err := cmd.LockScope(readCtx, unit)
	if err != nil {
		return nil, err
	}
	return locks.Normalize(keys), nil
}
