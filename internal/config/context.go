package config

import "context"

type managerCtxKey struct{}

// ContextWithManager stores the configuration manager in ctx.
func ContextWithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerCtxKey{}, m)
}

// ManagerFromContext returns the manager stored in ctx, or nil.
func ManagerFromContext(ctx context.Context) *Manager {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(managerCtxKey{}).(*Manager)
	return m
}
