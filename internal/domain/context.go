package domain

import "context"

// Principal identifies the requesting user for ownership and GDPR decisions.
type Principal struct {
	UserID string
	Role   string
}

// AdminRole is the role required for query-expansion administration.
const AdminRole = "admin"

// IsAdmin reports whether the principal may manage tenant configuration.
func (p Principal) IsAdmin() bool { return p.Role == AdminRole }

type tenantKey struct{}

type principalKey struct{}

// ContextWithTenant stores the resolved tenant id in the context.
// Tenant resolution itself is owned by an external collaborator; the
// search layer only consumes the value.
func ContextWithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantFromContext extracts the tenant id, or "" if none was resolved.
func TenantFromContext(ctx context.Context) string {
	if t, ok := ctx.Value(tenantKey{}).(string); ok {
		return t
	}
	return ""
}

// ContextWithPrincipal stores the requesting principal in the context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the principal, or a zero Principal.
func PrincipalFromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Principal{}
}
