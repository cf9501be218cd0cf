package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "role"
)

// UserIDFromContext returns the authenticated user's id, if present.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxUserID).(uuid.UUID)
	return id, ok
}

// RoleFromContext returns the authenticated user's role, if present.
func RoleFromContext(ctx context.Context) (enums.Role, bool) {
	role, ok := ctx.Value(ctxRole).(enums.Role)
	return role, ok
}

func withIdentity(ctx context.Context, userID uuid.UUID, role enums.Role) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxRole, role)
}
