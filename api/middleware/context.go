package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/aguasol/aguasol-backend/pkg/enums"
)

// Caller identifies the customer or admin behind an authenticated request.
// Guest checkout and tracking run without one.
type Caller struct {
	ID   uuid.UUID
	Role enums.Role
	Name string
}

func (c Caller) IsAdmin() bool    { return c.Role == enums.RoleAdmin }
func (c Caller) IsCustomer() bool { return c.Role == enums.RoleCustomer }

type callerKey struct{}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	caller, ok := ctx.Value(callerKey{}).(Caller)
	if !ok || caller.ID == uuid.Nil {
		return Caller{}, false
	}
	return caller, true
}

func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	caller, ok := CallerFromContext(ctx)
	return caller.ID, ok
}

func RoleFromContext(ctx context.Context) enums.Role {
	caller, _ := CallerFromContext(ctx)
	return caller.Role
}
