package domain

import (
	"context"
	"errors"
	"time"
)

// User is the profile the identity provider vouched for, recorded on first activity.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role represents a user's access level
type Role string

const (
	// RoleAdmin can run reconciliation and every staff operation
	RoleAdmin Role = "admin"

	// RoleStaff scans tickets at the venue door
	RoleStaff Role = "staff"

	// RoleCustomer buys, holds and transfers tickets
	RoleCustomer Role = "customer"
)

var validRoles = map[Role]bool{
	RoleAdmin:    true,
	RoleStaff:    true,
	RoleCustomer: true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanRedeem checks if the role may validate tickets at the venue
func (r Role) CanRedeem() bool {
	return r == RoleAdmin || r == RoleStaff
}

// CanReconcile checks if the role may run ledger reconciliation
func (r Role) CanReconcile() bool {
	return r == RoleAdmin
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)

type userContextKey struct{}

// ContextWithUser stores the verified user in ctx.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the verified user stored by the auth middleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*User)
	return user, ok && user != nil
}
