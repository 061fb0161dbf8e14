package domain

import "time"

// Role is the authorization role attached to a user account.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// String returns the string representation of Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is a known value.
func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleAdmin || r == RoleSuperAdmin
}

// IsPrivileged reports whether the role may read every tenant's pool data.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User represents a dashboard account.
// Corresponds to users table in PostgreSQL.
type User struct {
	ID                     int64
	Email                  string
	Role                   Role
	ExternalSubaccountName *string // pool subaccount mapped to this customer (nullable)
	CreatedAt              time.Time
}

// SubaccountName returns the mapped pool subaccount, or "" when none is set.
func (u *User) SubaccountName() string {
	if u == nil || u.ExternalSubaccountName == nil {
		return ""
	}
	return *u.ExternalSubaccountName
}
