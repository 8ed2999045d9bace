package domain

import "time"

// UserRole distinguishes requesters from experts.
type UserRole string

const (
	UserRoleMember UserRole = "MEMBER"
	UserRoleExpert UserRole = "EXPERT"
)

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for members who open help requests and the
// experts who solve them.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsExpert reports whether the account may claim requests.
func (u *User) IsExpert() bool {
	return u.Role == UserRoleExpert
}
