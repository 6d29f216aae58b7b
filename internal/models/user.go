package models

import "time"

type Role string

const (
	RoleCandidate Role = "candidate"
	RoleEmployer  Role = "employer"
)

func (r Role) Valid() bool {
	return r == RoleCandidate || r == RoleEmployer
}

// User is a Telegram chat linked (optionally) to a portal account.
type User struct {
	ID             int64      `db:"id"`
	Username       *string    `db:"username"`
	FirstName      *string    `db:"first_name"`
	LastName       *string    `db:"last_name"`
	PortalEmail    *string    `db:"portal_email"`
	PortalRole     *string    `db:"portal_role"`
	CreatedAt      time.Time  `db:"created_at"`
	LastCheck      *time.Time `db:"last_check"`
	NotifyEnabled  bool       `db:"notify_enabled"`
	NotifyInterval int        `db:"notify_interval"` // in min
}

func (u User) Role() Role {
	if u.PortalRole == nil {
		return ""
	}
	return Role(*u.PortalRole)
}

// SavedView is a persisted filter/sort state of one listing page.
type SavedView struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Page      string    `db:"page"`
	State     RawJSON   `db:"state"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
