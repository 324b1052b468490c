package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

type UserType string

const (
	UserTypeGuest   UserType = "guest"
	UserTypeRegular UserType = "regular"
)

// GuestEmailPattern matches the emails of auto-provisioned guest accounts.
var GuestEmailPattern = regexp.MustCompile(`^guest-\d+@`)

type User struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

func (u *User) Type() UserType {
	if GuestEmailPattern.MatchString(u.Email) {
		return UserTypeGuest
	}
	return UserTypeRegular
}

func (u *User) IsGuest() bool {
	return u.Type() == UserTypeGuest
}

// Session is the identity resolved from request credentials.
type Session struct {
	ID        string
	User      User
	ExpiresAt time.Time
}
