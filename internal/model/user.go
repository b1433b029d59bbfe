// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account. Email is the login identifier; Username is
// optional and, when set, is what other people see.
//
// PasswordHash never leaves the server: the json:"-" tag keeps it out of every
// response body.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username,omitempty"` // empty means unset (NULL in the DB)
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatarUrl,omitempty"` // reference to an externally hosted image
	IsActive     bool      `json:"isActive"`
	IsStaff      bool      `json:"isStaff"`
	IsSuperuser  bool      `json:"isSuperuser"`
	DateJoined   time.Time `json:"dateJoined"`
	DateModified time.Time `json:"dateModified"`
	LastLogin    time.Time `json:"lastLogin"`
}

// DisplayName prefers the username and falls back to the email.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// FullName is "first last".
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) ShortName() string {
	return u.FirstName
}

// CanModerate reports whether the user may change content they do not own.
func (u *User) CanModerate() bool {
	return u.IsStaff || u.IsSuperuser
}
